package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/afierro/coverline/internal/config"
	"github.com/afierro/coverline/internal/gemini"
	"github.com/afierro/coverline/internal/httpapi"
	"github.com/afierro/coverline/internal/ivr"
	"github.com/afierro/coverline/internal/observability"
	"github.com/afierro/coverline/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store := session.NewStore(cfg.SessionTTL, cfg.HistoryPairs, session.RandomVoicePicker(session.DefaultVoices))
	store.SetEvictHook(func(_ *session.Session) {
		metrics.CallEvents.WithLabelValues("expired").Inc()
		metrics.ActiveCalls.Set(float64(store.ActiveCount()))
	})

	var brain ivr.Brain
	if cfg.GeminiAPIKey != "" {
		brain, err = gemini.NewClient(gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			BaseURL:     cfg.GeminiBaseURL,
			Model:       cfg.GeminiModel,
			Timeout:     cfg.GeminiTimeout,
			CompanyName: cfg.CompanyName,
		})
		if err != nil {
			log.Fatalf("gemini client init failed: %v", err)
		}
		log.Printf("completion provider: gemini (%s)", cfg.GeminiModel)
	} else {
		brain = gemini.NewMock()
		log.Printf("completion provider: mock (GEMINI_API_KEY not set)")
	}

	prompts := ivr.NewPromptBook(cfg.CompanyName, cfg.CompanyTagline)
	turns := ivr.NewHandler(store, brain, prompts, ivr.RandomSelector(), metrics, ivr.Config{
		SpeechTimeout:    cfg.GatherSpeechTimeout,
		GatherTimeout:    cfg.GatherTimeout,
		MaxSilentRetries: cfg.MaxSilentRetries,
	})

	api := httpapi.New(cfg, store, turns, metrics)
	httpServer := &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	store.StartJanitor(runCtx, cfg.SweepInterval)

	go func() {
		log.Printf("%s IVR listening on %s", cfg.CompanyName, cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
