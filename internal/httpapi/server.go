package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/afierro/coverline/internal/audio"
	"github.com/afierro/coverline/internal/config"
	"github.com/afierro/coverline/internal/ivr"
	"github.com/afierro/coverline/internal/observability"
	"github.com/afierro/coverline/internal/session"
	"github.com/afierro/coverline/internal/twilio"
	"github.com/afierro/coverline/internal/twiml"
)

// hangupTwiML is the last-resort response when rendering fails; Twilio must
// always receive well-formed markup or the caller hears dead air.
const hangupTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response><Hangup></Hangup></Response>`

type Server struct {
	cfg     config.Config
	store   *session.Store
	turns   *ivr.Handler
	metrics *observability.Metrics
	beep    []byte
}

func New(cfg config.Config, store *session.Store, turns *ivr.Handler, metrics *observability.Metrics) *Server {
	beep, err := audio.BeepWAV(880, 250*time.Millisecond, 8000)
	if err != nil {
		log.Printf("beep synthesis failed: %v", err)
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		turns:   turns,
		metrics: metrics,
		beep:    beep,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Head("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/beep.wav", s.handleBeep)

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			s.cfg.RateLimitRequests,
			s.cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				s.metrics.WebhookRejections.WithLabelValues("rate_limit").Inc()
				http.Error(w, "too many requests", http.StatusTooManyRequests)
			}),
		))
		if s.cfg.Production() {
			r.Use(twilio.VerifyMiddleware(s.cfg.TwilioAuthToken, s.cfg.TwilioWebhookURL, s.metrics))
		}
		r.Post("/incoming-call", s.handleIncomingCall)
		r.Post("/transfer", s.handleTransfer)
	})

	return r
}

func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callSID := r.PostFormValue("CallSid")
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	directives := s.turns.Handle(r.Context(), ivr.Turn{
		CallSID: callSID,
		Speech:  r.PostFormValue("SpeechResult"),
		Digits:  r.PostFormValue("Digits"),
	})
	s.writeTwiML(w, directives)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	s.writeTwiML(w, s.turns.Transfer())
}

func (s *Server) writeTwiML(w http.ResponseWriter, directives []ivr.Directive) {
	w.Header().Set("Content-Type", twiml.ContentType)
	body, err := twiml.Render(directives)
	if err != nil {
		log.Printf("twiml render failed: %v", err)
		_, _ = w.Write([]byte(hangupTwiML))
		return
	}
	_, _ = w.Write(body)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.cfg.CompanyName + " IVR is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "operational",
		"active_calls": s.store.ActiveCount(),
		"memory": map[string]any{
			"alloc_bytes":       ms.Alloc,
			"total_alloc_bytes": ms.TotalAlloc,
			"sys_bytes":         ms.Sys,
			"num_gc":            ms.NumGC,
			"goroutines":        runtime.NumGoroutine(),
		},
	})
}

func (s *Server) handleBeep(w http.ResponseWriter, _ *http.Request) {
	if len(s.beep) == 0 {
		http.Error(w, "beep unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	_, _ = w.Write(s.beep)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
