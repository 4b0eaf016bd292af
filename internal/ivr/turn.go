package ivr

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/afierro/coverline/internal/observability"
	"github.com/afierro/coverline/internal/session"
)

// Brain produces a natural-language answer for a caller question given the
// call's bounded history. Implementations enforce their own request timeout;
// the turn handler treats Ask as a single fallible, time-bounded operation
// and substitutes a fallback line on error.
type Brain interface {
	Ask(ctx context.Context, question string, history []session.Exchange) (string, error)
}

// Turn is one webhook request: the call identifier plus whatever input the
// speech recognizer produced for this exchange.
type Turn struct {
	CallSID string
	Speech  string
	Digits  string
}

// Config carries the scripting knobs for the turn handler.
type Config struct {
	WebhookPath      string
	TransferPath     string
	BeepURL          string
	SpeechTimeout    time.Duration
	GatherTimeout    time.Duration
	MaxSilentRetries int
	EndPhrases       []string
}

func (c *Config) applyDefaults() {
	if c.WebhookPath == "" {
		c.WebhookPath = "/incoming-call"
	}
	if c.TransferPath == "" {
		c.TransferPath = "/transfer"
	}
	if c.BeepURL == "" {
		c.BeepURL = "/beep.wav"
	}
	if c.SpeechTimeout <= 0 {
		c.SpeechTimeout = 4 * time.Second
	}
	if c.GatherTimeout <= 0 {
		c.GatherTimeout = 8 * time.Second
	}
	if c.MaxSilentRetries < 1 {
		c.MaxSilentRetries = 2
	}
	if len(c.EndPhrases) == 0 {
		c.EndPhrases = DefaultEndPhrases
	}
}

// Handler is the per-turn state machine. Given the session state and the
// caller's latest utterance it advances the session and returns the ordered
// directives for the response.
type Handler struct {
	store     *session.Store
	brain     Brain
	prompts   *PromptBook
	followUps Selector
	metrics   *observability.Metrics
	cfg       Config
}

func NewHandler(store *session.Store, brain Brain, prompts *PromptBook, followUps Selector, metrics *observability.Metrics, cfg Config) *Handler {
	cfg.applyDefaults()
	if followUps == nil {
		followUps = RandomSelector()
	}
	return &Handler{
		store:     store,
		brain:     brain,
		prompts:   prompts,
		followUps: followUps,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Handle classifies one webhook turn and returns the response directives.
// Every path yields a complete sequence: an unanswered webhook means dead air
// for the caller, so there is no error return.
func (h *Handler) Handle(ctx context.Context, t Turn) []Directive {
	sess, created := h.store.GetOrCreate(t.CallSID)
	if created {
		h.metrics.CallEvents.WithLabelValues("created").Inc()
		h.metrics.ActiveCalls.Set(float64(h.store.ActiveCount()))
	}

	speech := strings.TrimSpace(t.Speech)
	switch {
	case speech != "":
		return h.handleSpeech(ctx, sess, speech)
	case strings.TrimSpace(t.Digits) != "":
		return h.handleDigits(sess)
	default:
		return h.handleSilence(sess)
	}
}

func (h *Handler) handleSpeech(ctx context.Context, sess *session.Session, speech string) []Directive {
	if err := h.store.ResetSilence(sess.CallSID); err != nil {
		log.Printf("call %s: reset silence: %v", sess.CallSID, err)
	}

	if matchesEndIntent(speech, h.cfg.EndPhrases) {
		h.store.Remove(sess.CallSID)
		h.metrics.CallEvents.WithLabelValues("ended").Inc()
		h.metrics.TurnOutcomes.WithLabelValues("farewell").Inc()
		h.metrics.ActiveCalls.Set(float64(h.store.ActiveCount()))
		return []Directive{
			h.say(sess.Voice, h.prompts.Farewell),
			Hangup{},
		}
	}

	answer := h.askBrain(ctx, sess, speech)

	followUp := h.prompts.FollowUps[h.followUps.Pick(len(h.prompts.FollowUps))]
	return []Directive{
		Pause{Seconds: 0.5},
		h.say(sess.Voice, answer),
		Pause{Seconds: 0.8},
		h.say(sess.Voice, followUp),
		Pause{Seconds: 1},
		Play{URL: h.cfg.BeepURL},
		h.gather(),
	}
}

// askBrain runs the completion round trip and absorbs any failure into the
// scripted fallback so the caller experience degrades instead of the call
// dropping. History is only recorded for real answers; feeding the fallback
// line back into the prompt would poison later context.
func (h *Handler) askBrain(ctx context.Context, sess *session.Session, question string) string {
	start := time.Now()
	answer, err := h.brain.Ask(ctx, question, sess.History)
	h.metrics.ObserveCompletionLatency(time.Since(start))
	if err != nil {
		log.Printf("call %s: completion failed: %v", sess.CallSID, err)
		h.metrics.CompletionErrors.WithLabelValues(completionErrorReason(err)).Inc()
		h.metrics.TurnOutcomes.WithLabelValues("answer_fallback").Inc()
		return h.prompts.Fallback
	}

	h.metrics.TurnOutcomes.WithLabelValues("answer").Inc()
	if _, err := h.store.AppendExchange(sess.CallSID, question, answer); err != nil {
		log.Printf("call %s: append exchange: %v", sess.CallSID, err)
	}
	return answer
}

func (h *Handler) handleDigits(sess *session.Session) []Directive {
	if err := h.store.ResetSilence(sess.CallSID); err != nil {
		log.Printf("call %s: reset silence: %v", sess.CallSID, err)
	}
	h.metrics.TurnOutcomes.WithLabelValues("digits").Inc()
	return []Directive{
		h.say(sess.Voice, h.prompts.DigitsHint),
		Play{URL: h.cfg.BeepURL},
		h.gather(),
	}
}

func (h *Handler) handleSilence(sess *session.Session) []Directive {
	attempts, err := h.store.RecordSilence(sess.CallSID)
	if err != nil {
		log.Printf("call %s: record silence: %v", sess.CallSID, err)
		attempts = 1
	}

	if attempts > h.cfg.MaxSilentRetries {
		h.store.Remove(sess.CallSID)
		h.metrics.CallEvents.WithLabelValues("escalated").Inc()
		h.metrics.TurnOutcomes.WithLabelValues("escalate").Inc()
		h.metrics.ActiveCalls.Set(float64(h.store.ActiveCount()))
		return []Directive{
			h.say(sess.Voice, h.prompts.Escalate),
			Redirect{URL: h.cfg.TransferPath},
		}
	}

	var line string
	if attempts == 1 {
		line = h.prompts.Greeting
		h.metrics.TurnOutcomes.WithLabelValues("greeting").Inc()
	} else {
		line = h.prompts.Reminders[(attempts-2)%len(h.prompts.Reminders)]
		h.metrics.TurnOutcomes.WithLabelValues("retry").Inc()
	}

	return []Directive{
		h.say(sess.Voice, line),
		Play{URL: h.cfg.BeepURL},
		h.gather(),
	}
}

// Transfer is the human-transfer flow the escalation branch redirects to.
// The session is already gone by the time Twilio follows the redirect, so
// the default voice persona speaks it.
func (h *Handler) Transfer() []Directive {
	return []Directive{
		h.say(session.DefaultVoices[0], h.prompts.Transfer),
		Hangup{},
	}
}

func (h *Handler) say(voice, text string) Speak {
	return Speak{Text: text, Voice: voice, Rate: "90%"}
}

func (h *Handler) gather() Gather {
	return Gather{
		Action:        h.cfg.WebhookPath,
		SpeechTimeout: h.cfg.SpeechTimeout,
		Timeout:       h.cfg.GatherTimeout,
		SpeechModel:   "phone_call",
		ActionOnEmpty: true,
	}
}

func completionErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "upstream"
	}
}
