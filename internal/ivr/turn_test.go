package ivr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/afierro/coverline/internal/observability"
	"github.com/afierro/coverline/internal/session"
)

var testMetrics = observability.NewMetrics("ivr_test")

type stubBrain struct {
	answer  string
	err     error
	lastQ   string
	history []session.Exchange
}

func (b *stubBrain) Ask(_ context.Context, question string, history []session.Exchange) (string, error) {
	b.lastQ = question
	b.history = history
	if b.err != nil {
		return "", b.err
	}
	return b.answer, nil
}

func newTestHandler(brain Brain) (*Handler, *session.Store) {
	store := session.NewStore(30*time.Minute, 5, session.FixedVoicePicker("Polly.Joanna-Neural"))
	prompts := NewPromptBook("Acme Insurance", "where peace of mind is our policy")
	h := NewHandler(store, brain, prompts, FixedSelector(0), testMetrics, Config{
		MaxSilentRetries: 2,
	})
	return h, store
}

func TestFirstSilentTurnGreets(t *testing.T) {
	h, store := newTestHandler(&stubBrain{})

	out := h.Handle(context.Background(), Turn{CallSID: "CA1"})
	if len(out) != 3 {
		t.Fatalf("directive count = %d, want 3: %#v", len(out), out)
	}
	speak, ok := out[0].(Speak)
	if !ok || speak.Text != h.prompts.Greeting {
		t.Fatalf("first directive = %#v, want full greeting", out[0])
	}
	if _, ok := out[1].(Play); !ok {
		t.Fatalf("second directive = %#v, want Play", out[1])
	}
	gather, ok := out[2].(Gather)
	if !ok {
		t.Fatalf("last directive = %#v, want Gather", out[2])
	}
	if gather.Action != "/incoming-call" || !gather.ActionOnEmpty {
		t.Fatalf("gather = %#v, want webhook action with empty results allowed", gather)
	}
	if gather.SpeechTimeout != 4*time.Second || gather.Timeout != 8*time.Second {
		t.Fatalf("gather timeouts = %v/%v, want 4s/8s", gather.SpeechTimeout, gather.Timeout)
	}

	sess, err := store.Get("CA1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.SilenceAttempts != 1 {
		t.Fatalf("SilenceAttempts = %d, want 1", sess.SilenceAttempts)
	}
}

func TestSilenceEscalation(t *testing.T) {
	h, store := newTestHandler(&stubBrain{})
	ctx := context.Background()

	first := h.Handle(ctx, Turn{CallSID: "CA2"})
	if s := first[0].(Speak); s.Text != h.prompts.Greeting {
		t.Fatalf("turn 1 line = %q, want greeting", s.Text)
	}

	second := h.Handle(ctx, Turn{CallSID: "CA2"})
	if s := second[0].(Speak); s.Text != h.prompts.Reminders[0] {
		t.Fatalf("turn 2 line = %q, want first reminder", s.Text)
	}

	third := h.Handle(ctx, Turn{CallSID: "CA2"})
	if len(third) != 2 {
		t.Fatalf("escalation directives = %#v, want Speak+Redirect", third)
	}
	if s := third[0].(Speak); s.Text != h.prompts.Escalate {
		t.Fatalf("escalation line = %q", s.Text)
	}
	if r, ok := third[1].(Redirect); !ok || r.URL != "/transfer" {
		t.Fatalf("escalation end = %#v, want redirect to /transfer", third[1])
	}
	if _, err := store.Get("CA2"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session should be removed after escalation, Get() error = %v", err)
	}
}

func TestSpeechResetsSilenceCounter(t *testing.T) {
	h, store := newTestHandler(&stubBrain{answer: "Your policy covers fire damage."})
	ctx := context.Background()

	h.Handle(ctx, Turn{CallSID: "CA3"})
	h.Handle(ctx, Turn{CallSID: "CA3"})
	h.Handle(ctx, Turn{CallSID: "CA3", Speech: "What does my policy cover?"})

	sess, err := store.Get("CA3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.SilenceAttempts != 0 {
		t.Fatalf("SilenceAttempts = %d, want 0 after speech", sess.SilenceAttempts)
	}
	if len(sess.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(sess.History))
	}
}

func TestAnsweringSequence(t *testing.T) {
	brain := &stubBrain{answer: "Your policy covers fire damage."}
	h, store := newTestHandler(brain)

	out := h.Handle(context.Background(), Turn{CallSID: "CA4", Speech: "What does my policy cover?"})

	want := []string{"Pause", "Speak", "Pause", "Speak", "Pause", "Play", "Gather"}
	if len(out) != len(want) {
		t.Fatalf("directive count = %d, want %d: %#v", len(out), len(want), out)
	}
	for i, name := range want {
		if got := directiveName(out[i]); got != name {
			t.Fatalf("directive[%d] = %s, want %s", i, got, name)
		}
	}

	answer := out[1].(Speak)
	if answer.Text != brain.answer {
		t.Fatalf("answer text = %q, want brain answer", answer.Text)
	}
	if answer.Voice != "Polly.Joanna-Neural" {
		t.Fatalf("answer voice = %q, want session voice", answer.Voice)
	}
	followUp := out[3].(Speak)
	if followUp.Text != h.prompts.FollowUps[0] {
		t.Fatalf("follow-up = %q, want pinned first prompt", followUp.Text)
	}
	if brain.lastQ != "What does my policy cover?" {
		t.Fatalf("brain question = %q", brain.lastQ)
	}

	sess, err := store.Get("CA4")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.History) != 1 || sess.History[0].Answer != brain.answer {
		t.Fatalf("history = %#v, want one recorded pair", sess.History)
	}
}

func TestEndIntentTerminatesRegardlessOfAttempts(t *testing.T) {
	h, store := newTestHandler(&stubBrain{answer: "x"})
	ctx := context.Background()

	h.Handle(ctx, Turn{CallSID: "CA5"})
	h.Handle(ctx, Turn{CallSID: "CA5"})
	out := h.Handle(ctx, Turn{CallSID: "CA5", Speech: "thanks, bye"})

	if len(out) != 2 {
		t.Fatalf("farewell directives = %#v, want Speak+Hangup", out)
	}
	if s := out[0].(Speak); s.Text != h.prompts.Farewell {
		t.Fatalf("farewell line = %q", s.Text)
	}
	if _, ok := out[1].(Hangup); !ok {
		t.Fatalf("last directive = %#v, want Hangup", out[1])
	}
	if _, err := store.Get("CA5"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session should be removed on farewell, Get() error = %v", err)
	}
}

func TestBrainFailureFallsBack(t *testing.T) {
	h, store := newTestHandler(&stubBrain{err: context.DeadlineExceeded})

	out := h.Handle(context.Background(), Turn{CallSID: "CA6", Speech: "What does my policy cover?"})

	if len(out) != 7 {
		t.Fatalf("directive count = %d, want full answering sequence", len(out))
	}
	if s := out[1].(Speak); s.Text != h.prompts.Fallback {
		t.Fatalf("answer text = %q, want fallback line", s.Text)
	}
	if _, ok := out[len(out)-1].(Gather); !ok {
		t.Fatalf("last directive = %#v, want Gather (the call keeps going)", out[len(out)-1])
	}

	sess, err := store.Get("CA6")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.History) != 0 {
		t.Fatalf("fallback turns must not be recorded, history = %#v", sess.History)
	}
}

func TestBrainReceivesBoundedHistory(t *testing.T) {
	brain := &stubBrain{answer: "ok"}
	h, _ := newTestHandler(brain)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		h.Handle(ctx, Turn{CallSID: "CA7", Speech: "question number seven?"})
	}
	if len(brain.history) != 5 {
		t.Fatalf("history passed to brain = %d entries, want bound of 5", len(brain.history))
	}
}

func TestVoiceStableAcrossTurns(t *testing.T) {
	store := session.NewStore(30*time.Minute, 5, session.RandomVoicePicker(session.DefaultVoices))
	prompts := NewPromptBook("Acme Insurance", "tagline")
	h := NewHandler(store, &stubBrain{answer: "ok"}, prompts, FixedSelector(0), testMetrics, Config{})
	ctx := context.Background()

	var voices []string
	for i := 0; i < 4; i++ {
		out := h.Handle(ctx, Turn{CallSID: "CA8", Speech: "tell me about claims"})
		for _, d := range out {
			if s, ok := d.(Speak); ok {
				voices = append(voices, s.Voice)
			}
		}
	}
	if len(voices) == 0 {
		t.Fatalf("no Speak directives seen")
	}
	for _, v := range voices {
		if v != voices[0] {
			t.Fatalf("voice changed mid-call: %v", voices)
		}
	}
}

func TestDigitsOnlyInput(t *testing.T) {
	h, store := newTestHandler(&stubBrain{})
	ctx := context.Background()

	h.Handle(ctx, Turn{CallSID: "CA9"})
	out := h.Handle(ctx, Turn{CallSID: "CA9", Digits: "3"})

	if s := out[0].(Speak); s.Text != h.prompts.DigitsHint {
		t.Fatalf("digits line = %q", s.Text)
	}
	if _, ok := out[len(out)-1].(Gather); !ok {
		t.Fatalf("digits turn should re-listen, got %#v", out[len(out)-1])
	}
	sess, err := store.Get("CA9")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.SilenceAttempts != 0 {
		t.Fatalf("SilenceAttempts = %d, want 0 after digit input", sess.SilenceAttempts)
	}
}

func directiveName(d Directive) string {
	switch d.(type) {
	case Speak:
		return "Speak"
	case Pause:
		return "Pause"
	case Play:
		return "Play"
	case Gather:
		return "Gather"
	case Hangup:
		return "Hangup"
	case Redirect:
		return "Redirect"
	default:
		return "unknown"
	}
}
