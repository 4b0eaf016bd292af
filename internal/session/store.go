package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("call session not found")

// DefaultVoices are the synthesized voice personas a new call may be assigned.
var DefaultVoices = []string{"Polly.Joanna-Neural", "Polly.Matthew-Neural"}

// Exchange is one question/answer pair in a call's conversation history.
type Exchange struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Session tracks one phone call across stateless webhook turns.
type Session struct {
	CallSID         string     `json:"call_sid"`
	Voice           string     `json:"voice"`
	SilenceAttempts int        `json:"silence_attempts"`
	History         []Exchange `json:"history"`
	StartedAt       time.Time  `json:"started_at"`
	LastActivityAt  time.Time  `json:"last_activity_at"`
}

// VoicePicker chooses the voice persona for a new call. The choice is made
// once at session creation and never changes for the lifetime of the call.
type VoicePicker func() string

// RandomVoicePicker picks uniformly from the given voices.
func RandomVoicePicker(voices []string) VoicePicker {
	if len(voices) == 0 {
		voices = DefaultVoices
	}
	return func() string {
		return voices[rand.Intn(len(voices))]
	}
}

// FixedVoicePicker always returns the same voice. Useful in tests.
func FixedVoicePicker(voice string) VoicePicker {
	return func() string { return voice }
}

// Store is the process-wide table of active call sessions. All mutation goes
// through the store's mutex so in-flight turns never interleave with the sweep.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	ttl          time.Duration
	historyPairs int
	pickVoice    VoicePicker
	onEvict      func(*Session)
}

func NewStore(ttl time.Duration, historyPairs int, pick VoicePicker) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if historyPairs <= 0 {
		historyPairs = 5
	}
	if pick == nil {
		pick = RandomVoicePicker(DefaultVoices)
	}
	return &Store{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		historyPairs: historyPairs,
		pickVoice:    pick,
	}
}

// SetEvictHook registers a callback invoked for every session the sweep removes.
func (s *Store) SetEvictHook(hook func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = hook
}

// GetOrCreate returns the session for callSID, creating it with a freshly
// picked voice when unseen. It touches LastActivityAt on every access and
// reports whether the session was created by this call.
func (s *Store) GetOrCreate(callSID string) (*Session, bool) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[callSID]; ok {
		sess.LastActivityAt = now
		return clone(sess), false
	}
	sess := &Session{
		CallSID:        callSID,
		Voice:          s.pickVoice(),
		StartedAt:      now,
		LastActivityAt: now,
	}
	s.sessions[callSID] = sess
	return clone(sess), true
}

// Get returns a snapshot of the session for callSID.
func (s *Store) Get(callSID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[callSID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

// RecordSilence increments the silence counter for callSID and returns the
// new attempt count.
func (s *Store) RecordSilence(callSID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callSID]
	if !ok {
		return 0, ErrNotFound
	}
	sess.SilenceAttempts++
	sess.LastActivityAt = time.Now().UTC()
	return sess.SilenceAttempts, nil
}

// ResetSilence zeroes the silence counter. Called the moment recognized
// speech arrives.
func (s *Store) ResetSilence(callSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callSID]
	if !ok {
		return ErrNotFound
	}
	sess.SilenceAttempts = 0
	sess.LastActivityAt = time.Now().UTC()
	return nil
}

// AppendExchange records a question/answer pair, trimming the oldest pairs
// beyond the configured bound. It returns a snapshot of the trimmed history.
func (s *Store) AppendExchange(callSID, question, answer string) ([]Exchange, error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callSID]
	if !ok {
		return nil, ErrNotFound
	}
	sess.History = append(sess.History, Exchange{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		CreatedAt: now,
	})
	if over := len(sess.History) - s.historyPairs; over > 0 {
		sess.History = append([]Exchange(nil), sess.History[over:]...)
	}
	sess.LastActivityAt = now
	return append([]Exchange(nil), sess.History...), nil
}

// Remove deletes all state for callSID. Removing an absent call is a no-op.
func (s *Store) Remove(callSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callSID)
}

// Sweep evicts every session idle longer than the store TTL and returns how
// many were removed.
func (s *Store) Sweep(now time.Time) int {
	var evicted []*Session

	s.mu.Lock()
	for sid, sess := range s.sessions {
		if now.Sub(sess.LastActivityAt) <= s.ttl {
			continue
		}
		evicted = append(evicted, clone(sess))
		delete(s.sessions, sid)
	}
	hook := s.onEvict
	s.mu.Unlock()

	if hook != nil {
		for _, sess := range evicted {
			hook(sess)
		}
	}
	return len(evicted)
}

// StartJanitor sweeps on a fixed interval until ctx is canceled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(time.Now().UTC())
			}
		}
	}()
}

// ActiveCount reports how many calls currently hold a session.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func clone(sess *Session) *Session {
	c := *sess
	c.History = append([]Exchange(nil), sess.History...)
	return &c
}
