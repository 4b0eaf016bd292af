package ivr

import (
	"math/rand"
	"sync"
)

// Selector picks an index into a list of n options. Injectable so tests can
// pin deterministic choices for prompts that rotate or randomize.
type Selector interface {
	Pick(n int) int
}

type randomSelector struct{}

func (randomSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.Intn(n)
}

// RandomSelector picks uniformly at random.
func RandomSelector() Selector { return randomSelector{} }

type rotatingSelector struct {
	mu   sync.Mutex
	next int
}

func (s *rotatingSelector) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next % n
	s.next++
	return i
}

// RotatingSelector cycles through options in order.
func RotatingSelector() Selector { return &rotatingSelector{} }

type fixedSelector int

func (s fixedSelector) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s) % n
}

// FixedSelector always picks the same index. Useful in tests.
func FixedSelector(i int) Selector { return fixedSelector(i) }
