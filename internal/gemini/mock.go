package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/afierro/coverline/internal/session"
)

// Mock provides deterministic local replies when no API key is configured,
// so the call flow can be exercised end to end without upstream access.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Ask(ctx context.Context, question string, history []session.Exchange) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	q := strings.TrimSpace(question)
	if q == "" {
		return "I'm listening. What would you like to know about your coverage?", nil
	}
	if len(history) == 0 {
		return fmt.Sprintf("You asked about %q. A licensed agent can confirm the details for your policy.", q), nil
	}
	return fmt.Sprintf("You asked about %q. Earlier you asked about %q.", q, history[len(history)-1].Question), nil
}
