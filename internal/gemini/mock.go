package gemini

import (
	"context"
	"sync"
)

// Mock is a scriptable client for tests and local development. It is safe
// for concurrent use; the extraction runs of one turn call it in parallel.
type Mock struct {
	// Reply computes the completion for a request. Nil echoes the last part.
	Reply func(contents []Content) (string, error)

	mu    sync.Mutex
	calls [][]Content
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) GenerateContent(ctx context.Context, contents []Content) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	m.mu.Lock()
	m.calls = append(m.calls, contents)
	m.mu.Unlock()

	if m.Reply != nil {
		return m.Reply(contents)
	}

	if len(contents) == 0 {
		return "I am listening.", nil
	}
	last := contents[len(contents)-1]
	if len(last.Parts) == 0 {
		return "I am listening.", nil
	}
	return "I heard you: " + last.Parts[len(last.Parts)-1].Text, nil
}

// Calls returns a snapshot of every request seen so far.
func (m *Mock) Calls() [][]Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Content, len(m.calls))
	copy(out, m.calls)
	return out
}
