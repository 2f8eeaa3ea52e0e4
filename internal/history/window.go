// Package history holds the volatile per-conversation turn log. Unlike the
// fact store it is never persisted and resets on restart.
package history

import "sync"

// Role tags the speaker of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message exchanged within a conversation.
type Turn struct {
	Role Role
	Text string
}

// Window keeps an ordered turn log per conversation key, created lazily on
// first append and kept for the process lifetime.
type Window struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func NewWindow() *Window {
	return &Window{turns: make(map[string][]Turn)}
}

func (w *Window) Append(key string, turn Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns[key] = append(w.turns[key], turn)
}

// Trailing returns up to max turns preceding the most recently appended one.
// The newest turn is excluded because the just-submitted prompt is injected
// separately as the final message of the assembled context.
func (w *Window) Trailing(key string, max int) []Turn {
	w.mu.RLock()
	defer w.mu.RUnlock()

	arr := w.turns[key]
	if len(arr) <= 1 || max <= 0 {
		return nil
	}
	prior := arr[:len(arr)-1]
	if max > len(prior) {
		max = len(prior)
	}
	out := make([]Turn, max)
	copy(out, prior[len(prior)-max:])
	return out
}

// Len reports the number of turns stored for a key.
func (w *Window) Len(key string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.turns[key])
}
