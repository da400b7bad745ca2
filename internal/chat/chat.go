// Package chat holds the per-session transcript of question/answer turns.
package chat

import (
	"sync"
	"time"
)

// Turn is one recorded question, answer and the model that produced it.
// Turns are values; a Transcript never hands out references to its own.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Model    string    `json:"model"`
	AskedAt  time.Time `json:"asked_at"`
}

// Transcript is an append-only, ordered sequence of turns.
// All methods are safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append adds a turn at the end and returns the new length.
func (t *Transcript) Append(turn Turn) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = append(t.turns, turn)
	return len(t.turns)
}

// Turns returns a copy of all turns in submission order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Reset discards every turn.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
}
