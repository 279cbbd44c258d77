// Package flashcard runs flashcard sessions and shows definitions that arrive
// asynchronously only while they are still relevant to the visible card.
package flashcard

import "sync"

// State is the lifecycle of the definition request of the active word.
type State int

const (
	StateIdle State = iota
	StatePending
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Guard tracks the word whose definitions are on screen.
// A result is accepted only if its word is still the active word when it arrives.
// The zero value is ready to use.
type Guard struct {
	mu        sync.Mutex
	active    string
	hasActive bool
	state     State
}

// Select makes word the active word and resets the state to idle.
func (g *Guard) Select(word string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = word
	g.hasActive = true
	g.state = StateIdle
}

// Begin marks a request for word as pending.
// It returns false if word is not active or a request is already pending.
func (g *Guard) Begin(word string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasActive || g.active != word || g.state == StatePending {
		return false
	}
	g.state = StatePending
	return true
}

// Deliver reports whether a result for word may be shown and marks it resolved.
// A result for any other word is stale and leaves the state untouched.
func (g *Guard) Deliver(word string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasActive || g.active != word {
		return false
	}
	g.state = StateResolved
	return true
}

// Reset clears the active word, so every outstanding result becomes stale.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = ""
	g.hasActive = false
	g.state = StateIdle
}

// Active returns the active word and the state of its request.
func (g *Guard) Active() (string, State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active, g.state
}
