package flashcard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/at-ishikawa/palabras/internal/dictionary"
)

type Status int

const (
	StatusIdle Status = iota
	StatusCachedHit
	StatusLoading
	StatusSuccess
	StatusNotFound
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCachedHit:
		return "cached"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not found"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Resolver is the part of dictionary.Resolver the panel depends on.
type Resolver interface {
	Peek(ctx context.Context, word string) (dictionary.Definition, bool)
	Resolve(ctx context.Context, word string) (dictionary.Resolution, error)
	InFlight(word string) bool
}

// PanelUpdate is what the definition panel should show.
type PanelUpdate struct {
	Word       string
	Status     Status
	Definition dictionary.Definition
	Err        error
}

// Result is a finished resolution, published on Panel.Results.
type Result struct {
	Word       string
	Resolution dictionary.Resolution
	Err        error
}

// Panel requests definitions for the active card.
// Cache hits are answered synchronously. Misses resolve in the background and
// their Result is published on Results; the UI loop passes it to Apply, which
// drops it if the card has changed in the meantime.
type Panel struct {
	resolver Resolver
	guard    Guard

	results   chan Result
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewPanel(resolver Resolver) *Panel {
	return &Panel{
		resolver: resolver,
		results:  make(chan Result, 16),
		done:     make(chan struct{}),
	}
}

// Results delivers background resolutions in completion order.
func (p *Panel) Results() <-chan Result {
	return p.results
}

// Select switches the active card without requesting its definitions.
func (p *Panel) Select(word string) {
	p.guard.Select(word)
}

// Reset leaves the panel without an active card.
func (p *Panel) Reset() {
	p.guard.Reset()
}

func (p *Panel) Active() (string, State) {
	return p.guard.Active()
}

// Request makes word active and starts loading its definitions.
// When a resolution of word is already running, for example after the user came back
// to the card, its result is awaited instead of starting another one.
func (p *Panel) Request(ctx context.Context, word string) PanelUpdate {
	if active, state := p.guard.Active(); active == word && state == StatePending {
		return PanelUpdate{Word: word, Status: StatusLoading}
	}
	if p.resolver.InFlight(word) {
		p.guard.Select(word)
		p.guard.Begin(word)
		return PanelUpdate{Word: word, Status: StatusLoading}
	}
	p.guard.Select(word)

	if definition, ok := p.resolver.Peek(ctx, word); ok {
		p.guard.Begin(word)
		p.guard.Deliver(word)
		return PanelUpdate{Word: word, Status: StatusCachedHit, Definition: definition}
	}

	if !p.guard.Begin(word) {
		return PanelUpdate{Word: word, Status: StatusLoading}
	}
	select {
	case <-p.done:
		return PanelUpdate{Word: word, Status: StatusError, Err: errPanelClosed}
	default:
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		resolution, err := p.resolver.Resolve(ctx, word)
		select {
		case p.results <- Result{Word: word, Resolution: resolution, Err: err}:
		case <-p.done:
		}
	}()
	return PanelUpdate{Word: word, Status: StatusLoading}
}

// Retry requests the active word again, typically after StatusError.
func (p *Panel) Retry(ctx context.Context) PanelUpdate {
	word, _ := p.guard.Active()
	if word == "" {
		return PanelUpdate{Status: StatusIdle}
	}
	return p.Request(ctx, word)
}

// Apply turns a background result into a panel update.
// It returns false when the result is stale or a duplicate of a running request.
func (p *Panel) Apply(result Result) (PanelUpdate, bool) {
	if errors.Is(result.Err, dictionary.ErrInFlight) {
		return PanelUpdate{}, false
	}
	if !p.guard.Deliver(result.Word) {
		slog.Default().Debug("discard stale definitions", "word", result.Word)
		return PanelUpdate{}, false
	}

	update := PanelUpdate{Word: result.Word, Definition: result.Resolution.Definition}
	switch {
	case result.Err == nil:
		update.Status = StatusSuccess
	case errors.Is(result.Err, dictionary.ErrNotFound):
		update.Status = StatusNotFound
	default:
		update.Status = StatusError
		update.Err = result.Err
	}
	return update, true
}

// Close stops publishing results and waits for background requests to finish.
func (p *Panel) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

var errPanelClosed = errors.New("definition panel is closed")
