package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

//go:generate mockgen -source=resolver.go -destination=../mocks/dictionary/mock_source.go -package=mock_dictionary Source

// Source fetches definitions from the remote definition service.
// Implementations report a missing word with an error wrapping ErrNotFound;
// any other error is treated as transient.
type Source interface {
	Fetch(ctx context.Context, word string) (Definition, error)
}

var (
	// ErrInFlight is returned when a resolution for the same word is still running.
	ErrInFlight = errors.New("definition request already in flight")
	// ErrNotFound means the remote source has no definition for the word.
	ErrNotFound = errors.New("definition not found")
)

// FetchError is a transient remote failure. Nothing is cached and the caller may retry.
type FetchError struct {
	Word string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not load the definitions of %q, please try again: %v", e.Word, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Retriable() bool {
	return true
}

// IsRetriable reports whether err is a transient failure worth retrying.
func IsRetriable(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Retriable()
}

// Resolution is a successful result of Resolver.Resolve.
type Resolution struct {
	Word       string
	Definition Definition
	FromCache  bool
}

// Resolver returns definitions from the cache, falling back to the remote source.
type Resolver struct {
	cache  *Cache
	source Source

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewResolver returns a Resolver reading through cache. A nil cache disables caching.
func NewResolver(cache *Cache, source Source) *Resolver {
	return &Resolver{
		cache:    cache,
		source:   source,
		inFlight: make(map[string]struct{}),
	}
}

// Peek returns the cached definition of word only when it is authoritative.
func (r *Resolver) Peek(ctx context.Context, word string) (Definition, bool) {
	definition, ok := r.cache.Lookup(ctx, word)
	if !ok || definition.IsPlaceholder() {
		return Definition{}, false
	}
	return definition, true
}

// Resolve returns the definition of word.
// At most one resolution per word runs at a time; a concurrent call gets ErrInFlight.
// Remote content is written back to the cache unless it is a placeholder.
func (r *Resolver) Resolve(ctx context.Context, word string) (Resolution, error) {
	if !r.acquire(word) {
		return Resolution{Word: word}, ErrInFlight
	}
	defer r.release(word)

	if definition, ok := r.Peek(ctx, word); ok {
		return Resolution{Word: word, Definition: definition, FromCache: true}, nil
	}

	definition, err := r.source.Fetch(ctx, word)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Default().Debug("no definition for word", "word", word)
			return Resolution{Word: word}, fmt.Errorf("%q > %w", word, ErrNotFound)
		}
		slog.Default().Info("definition fetch failed", "word", word, "error", err)
		return Resolution{Word: word}, &FetchError{Word: word, Err: err}
	}

	if !definition.IsPlaceholder() {
		r.cache.Store(ctx, word, definition)
	}
	return Resolution{Word: word, Definition: definition}, nil
}

// InFlight reports whether a resolution for word is running.
func (r *Resolver) InFlight(word string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[word]
	return ok
}

func (r *Resolver) acquire(word string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[word]; ok {
		return false
	}
	r.inFlight[word] = struct{}{}
	return true
}

func (r *Resolver) release(word string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, word)
}
