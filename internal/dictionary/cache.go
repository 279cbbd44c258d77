package dictionary

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/at-ishikawa/palabras/internal/database"
)

const (
	// DefaultMaxEntries bounds the number of cached words.
	DefaultMaxEntries = 1000
	// DefaultMaxAge is how long an entry may stay unused before it expires.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// Cache is the facade the rest of the application uses for cached definitions.
// Persistence faults never escape it: a failing or missing store behaves like an empty cache.
type Cache struct {
	repo       EntryRepository
	maxEntries int
	maxAge     time.Duration
	clock      *Clock

	unavailableOnce sync.Once
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxEntries sets the entry bound enforced after every write. A negative value disables it.
func WithMaxEntries(maxEntries int) CacheOption {
	return func(c *Cache) {
		c.maxEntries = maxEntries
	}
}

// WithMaxAge sets the age used by PurgeExpired.
func WithMaxAge(maxAge time.Duration) CacheOption {
	return func(c *Cache) {
		c.maxAge = maxAge
	}
}

// NewCache wraps repo. A nil repo means persistence is unsupported and every call is a no-op.
// Expiry cutoffs are read from the clock of repo, the one that stamps access times.
func NewCache(repo EntryRepository, opts ...CacheOption) *Cache {
	c := &Cache{
		repo:       repo,
		maxEntries: DefaultMaxEntries,
		maxAge:     DefaultMaxAge,
		clock:      NewClock(nil),
	}
	if clocked, ok := repo.(interface{ Clock() *Clock }); ok && clocked.Clock() != nil {
		c.clock = clocked.Clock()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) available() bool {
	return c != nil && c.repo != nil
}

// Lookup returns the cached definition for word. Placeholder content is returned as stored;
// deciding whether it is usable is up to the caller.
func (c *Cache) Lookup(ctx context.Context, word string) (Definition, bool) {
	if !c.available() {
		return Definition{}, false
	}
	entry, err := c.repo.FindByWord(ctx, word)
	if err != nil {
		c.warn("cache lookup failed", word, err)
		return Definition{}, false
	}
	if entry == nil {
		return Definition{}, false
	}
	return entry.Definition(), true
}

// Store writes definition for word and then enforces the entry bound.
// The repository stamps the entry as the most recently used one.
// A failed write leaves the cache unchanged and is only logged.
func (c *Cache) Store(ctx context.Context, word string, definition Definition) {
	if !c.available() {
		return
	}
	entry := &Entry{
		Word:         word,
		Definitions:  slices.Clone(definition.Definitions),
		ExternalLink: definition.ExternalLink,
	}
	if err := c.repo.Upsert(ctx, entry); err != nil {
		c.warn("cache write failed", word, err)
		return
	}
	EnforceMaxEntries(ctx, c.repo, c.maxEntries)
}

// PurgeOlderThan removes entries not accessed within d and returns how many were removed.
func (c *Cache) PurgeOlderThan(ctx context.Context, d time.Duration) int {
	if !c.available() {
		return 0
	}
	return ExpireOlderThan(ctx, c.repo, d, c.clock.Now())
}

// PurgeExpired removes entries older than the configured max age.
func (c *Cache) PurgeExpired(ctx context.Context) int {
	return c.PurgeOlderThan(ctx, c.maxAgeOrDefault())
}

func (c *Cache) maxAgeOrDefault() time.Duration {
	if c == nil || c.maxAge <= 0 {
		return DefaultMaxAge
	}
	return c.maxAge
}

// Size returns the number of stored entries, or 0 when the store cannot be read.
func (c *Cache) Size(ctx context.Context) int {
	if !c.available() {
		return 0
	}
	count, err := c.repo.Count(ctx)
	if err != nil {
		c.warn("cache size failed", "", err)
		return 0
	}
	return count
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) {
	if !c.available() {
		return
	}
	if err := c.repo.Clear(ctx); err != nil {
		c.warn("cache clear failed", "", err)
	}
}

// Entries returns a snapshot of all entries, least recently used first.
// Reading the snapshot does not touch the entries.
func (c *Cache) Entries(ctx context.Context) []Entry {
	if !c.available() {
		return nil
	}
	var entries []Entry
	for entry, err := range c.repo.IterateByRecency(ctx) {
		if err != nil {
			c.warn("cache listing failed", "", err)
			return entries
		}
		entries = append(entries, entry)
	}
	return entries
}

// Seed stores pre-fetched entries, skipping placeholders and blank words.
func (c *Cache) Seed(ctx context.Context, entries []Entry) (stored int, skipped int) {
	for _, entry := range entries {
		definition := entry.Definition()
		if entry.Word == "" || definition.IsPlaceholder() {
			skipped++
			continue
		}
		c.Store(ctx, entry.Word, definition)
		stored++
	}
	return stored, skipped
}

// warn logs persistence faults. An unavailable store is reported once at warning level.
func (c *Cache) warn(msg, word string, err error) {
	if errors.Is(err, database.ErrUnavailable) {
		logged := false
		c.unavailableOnce.Do(func() {
			slog.Default().Warn("definition cache disabled", "error", err)
			logged = true
		})
		if !logged {
			slog.Default().Debug(msg, "word", word, "error", err)
		}
		return
	}
	slog.Default().Warn(msg, "word", word, "error", err)
}
