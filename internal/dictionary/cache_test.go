package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/palabras/internal/config"
	"github.com/at-ishikawa/palabras/internal/database"
)

func TestCache_LookupNeverWritten(t *testing.T) {
	cache := newSQLiteCache(t, newFakeClock())

	for _, word := range []string{"correr", "", "niño", "a/b"} {
		_, ok := cache.Lookup(context.Background(), word)
		assert.False(t, ok, word)
	}
	assert.Equal(t, 0, cache.Size(context.Background()))
}

func TestCache_ReadYourWrite(t *testing.T) {
	tests := []struct {
		name       string
		word       string
		definition Definition
	}{
		{
			name: "definitions with link",
			word: "correr",
			definition: Definition{
				Definitions:  []string{"to run"},
				ExternalLink: "https://dle.rae.es/correr",
			},
		},
		{
			name: "several definitions without link",
			word: "banco",
			definition: Definition{
				Definitions: []string{"bank", "bench", "shoal"},
			},
		},
		{
			name: "non ascii word",
			word: "año",
			definition: Definition{
				Definitions: []string{"year"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newSQLiteCache(t, newFakeClock())
			ctx := context.Background()

			cache.Store(ctx, tt.word, tt.definition)

			got, ok := cache.Lookup(ctx, tt.word)
			require.True(t, ok)
			assert.Equal(t, tt.definition, got)
		})
	}
}

func TestCache_StoreReplacesContent(t *testing.T) {
	clock := newFakeClock()
	cache := newSQLiteCache(t, clock)
	ctx := context.Background()

	cache.Store(ctx, "correr", Definition{Definitions: []string{"to run"}})
	clock.Advance(time.Second)
	cache.Store(ctx, "correr", Definition{Definitions: []string{"to run", "to hurry"}, ExternalLink: "https://dle.rae.es/correr"})

	got, ok := cache.Lookup(ctx, "correr")
	require.True(t, ok)
	assert.Equal(t, []string{"to run", "to hurry"}, got.Definitions)
	assert.Equal(t, "https://dle.rae.es/correr", got.ExternalLink)
	assert.Equal(t, 1, cache.Size(ctx))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	const maxEntries = 5
	const extra = 3

	clock := newFakeClock()
	cache := newSQLiteCache(t, clock, WithMaxEntries(maxEntries))
	ctx := context.Background()

	var words []string
	for i := range maxEntries + extra {
		word := fmt.Sprintf("palabra-%02d", i)
		words = append(words, word)
		cache.Store(ctx, word, Definition{Definitions: []string{"word " + word}})
		clock.Advance(time.Second)
	}

	assert.Equal(t, maxEntries, cache.Size(ctx))
	for _, word := range words[:extra] {
		_, ok := cache.Lookup(ctx, word)
		assert.False(t, ok, "%s should have been evicted", word)
	}
	for _, word := range words[extra:] {
		_, ok := cache.Lookup(ctx, word)
		assert.True(t, ok, "%s should remain", word)
	}
}

func TestCache_EvictsInWriteOrderWithinTheSameMillisecond(t *testing.T) {
	frozen := newFakeClock()

	tests := []struct {
		name string
		now  func() time.Time
	}{
		{name: "frozen clock", now: frozen.Now},
		{name: "wall clock", now: time.Now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newSQLiteCacheAt(t, tt.now, WithMaxEntries(10))
			ctx := context.Background()

			// stored in reverse alphabetical order, so word order never matches recency
			for i := 49; i >= 0; i-- {
				word := fmt.Sprintf("w%02d", i)
				cache.Store(ctx, word, Definition{Definitions: []string{word}})
			}

			var words []string
			for _, entry := range cache.Entries(ctx) {
				words = append(words, entry.Word)
			}
			assert.Equal(t, []string{"w09", "w08", "w07", "w06", "w05", "w04", "w03", "w02", "w01", "w00"}, words)
		})
	}
}

func TestCache_JustStoredEntryIsNotEvicted(t *testing.T) {
	cache := newSQLiteCache(t, newFakeClock(), WithMaxEntries(2))
	ctx := context.Background()

	cache.Store(ctx, "b", Definition{Definitions: []string{"b"}})
	cache.Store(ctx, "c", Definition{Definitions: []string{"c"}})
	cache.Store(ctx, "a", Definition{Definitions: []string{"a"}})

	_, ok := cache.Lookup(ctx, "a")
	assert.True(t, ok)
	_, ok = cache.Lookup(ctx, "b")
	assert.False(t, ok)
	_, ok = cache.Lookup(ctx, "c")
	assert.True(t, ok)
}

func TestCache_RecencyContinuesAcrossRepositories(t *testing.T) {
	clock := newFakeClock()
	handle := newSQLiteHandle(t)
	ctx := context.Background()

	first := NewCache(NewDBEntryRepository(handle, NewClock(clock.Now)))
	for _, word := range []string{"uno", "dos", "tres"} {
		first.Store(ctx, word, Definition{Definitions: []string{word}})
	}

	// a later process whose wall clock reads the same millisecond
	second := NewCache(NewDBEntryRepository(handle, NewClock(clock.Now)), WithMaxEntries(3))
	second.Store(ctx, "cuatro", Definition{Definitions: []string{"four"}})

	var words []string
	for _, entry := range second.Entries(ctx) {
		words = append(words, entry.Word)
	}
	assert.Equal(t, []string{"dos", "tres", "cuatro"}, words)
}

func TestNewCache_SharesTheRepositoryClock(t *testing.T) {
	clock := NewClock(nil)
	repo := NewDBEntryRepository(nil, clock)
	assert.Same(t, clock, NewCache(repo).clock)
	assert.NotNil(t, NewCache(newMemoryRepository()).clock)
	assert.NotNil(t, NewCache(nil).clock)
}

func TestCache_LookupRefreshesRecency(t *testing.T) {
	clock := newFakeClock()
	cache := newSQLiteCache(t, clock, WithMaxEntries(3))
	ctx := context.Background()

	for _, word := range []string{"uno", "dos", "tres"} {
		cache.Store(ctx, word, Definition{Definitions: []string{word}})
		clock.Advance(time.Second)
	}
	_, ok := cache.Lookup(ctx, "uno")
	require.True(t, ok)
	clock.Advance(time.Second)

	cache.Store(ctx, "cuatro", Definition{Definitions: []string{"four"}})

	entries := cache.Entries(ctx)
	var words []string
	for _, entry := range entries {
		words = append(words, entry.Word)
	}
	assert.Equal(t, []string{"tres", "uno", "cuatro"}, words)
}

func TestCache_PurgeOlderThan(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	cache := newSQLiteCache(t, clock)
	ctx := context.Background()

	cache.Store(ctx, "viejo", Definition{Definitions: []string{"old"}})
	clock.Advance(time.Hour)
	cache.Store(ctx, "limite", Definition{Definitions: []string{"edge"}})
	clock.Advance(time.Hour)
	cache.Store(ctx, "nuevo", Definition{Definitions: []string{"new"}})
	clock.Advance(time.Hour)

	// cutoff is start+1h: only entries strictly older are removed
	assert.Equal(t, 1, cache.PurgeOlderThan(ctx, 2*time.Hour))
	assert.Equal(t, 0, cache.PurgeOlderThan(ctx, 2*time.Hour))
	assert.Equal(t, 2, cache.Size(ctx))

	var words []string
	for _, entry := range cache.Entries(ctx) {
		words = append(words, entry.Word)
		assert.False(t, entry.LastAccessed.Before(start.Add(time.Hour)))
	}
	assert.Equal(t, []string{"limite", "nuevo"}, words)
}

func TestCache_PurgeExpired(t *testing.T) {
	clock := newFakeClock()
	cache := newSQLiteCache(t, clock, WithMaxAge(24*time.Hour))
	ctx := context.Background()

	cache.Store(ctx, "ayer", Definition{Definitions: []string{"yesterday"}})
	clock.Advance(25 * time.Hour)
	cache.Store(ctx, "hoy", Definition{Definitions: []string{"today"}})

	assert.Equal(t, 1, cache.PurgeExpired(ctx))
	_, ok := cache.Lookup(ctx, "hoy")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache := newSQLiteCache(t, newFakeClock())
	ctx := context.Background()

	cache.Store(ctx, "uno", Definition{Definitions: []string{"one"}})
	cache.Store(ctx, "dos", Definition{Definitions: []string{"two"}})
	cache.Clear(ctx)

	assert.Equal(t, 0, cache.Size(ctx))
	_, ok := cache.Lookup(ctx, "uno")
	assert.False(t, ok)
}

func TestCache_Seed(t *testing.T) {
	cache := newSQLiteCache(t, newFakeClock())
	ctx := context.Background()

	stored, skipped := cache.Seed(ctx, []Entry{
		{Word: "gato", Definitions: []string{"cat"}, ExternalLink: "https://dle.rae.es/gato"},
		{Word: "zutano", Definitions: []string{PendingDefinition}},
		{Word: "vacio"},
		{Definitions: []string{"no word"}},
	})
	assert.Equal(t, 1, stored)
	assert.Equal(t, 3, skipped)

	got, ok := cache.Lookup(ctx, "gato")
	require.True(t, ok)
	assert.Equal(t, Definition{Definitions: []string{"cat"}, ExternalLink: "https://dle.rae.es/gato"}, got)
	assert.Equal(t, 1, cache.Size(ctx))
}

func TestCache_PersistenceUnavailable(t *testing.T) {
	unavailable := NewDBEntryRepository(nil, nil)
	failing := newMemoryRepository()
	failing.findErr = errors.New("read failed")
	failing.upsertErr = errors.New("quota exceeded")
	failing.countErr = errors.New("count failed")
	failing.iterErr = errors.New("iterate failed")

	tests := []struct {
		name  string
		cache *Cache
	}{
		{name: "no store", cache: NewCache(nil)},
		{name: "store cannot be opened", cache: NewCache(unavailable)},
		{name: "store operations fail", cache: NewCache(failing)},
		{name: "nil cache", cache: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			assert.NotPanics(t, func() {
				tt.cache.Store(ctx, "perro", Definition{Definitions: []string{"dog"}})
				tt.cache.Clear(ctx)
			})
			_, ok := tt.cache.Lookup(ctx, "perro")
			assert.False(t, ok)
			assert.Equal(t, 0, tt.cache.Size(ctx))
			assert.Equal(t, 0, tt.cache.PurgeOlderThan(ctx, time.Hour))
			assert.Empty(t, tt.cache.Entries(ctx))
		})
	}
}

func TestCache_StoreCannotBeOpened(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))
	handle := database.NewHandle(config.CacheConfig{
		Driver: string(database.DriverSQLite),
		Path:   filepath.Join(blocker, "definitions.db"),
	}, config.DatabaseConfig{})
	cache := NewCache(NewDBEntryRepository(handle, nil))
	ctx := context.Background()

	for range 3 {
		cache.Store(ctx, "perro", Definition{Definitions: []string{"dog"}})
		_, ok := cache.Lookup(ctx, "perro")
		assert.False(t, ok)
	}
	assert.Equal(t, 0, cache.Size(ctx))
	_, err := handle.DB()
	assert.ErrorIs(t, err, database.ErrUnavailable)
}
