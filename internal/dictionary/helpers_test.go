package dictionary

import (
	"cmp"
	"context"
	"errors"
	"iter"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/palabras/internal/config"
	"github.com/at-ishikawa/palabras/internal/database"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newSQLiteHandle returns a handle to a fresh SQLite file.
func newSQLiteHandle(t *testing.T) *database.Handle {
	t.Helper()

	handle := database.NewHandle(config.CacheConfig{
		Driver: string(database.DriverSQLite),
		Path:   filepath.Join(t.TempDir(), "definitions.db"),
	}, config.DatabaseConfig{})
	t.Cleanup(func() {
		require.NoError(t, handle.Close())
	})
	_, err := handle.DB()
	require.NoError(t, err)
	return handle
}

// newSQLiteCache returns a cache backed by a fresh SQLite file.
func newSQLiteCache(t *testing.T, clock *fakeClock, opts ...CacheOption) *Cache {
	t.Helper()
	return newSQLiteCacheAt(t, clock.Now, opts...)
}

func newSQLiteCacheAt(t *testing.T, now func() time.Time, opts ...CacheOption) *Cache {
	t.Helper()
	return NewCache(NewDBEntryRepository(newSQLiteHandle(t), NewClock(now)), opts...)
}

// memoryRepository is an in-memory EntryRepository with injectable failures.
type memoryRepository struct {
	entries    map[string]Entry
	failDelete map[string]bool
	countErr   error
	iterErr    error
	upsertErr  error
	findErr    error
	deleted    []string
}

func newMemoryRepository(entries ...Entry) *memoryRepository {
	repo := &memoryRepository{
		entries:    make(map[string]Entry),
		failDelete: make(map[string]bool),
	}
	for _, entry := range entries {
		repo.entries[entry.Word] = entry
	}
	return repo
}

func (r *memoryRepository) FindByWord(_ context.Context, word string) (*Entry, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	entry, ok := r.entries[word]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (r *memoryRepository) Upsert(_ context.Context, entry *Entry) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.entries[entry.Word] = *entry
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, word string) error {
	if r.failDelete[word] {
		return errors.New("delete failed")
	}
	delete(r.entries, word)
	r.deleted = append(r.deleted, word)
	return nil
}

func (r *memoryRepository) Count(context.Context) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return len(r.entries), nil
}

func (r *memoryRepository) IterateByRecency(context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if r.iterErr != nil {
			yield(Entry{}, r.iterErr)
			return
		}
		entries := make([]Entry, 0, len(r.entries))
		for _, entry := range r.entries {
			entries = append(entries, entry)
		}
		slices.SortFunc(entries, func(a, b Entry) int {
			if c := a.LastAccessed.Compare(b.LastAccessed); c != 0 {
				return c
			}
			return cmp.Compare(a.Word, b.Word)
		})
		for _, entry := range entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (r *memoryRepository) Clear(context.Context) error {
	clear(r.entries)
	return nil
}

func entryAt(word string, at time.Time) Entry {
	return Entry{Word: word, Definitions: []string{"definition of " + word}, LastAccessed: at}
}
