package dictionary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/palabras/internal/database"
)

// EntryRepository defines operations on the persistent definition store.
type EntryRepository interface {
	// FindByWord returns nil, nil when the word is not stored.
	// A hit refreshes LastAccessed on a best-effort basis.
	FindByWord(ctx context.Context, word string) (*Entry, error)
	// Upsert inserts or replaces the entry. A zero LastAccessed is stamped with the current access time.
	Upsert(ctx context.Context, entry *Entry) error
	// Delete is a no-op for a missing word.
	Delete(ctx context.Context, word string) error
	Count(ctx context.Context) (int, error)
	// IterateByRecency yields entries least recently used first.
	// Each call reads the current state again.
	IterateByRecency(ctx context.Context) iter.Seq2[Entry, error]
	Clear(ctx context.Context) error
}

// Connector provides the connection of a DBEntryRepository. *database.Handle implements it.
type Connector interface {
	DB() (*sqlx.DB, error)
	Driver() database.Driver
}

const entryColumns = "word, definitions, external_link, last_accessed"

type entryRow struct {
	Word         string         `db:"word"`
	Definitions  string         `db:"definitions"`
	ExternalLink sql.NullString `db:"external_link"`
	LastAccessed int64          `db:"last_accessed"`
}

// toEntry decodes the row. On a decode error the returned Entry still carries Word and LastAccessed.
func (row entryRow) toEntry() (Entry, error) {
	entry := Entry{
		Word:         row.Word,
		ExternalLink: row.ExternalLink.String,
		LastAccessed: fromMillis(row.LastAccessed),
	}
	if err := json.Unmarshal([]byte(row.Definitions), &entry.Definitions); err != nil {
		return entry, fmt.Errorf("json.Unmarshal(definitions of %q) > %w", row.Word, err)
	}
	return entry, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// DBEntryRepository implements EntryRepository on the definition_entries table.
type DBEntryRepository struct {
	conn  Connector
	clock *Clock

	observeOnce sync.Once
}

// NewDBEntryRepository creates a new DBEntryRepository. A nil clock reads time.Now.
func NewDBEntryRepository(conn Connector, clock *Clock) *DBEntryRepository {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &DBEntryRepository{
		conn:  conn,
		clock: clock,
	}
}

// Clock returns the clock that stamps access times.
func (r *DBEntryRepository) Clock() *Clock {
	return r.clock
}

func (r *DBEntryRepository) db() (*sqlx.DB, error) {
	if r.conn == nil {
		return nil, fmt.Errorf("handle.DB > %w", database.ErrUnavailable)
	}
	db, err := r.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("handle.DB > %w", err)
	}
	return db, nil
}

// stamp returns the next access time. The first call moves the clock past the newest
// stored access, so recency keeps increasing across processes sharing the store.
func (r *DBEntryRepository) stamp(ctx context.Context, db *sqlx.DB) time.Time {
	r.observeOnce.Do(func() {
		var newest sql.NullInt64
		if err := db.GetContext(ctx, &newest, "SELECT MAX(last_accessed) FROM definition_entries"); err != nil {
			slog.Default().Warn("failed to read the newest cache access", "error", err)
			return
		}
		if newest.Valid {
			r.clock.Observe(fromMillis(newest.Int64))
		}
	})
	return r.clock.Stamp()
}

// FindByWord returns the entry of word, or nil if it is not stored, and marks it as just used.
func (r *DBEntryRepository) FindByWord(ctx context.Context, word string) (*Entry, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}

	var row entryRow
	err = db.GetContext(ctx, &row, "SELECT "+entryColumns+" FROM definition_entries WHERE word = ?", word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(definition_entry) > %w", err)
	}

	entry, err := row.toEntry()
	if err != nil {
		slog.Default().Warn("dropping corrupted cache entry", "word", word, "error", err)
		if _, delErr := db.ExecContext(ctx, "DELETE FROM definition_entries WHERE word = ?", word); delErr != nil {
			slog.Default().Warn("failed to delete corrupted cache entry", "word", word, "error", delErr)
		}
		return nil, nil
	}

	touchedAt := r.stamp(ctx, db)
	if _, err := db.ExecContext(ctx,
		"UPDATE definition_entries SET last_accessed = ? WHERE word = ?",
		toMillis(touchedAt), word,
	); err != nil {
		slog.Default().Warn("failed to refresh last access of cache entry", "word", word, "error", err)
	} else {
		entry.LastAccessed = touchedAt
	}
	return &entry, nil
}

// Upsert inserts the entry or replaces the stored one with the same word.
func (r *DBEntryRepository) Upsert(ctx context.Context, entry *Entry) error {
	db, err := r.db()
	if err != nil {
		return err
	}

	definitions, err := json.Marshal(entry.Definitions)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}
	lastAccessed := entry.LastAccessed
	if lastAccessed.IsZero() {
		lastAccessed = r.stamp(ctx, db)
	} else {
		r.clock.Observe(lastAccessed)
	}
	externalLink := sql.NullString{String: entry.ExternalLink, Valid: entry.ExternalLink != ""}

	if _, err := db.ExecContext(ctx, upsertQuery(r.conn.Driver()),
		entry.Word, string(definitions), externalLink, toMillis(lastAccessed),
	); err != nil {
		return fmt.Errorf("db.ExecContext(upsert definition_entry) > %w", err)
	}
	return nil
}

func upsertQuery(driver database.Driver) string {
	if driver == database.DriverMySQL {
		return `INSERT INTO definition_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE definitions = VALUES(definitions), external_link = VALUES(external_link), last_accessed = VALUES(last_accessed)`
	}
	return `INSERT INTO definition_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(word) DO UPDATE SET definitions = excluded.definitions, external_link = excluded.external_link, last_accessed = excluded.last_accessed`
}

// Delete removes the entry of word.
func (r *DBEntryRepository) Delete(ctx context.Context, word string) error {
	db, err := r.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM definition_entries WHERE word = ?", word); err != nil {
		return fmt.Errorf("db.ExecContext(delete definition_entry) > %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (r *DBEntryRepository) Count(ctx context.Context) (int, error) {
	db, err := r.db()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM definition_entries"); err != nil {
		return 0, fmt.Errorf("db.GetContext(count definition_entries) > %w", err)
	}
	return count, nil
}

// IterateByRecency yields entries least recently used first. Iterating does not touch them.
func (r *DBEntryRepository) IterateByRecency(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		db, err := r.db()
		if err != nil {
			yield(Entry{}, err)
			return
		}

		rows, err := db.QueryxContext(ctx, "SELECT "+entryColumns+" FROM definition_entries ORDER BY last_accessed, word")
		if err != nil {
			yield(Entry{}, fmt.Errorf("db.QueryxContext(definition_entries) > %w", err))
			return
		}
		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			var row entryRow
			if err := rows.StructScan(&row); err != nil {
				yield(Entry{}, fmt.Errorf("rows.StructScan > %w", err))
				return
			}
			// A corrupted row is still yielded so that eviction can remove it.
			entry, err := row.toEntry()
			if err != nil {
				slog.Default().Debug("iterating corrupted cache entry", "word", row.Word, "error", err)
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("rows.Err > %w", err))
		}
	}
}

// Clear removes every entry.
func (r *DBEntryRepository) Clear(ctx context.Context) error {
	db, err := r.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM definition_entries"); err != nil {
		return fmt.Errorf("db.ExecContext(clear definition_entries) > %w", err)
	}
	return nil
}
