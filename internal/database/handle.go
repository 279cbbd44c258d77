package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/palabras/internal/config"
)

// ErrUnavailable is returned by every Handle call once the store could not be opened.
var ErrUnavailable = errors.New("definition store is unavailable")

// Handle is the process-wide handle to the definition store.
// The connection is opened and migrated on first use and reused afterwards;
// a failed open is remembered, so later calls fail fast with ErrUnavailable.
type Handle struct {
	driver Driver
	db     func() (*sqlx.DB, error)
	opened atomic.Bool
}

// NewHandle returns a Handle that lazily opens the store described by cfg.
func NewHandle(cfg config.CacheConfig, dbCfg config.DatabaseConfig) *Handle {
	driver := Driver(cfg.Driver)
	return newLazyHandle(driver, func() (*sqlx.DB, error) {
		var db *sqlx.DB
		var err error
		switch driver {
		case DriverSQLite:
			db, err = OpenSQLite(cfg.Path)
		case DriverMySQL:
			db, err = OpenMySQL(dbCfg)
		default:
			return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
		}
		if err != nil {
			return nil, err
		}
		if err := Migrate(context.Background(), db, driver); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("Migrate > %w", err)
		}
		return db, nil
	})
}

func newLazyHandle(driver Driver, open func() (*sqlx.DB, error)) *Handle {
	h := &Handle{driver: driver}
	h.db = sync.OnceValues(func() (*sqlx.DB, error) {
		db, err := open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		h.opened.Store(true)
		return db, nil
	})
	return h
}

// DB returns the shared connection, opening it on the first call.
func (h *Handle) DB() (*sqlx.DB, error) {
	if h == nil {
		return nil, ErrUnavailable
	}
	return h.db()
}

// Driver returns the configured driver, or an empty Driver for a nil handle.
func (h *Handle) Driver() Driver {
	if h == nil {
		return ""
	}
	return h.driver
}

// Close closes the connection if it was ever opened.
func (h *Handle) Close() error {
	if h == nil || !h.opened.Load() {
		return nil
	}
	db, err := h.db()
	if err != nil {
		return nil
	}
	return db.Close()
}
