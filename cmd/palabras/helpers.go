package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/at-ishikawa/palabras/internal/config"
	"github.com/at-ishikawa/palabras/internal/database"
	"github.com/at-ishikawa/palabras/internal/dictionary"
)

// cacheDriver overrides cache.driver from the command line.
type cacheDriver database.Driver

func (d *cacheDriver) Set(val string) error {
	for _, driver := range allCacheDrivers {
		if val == string(driver) {
			*d = cacheDriver(driver)
			return nil
		}
	}
	return fmt.Errorf("invalid cache driver: %s", val)
}

func (d cacheDriver) String() string {
	return string(d)
}

func (d *cacheDriver) Type() string {
	return "driver"
}

var (
	_               pflag.Value = (*cacheDriver)(nil)
	allCacheDrivers             = []database.Driver{database.DriverSQLite, database.DriverMySQL}
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if cacheDriverFlag != "" {
		cfg.Cache.Driver = cacheDriverFlag.String()
	}
	return cfg, nil
}

// openCache builds the definition cache and sweeps expired entries.
// The cache works without a reachable store; the returned handle must be closed.
func openCache(ctx context.Context, cfg *config.Config) (*dictionary.Cache, *database.Handle) {
	handle := database.NewHandle(cfg.Cache, cfg.Database)
	cache := dictionary.NewCache(
		dictionary.NewDBEntryRepository(handle, dictionary.NewClock(time.Now)),
		dictionary.WithMaxEntries(cfg.Cache.MaxEntries),
		dictionary.WithMaxAge(cfg.Cache.MaxAge),
	)
	if expired := cache.PurgeExpired(ctx); expired > 0 {
		slog.Default().Debug("removed expired definitions", "count", expired)
	}
	return cache, handle
}

func closeHandle(handle *database.Handle) {
	if err := handle.Close(); err != nil {
		slog.Default().Warn("failed to close the definition cache", "error", err)
	}
}
