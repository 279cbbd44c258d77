package dictionary

import (
	"context"
	"log/slog"
	"time"
)

// EnforceMaxEntries deletes the oldest entries until at most maxEntries remain.
// It never fails its caller: store errors are logged and eviction stops or skips.
// Victims come from one recency snapshot, so touches during the sweep are not reflected.
func EnforceMaxEntries(ctx context.Context, repo EntryRepository, maxEntries int) {
	if repo == nil || maxEntries < 0 {
		return
	}
	count, err := repo.Count(ctx)
	if err != nil {
		slog.Default().Warn("skip eviction: could not count cache entries", "error", err)
		return
	}
	excess := count - maxEntries
	if excess <= 0 {
		return
	}

	victims := make([]string, 0, excess)
	for entry, err := range repo.IterateByRecency(ctx) {
		if err != nil {
			slog.Default().Warn("eviction scan stopped early", "error", err)
			break
		}
		victims = append(victims, entry.Word)
		if len(victims) == excess {
			break
		}
	}

	deleted := deleteAll(ctx, repo, victims)
	slog.Default().Debug("evicted least recently used cache entries",
		"deleted", deleted,
		"count", count,
		"maxEntries", maxEntries,
	)
}

// ExpireOlderThan deletes every entry last accessed before now - maxAge and
// returns how many were deleted. It returns 0 when the store is unavailable.
func ExpireOlderThan(ctx context.Context, repo EntryRepository, maxAge time.Duration, now time.Time) int {
	if repo == nil {
		return 0
	}
	cutoff := now.Add(-maxAge)

	var victims []string
	for entry, err := range repo.IterateByRecency(ctx) {
		if err != nil {
			slog.Default().Warn("expiry scan failed", "error", err)
			return 0
		}
		if !entry.LastAccessed.Before(cutoff) {
			break
		}
		victims = append(victims, entry.Word)
	}

	deleted := deleteAll(ctx, repo, victims)
	if deleted > 0 {
		slog.Default().Debug("expired cache entries", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted
}

func deleteAll(ctx context.Context, repo EntryRepository, words []string) int {
	deleted := 0
	for _, word := range words {
		if err := repo.Delete(ctx, word); err != nil {
			slog.Default().Warn("failed to delete cache entry", "word", word, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}
