package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/palabras/internal/dictionary"
)

func newCacheCommand() *cobra.Command {
	cacheCommand := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the definition cache",
	}
	cacheCommand.AddCommand(
		newCacheSizeCommand(),
		newCachePurgeCommand(),
		newCacheClearCommand(),
		newCacheExportCommand(),
		newCacheSeedCommand(),
	)
	return cacheCommand
}

// withCache runs fn against the configured cache and closes it afterwards.
func withCache(cmd *cobra.Command, fn func(ctx context.Context, cache *dictionary.Cache) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cache, handle := openCache(ctx, cfg)
	defer closeHandle(handle)
	return fn(ctx, cache)
}

func newCacheSizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print the number of cached words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, cache *dictionary.Cache) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cache.Size(ctx))
				return err
			})
		},
	}
}

func newCachePurgeCommand() *cobra.Command {
	var olderThan time.Duration
	command := &cobra.Command{
		Use:   "purge",
		Short: "Remove definitions that have not been used for a while",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, cache *dictionary.Cache) error {
				return purgeCache(ctx, cache, olderThan, cmd.OutOrStdout())
			})
		},
	}
	command.Flags().DurationVar(&olderThan, "older-than", 0, "remove entries not used within this duration (default: cache.max_age)")
	return command
}

func purgeCache(ctx context.Context, cache *dictionary.Cache, olderThan time.Duration, w io.Writer) error {
	var removed int
	if olderThan > 0 {
		removed = cache.PurgeOlderThan(ctx, olderThan)
	} else {
		removed = cache.PurgeExpired(ctx)
	}
	_, err := fmt.Fprintf(w, "Removed %d entries\n", removed)
	return err
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, cache *dictionary.Cache) error {
				cache.Clear(ctx)
				return nil
			})
		},
	}
}

func newCacheExportCommand() *cobra.Command {
	var output string
	command := &cobra.Command{
		Use:   "export",
		Short: "Write cached definitions as YAML, least recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, cache *dictionary.Cache) error {
				return exportCache(ctx, cache, output, cmd.OutOrStdout())
			})
		},
	}
	command.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return command
}

func exportCache(ctx context.Context, cache *dictionary.Cache, output string, stdout io.Writer) error {
	entries := cache.Entries(ctx)
	if output == "" {
		return dictionary.WriteYAML(stdout, entries)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("os.Create(%s) > %w", output, err)
	}
	if err := dictionary.WriteYAML(f, entries); err != nil {
		_ = f.Close()
		return fmt.Errorf("dictionary.WriteYAML > %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("f.Close > %w", err)
	}
	return nil
}

func newCacheSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load pre-fetched definitions from a YAML file into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, cache *dictionary.Cache) error {
				return seedCache(ctx, cache, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func seedCache(ctx context.Context, cache *dictionary.Cache, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	entries, err := dictionary.ReadYAML(f)
	if err != nil {
		return fmt.Errorf("dictionary.ReadYAML(%s) > %w", path, err)
	}
	stored, skipped := cache.Seed(ctx, entries)
	_, err = fmt.Fprintf(w, "Seeded %d entries, skipped %d\n", stored, skipped)
	return err
}
