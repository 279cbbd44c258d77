package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/palabras/internal/dictionary"
	"github.com/at-ishikawa/palabras/internal/dictionary/remote"
)

const retryDelay = 500 * time.Millisecond

type resolver interface {
	Resolve(ctx context.Context, word string) (dictionary.Resolution, error)
}

func newLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup WORD",
		Short: "Show the definitions of a word, from the cache when possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cache, handle := openCache(ctx, cfg)
			defer closeHandle(handle)

			r := dictionary.NewResolver(cache, remote.NewClient(cfg.Definitions))
			resolution, err := lookup(ctx, r, args[0], cfg.Definitions.RetryAttempts, retryDelay)
			if errors.Is(err, dictionary.ErrNotFound) {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "No definitions found for %s\n", args[0])
				return nil
			}
			if err != nil {
				return fmt.Errorf("lookup(%s) > %w", args[0], err)
			}
			printResolution(cmd.OutOrStdout(), resolution)
			return nil
		},
	}
}

// lookup resolves word, retrying transient failures up to retryAttempts times.
func lookup(ctx context.Context, r resolver, word string, retryAttempts uint, delay time.Duration) (dictionary.Resolution, error) {
	var resolution dictionary.Resolution
	if err := retry.Do(
		func() error {
			result, err := r.Resolve(ctx, word)
			if err != nil {
				return err
			}
			resolution = result
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts+1),
		retry.RetryIf(dictionary.IsRetriable),
		retry.LastErrorOnly(true),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
	); err != nil {
		return dictionary.Resolution{Word: word}, err
	}
	return resolution, nil
}

func printResolution(w io.Writer, resolution dictionary.Resolution) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprint(w, resolution.Word)
	if resolution.FromCache {
		faint.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)

	if resolution.Definition.IsPlaceholder() {
		color.New(color.FgYellow).Fprintf(w, "  %s\n", dictionary.PendingDefinition)
		return
	}
	for i, definition := range resolution.Definition.Definitions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, definition)
	}
	if resolution.Definition.ExternalLink != "" {
		faint.Fprintf(w, "  %s\n", resolution.Definition.ExternalLink)
	}
}
