package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/palabras/internal/bootstrap"
	"github.com/at-ishikawa/palabras/internal/dictionary"
	"github.com/at-ishikawa/palabras/internal/dictionary/remote"
	"github.com/at-ishikawa/palabras/internal/flashcard"
	"github.com/at-ishikawa/palabras/internal/vocabulary"
)

var errNoVocabularyFile = errors.New("no vocabulary file: set vocabulary.file or pass --vocabulary")

func newFlashcardsCommand() *cobra.Command {
	var vocabularyFile string
	command := &cobra.Command{
		Use:   "flashcards",
		Short: "Study vocabulary cards and look up their definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if vocabularyFile == "" {
				vocabularyFile = cfg.Vocabulary.File
			}
			if vocabularyFile == "" {
				return errNoVocabularyFile
			}
			words, err := vocabulary.ReadFile(vocabularyFile)
			if err != nil {
				return fmt.Errorf("vocabulary.ReadFile > %w", err)
			}

			app := bootstrap.New()
			cache, handle := openCache(cmd.Context(), cfg)
			app.AddShutdownHook(func(ctx context.Context) error {
				return handle.Close()
			})

			panel := flashcard.NewPanel(dictionary.NewResolver(cache, remote.NewClient(cfg.Definitions)))
			app.AddShutdownHook(func(ctx context.Context) error {
				panel.Close()
				return nil
			})

			return app.Run(cmd.Context(), func(ctx context.Context) error {
				return flashcard.NewSession(words, panel, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
			})
		},
	}
	command.Flags().StringVar(&vocabularyFile, "vocabulary", "", "vocabulary file (default: vocabulary.file)")
	return command
}
