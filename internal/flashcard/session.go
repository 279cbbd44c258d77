package flashcard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/at-ishikawa/palabras/internal/dictionary"
	"github.com/at-ishikawa/palabras/internal/vocabulary"
)

var ErrNoWords = errors.New("no vocabulary words to study")

const helpText = "Commands: [f]lip, [n]ext, [p]revious, [d]efinitions, [r]etry, [q]uit"

// Session is an interactive flashcard loop over a vocabulary list.
type Session struct {
	words []vocabulary.Word
	panel *Panel

	stdinReader  io.Reader
	stdoutWriter io.Writer

	index   int
	flipped bool

	bold   *color.Color
	faint  *color.Color
	green  *color.Color
	red    *color.Color
	yellow *color.Color
}

func NewSession(words []vocabulary.Word, panel *Panel, stdin io.Reader, stdout io.Writer) *Session {
	return &Session{
		words:        words,
		panel:        panel,
		stdinReader:  stdin,
		stdoutWriter: stdout,
		bold:         color.New(color.Bold),
		faint:        color.New(color.Faint),
		green:        color.New(color.FgGreen),
		red:          color.New(color.FgRed),
		yellow:       color.New(color.FgYellow),
	}
}

// Run reads commands until quit, end of input, or ctx is done.
// Definitions that finish loading are printed between commands.
func (s *Session) Run(ctx context.Context) error {
	if len(s.words) == 0 {
		return ErrNoWords
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.stdinReader)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(s.stdoutWriter, helpText)
	s.showCard()
	for {
		select {
		case <-ctx.Done():
			return nil
		case result := <-s.panel.Results():
			if update, ok := s.panel.Apply(result); ok {
				s.showDefinitions(update)
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, command string) bool {
	switch strings.ToLower(command) {
	case "":
		return false
	case "q", "quit":
		return true
	case "f", "flip":
		s.flipped = !s.flipped
		s.showCard()
	case "n", "next":
		s.move(1)
	case "p", "prev", "previous":
		s.move(-1)
	case "d", "define":
		s.showDefinitions(s.panel.Request(ctx, s.current().ID))
	case "r", "retry":
		s.showDefinitions(s.panel.Retry(ctx))
	default:
		fmt.Fprintln(s.stdoutWriter, helpText)
	}
	return false
}

func (s *Session) current() vocabulary.Word {
	return s.words[s.index]
}

func (s *Session) move(step int) {
	next := s.index + step
	if next < 0 || next >= len(s.words) {
		s.faint.Fprintln(s.stdoutWriter, "No more cards in this direction")
		return
	}
	s.index = next
	s.flipped = false
	// definitions still loading for the previous card must not show up on this one
	s.panel.Select(s.current().ID)
	s.showCard()
}

func (s *Session) showCard() {
	word := s.current()
	fmt.Fprintf(s.stdoutWriter, "\n[%d/%d] ", s.index+1, len(s.words))
	s.bold.Fprintln(s.stdoutWriter, word.Spanish)
	if s.flipped {
		fmt.Fprintf(s.stdoutWriter, "  %s\n", word.English)
	}
}

func (s *Session) showDefinitions(update PanelUpdate) {
	switch update.Status {
	case StatusIdle:
		s.faint.Fprintln(s.stdoutWriter, "No card selected")
	case StatusLoading:
		s.faint.Fprintf(s.stdoutWriter, "Loading definitions of %s...\n", update.Word)
	case StatusCachedHit, StatusSuccess:
		if update.Definition.IsPlaceholder() {
			s.yellow.Fprintf(s.stdoutWriter, "%s: %s\n", update.Word, dictionary.PendingDefinition)
			return
		}
		s.green.Fprintf(s.stdoutWriter, "Definitions of %s:\n", update.Word)
		for i, definition := range update.Definition.Definitions {
			fmt.Fprintf(s.stdoutWriter, "  %d. %s\n", i+1, definition)
		}
		if update.Definition.ExternalLink != "" {
			s.faint.Fprintf(s.stdoutWriter, "  %s\n", update.Definition.ExternalLink)
		}
	case StatusNotFound:
		s.yellow.Fprintf(s.stdoutWriter, "No definitions found for %s\n", update.Word)
	case StatusError:
		s.red.Fprintf(s.stdoutWriter, "Could not load the definitions of %s. Press r to retry.\n", update.Word)
	}
}
