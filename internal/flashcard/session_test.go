package flashcard

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/palabras/internal/dictionary"
	"github.com/at-ishikawa/palabras/internal/vocabulary"
)

var testWords = []vocabulary.Word{
	{ID: "correr", Spanish: "correr", English: "to run"},
	{ID: "comer", Spanish: "comer", English: "to eat"},
}

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestSession_Run(t *testing.T) {
	tests := []struct {
		name   string
		words  []vocabulary.Word
		cached map[string]dictionary.Definition
		input  string

		wantContains    []string
		wantNotContains []string
		wantErr         error
	}{
		{
			name:    "no words",
			words:   nil,
			wantErr: ErrNoWords,
		},
		{
			name:  "flip and navigate",
			words: testWords,
			input: "f\nn\np\np\nq\n",
			wantContains: []string{
				"[1/2] correr",
				"  to run",
				"[2/2] comer",
				"No more cards in this direction",
			},
		},
		{
			name:  "cached definitions are shown immediately",
			words: testWords,
			cached: map[string]dictionary.Definition{
				"correr": {Definitions: []string{"to run", "to flow"}, ExternalLink: "https://dle.rae.es/correr"},
			},
			input: "d\nq\n",
			wantContains: []string{
				"Definitions of correr:",
				"  1. to run",
				"  2. to flow",
				"  https://dle.rae.es/correr",
			},
		},
		{
			name:  "unknown command prints help",
			words: testWords,
			input: "x\n",
			wantContains: []string{
				helpText,
			},
			wantNotContains: []string{
				"Definitions of",
			},
		},
		{
			name:         "retry without a card",
			words:        testWords,
			input:        "r\nq\n",
			wantContains: []string{"No card selected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newFakeResolver()
			for word, definition := range tt.cached {
				resolver.cached[word] = definition
			}
			panel := NewPanel(resolver)
			defer panel.Close()

			var out syncBuffer
			session := NewSession(tt.words, panel, strings.NewReader(tt.input), &out)
			err := session.Run(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			for _, want := range tt.wantContains {
				assert.Contains(t, out.String(), want)
			}
			for _, notWant := range tt.wantNotContains {
				assert.NotContains(t, out.String(), notWant)
			}
		})
	}
}

// runSession starts a session fed through a pipe and returns a function to type commands.
func runSession(t *testing.T, resolver *fakeResolver) (func(string), *syncBuffer, <-chan error) {
	t.Helper()

	panel := NewPanel(resolver)
	stdin, typist := io.Pipe()
	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewSession(testWords, panel, stdin, &out).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = typist.Close()
		panel.Close()
	})

	typeLine := func(line string) {
		_, err := io.WriteString(typist, line+"\n")
		require.NoError(t, err)
	}
	return typeLine, &out, errCh
}

func TestSession_DefinitionsArriveLater(t *testing.T) {
	resolver := newFakeResolver()
	typeLine, out, errCh := runSession(t, resolver)

	typeLine("d")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Loading definitions of correr...")
	}, time.Second, 10*time.Millisecond)

	resolver.answer("correr", dictionary.Definition{Definitions: []string{"to run"}}, nil)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "  1. to run")
	}, time.Second, 10*time.Millisecond)

	typeLine("q")
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not quit")
	}
}

func TestSession_StaleDefinitionsAreNotShown(t *testing.T) {
	resolver := newFakeResolver()
	typeLine, out, errCh := runSession(t, resolver)

	typeLine("d")
	typeLine("n")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[2/2] comer")
	}, time.Second, 10*time.Millisecond)

	resolver.answer("correr", dictionary.Definition{Definitions: []string{"to run"}}, nil)

	// a following command is handled only after the stale result has been consumed
	typeLine("d")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Loading definitions of comer...")
	}, time.Second, 10*time.Millisecond)
	resolver.answer("comer", dictionary.Definition{}, errors.New("connection reset"))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Could not load the definitions of comer. Press r to retry.")
	}, time.Second, 10*time.Millisecond)

	typeLine("q")
	require.NoError(t, <-errCh)
	assert.NotContains(t, out.String(), "1. to run")
	assert.NotContains(t, out.String(), "Definitions of correr")
}

func TestSession_StopsWhenContextIsDone(t *testing.T) {
	panel := NewPanel(newFakeResolver())
	defer panel.Close()
	stdin, typist := io.Pipe()
	defer typist.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewSession(testWords, panel, stdin, io.Discard).Run(ctx)
	}()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}
}
