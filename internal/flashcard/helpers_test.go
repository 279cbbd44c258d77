package flashcard

import (
	"bytes"
	"context"
	"sync"

	"github.com/at-ishikawa/palabras/internal/dictionary"
)

type fakeAnswer struct {
	definition dictionary.Definition
	err        error
}

// fakeResolver answers Peek from a map and blocks Resolve until the test answers the word.
type fakeResolver struct {
	mu     sync.Mutex
	cached map[string]dictionary.Definition
	gates   map[string]chan fakeAnswer
	calls   []string
	running map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		cached: make(map[string]dictionary.Definition),
		gates:   make(map[string]chan fakeAnswer),
		running: make(map[string]int),
	}
}

func (r *fakeResolver) gate(word string) chan fakeAnswer {
	r.mu.Lock()
	defer r.mu.Unlock()
	gate, ok := r.gates[word]
	if !ok {
		gate = make(chan fakeAnswer)
		r.gates[word] = gate
	}
	return gate
}

func (r *fakeResolver) Peek(_ context.Context, word string) (dictionary.Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	definition, ok := r.cached[word]
	return definition, ok
}

func (r *fakeResolver) Resolve(ctx context.Context, word string) (dictionary.Resolution, error) {
	r.mu.Lock()
	r.calls = append(r.calls, word)
	r.running[word]++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running[word]--
		r.mu.Unlock()
	}()

	select {
	case a := <-r.gate(word):
		return dictionary.Resolution{Word: word, Definition: a.definition}, a.err
	case <-ctx.Done():
		return dictionary.Resolution{Word: word}, ctx.Err()
	}
}

func (r *fakeResolver) InFlight(word string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[word] > 0
}

// answer unblocks the pending Resolve of word.
func (r *fakeResolver) answer(word string, definition dictionary.Definition, err error) {
	r.gate(word) <- fakeAnswer{definition: definition, err: err}
}

func (r *fakeResolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// syncBuffer is a bytes.Buffer safe to read while a session writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
