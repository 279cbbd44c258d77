// Package vocabulary loads the word list studied in flashcard sessions.
package vocabulary

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Word is one flashcard. ID is the key used for definition lookups.
type Word struct {
	ID      string `yaml:"id"`
	Spanish string `yaml:"spanish"`
	English string `yaml:"english"`
}

var ErrInvalidWord = errors.New("invalid vocabulary word")

// ReadFile reads a word list in YAML or JSON from path.
func ReadFile(path string) ([]Word, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	words, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("Read(%s) > %w", path, err)
	}
	return words, nil
}

// Read decodes a word list. JSON input is accepted since it is valid YAML.
func Read(r io.Reader) ([]Word, error) {
	var words []Word
	if err := yaml.NewDecoder(r).Decode(&words); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoder.Decode > %w", err)
	}
	if err := validate(words); err != nil {
		return nil, err
	}
	return words, nil
}

func validate(words []Word) error {
	seen := make(map[string]int, len(words))
	for i, word := range words {
		id := strings.TrimSpace(word.ID)
		if id == "" {
			return fmt.Errorf("%w: entry %d has an empty id", ErrInvalidWord, i+1)
		}
		if first, ok := seen[id]; ok {
			return fmt.Errorf("%w: id %q is used by entries %d and %d", ErrInvalidWord, id, first+1, i+1)
		}
		seen[id] = i
	}
	return nil
}
