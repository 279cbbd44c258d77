package dictionary

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteYAML writes entries as a YAML list that ReadYAML can load back.
func WriteYAML(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("encoder.Encode > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoder.Close > %w", err)
	}
	return nil
}

// ReadYAML reads a YAML list of entries, for example one written by WriteYAML.
// last_accessed is optional.
func ReadYAML(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoder.Decode > %w", err)
	}
	return entries, nil
}
