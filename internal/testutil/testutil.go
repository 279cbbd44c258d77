// Package testutil provides shared test helpers for creating config and vocabulary fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/palabras/internal/vocabulary"
)

// DefaultWords is the vocabulary written by SetupTestConfig.
var DefaultWords = []vocabulary.Word{
	{ID: "correr", Spanish: "correr", English: "to run"},
	{ID: "perro", Spanish: "el perro", English: "dog"},
}

// ConfigOption configures optional fields of the generated config file.
type ConfigOption func(*testConfig)

type testConfig struct {
	definitionsURL string
	maxEntries     int
}

// WithDefinitionsURL points the definition client at url, usually an httptest server.
func WithDefinitionsURL(url string) ConfigOption {
	return func(cfg *testConfig) {
		cfg.definitionsURL = url
	}
}

func WithMaxEntries(maxEntries int) ConfigOption {
	return func(cfg *testConfig) {
		cfg.maxEntries = maxEntries
	}
}

// SetupTestConfig creates a config file with a SQLite cache and a vocabulary file under tmpDir.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string, opts ...ConfigOption) string {
	t.Helper()

	cfg := testConfig{
		definitionsURL: "http://127.0.0.1:1/api",
		maxEntries:     1000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	vocabularyPath := filepath.Join(tmpDir, "vocabulary.yml")
	WriteVocabulary(t, vocabularyPath, DefaultWords)

	configContent := fmt.Sprintf(`cache:
  driver: sqlite
  path: %s
  max_entries: %d
  max_age: 720h
definitions:
  base_url: %s
  timeout: 2s
  retry_attempts: 0
vocabulary:
  file: %s
`,
		filepath.Join(tmpDir, "caches", "definitions.db"),
		cfg.maxEntries,
		cfg.definitionsURL,
		vocabularyPath,
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// WriteVocabulary writes words to path as YAML.
func WriteVocabulary(t *testing.T, path string, words []vocabulary.Word) {
	t.Helper()

	content, err := yaml.Marshal(words)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}
