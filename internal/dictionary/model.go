// Package dictionary caches word definitions in a persistent store and resolves
// missing ones from a remote definition source.
package dictionary

import (
	"slices"
	"time"
)

// PendingDefinition is the upstream sentinel for a word whose definition is not ready yet.
const PendingDefinition = "Definition pending..."

// Definition is the content cached for a word.
type Definition struct {
	Definitions  []string `yaml:"definitions"`
	ExternalLink string   `yaml:"external_link,omitempty"`
}

// IsPlaceholder reports whether d carries no authoritative content.
func (d Definition) IsPlaceholder() bool {
	return IsPlaceholder(d.Definitions)
}

// IsPlaceholder reports whether definitions is empty or only holds PendingDefinition.
// Placeholder content is never a cache hit and never written to the cache.
func IsPlaceholder(definitions []string) bool {
	if len(definitions) == 0 {
		return true
	}
	return len(definitions) == 1 && definitions[0] == PendingDefinition
}

// Entry is one row of the definition cache.
// LastAccessed is refreshed by every read and write and never repeats within a store.
// It orders both LRU eviction and expiry.
type Entry struct {
	Word         string    `yaml:"word"`
	Definitions  []string  `yaml:"definitions"`
	ExternalLink string    `yaml:"external_link,omitempty"`
	LastAccessed time.Time `yaml:"last_accessed"`
}

// Definition returns a copy of the cached content.
func (e Entry) Definition() Definition {
	return Definition{
		Definitions:  slices.Clone(e.Definitions),
		ExternalLink: e.ExternalLink,
	}
}
