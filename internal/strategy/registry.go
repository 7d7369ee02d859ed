// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"sync"

	"github.com/pdiddy/book-enricher/internal/language"
)

// defaultLanguages is the coverage assumed for unregistered providers.
var defaultLanguages = []string{"en"}

// LanguageRegistry records which languages each provider covers. It is
// built once at startup and passed to the Selector.
type LanguageRegistry struct {
	mu    sync.RWMutex
	langs map[string][]string
}

// NewLanguageRegistry returns an empty registry.
func NewLanguageRegistry() *LanguageRegistry {
	return &LanguageRegistry{langs: make(map[string][]string)}
}

// Register sets the languages provider covers. Codes and names are
// normalized; unrecognized values are dropped. Registering no usable
// language leaves the provider on the default.
func (r *LanguageRegistry) Register(provider string, langs ...string) {
	codes := language.NormalizeAll(langs)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(codes) == 0 {
		delete(r.langs, provider)
		return
	}
	r.langs[provider] = codes
}

// Languages returns the languages provider covers, ["en"] when unregistered.
func (r *LanguageRegistry) Languages(provider string) []string {
	if r == nil {
		return defaultLanguages
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if codes, ok := r.langs[provider]; ok {
		return codes
	}
	return defaultLanguages
}

// Coverage counts how many of the requested languages provider covers.
func (r *LanguageRegistry) Coverage(provider string, requested []string) int {
	covered := make(map[string]bool)
	for _, c := range r.Languages(provider) {
		covered[c] = true
	}
	n := 0
	for _, c := range language.NormalizeAll(requested) {
		if covered[c] {
			n++
		}
	}
	return n
}
