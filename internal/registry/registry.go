package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/rs/zerolog/log"
)

// namespacePrefix is the logging-namespace token some subsystems prepend to
// parameter names (e.g. "CoolingmagnetronFlowLowStatistics").
const namespacePrefix = "cooling"

// statisticsSuffixes are trailing tokens carried by statistics-logger names,
// stripped during canonicalization. Longest first so "lowstatistics" wins
// over "statistics".
var statisticsSuffixes = []string{"lowstatistics", "highstatistics", "statistics"}

// Registry maps raw, inconsistently-spelled parameter names to canonical
// parameter definitions. It is immutable after Build; Canonicalize results
// are memoized by raw name (the mapping is pure, so entries never need
// invalidation).
type Registry struct {
	definitions map[string]domain.ParameterDefinition
	index       map[string]string // normalized alias -> canonical id

	mu    sync.RWMutex
	cache map[string]string // raw name -> canonical id ("" = unknown)
}

// Build constructs a registry from a set of definitions. Alias collisions
// across parameters are rejected: every raw spelling must map to exactly one
// canonical id.
func Build(defs []domain.ParameterDefinition) (*Registry, error) {
	r := &Registry{
		definitions: make(map[string]domain.ParameterDefinition, len(defs)),
		index:       make(map[string]string),
		cache:       make(map[string]string),
	}

	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("parameter definition without id")
		}
		if _, dup := r.definitions[def.ID]; dup {
			return nil, fmt.Errorf("duplicate parameter id %q", def.ID)
		}
		r.definitions[def.ID] = def

		// The canonical id itself is always a valid spelling.
		aliases := append([]string{def.ID}, def.Aliases...)
		for _, alias := range aliases {
			key := normalize(alias)
			if key == "" {
				continue
			}
			if owner, ok := r.index[key]; ok && owner != def.ID {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, owner, def.ID)
			}
			r.index[key] = def.ID
		}
	}

	log.Debug().
		Int("parameters", len(r.definitions)).
		Int("aliases", len(r.index)).
		Msg("Parameter registry built")

	return r, nil
}

// Canonicalize maps a raw parameter name to its canonical id. The second
// return is false for names outside the curated set; that is a filter, not
// an error.
func (r *Registry) Canonicalize(raw string) (string, bool) {
	r.mu.RLock()
	id, hit := r.cache[raw]
	r.mu.RUnlock()
	if hit {
		return id, id != ""
	}

	id = r.resolve(raw)

	r.mu.Lock()
	r.cache[raw] = id
	r.mu.Unlock()

	return id, id != ""
}

// resolve performs the pure lookup behind Canonicalize.
func (r *Registry) resolve(raw string) string {
	key := normalize(raw)
	if key == "" {
		return ""
	}
	if id, ok := r.index[key]; ok {
		return id
	}

	// Retry with the logging-namespace prefix and statistics suffixes
	// stripped, in every combination.
	for _, candidate := range stripVariants(key) {
		if id, ok := r.index[candidate]; ok {
			return id
		}
	}
	return ""
}

// Lookup returns the definition for a canonical id.
func (r *Registry) Lookup(id string) (domain.ParameterDefinition, bool) {
	def, ok := r.definitions[id]
	return def, ok
}

// Definitions returns all registered definitions.
func (r *Registry) Definitions() []domain.ParameterDefinition {
	defs := make([]domain.ParameterDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	return defs
}

// Len returns the number of canonical parameters.
func (r *Registry) Len() int {
	return len(r.definitions)
}

// normalize lowercases a raw name and removes whitespace and the separator
// punctuation log writers are inconsistent about.
func normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range strings.ToLower(strings.TrimSpace(raw)) {
		switch c {
		case ' ', '\t', ':', '_', '-':
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// stripVariants returns the normalized key with the namespace prefix and
// statistics suffixes removed in every combination, original key excluded.
func stripVariants(key string) []string {
	var variants []string

	bases := []string{key}
	if stripped, ok := strings.CutPrefix(key, namespacePrefix); ok && stripped != "" {
		bases = append(bases, stripped)
		variants = append(variants, stripped)
	}

	for _, base := range bases {
		for _, suffix := range statisticsSuffixes {
			if stripped, ok := strings.CutSuffix(base, suffix); ok && stripped != "" {
				variants = append(variants, stripped)
				break
			}
		}
	}
	return variants
}
