// Package shader caches compiled shader variants keyed by their compile
// settings. Two settings objects with equal contents share one cache entry
// even when they are distinct instances.
package shader

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// CompileSettings describes how a shader set is specialized into a variant.
// Settings compare by value, not by instance identity.
type CompileSettings struct {
	// Language is the source language of the shader set, e.g. "wgsl".
	Language string
	// Version is the language version the compiler targets.
	Version uint32
	// ForwardCompatible requests rejection of deprecated constructs.
	ForwardCompatible bool
	// Defines are preprocessor-style switches enabled for this variant.
	Defines []string
}

// Clone returns a deep copy of the settings.
//
// Returns:
//   - *CompileSettings: the copy
func (s *CompileSettings) Clone() *CompileSettings {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Defines = append([]string(nil), s.Defines...)
	return &clone
}

// Equal reports whether two settings describe the same variant. Define order
// does not matter.
//
// Parameters:
//   - other: the settings to compare against
//
// Returns:
//   - bool: true if the settings are equivalent
func (s *CompileSettings) Equal(other *CompileSettings) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.key() == other.key()
}

// key builds the canonical form used for cache lookup.
func (s *CompileSettings) key() string {
	if s == nil {
		return ""
	}
	defines := append([]string(nil), s.Defines...)
	sort.Strings(defines)

	var b strings.Builder
	b.WriteString(s.Language)
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(s.Version), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(s.ForwardCompatible))
	for _, d := range defines {
		b.WriteByte('|')
		b.WriteString(d)
	}
	return b.String()
}

// CompileFunc produces the compiled variant for one settings object.
type CompileFunc func(settings *CompileSettings) (any, error)

// VariantCache maps compile settings to compiled shader variants. Lookups and
// inserts are serialized so concurrent traversals requesting the same variant
// compile it once.
type VariantCache struct {
	mu       *sync.Mutex
	variants map[string]any
}

// NewVariantCache creates an empty variant cache.
//
// Returns:
//   - *VariantCache: the new cache
func NewVariantCache() *VariantCache {
	return &VariantCache{
		mu:       &sync.Mutex{},
		variants: make(map[string]any),
	}
}

// Len returns the number of cached variants.
//
// Returns:
//   - int: the variant count
func (c *VariantCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.variants)
}

// GetOrCompile returns the cached variant for the settings, compiling and
// caching it if missing. The compile callback runs under the cache lock, so a
// given variant is compiled at most once.
//
// Parameters:
//   - settings: the variant's compile settings
//   - compile: invoked to produce the variant on a cache miss
//
// Returns:
//   - any: the cached or newly compiled variant
//   - error: the compile error, in which case nothing is cached
func (c *VariantCache) GetOrCompile(settings *CompileSettings, compile CompileFunc) (any, error) {
	key := settings.key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.variants[key]; ok {
		return v, nil
	}
	v, err := compile(settings.Clone())
	if err != nil {
		return nil, err
	}
	c.variants[key] = v
	return v, nil
}

// Clear drops every cached variant.
func (c *VariantCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variants = make(map[string]any)
}
