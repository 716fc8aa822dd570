// Package patterns compiles and caches regular expressions shared by the
// learner, diagnostics and validator.
package patterns

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled expressions kept.
const DefaultCacheSize = 512

// Cache is a bounded, concurrency-safe cache of compiled expressions.
// Compiled *regexp.Regexp values are safe to share between goroutines.
type Cache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

// NewCache creates a cache holding up to size expressions.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("create regex cache: %w", err)
	}
	return &Cache{compiled: c}, nil
}

// MustNewCache is NewCache for package-level defaults.
func MustNewCache(size int) *Cache {
	c, err := NewCache(size)
	if err != nil {
		panic(err)
	}
	return c
}

// Compile returns the compiled form of pattern, searching semantics.
func (c *Cache) Compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.compiled.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.compiled.Add(pattern, re)
	return re, nil
}

// CompileFull returns an expression that only matches when pattern covers
// the entire input.
func (c *Cache) CompileFull(pattern string) (*regexp.Regexp, error) {
	return c.Compile(Anchor(pattern))
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.compiled.Len()
}

// Anchor wraps pattern so that it must match the whole string.
func Anchor(pattern string) string {
	return `^(?:` + pattern + `)$`
}

// FullMatchAny reports whether s fully matches at least one expression.
func FullMatchAny(full []*regexp.Regexp, s string) bool {
	for _, re := range full {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
