package extract

import (
	"context"
	"sync"

	"renewal/internal/toolchain"
	"renewal/internal/workspace"
)

type cacheKey struct {
	variant string
	unit    string
}

type cacheEntry struct {
	once    sync.Once
	symbols *SymbolMap
	err     error
}

// Cache extracts each (variant, unit) pair at most once per run.
type Cache struct {
	input   toolchain.ExtractionInput
	matcher Matcher

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
}

func NewCache(input toolchain.ExtractionInput, matcher Matcher) *Cache {
	return &Cache{
		input:   input,
		matcher: matcher,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// Symbols returns the symbol map of one unit of one variant. Concurrent
// callers for the same pair share a single extraction; failures are
// remembered as well.
func (c *Cache) Symbols(ctx context.Context, variant string, unit workspace.Unit) (*SymbolMap, error) {
	key := cacheKey{variant: variant, unit: unit.ID}

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		listing, err := c.input(ctx, variant, unit)
		if err != nil {
			e.err = err
			return
		}
		e.symbols = Extract(listing, c.matcher)
	})
	return e.symbols, e.err
}
