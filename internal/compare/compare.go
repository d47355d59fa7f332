// Package compare decides whether two regions compiled from different
// variants hold byte-identical contents.
package compare

import (
	"bytes"
	"context"
	"fmt"

	"renewal/internal/toolchain"
)

// Comparator compares raw region dumps. It holds no mutable state and
// may be used from many goroutines.
type Comparator struct {
	fetch toolchain.RegionFetcher
}

func New(fetch toolchain.RegionFetcher) *Comparator {
	return &Comparator{fetch: fetch}
}

// Equal fetches both dumps and compares them byte for byte. A failed
// fetch is returned as is; it is never retried.
func (c *Comparator) Equal(ctx context.Context, a, b toolchain.Region) (bool, error) {
	da, err := c.fetch(ctx, a)
	if err != nil {
		return false, fmt.Errorf("compare %s with %s: %w", a, b, err)
	}
	db, err := c.fetch(ctx, b)
	if err != nil {
		return false, fmt.Errorf("compare %s with %s: %w", a, b, err)
	}
	return bytes.Equal(da, db), nil
}
