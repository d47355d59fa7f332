// Package toolchain defines the external operations the analysis core
// depends on (reading sections, dumping regions, disassembling) and the
// backends that provide them.
package toolchain

import (
	"context"
	"errors"
	"fmt"

	"renewal/internal/workspace"
)

var (
	ErrIncomplete = errors.New("toolchain is missing an operation")
	ErrNotCode    = errors.New("section holds no instructions")
)

// Region is one named section of one compiled object.
type Region struct {
	Name   string
	Object string
}

func (r Region) String() string {
	return fmt.Sprintf("%s(%s)", r.Name, r.Object)
}

// ExtractionInput returns the raw section listing of one compilation unit.
type ExtractionInput func(ctx context.Context, variant string, unit workspace.Unit) (string, error)

// RegionFetcher returns the full content dump of one region.
type RegionFetcher func(ctx context.Context, region Region) ([]byte, error)

// SectionLister returns the per-section content listing of a binary.
type SectionLister func(ctx context.Context, binary string) (string, error)

// Disassembler returns the disassembly of one section of a binary.
type Disassembler func(ctx context.Context, binary, section string) (string, error)

// Toolchain bundles the operations. Tests substitute deterministic fakes.
type Toolchain struct {
	ExtractionInput ExtractionInput
	FetchRegion     RegionFetcher
	ListSections    SectionLister
	Disassemble     Disassembler
}

// Validate reports the first missing operation.
func (t Toolchain) Validate() error {
	switch {
	case t.ExtractionInput == nil:
		return fmt.Errorf("%w: extraction input", ErrIncomplete)
	case t.FetchRegion == nil:
		return fmt.Errorf("%w: region fetch", ErrIncomplete)
	case t.ListSections == nil:
		return fmt.Errorf("%w: section listing", ErrIncomplete)
	case t.Disassemble == nil:
		return fmt.Errorf("%w: disassembly", ErrIncomplete)
	}
	return nil
}
