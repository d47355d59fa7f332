package toolchain

import (
	"context"
	"debug/elf"
	"fmt"
	"strings"

	"renewal/internal/disasm"
	"renewal/internal/elfx"
	"renewal/internal/workspace"
)

const listingWidth = 16

// NewNative returns a toolchain that reads ELF files in-process and
// renders readelf/objdump compatible text.
func NewNative() Toolchain {
	return Toolchain{
		ExtractionInput: func(ctx context.Context, variant string, unit workspace.Unit) (string, error) {
			return withImage(ctx, unit.Object, SectionTable)
		},
		FetchRegion: func(ctx context.Context, r Region) ([]byte, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			im, err := elfx.Open(r.Object)
			if err != nil {
				return nil, fmt.Errorf("dump region %s: %w", r, err)
			}
			defer im.Close()
			data, err := im.SectionData(r.Name)
			if err != nil {
				return nil, fmt.Errorf("dump region %s: %w", r, err)
			}
			return data, nil
		},
		ListSections: func(ctx context.Context, binary string) (string, error) {
			return withImage(ctx, binary, ContentListing)
		},
		Disassemble: func(ctx context.Context, binary, section string) (string, error) {
			return withImage(ctx, binary, func(im *elfx.Image) (string, error) {
				return Disassembly(im, section)
			})
		},
	}
}

func withImage(ctx context.Context, path string, fn func(*elfx.Image) (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	im, err := elfx.Open(path)
	if err != nil {
		return "", err
	}
	defer im.Close()
	return fn(im)
}

// SectionTable renders the section header table in readelf -S -W layout,
// one section per line.
func SectionTable(im *elfx.Image) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "There are %d section headers:\n\nSection Headers:\n", len(im.Sections))
	b.WriteString("  [Nr] Name              Type            Addr     Off    Size\n")
	for _, s := range im.Sections {
		fmt.Fprintf(&b, "  [%2d] %-17s %-15s %08x %06x %06x\n",
			s.Index, s.Name, strings.TrimPrefix(s.Type.String(), "SHT_"), s.VA, s.Off, s.Size)
	}
	return b.String(), nil
}

// ContentListing renders every section with file contents in objdump -s layout.
func ContentListing(im *elfx.Image) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s:     file format %s\n\n", im.Path, formatName(im))
	for _, s := range im.Sections {
		if !s.HasContents() {
			continue
		}
		data, err := im.SectionData(s.Name)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Contents of section %s:\n", s.Name)
		for off := 0; off < len(data); off += listingWidth {
			end := min(off+listingWidth, len(data))
			writeListingLine(&b, s.VA+uint64(off), data[off:end])
		}
	}
	return b.String(), nil
}

func writeListingLine(b *strings.Builder, addr uint64, row []byte) {
	fmt.Fprintf(b, " %04x ", addr)
	for i := 0; i < listingWidth; i++ {
		if i < len(row) {
			fmt.Fprintf(b, "%02x", row[i])
		} else {
			b.WriteString("  ")
		}
		if i%4 == 3 {
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	for _, c := range row {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		b.WriteByte(c)
	}
	b.WriteByte('\n')
}

// Disassembly renders one code section in objdump -d layout.
func Disassembly(im *elfx.Image, section string) (string, error) {
	s, ok := im.Section(section)
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", elfx.ErrNoSection, section, im.Path)
	}
	if !s.Code() {
		return "", fmt.Errorf("%w: %s in %s", ErrNotCode, section, im.Path)
	}
	data, err := im.SectionData(section)
	if err != nil {
		return "", err
	}
	stream, err := disasm.Decode(im.Machine, data, s.VA)
	if err != nil {
		return "", fmt.Errorf("disassemble %s in %s: %w", section, im.Path, err)
	}

	var labels []disasm.Label
	for _, sym := range im.FuncSymbols(s) {
		addr := sym.Addr
		if im.Machine == elf.EM_ARM {
			addr &^= 1 // thumb bit
		}
		labels = append(labels, disasm.Label{Addr: addr, Name: sym.Name})
	}

	header := fmt.Sprintf("\n%s:     file format %s\n\n", im.Path, formatName(im))
	return header + disasm.Format(section, stream, labels), nil
}

func formatName(im *elfx.Image) string {
	class := "elf32"
	if im.File.Class == elf.ELFCLASS64 {
		class = "elf64"
	}
	arch := strings.ToLower(strings.TrimPrefix(im.Machine.String(), "EM_"))
	return class + "-" + arch
}
