// Package elfx provides helpers for opening ELF objects and binaries, walking their section table, and reading section contents and function symbols.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var ErrNoSection = errors.New("section not found")

type Image struct {
	Path     string
	File     *elf.File
	Machine  elf.Machine
	Sections []Section
	Syms     []Sym
	f        *os.File
}

type Section struct {
	Index         int
	Name          string
	Type          elf.SectionType
	Flags         elf.SectionFlag
	VA, Off, Size uint64
}

// Code reports whether the section holds executable instructions.
func (s Section) Code() bool {
	return s.Flags&elf.SHF_EXECINSTR != 0
}

// HasContents reports whether the section occupies bytes in the file.
func (s Section) HasContents() bool {
	return s.Type != elf.SHT_NOBITS && s.Type != elf.SHT_NULL && s.Size > 0
}

type Sym struct {
	Name    string
	Addr    uint64
	Size    uint64
	Section int
	Func    bool
}

func Open(path string) (*Image, error) {
	of, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	f, err := elf.NewFile(of)
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("open elf: %w", err)
	}

	im := &Image{Path: path, File: f, Machine: f.Machine, f: of}
	for i, s := range f.Sections {
		im.Sections = append(im.Sections, Section{
			Index: i,
			Name:  s.Name,
			Type:  s.Type,
			Flags: s.Flags,
			VA:    s.Addr,
			Off:   s.Offset,
			Size:  s.Size,
		})
	}
	im.loadSymbols()
	return im, nil
}

// Close closes the underlying files.
func (im *Image) Close() error {
	var err error
	if im.File != nil {
		err = im.File.Close()
		im.File = nil
	}
	if im.f != nil {
		if cerr := im.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		im.f = nil
	}
	return err
}

// Section looks a section up by name.
func (im *Image) Section(name string) (Section, bool) {
	for _, s := range im.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionData returns the file bytes of the named section. Sections
// without file contents yield an empty slice.
func (im *Image) SectionData(name string) ([]byte, error) {
	s, ok := im.Section(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoSection, name, im.Path)
	}
	if !s.HasContents() {
		return []byte{}, nil
	}
	data, err := im.File.Sections[s.Index].Data()
	if err != nil {
		return nil, fmt.Errorf("read section %s: %w", name, err)
	}
	return data, nil
}

// FuncSymbols returns the function symbols defined in a section,
// ordered by address.
func (im *Image) FuncSymbols(section Section) []Sym {
	var out []Sym
	for _, s := range im.Syms {
		if s.Func && s.Section == section.Index {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// loadSymbols reads .symtab. Stripped files simply have no symbols.
func (im *Image) loadSymbols() {
	syms, err := im.File.Symbols()
	if err != nil {
		return
	}
	for _, sym := range syms {
		if sym.Name == "" || sym.Section == elf.SHN_UNDEF || sym.Section >= elf.SHN_LORESERVE {
			continue
		}
		// ARM mapping symbols ($a, $t, $d) mark code/data runs, not functions
		if strings.HasPrefix(sym.Name, "$") {
			continue
		}
		im.Syms = append(im.Syms, Sym{
			Name:    sym.Name,
			Addr:    sym.Value,
			Size:    sym.Size,
			Section: int(sym.Section),
			Func:    elf.ST_TYPE(sym.Info) == elf.STT_FUNC,
		})
	}
}
