// Package extract turns section listings of compiled objects into a map
// from symbol name to the regions emitted for it.
package extract

import (
	"fmt"
	"strings"
)

// Matcher selects the listing entries that name a symbol region. An
// entry matches when one of its whitespace separated fields contains a
// marker; the symbol is the text after the last marker in that field.
type Matcher struct {
	Name    string
	Markers []string
}

var (
	CodeMatcher        = Matcher{Name: "code", Markers: []string{".text."}}
	DataMatcher        = Matcher{Name: "data", Markers: []string{".data."}}
	CodeAndDataMatcher = Matcher{Name: "code+data", Markers: []string{".text.", ".data."}}
)

// MatcherByName resolves a configured matcher name.
func MatcherByName(name string) (Matcher, error) {
	for _, m := range []Matcher{CodeMatcher, DataMatcher, CodeAndDataMatcher} {
		if m.Name == name {
			return m, nil
		}
	}
	return Matcher{}, fmt.Errorf("unknown matcher %q", name)
}

// Match returns the region identifier and symbol name of a listing line.
func (m Matcher) Match(line string) (region, symbol string, ok bool) {
	for _, field := range strings.Fields(line) {
		at, width := -1, 0
		for _, marker := range m.Markers {
			if i := strings.LastIndex(field, marker); i > at {
				at, width = i, len(marker)
			}
		}
		if at < 0 {
			continue
		}
		symbol = field[at+width:]
		if symbol == "" {
			return "", "", false
		}
		return field, symbol, true
	}
	return "", "", false
}

// SymbolMap maps symbols to their regions, remembering first-seen order.
type SymbolMap struct {
	order   []string
	regions map[string][]string
}

func NewSymbolMap() *SymbolMap {
	return &SymbolMap{regions: make(map[string][]string)}
}

// Add appends a region to a symbol.
func (m *SymbolMap) Add(symbol, region string) {
	if _, ok := m.regions[symbol]; !ok {
		m.order = append(m.order, symbol)
	}
	m.regions[symbol] = append(m.regions[symbol], region)
}

// Symbols returns the symbols in first-seen order.
func (m *SymbolMap) Symbols() []string {
	return append([]string(nil), m.order...)
}

// Regions returns the regions of a symbol in listing order.
func (m *SymbolMap) Regions(symbol string) ([]string, bool) {
	r, ok := m.regions[symbol]
	return r, ok
}

func (m *SymbolMap) Len() int {
	return len(m.order)
}

// Extract parses one section listing. Lines that do not match are skipped.
func Extract(listing string, matcher Matcher) *SymbolMap {
	out := NewSymbolMap()
	for _, line := range strings.Split(listing, "\n") {
		region, symbol, ok := matcher.Match(line)
		if !ok {
			continue
		}
		out.Add(symbol, region)
	}
	return out
}
