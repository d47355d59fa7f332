package analysis

import (
	"fmt"
	"strings"
)

// Verdict is the stability classification of one symbol.
type Verdict int

const (
	Undetermined Verdict = iota
	Stable
	Divergent
)

func (v Verdict) String() string {
	switch v {
	case Stable:
		return "stable"
	case Divergent:
		return "divergent"
	default:
		return "undetermined"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "stable":
		*v = Stable
	case "divergent":
		*v = Divergent
	case "undetermined", "":
		*v = Undetermined
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// SymbolKey identifies a symbol inside one compilation unit.
type SymbolKey struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Unit   string `json:"unit" yaml:"unit"`
}

func (k SymbolKey) String() string {
	return k.Unit + ":" + k.Symbol
}

// Pair is two adjacent variants in analysis order.
type Pair struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

func (p Pair) String() string {
	return p.From + "/" + p.To
}

// SymbolRecord accumulates the findings for one symbol during a run.
// Reasons are only ever appended.
type SymbolRecord struct {
	SymbolKey `yaml:",inline"`

	Verdict Verdict  `json:"verdict" yaml:"verdict"`
	Reasons []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`

	// InFirstVariant is false for symbols that only later variants define.
	// Those never count towards the stable set.
	InFirstVariant bool `json:"in_first_variant" yaml:"in_first_variant"`

	// FirstDivergence is the earliest pair at which the symbol differed.
	FirstDivergence *Pair `json:"first_divergence,omitempty" yaml:"first_divergence,omitempty"`
}

func (r *SymbolRecord) markDivergent(p Pair, reason string) {
	r.Verdict = Divergent
	r.Reasons = append(r.Reasons, reason)
	if r.FirstDivergence == nil {
		first := p
		r.FirstDivergence = &first
	}
}

// Report is the result of one analysis run. It is not modified after
// Analyze returns it.
type Report struct {
	Variants []string `json:"variants" yaml:"variants"`
	Units    int      `json:"units" yaml:"units"`

	// TotalSymbols counts the symbols of the first variant.
	TotalSymbols int `json:"amount_functions" yaml:"amount_functions"`

	Divergent []SymbolKey    `json:"divergent" yaml:"divergent"`
	Stable    []SymbolKey    `json:"stable" yaml:"stable"`
	Records   []SymbolRecord `json:"records" yaml:"records"`

	index map[SymbolKey]int
}

// Lookup returns the record of one symbol.
func (r *Report) Lookup(k SymbolKey) (SymbolRecord, bool) {
	i, ok := r.index[k]
	if !ok {
		return SymbolRecord{}, false
	}
	return r.Records[i], true
}

// AmountMobile is the number of divergent symbols.
func (r *Report) AmountMobile() int {
	return len(r.Divergent)
}
