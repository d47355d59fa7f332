// Package analysis classifies every symbol of a set of program variants
// as stable or divergent by comparing the regions the compiler emitted
// for it in adjacent variants.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"renewal/internal/compare"
	"renewal/internal/extract"
	"renewal/internal/metrics"
	"renewal/internal/toolchain"
	"renewal/internal/workspace"
)

var (
	ErrNoVariants    = errors.New("no variants to analyze")
	ErrMissingUnit   = errors.New("compilation unit missing in variant")
	ErrMissingSymbol = errors.New("symbol missing in variant")
)

type Option func(*Analyzer)

// WithWorkers bounds the number of concurrent region comparisons.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// Analyzer runs the divergence analysis. It keeps no state between runs.
type Analyzer struct {
	input   toolchain.ExtractionInput
	cmp     *compare.Comparator
	matcher extract.Matcher
	workers int
	logger  *log.Logger
	metrics *metrics.Recorder
}

func New(tc toolchain.Toolchain, matcher extract.Matcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		input:   tc.ExtractionInput,
		cmp:     compare.New(tc.FetchRegion),
		matcher: matcher,
		workers: runtime.GOMAXPROCS(0),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run is the per-invocation state. Records live here and nowhere else.
type run struct {
	*Analyzer
	cache   *extract.Cache
	records []*SymbolRecord
	index   map[SymbolKey]int
}

func (r *run) record(k SymbolKey) *SymbolRecord {
	if i, ok := r.index[k]; ok {
		return r.records[i]
	}
	rec := &SymbolRecord{SymbolKey: k}
	r.index[k] = len(r.records)
	r.records = append(r.records, rec)
	return rec
}

// Analyze compares every adjacent pair of variants in order. A symbol
// differing at any pair is divergent; symbols of the first variant that
// never differ are stable. Symbols the first variant does not define are
// checked for presence but never classified.
func (a *Analyzer) Analyze(ctx context.Context, variants []workspace.Variant) (*Report, error) {
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}
	r := &run{
		Analyzer: a,
		cache:    extract.NewCache(a.input, a.matcher),
		index:    make(map[SymbolKey]int),
	}

	first := variants[0]
	for _, unit := range first.Units {
		syms, err := r.cache.Symbols(ctx, first.Name, unit)
		if err != nil {
			return nil, err
		}
		for _, s := range syms.Symbols() {
			r.record(SymbolKey{Symbol: s, Unit: unit.ID}).InFirstVariant = true
		}
	}

	for i := 0; i+1 < len(variants); i++ {
		if err := r.comparePair(ctx, variants[i], variants[i+1]); err != nil {
			return nil, err
		}
	}
	return r.report(variants), nil
}

type job struct {
	rec  *SymbolRecord
	a, b toolchain.Region
}

func (r *run) comparePair(ctx context.Context, va, vb workspace.Variant) error {
	pair := Pair{From: va.Name, To: vb.Name}
	r.logger.Debug("comparing variants", "from", va.Name, "to", vb.Name)

	var jobs []job
	for _, ua := range va.Units {
		ub, ok := vb.Unit(ua.ID)
		if !ok {
			return fmt.Errorf("%w: %s not in %s", ErrMissingUnit, ua.ID, vb.Name)
		}
		symsA, err := r.cache.Symbols(ctx, va.Name, ua)
		if err != nil {
			return err
		}
		symsB, err := r.cache.Symbols(ctx, vb.Name, ub)
		if err != nil {
			return err
		}

		for _, sym := range symsA.Symbols() {
			regionsA, _ := symsA.Regions(sym)
			regionsB, ok := symsB.Regions(sym)
			if !ok {
				return fmt.Errorf("%w: %s of %s not in %s", ErrMissingSymbol, sym, ua.ID, vb.Name)
			}
			i, tracked := r.index[SymbolKey{Symbol: sym, Unit: ua.ID}]
			if !tracked {
				continue
			}
			rec := r.records[i]

			if len(regionsA) != len(regionsB) {
				r.logger.Debug("region count mismatch", "symbol", sym, "unit", ua.ID, va.Name, regionsA, vb.Name, regionsB)
				r.metrics.ObserveCountMismatch()
				rec.markDivergent(pair, fmt.Sprintf("region count differs between %s %v and %s %v",
					va.Name, regionsA, vb.Name, regionsB))
				continue
			}
			for k := range regionsA {
				jobs = append(jobs, job{
					rec: rec,
					a:   toolchain.Region{Name: regionsA[k], Object: ua.Object},
					b:   toolchain.Region{Name: regionsB[k], Object: ub.Object},
				})
			}
		}
	}

	equal := make([]bool, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, j := range jobs {
		g.Go(func() error {
			eq, err := r.cmp.Equal(gctx, j.a, j.b)
			if err != nil {
				return err
			}
			equal[i] = eq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, j := range jobs {
		r.metrics.ObserveComparison(equal[i])
		if equal[i] {
			continue
		}
		r.logger.Debug("region differs", "symbol", j.rec.Symbol, "region", j.a.Name, "from", va.Name, "to", vb.Name)
		j.rec.markDivergent(pair, fmt.Sprintf("region %s differs between %s and %s", j.a.Name, va.Name, vb.Name))
	}
	return nil
}

func (r *run) report(variants []workspace.Variant) *Report {
	rep := &Report{
		Variants: make([]string, len(variants)),
		Units:    len(variants[0].Units),
		Records:  make([]SymbolRecord, len(r.records)),
		index:    r.index,
	}
	for i, v := range variants {
		rep.Variants[i] = v.Name
	}
	for i, rec := range r.records {
		switch {
		case rec.Verdict == Divergent:
			rep.Divergent = append(rep.Divergent, rec.SymbolKey)
		case rec.InFirstVariant:
			rec.Verdict = Stable
			rep.Stable = append(rep.Stable, rec.SymbolKey)
		}
		if rec.InFirstVariant {
			rep.TotalSymbols++
		}
		rep.Records[i] = *rec
	}
	r.metrics.SetSymbols(rep.TotalSymbols, len(rep.Divergent))
	r.logger.Info("analysis done", "symbols", rep.TotalSymbols, "divergent", len(rep.Divergent), "stable", len(rep.Stable))
	return rep
}
