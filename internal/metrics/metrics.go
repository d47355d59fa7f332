// Package metrics counts what an analysis run did and persists the
// counters in the prometheus text format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "renewal"

// Recorder holds the counters of one run. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	regionsCompared     prometheus.Counter
	regionMismatches    prometheus.Counter
	countMismatches     prometheus.Counter
	symbols             prometheus.Gauge
	divergentSymbols    prometheus.Gauge
	binariesChecked     prometheus.Counter
	equivalenceFailures prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		regionsCompared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "regions_compared_total",
			Help: "Region pairs compared byte for byte.",
		}),
		regionMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "region_mismatches_total",
			Help: "Region pairs whose contents differed.",
		}),
		countMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "region_count_mismatches_total",
			Help: "Symbols whose region count differed between adjacent variants.",
		}),
		symbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "symbols",
			Help: "Symbols found in the first variant.",
		}),
		divergentSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "divergent_symbols",
			Help: "Symbols classified as divergent.",
		}),
		binariesChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "binaries_checked_total",
			Help: "Binaries fingerprinted by the equivalence check.",
		}),
		equivalenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "equivalence_failures_total",
			Help: "Equivalence checks that found differing fingerprints.",
		}),
	}
	r.registry.MustRegister(
		r.regionsCompared, r.regionMismatches, r.countMismatches,
		r.symbols, r.divergentSymbols,
		r.binariesChecked, r.equivalenceFailures,
	)
	return r
}

func (r *Recorder) ObserveComparison(equal bool) {
	if r == nil {
		return
	}
	r.regionsCompared.Inc()
	if !equal {
		r.regionMismatches.Inc()
	}
}

func (r *Recorder) ObserveCountMismatch() {
	if r == nil {
		return
	}
	r.countMismatches.Inc()
}

func (r *Recorder) SetSymbols(total, divergent int) {
	if r == nil {
		return
	}
	r.symbols.Set(float64(total))
	r.divergentSymbols.Set(float64(divergent))
}

func (r *Recorder) ObserveEquivalence(binaries int, equivalent bool) {
	if r == nil {
		return
	}
	r.binariesChecked.Add(float64(binaries))
	if !equivalent {
		r.equivalenceFailures.Inc()
	}
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all counters to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
