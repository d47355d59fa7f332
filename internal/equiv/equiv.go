// Package equiv checks that protected binaries built from different
// variants are identical once address noise is removed.
package equiv

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/minio/highwayhash"
	"golang.org/x/sync/errgroup"

	"renewal/internal/disasm"
	"renewal/internal/metrics"
	"renewal/internal/toolchain"
)

const (
	DefaultVolatilePattern = `^\.(symtab|strtab|dynsym|dynstr)$`
	DefaultCodePrefix      = ".text"
)

// digestKey is fixed so digests can be compared across runs.
var digestKey = []byte("renewal-equivalence-fingerprint!")

type Option func(*Checker)

// WithVolatile sets the pattern of sections excluded from fingerprints.
func WithVolatile(re *regexp.Regexp) Option {
	return func(c *Checker) {
		if re != nil {
			c.volatile = re
		}
	}
}

func WithCodePrefix(prefix string) Option {
	return func(c *Checker) {
		if prefix != "" {
			c.codePrefix = prefix
		}
	}
}

func WithWorkers(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Checker) { c.metrics = m }
}

// Checker computes equivalence fingerprints of binaries.
type Checker struct {
	list        toolchain.SectionLister
	disassemble toolchain.Disassembler
	normalizer  *disasm.Normalizer
	volatile    *regexp.Regexp
	codePrefix  string
	workers     int
	logger      *log.Logger
	metrics     *metrics.Recorder
}

func New(tc toolchain.Toolchain, opts ...Option) *Checker {
	c := &Checker{
		list:        tc.ListSections,
		disassemble: tc.Disassemble,
		normalizer:  disasm.NewNormalizer(),
		volatile:    regexp.MustCompile(DefaultVolatilePattern),
		codePrefix:  DefaultCodePrefix,
		workers:     runtime.GOMAXPROCS(0),
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint concatenates the contribution of every listed section of a
// binary: normalized disassembly for code sections, nothing for volatile
// sections and the raw listing block for everything else.
func (c *Checker) Fingerprint(ctx context.Context, binary string) (string, error) {
	listing, err := c.list(ctx, binary)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range ParseListing(listing) {
		switch {
		case c.volatile.MatchString(s.Name):
		case strings.HasPrefix(s.Name, c.codePrefix):
			text, err := c.disassemble(ctx, binary, s.Name)
			if err != nil {
				return "", err
			}
			b.WriteString(c.normalizer.Normalize(text))
			b.WriteByte('\n')
		default:
			b.WriteString(sectionHeader + s.Name + ":\n")
			b.WriteString(s.Content)
		}
	}
	return b.String(), nil
}

// Digest is a short stable hash of a fingerprint.
func Digest(fingerprint string) string {
	return fmt.Sprintf("%016x", highwayhash.Sum64([]byte(fingerprint), digestKey))
}

// Result holds the fingerprints of one check, in input order.
type Result struct {
	Binaries     []string
	Fingerprints []string
}

// Equivalent reports whether there is at most one distinct fingerprint.
func (r *Result) Equivalent() bool {
	return r.firstMismatch() < 0
}

func (r *Result) firstMismatch() int {
	for i := 1; i < len(r.Fingerprints); i++ {
		if r.Fingerprints[i] != r.Fingerprints[0] {
			return i
		}
	}
	return -1
}

// Err returns a *MismatchError describing the first binary whose
// fingerprint differs from the first one, or nil.
func (r *Result) Err() error {
	i := r.firstMismatch()
	if i < 0 {
		return nil
	}
	return newMismatchError(r.Binaries[0], r.Binaries[i], r.Fingerprints[0], r.Fingerprints[i])
}

// Check fingerprints all binaries, one worker per binary.
func (c *Checker) Check(ctx context.Context, binaries []string) (*Result, error) {
	res := &Result{
		Binaries:     append([]string(nil), binaries...),
		Fingerprints: make([]string, len(binaries)),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, bin := range binaries {
		g.Go(func() error {
			fp, err := c.Fingerprint(gctx, bin)
			if err != nil {
				return fmt.Errorf("fingerprint %s: %w", bin, err)
			}
			res.Fingerprints[i] = fp
			c.logger.Debug("fingerprinted binary", "binary", bin, "digest", Digest(fp))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.metrics.ObserveEquivalence(len(binaries), res.Equivalent())
	return res, nil
}

// AllEquivalent reports whether every binary has the same fingerprint.
// Errors are tool failures only; differing binaries yield false.
func (c *Checker) AllEquivalent(ctx context.Context, binaries []string) (bool, error) {
	res, err := c.Check(ctx, binaries)
	if err != nil {
		return false, err
	}
	return res.Equivalent(), nil
}

// Assert is AllEquivalent for use as a gate: differing binaries yield a
// *MismatchError.
func (c *Checker) Assert(ctx context.Context, binaries []string) error {
	res, err := c.Check(ctx, binaries)
	if err != nil {
		return err
	}
	return res.Err()
}
