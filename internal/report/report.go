// Package report renders analysis reports and writes the artifacts
// handed to the protection step.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ianlancetaylor/demangle"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"renewal/internal/analysis"
	"renewal/internal/renewal/styles"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted output formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatMarkdown}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown report format %q", s)
	}
	return f, nil
}

// Options control human readable output.
type Options struct {
	// Color styles verdicts in table output.
	Color bool
	// Width wraps markdown output through the terminal renderer; zero
	// emits plain markdown.
	Width int
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *analysis.Report, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		md := Markdown(r)
		if opts.Width <= 0 {
			_, err := io.WriteString(w, md)
			return err
		}
		renderer, err := styles.MarkdownRenderer(opts.Width)
		if err != nil {
			return err
		}
		out, err := renderer.Render(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatTable, "":
		_, err := io.WriteString(w, Table(r, opts.Color)+"\n")
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// DisplayName demangles C++ symbol names and leaves others untouched.
func DisplayName(symbol string) string {
	return demangle.Filter(symbol)
}

// Table renders one row per symbol record.
func Table(r *analysis.Report, color bool) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetTitle("Variants: " + strings.Join(r.Variants, " → "))
	tbl.AppendHeader(table.Row{"Unit", "Symbol", "Verdict", "First divergence", "Reasons"})

	for _, rec := range r.Records {
		verdict := rec.Verdict.String()
		if color {
			switch rec.Verdict {
			case analysis.Stable:
				verdict = styles.Stable.Render(verdict)
			case analysis.Divergent:
				verdict = styles.Divergent.Render(verdict)
			default:
				verdict = styles.Muted.Render(verdict)
			}
		}
		first := ""
		if rec.FirstDivergence != nil {
			first = rec.FirstDivergence.String()
		}
		tbl.AppendRow(table.Row{rec.Unit, DisplayName(rec.Symbol), verdict, first, len(rec.Reasons)})
	}

	tbl.AppendFooter(table.Row{
		count(r.Units, "units"),
		count(r.TotalSymbols, "symbols"),
		count(r.AmountMobile(), "divergent"),
		count(len(r.Stable), "stable"),
		"",
	})
	return tbl.Render()
}

func count(n int, what string) string {
	return humanize.Comma(int64(n)) + " " + what
}

// Markdown renders a summary followed by the reasons of every divergent
// symbol.
func Markdown(r *analysis.Report) string {
	var b strings.Builder
	b.WriteString("# Divergence report\n\n")
	fmt.Fprintf(&b, "Variants: %s\n\n", strings.Join(r.Variants, ", "))
	fmt.Fprintf(&b, "- **%s** compilation units\n", humanize.Comma(int64(r.Units)))
	fmt.Fprintf(&b, "- **%s** symbols\n", humanize.Comma(int64(r.TotalSymbols)))
	fmt.Fprintf(&b, "- **%s** divergent\n", humanize.Comma(int64(r.AmountMobile())))
	fmt.Fprintf(&b, "- **%s** stable\n\n", humanize.Comma(int64(len(r.Stable))))

	if len(r.Divergent) > 0 {
		b.WriteString("## Divergent\n\n")
		for _, k := range r.Divergent {
			rec, _ := r.Lookup(k)
			fmt.Fprintf(&b, "### `%s` in %s\n\n", DisplayName(k.Symbol), k.Unit)
			for _, reason := range rec.Reasons {
				fmt.Fprintf(&b, "- %s\n", reason)
			}
			b.WriteString("\n")
		}
	}
	if len(r.Stable) > 0 {
		b.WriteString("## Stable\n\n")
		for _, k := range r.Stable {
			fmt.Fprintf(&b, "- `%s` in %s\n", DisplayName(k.Symbol), k.Unit)
		}
	}
	return b.String()
}

// Result is the summary persisted next to the build artifacts.
type Result struct {
	AmountFunctions int `json:"amount_functions"`
	AmountMobile    int `json:"amount_mobile"`
}

const ResultFile = "result.json"

// WriteResult writes result.json into dir, creating dir if needed.
func WriteResult(dir string, r *analysis.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.Marshal(Result{AmountFunctions: r.TotalSymbols, AmountMobile: r.AmountMobile()})
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ResultFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

// AllowList returns the sorted, de-duplicated names of all divergent
// symbols. Names are kept mangled since they are matched against the
// object files.
func AllowList(r *analysis.Report) []string {
	names := make([]string, 0, len(r.Divergent))
	for _, k := range r.Divergent {
		names = append(names, k.Symbol)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// WriteAllowList writes AllowList(r) to path, one name per line.
func WriteAllowList(path string, r *analysis.Report) error {
	var b strings.Builder
	for _, name := range AllowList(r) {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write allow list: %w", err)
	}
	return nil
}
