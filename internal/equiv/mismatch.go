package equiv

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MismatchError reports protected binaries that are not equivalent. It is
// a finding about the binaries, not a tool failure.
type MismatchError struct {
	Binary, Other       string
	Digest, OtherDigest string
	// Diff is a line diff of the two fingerprints: removed lines start
	// with "-", added lines with "+".
	Diff string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("binaries are not equivalent: %s (%s) and %s (%s)",
		e.Binary, e.Digest, e.Other, e.OtherDigest)
}

func newMismatchError(a, b, fpA, fpB string) *MismatchError {
	return &MismatchError{
		Binary:      a,
		Other:       b,
		Digest:      Digest(fpA),
		OtherDigest: Digest(fpB),
		Diff:        LineDiff(a, b, fpA, fpB),
	}
}

// LineDiff renders the changed lines between two texts with a header
// naming both sides. Unchanged runs are collapsed to a hunk marker.
func LineDiff(nameA, nameB, a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", nameA, nameB)
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			n := strings.Count(d.Text, "\n")
			fmt.Fprintf(&out, "@@ %d unchanged lines @@\n", n)
			continue
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
		}
	}
	return out.String()
}
