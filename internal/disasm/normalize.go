package disasm

import "strings"

const (
	// SectionMarker starts the part of a disassembly listing that is kept.
	SectionMarker = "Disassembly of section"
	// CommentMarker starts an inline annotation.
	CommentMarker = ";"
)

// DefaultDataMarkers are pseudo instructions carrying literal pool data.
var DefaultDataMarkers = []string{".word"}

// Normalizer strips build dependent artifacts from disassembly text so
// that equivalent code from different builds compares equal.
type Normalizer struct {
	DataMarkers []string
}

// NewNormalizer returns a normalizer dropping DefaultDataMarkers lines.
func NewNormalizer() *Normalizer {
	return &Normalizer{DataMarkers: DefaultDataMarkers}
}

// Normalize applies NormalizeLine to every line and drops everything
// before the first section banner. Output of Normalize is a fixed point.
func (n *Normalizer) Normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	started := false
	for _, raw := range lines {
		line, ok := n.NormalizeLine(raw)
		if !ok {
			continue
		}
		if !started {
			if !strings.Contains(line, SectionMarker) {
				continue
			}
			started = true
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// NormalizeLine removes the comment, collapses the first <symbol+offset>
// reference to "<>" and reports false for literal data lines.
func (n *Normalizer) NormalizeLine(line string) (string, bool) {
	if i := strings.Index(line, CommentMarker); i >= 0 {
		line = line[:i]
	}
	if open := strings.Index(line, "<"); open >= 0 {
		if close := strings.Index(line[open:], ">"); close >= 0 {
			line = line[:open+1] + line[open+close:]
		}
	}
	for _, m := range n.DataMarkers {
		if strings.Contains(line, m) {
			return "", false
		}
	}
	return line, true
}
