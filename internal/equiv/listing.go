package equiv

import "strings"

const sectionHeader = "Contents of section "

// Section is one block of a content listing.
type Section struct {
	Name    string
	Content string
}

// ParseListing splits an objdump -s style listing into sections in the
// order they appear. Text before the first section header is ignored.
func ParseListing(listing string) []Section {
	var (
		out  []Section
		cur  *Section
		body strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.Content = body.String()
			out = append(out, *cur)
		}
		body.Reset()
	}
	for _, line := range strings.Split(listing, "\n") {
		if name, ok := strings.CutPrefix(line, sectionHeader); ok {
			flush()
			cur = &Section{Name: strings.TrimSuffix(strings.TrimSpace(name), ":")}
			continue
		}
		if cur != nil && line != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return out
}
