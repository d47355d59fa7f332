package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmDark colours disassembly and the diffs between fingerprints.
var DisasmDark = styles.Register(chroma.MustNewStyle("renewal-dark", chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#6A9955",

	chroma.Keyword:      "#FFFFFF",
	chroma.NameBuiltin:  "#7C9C9D",
	chroma.NameVariable: "#7C9C9D",
	chroma.Name:         "#7C9C9D",
	chroma.NameLabel:    "#FFD700",
	chroma.NameFunction: "#FFFFFF",

	chroma.LiteralNumber: "#FF5F87",
	chroma.String:        "#EACD53",

	chroma.GenericDeleted:    "#F44747",
	chroma.GenericInserted:   "#6A9955",
	chroma.GenericHeading:    "bold #569CD6",
	chroma.GenericSubheading: "#858585",
}))
