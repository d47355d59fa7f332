// Package colorize highlights fingerprint diffs and disassembly for the
// terminal. Setting RENEWAL_NO_COLOR disables it.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const EnvNoColor = "RENEWAL_NO_COLOR"

func Enabled() bool {
	return os.Getenv(EnvNoColor) == ""
}

func firstLexer(names ...string) chroma.Lexer {
	for _, name := range names {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func disasmStyle() *chroma.Style {
	for _, name := range []string{DisasmDark.Name, "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func terminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

func highlight(lexer chroma.Lexer, text string) (string, error) {
	if !Enabled() || lexer == nil {
		return text, nil
	}
	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text, err
	}
	var buf strings.Builder
	if err := terminalFormatter().Format(&buf, disasmStyle(), iterator); err != nil {
		return text, err
	}
	return buf.String(), nil
}

// Diff highlights a unified style line diff.
func Diff(text string) (string, error) {
	return highlight(firstLexer("diff"), text)
}

// Assembly highlights objdump style disassembly.
func Assembly(code string) (string, error) {
	return highlight(firstLexer("gas", "armasm", "nasm"), code)
}
