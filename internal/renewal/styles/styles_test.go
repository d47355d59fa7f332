package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownRenderer(t *testing.T) {
	r, err := MarkdownRenderer(80)
	require.NoError(t, err)

	out, err := r.Render("# Report\n\n- `foo` stable\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Report")
	assert.Contains(t, out, "foo")
}

func TestTerminalStylesKeepText(t *testing.T) {
	assert.True(t, strings.Contains(Divergent.Render("bar"), "bar"))
	assert.True(t, strings.Contains(Stable.Render("foo"), "foo"))
}
