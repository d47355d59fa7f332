package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"renewal/internal/analysis"
	"renewal/internal/extract"
	"renewal/internal/toolchain"
	"renewal/internal/workspace"
)

// sampleReport analyzes two variants of one unit: _ZN3foo3barEv and
// main differ, helper is identical.
func sampleReport(t *testing.T) *analysis.Report {
	t.Helper()
	listing := "  [ 1] .text._ZN3foo3barEv\n  [ 2] .text.helper\n  [ 3] .text.main\n  [ 4] .rel.text.main\n"
	contents := map[string]string{
		"v1:.text._ZN3foo3barEv": "a", "v2:.text._ZN3foo3barEv": "b",
		"v1:.text.helper": "h", "v2:.text.helper": "h",
		"v1:.text.main": "m", "v2:.text.main": "M",
		"v1:.rel.text.main": "r", "v2:.rel.text.main": "r",
	}
	tc := toolchain.Toolchain{
		ExtractionInput: func(ctx context.Context, variant string, unit workspace.Unit) (string, error) {
			return listing, nil
		},
		FetchRegion: func(ctx context.Context, r toolchain.Region) ([]byte, error) {
			return []byte(contents[r.Object+":"+r.Name]), nil
		},
	}
	vs := []workspace.Variant{
		{Name: "v1", Units: []workspace.Unit{{ID: "a.o", Object: "v1"}}},
		{Name: "v2", Units: []workspace.Unit{{ID: "a.o", Object: "v2"}}},
	}
	rep, err := analysis.New(tc, extract.CodeMatcher).Analyze(context.Background(), vs)
	require.NoError(t, err)
	return rep
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatJSON, Options{}))

	var got struct {
		Variants        []string `json:"variants"`
		AmountFunctions int      `json:"amount_functions"`
		Divergent       []struct {
			Symbol string `json:"symbol"`
		} `json:"divergent"`
		Records []struct {
			Symbol  string `json:"symbol"`
			Verdict string `json:"verdict"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"v1", "v2"}, got.Variants)
	assert.Equal(t, 3, got.AmountFunctions)
	require.Len(t, got.Divergent, 2)
	require.Len(t, got.Records, 3)
	assert.Equal(t, "helper", got.Records[1].Symbol)
	assert.Equal(t, "stable", got.Records[1].Verdict)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatYAML, Options{}))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got["amount_functions"])
	assert.Contains(t, buf.String(), "verdict: divergent")
	assert.Contains(t, buf.String(), "symbol: main")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatTable, Options{}))
	out := buf.String()

	assert.Contains(t, out, "foo::bar()")
	assert.Contains(t, out, "helper")
	assert.Contains(t, out, "v1/v2")
	assert.Contains(t, out, "2 divergent")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), FormatMarkdown, Options{}))
	out := buf.String()

	assert.Contains(t, out, "# Divergence report")
	assert.Contains(t, out, "### `foo::bar()` in a.o")
	assert.Contains(t, out, "- region .text.main differs between v1 and v2")
	assert.Contains(t, out, "- `helper` in a.o")

	buf.Reset()
	require.NoError(t, Render(&buf, sampleReport(t), FormatMarkdown, Options{Width: 80}))
	assert.Contains(t, buf.String(), "helper")
}

func TestRenderUnknown(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleReport(t), Format("xml"), Options{}))
}

func TestWriteResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteResult(dir, sampleReport(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ResultFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount_functions": 3, "amount_mobile": 2}`, string(data))
}

func TestAllowList(t *testing.T) {
	rep := sampleReport(t)
	assert.Equal(t, []string{"_ZN3foo3barEv", "main"}, AllowList(rep))

	path := filepath.Join(t.TempDir(), "mobile.txt")
	require.NoError(t, WriteAllowList(path, rep))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "_ZN3foo3barEv\nmain\n", string(data))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "foo::bar()", DisplayName("_ZN3foo3barEv"))
	assert.Equal(t, "main", DisplayName("main"))
}
