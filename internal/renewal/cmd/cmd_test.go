package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewal/internal/config"
)

// Stand-ins for readelf and objdump: objects and binaries are text files
// holding the listing the real tool would print.
const fakeReadelf = `#!/bin/sh
case "$1" in
-S) cat "$3" ;;
-x) grep -F -- " $2 " "$3" || true ;;
esac
`

const fakeObjdump = `#!/bin/sh
case "$1" in
-s) cat "$2" ;;
-d) printf 'Disassembly of section %s:\n' "$3"; cat "$4.dis" ;;
esac
`

type fixture struct {
	dir    string
	config string
}

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools need a POSIX shell")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "readelf"), fakeReadelf, 0o755)
	writeFile(t, filepath.Join(dir, "bin", "objdump"), fakeObjdump, 0o755)

	cfg := fmt.Sprintf(`
workspace:
  root: %[1]s/work
toolchain:
  readelf:
    bin: %[1]s/bin/readelf
  objdump:
    bin: %[1]s/bin/objdump
analysis:
  workers: 2
output:
  directory: %[1]s/out
  metrics_file: %[1]s/renewal.prom
`, dir)
	path := filepath.Join(dir, "renewal.yaml")
	writeFile(t, path, cfg, 0o644)
	return &fixture{dir: dir, config: path}
}

func (f *fixture) object(t *testing.T, variant, unit, body string) {
	writeFile(t, filepath.Join(f.dir, "work", variant+"_analysis", "objfiles", unit), body, 0o644)
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "work", variant), 0o755))
}

// binary writes a protected binary whose listing has a code section, a
// data section and a volatile symbol table.
func (f *fixture) binary(t *testing.T, name, text, rodata, dis string) string {
	path := filepath.Join(f.dir, "out", name)
	writeFile(t, path, "\n"+path+":     file format elf32-littlearm\n\n"+
		"Contents of section .text:\n 0000 "+text+"\n"+
		"Contents of section .rodata:\n 0000 "+rodata+"\n"+
		"Contents of section .symtab:\n 0000 "+text+"\n", 0o644)
	writeFile(t, path+".dis", dis, 0o644)
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	f := newFixture(t)
	f.object(t, "v1", "src/a.o", "  [ 1] .text.foo PROGBITS aaaa\n  [ 2] .text.bar PROGBITS bbbb\n")
	f.object(t, "v2", "src/a.o", "  [ 1] .text.foo PROGBITS aaaa\n  [ 2] .text.bar PROGBITS cccc\n")
	f.object(t, "v3", "src/a.o", "  [ 1] .text.foo PROGBITS aaaa\n  [ 2] .text.bar PROGBITS cccc\n")
	allow := filepath.Join(f.dir, "mobile.txt")

	stdout, _, err := run(t, "analyze", "--config", f.config, "-o", "json", "--allow-list", allow)
	require.NoError(t, err)

	var rep struct {
		Variants  []string            `json:"variants"`
		Stable    []map[string]string `json:"stable"`
		Divergent []map[string]string `json:"divergent"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, []string{"v1", "v2", "v3"}, rep.Variants)
	assert.Equal(t, []map[string]string{{"symbol": "foo", "unit": "src/a.o"}}, rep.Stable)
	assert.Equal(t, []map[string]string{{"symbol": "bar", "unit": "src/a.o"}}, rep.Divergent)

	result, err := os.ReadFile(filepath.Join(f.dir, "out", "result.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount_functions": 2, "amount_mobile": 1}`, string(result))

	list, err := os.ReadFile(allow)
	require.NoError(t, err)
	assert.Equal(t, "bar\n", string(list))

	prom, err := os.ReadFile(filepath.Join(f.dir, "renewal.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "renewal_divergent_symbols 1")
	assert.Contains(t, string(prom), "renewal_regions_compared_total 4")
}

func TestAnalyzeExplicitVariants(t *testing.T) {
	f := newFixture(t)
	f.object(t, "v1", "a.o", "  [ 1] .text.foo PROGBITS aaaa\n")
	f.object(t, "v2", "a.o", "  [ 1] .text.foo PROGBITS bbbb\n")
	f.object(t, "v3", "a.o", "  [ 1] .text.foo PROGBITS aaaa\n")

	stdout, _, err := run(t, "analyze", "--config", f.config, "--variants", "v1,v3", "--no-result")
	require.NoError(t, err)
	assert.Contains(t, stdout, "v1 → v3")
	assert.Contains(t, stdout, "stable")
	assert.NoFileExists(t, filepath.Join(f.dir, "out", "result.json"))
}

func TestAnalyzeMissingVariant(t *testing.T) {
	f := newFixture(t)
	f.object(t, "v1", "a.o", "")

	_, _, err := run(t, "analyze", "--config", f.config, "--variants", "v1,v9")
	assert.ErrorContains(t, err, "v9")
}

func TestEquivCommand(t *testing.T) {
	f := newFixture(t)
	b1 := f.binary(t, "b1", "01020304", "6869", "    0:\tmov\tr0, r1 ; x\n    4:\tbl\t8 <f+0x4>\n")
	b2 := f.binary(t, "b2", "0a0b0c0d", "6869", "    0:\tmov\tr0, r1 ; y\n    4:\tbl\t8 <f+0x8>\n")
	b3 := f.binary(t, "b3", "01020304", "6870", "    0:\tmov\tr0, r1\n    4:\tbl\t8 <f>\n")

	stdout, _, err := run(t, "equiv", "--config", f.config, b1, b2)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 binaries equivalent")

	_, stderr, err := run(t, "equiv", "--config", f.config, b1, b2, b3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not equivalent")
	assert.Contains(t, stderr, "protected binaries differ")
	assert.Contains(t, stderr, "- 0000 6869")
	assert.Contains(t, stderr, "+ 0000 6870")
}

func TestEquivHelpNamesRawSections(t *testing.T) {
	stdout, _, err := run(t, "equiv", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "addresses included")
	assert.Contains(t, stdout, "equivalence.volatile_pattern")
}

func TestFingerprintCommand(t *testing.T) {
	f := newFixture(t)
	b1 := f.binary(t, "b1", "01020304", "6869", "    0:\tmov\tr0, r1 ; x\n")
	b2 := f.binary(t, "b2", "0a0b0c0d", "6869", "    0:\tmov\tr0, r1 ; y\n")

	stdout, _, err := run(t, "fingerprint", "--config", f.config, "--digest", b1, b2)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	d1, name, _ := strings.Cut(lines[0], " ")
	d2, _, _ := strings.Cut(lines[1], " ")
	assert.Equal(t, b1, name)
	assert.Len(t, d1, 16)
	assert.Equal(t, d1, d2)

	stdout, _, err = run(t, "fingerprint", "--config", f.config, b1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, d1+" "+b1+"\n"))
	assert.Contains(t, stdout, "Disassembly of section .text:")
	assert.Contains(t, stdout, "Contents of section .rodata:\n 0000 6869")
	assert.NotContains(t, stdout, ".symtab")
	assert.NotContains(t, stdout, "\x1b[")
}

func TestSchemaCommand(t *testing.T) {
	stdout, _, err := run(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"volatile_pattern"`)
	assert.Contains(t, stdout, `"object_suffix"`)

	stdout, _, err = run(t, "schema", "--defaults")
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, config.DefaultBackend, cfg.Toolchain.Backend)
	assert.Equal(t, config.DefaultVolatilePattern, cfg.Equivalence.VolatilePattern)
}
