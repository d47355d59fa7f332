// Package config loads the renewal configuration from a YAML file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"renewal/internal/toolchain"
	"renewal/internal/workspace"
)

// Backend names.
const (
	BackendExec   = "exec"
	BackendNative = "native"
)

// Default values.
const (
	DefaultRoot            = "."
	DefaultObjectDir       = workspace.VariantPlaceholder + "_analysis/objfiles"
	DefaultObjectSuffix    = ".o"
	DefaultBackend         = BackendExec
	DefaultReadelf         = "readelf"
	DefaultObjdump         = "objdump"
	DefaultMatcher         = "code"
	DefaultWorkers         = 8
	DefaultVolatilePattern = `^\.(symtab|strtab|dynsym|dynstr)$`
	DefaultCodePrefix      = ".text"
	DefaultOutputDirectory = "."
	DefaultOutputFormat    = "table"
	DefaultLogLevel        = "info"
)

var (
	DefaultSectionFlags     = []string{"-S", "-W"}
	DefaultDumpFlags        = []string{"-x"}
	DefaultListingFlags     = []string{"-s"}
	DefaultDisassemblyFlags = []string{"-d"}
)

var (
	backends = []string{BackendExec, BackendNative}
	matchers = []string{"code", "data", "code+data"}
	formats  = []string{"table", "json", "yaml", "markdown"}
	levels   = []string{"debug", "info", "warn", "error"}
)

var (
	ErrInvalidWorkers         = errors.New("analysis.workers must be positive")
	ErrUnknownBackend         = errors.New("unknown toolchain backend")
	ErrUnknownMatcher         = errors.New("unknown analysis matcher")
	ErrUnknownFormat          = errors.New("unknown output format")
	ErrUnknownLogLevel        = errors.New("unknown log level")
	ErrInvalidVolatilePattern = errors.New("invalid equivalence.volatile_pattern")
	ErrEmptyObjectSuffix      = errors.New("workspace.object_suffix must not be empty")
	ErrEmptyCodePrefix        = errors.New("equivalence.code_prefix must not be empty")
)

// Config is the top-level configuration struct.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Workspace   WorkspaceConfig   `mapstructure:"workspace" json:"workspace"`
	Toolchain   ToolchainConfig   `mapstructure:"toolchain" json:"toolchain"`
	Analysis    AnalysisConfig    `mapstructure:"analysis" json:"analysis"`
	Equivalence EquivalenceConfig `mapstructure:"equivalence" json:"equivalence"`
	Output      OutputConfig      `mapstructure:"output" json:"output"`
	Logging     LoggingConfig     `mapstructure:"logging" json:"logging"`
}

// WorkspaceConfig locates the variants and their objects.
type WorkspaceConfig struct {
	Root         string   `mapstructure:"root" json:"root" jsonschema:"description=Directory holding one subdirectory per variant"`
	Variants     []string `mapstructure:"variants" json:"variants,omitempty" jsonschema:"description=Explicit variant order; defaults to sorted subdirectory names"`
	ObjectDir    string   `mapstructure:"object_dir" json:"object_dir" jsonschema:"description=Object root of a variant relative to root; {variant} is replaced by the variant name"`
	ObjectSuffix string   `mapstructure:"object_suffix" json:"object_suffix"`
}

// ToolchainConfig selects how sections are read.
type ToolchainConfig struct {
	Backend string        `mapstructure:"backend" json:"backend" jsonschema:"enum=exec,enum=native"`
	Readelf ReadelfConfig `mapstructure:"readelf" json:"readelf"`
	Objdump ObjdumpConfig `mapstructure:"objdump" json:"objdump"`
}

type ReadelfConfig struct {
	Bin          string   `mapstructure:"bin" json:"bin"`
	SectionFlags []string `mapstructure:"section_flags" json:"section_flags"`
	DumpFlags    []string `mapstructure:"dump_flags" json:"dump_flags"`
}

type ObjdumpConfig struct {
	Bin              string   `mapstructure:"bin" json:"bin"`
	ListingFlags     []string `mapstructure:"listing_flags" json:"listing_flags"`
	DisassemblyFlags []string `mapstructure:"disassembly_flags" json:"disassembly_flags"`
}

type AnalysisConfig struct {
	Matcher string `mapstructure:"matcher" json:"matcher" jsonschema:"enum=code,enum=data,enum=code+data"`
	Workers int    `mapstructure:"workers" json:"workers" jsonschema:"minimum=1"`
}

type EquivalenceConfig struct {
	VolatilePattern string `mapstructure:"volatile_pattern" json:"volatile_pattern"`
	CodePrefix      string `mapstructure:"code_prefix" json:"code_prefix"`
}

type OutputConfig struct {
	Directory   string `mapstructure:"directory" json:"directory"`
	Format      string `mapstructure:"format" json:"format" jsonschema:"enum=table,enum=json,enum=yaml,enum=markdown"`
	MetricsFile string `mapstructure:"metrics_file" json:"metrics_file,omitempty"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Workspace.ObjectSuffix == "" {
		return ErrEmptyObjectSuffix
	}
	if !slices.Contains(backends, c.Toolchain.Backend) {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Toolchain.Backend)
	}
	if !slices.Contains(matchers, c.Analysis.Matcher) {
		return fmt.Errorf("%w: %q", ErrUnknownMatcher, c.Analysis.Matcher)
	}
	if c.Analysis.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if _, err := regexp.Compile(c.Equivalence.VolatilePattern); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVolatilePattern, err)
	}
	if c.Equivalence.CodePrefix == "" {
		return ErrEmptyCodePrefix
	}
	if !slices.Contains(formats, c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Output.Format)
	}
	if !slices.Contains(levels, c.Logging.Level) {
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.Logging.Level)
	}
	return nil
}

// Layout returns the on-disk variant layout.
func (c *Config) Layout() workspace.Layout {
	return workspace.Layout{
		Root:         c.Workspace.Root,
		Variants:     c.Workspace.Variants,
		ObjectDir:    c.Workspace.ObjectDir,
		ObjectSuffix: c.Workspace.ObjectSuffix,
	}
}

// ExecConfig returns the external tool settings of the exec backend.
func (c *Config) ExecConfig() toolchain.ExecConfig {
	return toolchain.ExecConfig{
		Readelf:          c.Toolchain.Readelf.Bin,
		SectionFlags:     c.Toolchain.Readelf.SectionFlags,
		DumpFlags:        c.Toolchain.Readelf.DumpFlags,
		Objdump:          c.Toolchain.Objdump.Bin,
		ListingFlags:     c.Toolchain.Objdump.ListingFlags,
		DisassemblyFlags: c.Toolchain.Objdump.DisassemblyFlags,
	}
}

// VolatileRegexp compiles the validated volatile section pattern.
func (c *Config) VolatileRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.Equivalence.VolatilePattern)
}
