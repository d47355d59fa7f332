package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"renewal/internal/workspace"
)

// ExecConfig locates the external readelf and objdump tools.
type ExecConfig struct {
	Readelf          string
	SectionFlags     []string // section table of an object, e.g. -S -W
	DumpFlags        []string // hex dump of one section, e.g. -x
	Objdump          string
	ListingFlags     []string // full contents of a binary, e.g. -s
	DisassemblyFlags []string // e.g. -d; "-j <section>" is appended
}

// Runner executes a tool and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandError is returned when a tool exits unsuccessfully.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Unwrap() error { return e.Err }

// RunCommand runs name with args, killing it when ctx is done.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Command: strings.Join(append([]string{name}, args...), " "),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

// NewExec returns a toolchain that shells out to readelf and objdump.
// A nil run uses RunCommand.
func NewExec(cfg ExecConfig, run Runner, logger *log.Logger) Toolchain {
	if run == nil {
		run = RunCommand
	}
	call := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if logger != nil {
			logger.Debug("executing command", "cmd", name, "args", args)
		}
		return run(ctx, name, args...)
	}
	with := func(flags []string, extra ...string) []string {
		args := make([]string, 0, len(flags)+len(extra))
		args = append(args, flags...)
		return append(args, extra...)
	}

	return Toolchain{
		ExtractionInput: func(ctx context.Context, variant string, unit workspace.Unit) (string, error) {
			out, err := call(ctx, cfg.Readelf, with(cfg.SectionFlags, unit.Object)...)
			if err != nil {
				return "", fmt.Errorf("read sections of %s/%s: %w", variant, unit.ID, err)
			}
			return string(out), nil
		},
		FetchRegion: func(ctx context.Context, r Region) ([]byte, error) {
			out, err := call(ctx, cfg.Readelf, with(cfg.DumpFlags, r.Name, r.Object)...)
			if err != nil {
				return nil, fmt.Errorf("dump region %s: %w", r, err)
			}
			return out, nil
		},
		ListSections: func(ctx context.Context, binary string) (string, error) {
			out, err := call(ctx, cfg.Objdump, with(cfg.ListingFlags, binary)...)
			if err != nil {
				return "", fmt.Errorf("list sections of %s: %w", binary, err)
			}
			return string(out), nil
		},
		Disassemble: func(ctx context.Context, binary, section string) (string, error) {
			out, err := call(ctx, cfg.Objdump, with(cfg.DisassemblyFlags, "-j", section, binary)...)
			if err != nil {
				return "", fmt.Errorf("disassemble %s in %s: %w", section, binary, err)
			}
			return string(out), nil
		},
	}
}
