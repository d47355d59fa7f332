package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"renewal/internal/config"
	"renewal/internal/logging"
	"renewal/internal/metrics"
	"renewal/internal/renewal/log"
	"renewal/internal/toolchain"
)

// NewRootCmd builds the renewal command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "renewal",
		Short: "Find the code that differs between generated program variants",
		Long: `Renewal compares the objects compiled from several generated variants of one
program. Every function or data symbol whose compiled regions are byte-identical
across all variants is stable; every other symbol is divergent and becomes a
candidate for mobility. After protection, renewal checks that the protected
binaries of all variants are equivalent.`,
		Example: `
# Classify the symbols of all variants below ./generated
renewal analyze ./generated

# Write the allow-list of divergent symbols for the protection step
renewal analyze ./generated --allow-list mobile.txt

# Check that protected binaries are equivalent
renewal equiv out/v1/app out/v2/app out/v3/app

# Show what one binary contributes to that check
renewal fingerprint out/v1/app
  `,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	root.PersistentFlags().String("config", "", "Config file (default renewal.yaml in ., ./config, /etc/renewal)")
	root.PersistentFlags().BoolP("debug", "d", false, "Debug")

	root.AddCommand(newAnalyzeCmd(), newEquivCmd(), newFingerprintCmd(), newSchemaCmd())
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()

	// fang renders errors and help for humans; plain cobra when piped.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := root.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}

// session is what every subcommand needs: configuration, logging,
// metrics and the selected toolchain.
type session struct {
	cfg       *config.Config
	logger    *logging.LoggerCloser
	metrics   *metrics.Recorder
	toolchain toolchain.Toolchain
}

func newSession(cmd *cobra.Command) (*session, error) {
	if _, err := ResolveCwd(cmd); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	debug, _ := cmd.Flags().GetBool("debug")
	debug = debug || logging.IsDebug()
	if debug {
		cfg.Logging.Level = "debug"
	}
	log.Setup(cmd.ErrOrStderr(), debug)

	logger := logging.NewLogger()
	if os.Getenv(logging.EnvLevel) == "" || cfg.Logging.Level != config.DefaultLogLevel {
		logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}

	s := &session{cfg: cfg, logger: logger}
	if cfg.Output.MetricsFile != "" {
		s.metrics = metrics.New()
	}

	switch cfg.Toolchain.Backend {
	case config.BackendNative:
		s.toolchain = toolchain.NewNative()
	default:
		s.toolchain = toolchain.NewExec(cfg.ExecConfig(), nil, logger.Logger)
	}
	if err := s.toolchain.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// close persists metrics and releases the log file.
func (s *session) close() error {
	var err error
	if s.cfg.Output.MetricsFile != "" {
		err = s.metrics.WriteTextfile(s.cfg.Output.MetricsFile)
	}
	if cerr := s.logger.Close(); err == nil {
		err = cerr
	}
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}
	return width
}
