package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"renewal/internal/equiv"
	"renewal/internal/renewal/styles"
	"renewal/internal/ui/colorize"
)

func newEquivCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equiv binary...",
		Short: "Check that protected binaries are equivalent",
		Long: `Equiv fingerprints every binary from its section listing: code sections
contribute their normalized disassembly, volatile sections nothing and all
other sections their raw contents. The check fails unless all fingerprints
are identical.

Raw contents are compared as objdump -s prints them, addresses included. A
data section holding absolute addresses that moved between variants fails
the check; add it to equivalence.volatile_pattern when that is expected.
Use "renewal fingerprint" to see what a binary contributes.`,
		Example: `
renewal equiv out/v1/app out/v2/app out/v3/app
  `,
		Args: cobra.MinimumNArgs(1),
		RunE: runEquiv,
	}
}

func runEquiv(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	err = s.checker().Assert(cmd.Context(), args)
	var mismatch *equiv.MismatchError
	if errors.As(err, &mismatch) {
		stderr := cmd.ErrOrStderr()
		diff := mismatch.Diff
		if isTerminal(stderr) {
			if colored, cerr := colorize.Diff(diff); cerr == nil {
				diff = colored
			}
		}
		fmt.Fprintln(stderr, styles.Failure.Render("protected binaries differ"))
		fmt.Fprint(stderr, diff)
		return err
	}
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("%d binaries equivalent", len(args))
	if isTerminal(cmd.OutOrStdout()) {
		msg = styles.Success.Render(msg)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func (s *session) checker() *equiv.Checker {
	return equiv.New(s.toolchain,
		equiv.WithVolatile(s.cfg.VolatileRegexp()),
		equiv.WithCodePrefix(s.cfg.Equivalence.CodePrefix),
		equiv.WithWorkers(s.cfg.Analysis.Workers),
		equiv.WithLogger(s.logger.Logger),
		equiv.WithMetrics(s.metrics),
	)
}
