package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"renewal/internal/equiv"
	"renewal/internal/renewal/styles"
	"renewal/internal/ui/colorize"
)

func newFingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint binary...",
		Short: "Print what a binary contributes to the equivalence check",
		Long: `Fingerprint prints, for every binary, the digest used by equiv followed by
the fingerprint text it was computed from.`,
		Example: `
# Compare two digests without the listing
renewal fingerprint --digest out/v1/app out/v2/app
  `,
		Args: cobra.MinimumNArgs(1),
		RunE: runFingerprint,
	}
	cmd.Flags().Bool("digest", false, "Print only the digests")
	return cmd
}

func runFingerprint(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	digestOnly, _ := cmd.Flags().GetBool("digest")
	out := cmd.OutOrStdout()
	tty := isTerminal(out)
	checker := s.checker()

	for _, binary := range args {
		fp, err := checker.Fingerprint(cmd.Context(), binary)
		if err != nil {
			return err
		}
		header := fmt.Sprintf("%s %s", equiv.Digest(fp), binary)
		if tty {
			header = styles.Title.Render(header)
		}
		fmt.Fprintln(out, header)
		if digestOnly {
			continue
		}
		if tty {
			if colored, cerr := colorize.Assembly(fp); cerr == nil {
				fp = colored
			}
		}
		fmt.Fprintln(out, fp)
	}
	return nil
}
