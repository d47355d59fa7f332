package cmd

import (
	"github.com/spf13/cobra"

	"renewal/internal/analysis"
	"renewal/internal/extract"
	"renewal/internal/renewal/log"
	"renewal/internal/report"
	"renewal/internal/workspace"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [root]",
		Short: "Classify every symbol as stable or divergent",
		Long: `Analyze compares the compiled regions of every symbol between adjacent
variants. A symbol that differs at any pair is divergent; the others are stable.
The report is printed and result.json is written to the output directory.`,
		Example: `
# Analyze the variants below ./generated in a fixed order
renewal analyze ./generated --variants v1,v2,v3

# Print the report as JSON
renewal analyze -o json
  `,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}
	cmd.Flags().StringSlice("variants", nil, "Ordered variant names (default: all subdirectories, sorted)")
	cmd.Flags().StringP("format", "o", "", "Report format: table, json, yaml or markdown")
	cmd.Flags().String("output-dir", "", "Directory for result.json")
	cmd.Flags().String("allow-list", "", "Write divergent symbol names to this file, one per line")
	cmd.Flags().Bool("no-result", false, "Do not write result.json")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	cfg := s.cfg
	if len(args) == 1 {
		cfg.Workspace.Root = args[0]
	}
	if v, _ := cmd.Flags().GetStringSlice("variants"); len(v) > 0 {
		cfg.Workspace.Variants = v
	}
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		cfg.Output.Format = f
	}
	if d, _ := cmd.Flags().GetString("output-dir"); d != "" {
		cfg.Output.Directory = d
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	matcher, err := extract.MatcherByName(cfg.Analysis.Matcher)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	variants, err := workspace.Discover(ctx, cfg.Layout())
	if err != nil {
		return err
	}
	log.Component("analyze").Debug("Discovered variants", "root", cfg.Workspace.Root, "count", len(variants))
	for _, v := range variants {
		s.logger.Info("variant", "name", v.Name, "units", len(v.Units))
	}

	analyzer := analysis.New(s.toolchain, matcher,
		analysis.WithWorkers(cfg.Analysis.Workers),
		analysis.WithLogger(s.logger.Logger),
		analysis.WithMetrics(s.metrics),
	)
	rep, err := analyzer.Analyze(ctx, variants)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := report.Options{Color: isTerminal(out)}
	if format == report.FormatMarkdown && opts.Color {
		opts.Width = terminalWidth(out)
	}
	if err := report.Render(out, rep, format, opts); err != nil {
		return err
	}

	if noResult, _ := cmd.Flags().GetBool("no-result"); !noResult {
		path, err := report.WriteResult(cfg.Output.Directory, rep)
		if err != nil {
			return err
		}
		s.logger.Info("wrote result", "path", path)
	}
	if path, _ := cmd.Flags().GetString("allow-list"); path != "" {
		if err := report.WriteAllowList(path, rep); err != nil {
			return err
		}
		s.logger.Info("wrote allow list", "path", path, "symbols", len(report.AllowList(rep)))
	}
	if cfg.Output.MetricsFile != "" {
		s.logger.Debug("writing metrics", "path", cfg.Output.MetricsFile)
	}
	return nil
}
