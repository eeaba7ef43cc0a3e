package main

import (
	"github.com/spf13/cobra"

	"github.com/twinfer/spring-codec/internal/batch"
	"github.com/twinfer/spring-codec/internal/config"
)

type convertFlags struct {
	outputDir string
	format    string
	recursive bool
	verbose   bool
}

func newEncodeCmd(a *app) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "encode <paths...>",
		Short: "Convert machine binaries to text or JSON",
		Example: `  springconv encode program.bin
  springconv encode -f all -o out/ programs/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, batch.Encode, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: txt|json|csv|all")
	addConvertFlags(cmd, &f)
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "decode <paths...>",
		Short: "Convert text (.txt) or JSON (.json) programs to machine binaries",
		Example: `  springconv decode program.txt
  springconv decode -r -o bin/ edited/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, batch.Decode, f, args)
		},
	}
	addConvertFlags(cmd, &f)
	return cmd
}

func addConvertFlags(cmd *cobra.Command, f *convertFlags) {
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "output directory (default: next to each input)")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print structural diagnostics per file")
}

func (a *app) runBatch(cmd *cobra.Command, direction batch.Direction, f convertFlags, paths []string) error {
	cfg := *a.cfg
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = f.format
	}
	if cmd.Flags().Changed("recursive") {
		cfg.Recursive = f.recursive
	}
	if err := cfg.Validate(); err != nil {
		return a.fail(err)
	}

	driver := batch.New(a.converter, batch.Config{
		Direction:       direction,
		OutputDir:       cfg.OutputDir,
		Formats:         formats(&cfg),
		Recursive:       cfg.Recursive,
		Workers:         cfg.Workers,
		BinaryExtension: cfg.BinaryExtension,
		MetricsFile:     cfg.MetricsFile,
	}, batch.WithLogger(a.logger), batch.WithHistory(a.history))

	report, err := driver.Run(cmd.Context(), paths)
	if err != nil {
		return a.fail(err)
	}
	if err := report.WriteSummary(a.stdout, f.verbose); err != nil {
		return err
	}
	if len(report.Outcomes) == 0 {
		return a.fail(errNoInputs)
	}
	if report.Failed() > 0 {
		return errFilesFailed
	}
	return nil
}

func formats(cfg *config.Config) []string {
	out := make([]string, 0, 3)
	for _, f := range cfg.Formats() {
		switch f {
		case config.FormatJSON:
			out = append(out, batch.FormatJSON)
		case config.FormatCSV:
			out = append(out, batch.FormatCSV)
		default:
			out = append(out, batch.FormatText)
		}
	}
	return out
}
