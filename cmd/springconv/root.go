package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twinfer/spring-codec/internal/config"
	"github.com/twinfer/spring-codec/internal/logging"
	"github.com/twinfer/spring-codec/internal/recent"
	"github.com/twinfer/spring-codec/pkg/convert"
)

var (
	// errFilesFailed signals a batch with failures; the summary already names them
	errFilesFailed = errors.New("one or more files failed")
	errNoInputs    = errors.New("no input files found")
)

// globalFlags are persistent flags shared by every command
type globalFlags struct {
	configFile  string
	layouts     string
	workers     int
	metricsFile string
	noHistory   bool
	logFormat   string
	logLevel    string
}

// app carries state built once the flags are parsed
type app struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer

	cfg       *config.Config
	logger    *zap.Logger
	converter *convert.Converter
	history   recent.Store
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "springconv",
		Short: "Convert spring tester programs between binary, text and JSON",
		Long: `springconv converts spring test sequence programs.

  encode   machine binary -> editable text (.txt) and/or JSON (.json)
  decode   text or JSON   -> machine binary

Directories are expanded to the files matching the direction.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configFile, "config", "", "config file (default: user config dir/springconv/config.yaml)")
	flags.StringVar(&a.flags.layouts, "layouts", "", "command layout table YAML file")
	flags.IntVar(&a.flags.workers, "workers", 0, "files converted in parallel (default: number of CPUs)")
	flags.StringVar(&a.flags.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	flags.BoolVar(&a.flags.noHistory, "no-history", false, "do not record converted files")
	flags.StringVar(&a.flags.logFormat, "log-format", "", "log encoding: json|console")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug|info|warn|error")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newLayoutsCmd(a),
		newRecentCmd(a),
	)
	return root
}

// setup loads the config file and applies flag overrides
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.configFile)
	if err != nil {
		return a.fail(err)
	}

	flags := cmd.Flags()
	if flags.Changed("layouts") {
		cfg.LayoutsPath = a.flags.layouts
	}
	if flags.Changed("workers") {
		cfg.Workers = a.flags.workers
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = a.flags.metricsFile
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.flags.logFormat
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return a.fail(err)
	}
	a.cfg = cfg

	a.logger, err = logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return a.fail(fmt.Errorf("creating logger: %w", err))
	}

	opts := []convert.Option{
		convert.WithLogger(logging.Slog(a.logger)),
		convert.WithVerify(cfg.Verify),
	}
	if cfg.LayoutsPath != "" {
		if err := convert.ValidateLayouts(cfg.LayoutsPath); err != nil {
			return a.fail(err)
		}
		opts = append(opts, convert.WithLayoutFile(cfg.LayoutsPath))
	}
	a.converter = convert.New(opts...)

	a.history = recent.Discard{}
	if !a.flags.noHistory && cfg.HistoryFile != "" {
		a.history = recent.NewFileStore(cfg.HistoryFile, cfg.HistorySize)
	}
	return nil
}

// fail prints err and returns it so cobra exits non-zero
func (a *app) fail(err error) error {
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return err
}
