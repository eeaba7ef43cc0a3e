// Package batch converts many files on a bounded worker pool and reports the
// outcome of each.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/twinfer/spring-codec/internal/recent"
	"github.com/twinfer/spring-codec/pkg/convert"
)

// Direction selects which way files are converted
type Direction string

const (
	// Encode turns binaries into text or JSON
	Encode Direction = "encode"
	// Decode turns text or JSON back into binaries
	Decode Direction = "decode"
)

// Output formats written by Encode
const (
	FormatText = "txt"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config controls a batch run
type Config struct {
	Direction       Direction
	OutputDir       string // empty writes next to each input
	Formats         []string
	Recursive       bool
	Workers         int
	BinaryExtension string
	MetricsFile     string
}

// Outcome is the result of converting one input file
type Outcome struct {
	Input    string
	Outputs  []string
	Result   *convert.Result
	Err      error
	Duration time.Duration
}

// FileError ties a conversion failure to its input path
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// OutputCollisionError reports an input whose output is already claimed by an
// earlier input of the same batch
type OutputCollisionError struct {
	Output string
	Owner  string
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("output %s is already written for %s", e.Output, e.Owner)
}

// Report holds outcomes in input order
type Report struct {
	Direction Direction
	Outcomes  []Outcome
}

// Failed counts failed files
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Err combines every file failure, or returns nil
func (r *Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, &FileError{Path: o.Input, Err: o.Err})
		}
	}
	return err
}

// Driver runs batches with a shared converter
type Driver struct {
	converter *convert.Converter
	config    Config
	logger    *zap.Logger
	metrics   *Metrics
	history   recent.Store
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the driver logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithMetrics records batch metrics into m
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithHistory records converted inputs in store
func WithHistory(store recent.Store) Option {
	return func(d *Driver) {
		d.history = store
	}
}

// New creates a driver
func New(converter *convert.Converter, config Config, opts ...Option) *Driver {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.BinaryExtension == "" {
		config.BinaryExtension = ".bin"
	}
	if len(config.Formats) == 0 {
		config.Formats = []string{FormatText}
	}

	d := &Driver{
		converter: converter,
		config:    config,
		logger:    zap.NewNop(),
		history:   recent.Discard{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics()
	}
	return d
}

// Metrics returns the collectors the driver records into
func (d *Driver) Metrics() *Metrics {
	return d.metrics
}

// Run converts every input reachable from paths. Failures are recorded per
// file; the returned error is reserved for problems that stop the whole run.
func (d *Driver) Run(ctx context.Context, paths []string) (*Report, error) {
	inputs := d.claimOutputs(collect(paths, d.config.Direction, d.config.Recursive))
	report := &Report{Direction: d.config.Direction, Outcomes: make([]Outcome, len(inputs))}

	var g errgroup.Group
	g.SetLimit(d.config.Workers)
	for i, in := range inputs {
		if in.err != nil {
			report.Outcomes[i] = Outcome{Input: in.path, Err: in.err}
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Outcomes[i] = Outcome{Input: in.path, Err: err}
			continue
		}
		g.Go(func() error {
			report.Outcomes[i] = d.process(ctx, in.path)
			return nil
		})
	}
	_ = g.Wait()

	var converted []string
	for _, o := range report.Outcomes {
		d.metrics.observe(d.config.Direction, o)
		if o.Err == nil {
			converted = append(converted, o.Input)
		}
	}
	if err := d.history.Add(converted...); err != nil {
		d.logger.Warn("Failed to update recent files", zap.Error(err))
	}

	if d.config.MetricsFile != "" {
		if err := d.metrics.WriteTextfile(d.config.MetricsFile); err != nil {
			return report, fmt.Errorf("writing metrics: %w", err)
		}
	}

	d.logger.Info("Batch finished",
		zap.String("direction", string(d.config.Direction)),
		zap.Int("files", len(report.Outcomes)),
		zap.Int("failed", report.Failed()))
	return report, nil
}

func (d *Driver) process(ctx context.Context, path string) Outcome {
	start := time.Now()
	outcome := Outcome{Input: path}

	var err error
	switch d.config.Direction {
	case Encode:
		outcome.Outputs, outcome.Result, err = d.encode(ctx, path)
	case Decode:
		outcome.Outputs, outcome.Result, err = d.decode(ctx, path)
	default:
		err = fmt.Errorf("unknown direction %q", d.config.Direction)
	}
	outcome.Err = err
	outcome.Duration = time.Since(start)

	if err != nil {
		d.logger.Error("Conversion failed", zap.String("input", path), zap.Error(err))
	} else {
		d.logger.Debug("Converted file",
			zap.String("input", path),
			zap.Strings("outputs", outcome.Outputs),
			zap.Int("rows", outcome.Result.Diagnostics.Rows),
			zap.Duration("took", outcome.Duration))
	}
	return outcome
}

func (d *Driver) encode(ctx context.Context, path string) ([]string, *convert.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := d.converter.Decode(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	codec, err := d.converter.Codec()
	if err != nil {
		return nil, nil, err
	}

	outputs := make([]string, 0, len(d.config.Formats))
	for _, format := range d.config.Formats {
		var out []byte
		switch format {
		case FormatText:
			var text string
			text, err = codec.Render(result.File)
			out = []byte(text)
		case FormatJSON:
			out, err = codec.RenderJSON(result.File)
		case FormatCSV:
			out, err = codec.RenderCSV(result.File)
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return nil, nil, err
		}
		target := d.outputPath(path, "."+format)
		if err := writeFile(target, out); err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, target)
	}
	return outputs, result, nil
}

func (d *Driver) decode(ctx context.Context, path string) ([]string, *convert.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var out []byte
	var result *convert.Result
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		out, result, err = d.converter.TextToBinary(ctx, data)
	case ".json":
		out, result, err = d.converter.JSONToBinary(ctx, data)
	default:
		err = fmt.Errorf("unsupported input %s: expected .txt or .json", filepath.Base(path))
	}
	if err != nil {
		return nil, nil, err
	}

	target := d.outputPath(path, d.config.BinaryExtension)
	if err := writeFile(target, out); err != nil {
		return nil, nil, err
	}
	return []string{target}, result, nil
}

// claimOutputs fails every input whose outputs overlap those of an earlier
// input, so no two workers write the same file
func (d *Driver) claimOutputs(inputs []input) []input {
	owners := make(map[string]string)
	for i := range inputs {
		in := &inputs[i]
		if in.err != nil {
			continue
		}
		targets := d.outputPaths(in.path)
		for _, target := range targets {
			if owner, ok := owners[outputKey(target)]; ok {
				in.err = &OutputCollisionError{Output: target, Owner: owner}
				break
			}
		}
		if in.err != nil {
			continue
		}
		for _, target := range targets {
			owners[outputKey(target)] = in.path
		}
	}
	return inputs
}

// outputPaths lists the files process writes for an input
func (d *Driver) outputPaths(path string) []string {
	if d.config.Direction == Decode {
		return []string{d.outputPath(path, d.config.BinaryExtension)}
	}
	targets := make([]string, 0, len(d.config.Formats))
	for _, format := range d.config.Formats {
		targets = append(targets, d.outputPath(path, "."+format))
	}
	return targets
}

func outputKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (d *Driver) outputPath(input, ext string) string {
	dir := d.config.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+ext)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

type input struct {
	path string
	err  error
}

// collect expands paths into the files a batch converts. Named files are
// taken as given; directories contribute the files matching the direction,
// descending only when recursive is set.
func collect(paths []string, direction Direction, recursive bool) []input {
	var inputs []input
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			inputs = append(inputs, input{path: p, err: err})
			continue
		}
		if !info.IsDir() {
			inputs = append(inputs, input{path: p})
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				if path != p && (!recursive || strings.HasPrefix(entry.Name(), ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if accepts(direction, entry.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			inputs = append(inputs, input{path: p, err: err})
			continue
		}
		sort.Strings(found)
		for _, f := range found {
			inputs = append(inputs, input{path: f})
		}
	}
	return inputs
}

func accepts(direction Direction, name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".json":
		return direction == Decode
	case ".csv":
		return false
	default:
		return direction == Encode
	}
}
