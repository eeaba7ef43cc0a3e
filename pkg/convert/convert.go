package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/twinfer/spring-codec/pkg/formula"
	"github.com/twinfer/spring-codec/pkg/layout"
	"github.com/twinfer/spring-codec/pkg/springfile"
	"github.com/twinfer/spring-codec/pkg/tokenstream"
)

// Converter runs the decode and encode pipelines with cached layout tables
type Converter struct {
	tableCache map[string]*layout.Table
	cacheMutex sync.RWMutex
	logger     *slog.Logger
	options    options
}

// options holds configuration for the converter
type options struct {
	layoutsPath string
	logger      *slog.Logger
	verify      bool
	debugMode   bool
}

// Option is a function that configures converter options
type Option func(*options)

// WithLayoutFile loads the command layout table from a YAML file instead of
// the built-in one
func WithLayoutFile(path string) Option {
	return func(o *options) {
		o.layoutsPath = path
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithVerify re-serializes every decoded binary and records whether the bytes
// match in Diagnostics.RoundTripSame
func WithVerify(enabled bool) Option {
	return func(o *options) {
		o.verify = enabled
	}
}

// WithDebugMode enables debug logging
func WithDebugMode(enabled bool) Option {
	return func(o *options) {
		o.debugMode = enabled
	}
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// Result is the outcome of one conversion
type Result struct {
	File        *springfile.TestFile
	Diagnostics *springfile.Diagnostics
}

var globalConverter *Converter
var globalConverterOnce sync.Once

func getGlobalConverter() *Converter {
	globalConverterOnce.Do(func() {
		globalConverter = New()
	})
	return globalConverter
}

// New creates a converter with the given options
func New(opts ...Option) *Converter {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.debugMode {
		options.logger = options.logger.With("debug", true)
	}

	return &Converter{
		tableCache: make(map[string]*layout.Table),
		logger:     options.logger,
		options:    options,
	}
}

// BinaryToText decodes a binary with the shared converter and renders text
func BinaryToText(data []byte, opts ...Option) ([]byte, *Result, error) {
	return getGlobalConverter().BinaryToText(context.Background(), data, opts...)
}

// BinaryToJSON decodes a binary with the shared converter and renders JSON
func BinaryToJSON(data []byte, opts ...Option) ([]byte, *Result, error) {
	return getGlobalConverter().BinaryToJSON(context.Background(), data, opts...)
}

// TextToBinary parses text with the shared converter and writes a binary
func TextToBinary(text []byte, opts ...Option) ([]byte, *Result, error) {
	return getGlobalConverter().TextToBinary(context.Background(), text, opts...)
}

// BinaryToCSV decodes a binary with the shared converter and renders the test
// sequence as CSV
func BinaryToCSV(data []byte, opts ...Option) ([]byte, *Result, error) {
	return getGlobalConverter().BinaryToCSV(context.Background(), data, opts...)
}

// JSONToBinary parses JSON with the shared converter and writes a binary
func JSONToBinary(data []byte, opts ...Option) ([]byte, *Result, error) {
	return getGlobalConverter().JSONToBinary(context.Background(), data, opts...)
}

// ValidateLayouts loads a layout table file without converting anything
func ValidateLayouts(path string) error {
	_, err := getGlobalConverter().loadTable(path)
	return err
}

// Codec returns the codec the converter uses for the given options
func (c *Converter) Codec(opts ...Option) (*springfile.Codec, error) {
	options := c.options
	for _, opt := range opts {
		opt(&options)
	}
	return c.codec(options)
}

func (c *Converter) codec(options options) (*springfile.Codec, error) {
	table := layout.Default()
	if options.layoutsPath != "" {
		var err error
		if table, err = c.loadTable(options.layoutsPath); err != nil {
			return nil, err
		}
	}
	logger := options.logger
	if logger == nil {
		logger = c.logger
	}
	return springfile.New(springfile.WithTable(table), springfile.WithLogger(logger)), nil
}

// Decode reads a binary into the record model
func (c *Converter) Decode(ctx context.Context, data []byte, opts ...Option) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	options := c.options
	for _, opt := range opts {
		opt(&options)
	}
	codec, err := c.codec(options)
	if err != nil {
		return nil, err
	}

	tokens, err := tokenstream.Read(data)
	if err != nil {
		return nil, fmt.Errorf("reading token stream: %w", err)
	}
	file, diag, err := codec.Interpret(tokens)
	if err != nil {
		return nil, fmt.Errorf("interpreting tokens: %w", err)
	}
	diag.DanglingRefs = formula.Dangling(file)

	if options.verify {
		same, err := sameBytes(codec, file, data)
		if err != nil {
			return nil, fmt.Errorf("verifying round trip: %w", err)
		}
		diag.RoundTripSame = &same
	}

	c.logger.DebugContext(ctx, "Decoded binary",
		"bytes", len(data),
		"tokens", diag.Tokens,
		"rows", diag.Rows,
		"unknown_codes", len(diag.UnknownCodes))
	return &Result{File: file, Diagnostics: diag}, nil
}

// BinaryToText decodes a binary and renders its text form
func (c *Converter) BinaryToText(ctx context.Context, data []byte, opts ...Option) ([]byte, *Result, error) {
	result, err := c.Decode(ctx, data, opts...)
	if err != nil {
		return nil, nil, err
	}
	codec, err := c.Codec(opts...)
	if err != nil {
		return nil, nil, err
	}
	text, err := codec.Render(result.File)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering text: %w", err)
	}
	return []byte(text), result, nil
}

// BinaryToJSON decodes a binary and renders its JSON form
func (c *Converter) BinaryToJSON(ctx context.Context, data []byte, opts ...Option) ([]byte, *Result, error) {
	result, err := c.Decode(ctx, data, opts...)
	if err != nil {
		return nil, nil, err
	}
	codec, err := c.Codec(opts...)
	if err != nil {
		return nil, nil, err
	}
	out, err := codec.RenderJSON(result.File)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering JSON: %w", err)
	}
	return out, result, nil
}

// BinaryToCSV decodes a binary and renders its test sequence as CSV
func (c *Converter) BinaryToCSV(ctx context.Context, data []byte, opts ...Option) ([]byte, *Result, error) {
	result, err := c.Decode(ctx, data, opts...)
	if err != nil {
		return nil, nil, err
	}
	codec, err := c.Codec(opts...)
	if err != nil {
		return nil, nil, err
	}
	out, err := codec.RenderCSV(result.File)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering CSV: %w", err)
	}
	return out, result, nil
}

// TextToBinary parses the text form and writes the binary
func (c *Converter) TextToBinary(ctx context.Context, text []byte, opts ...Option) ([]byte, *Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	codec, err := c.Codec(opts...)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := DecodeText(text)
	if err != nil {
		return nil, nil, err
	}
	file, diag, err := codec.Parse(decoded)
	if err != nil {
		return nil, nil, err
	}
	return c.encode(ctx, codec, file, diag)
}

// JSONToBinary parses the JSON form and writes the binary
func (c *Converter) JSONToBinary(ctx context.Context, data []byte, opts ...Option) ([]byte, *Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	codec, err := c.Codec(opts...)
	if err != nil {
		return nil, nil, err
	}
	file, diag, err := codec.ParseJSON(data)
	if err != nil {
		return nil, nil, err
	}
	return c.encode(ctx, codec, file, diag)
}

// Encode writes the binary for an in-memory test file
func (c *Converter) Encode(ctx context.Context, file *springfile.TestFile, opts ...Option) ([]byte, error) {
	codec, err := c.Codec(opts...)
	if err != nil {
		return nil, err
	}
	out, _, err := c.encode(ctx, codec, file, &springfile.Diagnostics{})
	return out, err
}

func (c *Converter) encode(ctx context.Context, codec *springfile.Codec, file *springfile.TestFile, diag *springfile.Diagnostics) ([]byte, *Result, error) {
	tokens, err := codec.Serialize(file)
	if err != nil {
		return nil, nil, fmt.Errorf("serializing test file: %w", err)
	}
	out, err := tokenstream.Write(tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("writing token stream: %w", err)
	}
	diag.Tokens = len(tokens)
	diag.DanglingRefs = formula.Dangling(file)

	c.logger.DebugContext(ctx, "Encoded binary", "rows", len(file.Rows), "tokens", len(tokens), "bytes", len(out))
	return out, &Result{File: file, Diagnostics: diag}, nil
}

func sameBytes(codec *springfile.Codec, file *springfile.TestFile, data []byte) (bool, error) {
	tokens, err := codec.Serialize(file)
	if err != nil {
		return false, err
	}
	out, err := tokenstream.Write(tokens)
	if err != nil {
		return false, err
	}
	return bytes.Equal(out, data), nil
}

// DecodeText converts a text input to a string, honoring UTF-8 and UTF-16
// byte order marks
func DecodeText(data []byte) (string, error) {
	decoder := unicode.BOMOverride(encoding.Nop.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	if !utf8.Valid(out) {
		return "", fmt.Errorf("decoding text: invalid UTF-8")
	}
	return string(out), nil
}

// loadTable loads a layout table from disk with caching
func (c *Converter) loadTable(path string) (*layout.Table, error) {
	c.cacheMutex.RLock()
	cached, exists := c.tableCache[path]
	c.cacheMutex.RUnlock()
	if exists {
		return cached, nil
	}

	table, err := layout.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading layout table: %w", err)
	}

	c.cacheMutex.Lock()
	c.tableCache[path] = table
	c.cacheMutex.Unlock()
	return table, nil
}

// ClearCache drops cached layout tables
func (c *Converter) ClearCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.tableCache = make(map[string]*layout.Table)
}
