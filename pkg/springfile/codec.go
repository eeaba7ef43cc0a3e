// Package springfile models spring test programs and converts them between the
// machine's token stream, the canonical text layout and JSON.
//
// A Codec is bound to one layout.Table; interpretation and serialization use the
// same table so that both directions agree on every command's token layout.
//
//	codec := springfile.New()
//	file, diag, err := codec.Interpret(tokens)
//	text, err := codec.Render(file)
//	again, _, err := codec.Parse(text)
//	tokens, err = codec.Serialize(again)
package springfile

import (
	"log/slog"

	"github.com/twinfer/spring-codec/pkg/layout"
)

// Codec converts between token streams, text and the record model
type Codec struct {
	table  *layout.Table
	logger *slog.Logger
}

// Option configures a Codec
type Option func(*Codec)

// WithTable sets the command layout table (defaults to layout.Default())
func WithTable(table *layout.Table) Option {
	return func(c *Codec) {
		if table != nil {
			c.table = table
		}
	}
}

// WithLogger sets the logger used for debug traces
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Codec
func New(opts ...Option) *Codec {
	c := &Codec{
		table:  layout.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the layout table the codec uses
func (c *Codec) Table() *layout.Table {
	return c.table
}
