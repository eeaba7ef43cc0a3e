// Package layout holds the command layout table that drives both directions of
// the spring file codec.
//
// Test sequence rows carry no delimiters in the binary stream; a row is a command
// code token followed by a command-specific number of positional tokens. The
// table maps each command code to its ordered slots so that interpretation and
// serialization stay symmetric, and so that a new command is a data change.
package layout

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	internalcel "github.com/twinfer/spring-codec/internal/cel"
)

//go:embed default.yaml
var defaultDocument []byte

// DefaultSentinel separates the header block from the test sequence
const DefaultSentinel = "<Test Sequence>"

// Table is a validated, immutable layout table. It is safe for concurrent use.
type Table struct {
	doc       Document
	byCode    map[string]*Command
	predicate cel.Program
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the built-in layout table
func Default() *Table {
	defaultTableOnce.Do(func() {
		table, err := Parse(defaultDocument)
		if err != nil {
			panic(fmt.Sprintf("built-in layout table is invalid: %v", err))
		}
		defaultTable = table
	})
	return defaultTable
}

// Load reads a layout table from a YAML file
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing layout file %s: %w", path, err)
	}
	return table, nil
}

// Parse builds a table from a YAML layout document
func Parse(data []byte) (*Table, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding layout YAML: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	if doc.Sentinel == "" {
		doc.Sentinel = DefaultSentinel
	}

	table := &Table{
		doc:    doc,
		byCode: make(map[string]*Command, len(doc.Commands)),
	}
	for i := range table.doc.Commands {
		cmd := &table.doc.Commands[i]
		table.byCode[cmd.Code] = cmd
	}

	if doc.UnknownCommand != "" {
		program, err := compilePredicate(doc.UnknownCommand)
		if err != nil {
			return nil, fmt.Errorf("compiling unknown_command: %w", err)
		}
		table.predicate = program
	}
	return table, nil
}

// compilePredicate compiles the CEL expression deciding whether a token looks
// like a command code
func compilePredicate(expr string) (cel.Program, error) {
	pool, err := internalcel.Shared()
	if err != nil {
		return nil, err
	}
	return pool.Predicate(expr)
}

// Version returns the document version the table was loaded from
func (t *Table) Version() int { return t.doc.Version }

// Sentinel returns the token separating header and test sequence
func (t *Table) Sentinel() string { return t.doc.Sentinel }

// SetupTokens returns how many setup tokens follow the sentinel
func (t *Table) SetupTokens() int { return t.doc.SetupTokens }

// Units returns the unit vocabulary of the table
func (t *Table) Units() []string { return append([]string(nil), t.doc.Units...) }

// Commands returns the known command layouts in document order
func (t *Table) Commands() []Command { return append([]Command(nil), t.doc.Commands...) }

// Fallback returns the layout used for unrecognized codes, or nil
func (t *Table) Fallback() *Command { return t.doc.Fallback }

// Known reports whether code has its own layout entry
func (t *Table) Known(code string) bool {
	_, ok := t.byCode[code]
	return ok
}

// Lookup returns the layout for code, falling back to the generic layout for
// unrecognized codes
func (t *Table) Lookup(code string) (*Command, error) {
	if cmd, ok := t.byCode[code]; ok {
		return cmd, nil
	}
	if t.doc.Fallback != nil {
		return t.doc.Fallback, nil
	}
	return nil, &UnsupportedCommandLayoutError{Code: code}
}

// LooksLikeCommand evaluates the unknown_command predicate. Known codes are
// not special-cased here; callers check Known first.
func (t *Table) LooksLikeCommand(token string) bool {
	if t.predicate == nil || token == "" {
		return false
	}

	matched, err := internalcel.EvalBool(t.predicate, token, t.doc.Units)
	return err == nil && matched
}

// StartsRow reports whether token begins a new test sequence row
func (t *Table) StartsRow(token string) bool {
	return t.Known(token) || t.LooksLikeCommand(token)
}

// UnsupportedCommandLayoutError is returned when a code has no layout and the
// table defines no fallback
type UnsupportedCommandLayoutError struct {
	Code string
}

func (e *UnsupportedCommandLayoutError) Error() string {
	return fmt.Sprintf("no layout for command %q and no fallback layout defined", e.Code)
}
