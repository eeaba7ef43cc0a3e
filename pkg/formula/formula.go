// Package formula resolves the symbolic conditions of a test program: row
// references such as "R03,2" and formulas such as "=(R02-24.3)".
//
// Conditions stay symbolic in springfile; this package is the consumer side
// that lists which rows a condition depends on and evaluates it once measured
// row values are known.
package formula

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/twinfer/spring-codec/pkg/springfile"
)

var rowIdentifier = regexp.MustCompile(`^R(\d{1,4})$`)

// ErrEmptyCondition is returned when evaluating a row without a condition
var ErrEmptyCondition = errors.New("condition is empty")

// UnresolvedReferenceError reports a referenced row with no known value
type UnresolvedReferenceError struct {
	Row int
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("no value for row %s", springfile.RowLabel(e.Row))
}

// Pool caches compiled formula programs by source
type Pool struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewPool creates an empty program cache
func NewPool() *Pool {
	return &Pool{programs: make(map[string]*vm.Program)}
}

var defaultPool = NewPool()

// Program retrieves or compiles a formula. The leading "=" is optional.
func (p *Pool) Program(source string) (*vm.Program, error) {
	p.mu.RLock()
	if program, ok := p.programs[source]; ok {
		p.mu.RUnlock()
		return program, nil
	}
	p.mu.RUnlock()

	idents, err := rowIdentifiers(source)
	if err != nil {
		return nil, err
	}
	env := make(map[string]any, len(idents))
	for name := range idents {
		env[name] = 0.0
	}

	program, err := expr.Compile(body(source), expr.Env(env), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("failed to compile formula %q: %w", source, err)
	}

	p.mu.Lock()
	p.programs[source] = program
	p.mu.Unlock()
	return program, nil
}

// Evaluate resolves a condition against measured row values
func (p *Pool) Evaluate(cond springfile.Condition, values map[int]float64) (float64, error) {
	switch cond.Kind {
	case springfile.ConditionLiteral:
		v, ok := cond.Number()
		if !ok {
			return 0, fmt.Errorf("literal condition %q is not numeric", cond.Text)
		}
		return v, nil

	case springfile.ConditionRowReference:
		v, ok := values[cond.Row]
		if !ok {
			return 0, &UnresolvedReferenceError{Row: cond.Row}
		}
		if cond.HasMultiplier {
			v *= cond.Multiplier
		}
		return v, nil

	case springfile.ConditionFormula:
		program, err := p.Program(cond.Text)
		if err != nil {
			return 0, err
		}
		idents, err := rowIdentifiers(cond.Text)
		if err != nil {
			return 0, err
		}
		env := make(map[string]any, len(idents))
		for _, row := range sortedRows(idents) {
			if _, ok := values[row]; !ok {
				return 0, &UnresolvedReferenceError{Row: row}
			}
		}
		for name, row := range idents {
			env[name] = values[row]
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return 0, fmt.Errorf("formula %q evaluation error: %w", cond.Text, err)
		}
		v, ok := out.(float64)
		if !ok {
			return 0, fmt.Errorf("formula %q returned %T", cond.Text, out)
		}
		return v, nil
	}
	return 0, ErrEmptyCondition
}

// Evaluate resolves a condition with the package level program cache
func Evaluate(cond springfile.Condition, values map[int]float64) (float64, error) {
	return defaultPool.Evaluate(cond, values)
}

// References lists the rows a condition depends on, in ascending order
func References(cond springfile.Condition) ([]int, error) {
	switch cond.Kind {
	case springfile.ConditionRowReference:
		return []int{cond.Row}, nil
	case springfile.ConditionFormula:
		return referencedRows(cond.Text)
	}
	return nil, nil
}

// Dangling lists references that do not point at an earlier row, formatted
// as "R05 -> R09". Formulas that cannot be parsed are reported as well.
func Dangling(file *springfile.TestFile) []string {
	var out []string
	for i := range file.Rows {
		row := &file.Rows[i]
		refs, err := References(row.Condition)
		if err != nil {
			out = append(out, fmt.Sprintf("%s: %v", row.Label(), err))
			continue
		}
		for _, ref := range refs {
			if ref >= row.Index || ref >= len(file.Rows) {
				out = append(out, row.Label()+" -> "+springfile.RowLabel(ref))
			}
		}
	}
	return out
}

func body(source string) string {
	return strings.TrimPrefix(strings.TrimSpace(source), "=")
}

// rowCollector gathers R<n> identifiers while walking a formula tree. R2 and
// R02 name the same row but are distinct identifiers to expr.
type rowCollector struct {
	idents map[string]int
}

func (c *rowCollector) Visit(node *ast.Node) {
	ident, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if m := rowIdentifier.FindStringSubmatch(ident.Value); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.idents[ident.Value] = n
		}
	}
}

// rowIdentifiers maps each row identifier written in a formula to its row
func rowIdentifiers(source string) (map[string]int, error) {
	tree, err := parser.Parse(body(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse formula %q: %w", source, err)
	}

	collector := &rowCollector{idents: make(map[string]int)}
	ast.Walk(&tree.Node, collector)
	return collector.idents, nil
}

func referencedRows(source string) ([]int, error) {
	idents, err := rowIdentifiers(source)
	if err != nil {
		return nil, err
	}
	return sortedRows(idents), nil
}

func sortedRows(idents map[string]int) []int {
	seen := make(map[int]bool, len(idents))
	rows := make([]int, 0, len(idents))
	for _, row := range idents {
		if !seen[row] {
			seen[row] = true
			rows = append(rows, row)
		}
	}
	sort.Ints(rows)
	return rows
}
