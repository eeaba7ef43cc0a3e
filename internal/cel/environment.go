// Package cel holds the CEL environment that layout table predicates are
// compiled in, and a cache of compiled predicates.
package cel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Variables visible to every predicate
const (
	VarToken = "token"
	VarUnits = "units"
)

// NewEnvironment creates a CEL environment with the predicate variables and
// the token helper functions.
func NewEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarToken, cel.StringType),
		cel.Variable(VarUnits, cel.ListType(cel.StringType)),
		TokenFunctions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// TokenFunctions returns CEL function declarations for inspecting tokens.
func TokenFunctions() cel.EnvOption {
	return cel.Lib(&tokenLib{})
}

type tokenLib struct{}

var rowReference = regexp.MustCompile(`^R\d{1,4}$`)

func (*tokenLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		// length counts runes
		cel.Function("length",
			cel.Overload("length_string", []*cel.Type{cel.StringType}, cel.IntType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					str, ok := val.(types.String)
					if !ok {
						return types.NewErr("expected string type for length")
					}
					return types.Int(len([]rune(string(str))))
				}),
			),
		),
		cel.Function("isNumeric",
			cel.Overload("isnumeric_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					str, ok := val.(types.String)
					if !ok {
						return types.NewErr("expected string type for isNumeric")
					}
					_, err := strconv.ParseFloat(strings.TrimSpace(string(str)), 64)
					return types.Bool(err == nil)
				}),
			),
		),
		cel.Function("isRowReference",
			cel.Overload("isrowreference_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					str, ok := val.(types.String)
					if !ok {
						return types.NewErr("expected string type for isRowReference")
					}
					return types.Bool(rowReference.MatchString(string(str)))
				}),
			),
		),
		// baseCode strips a parenthesized mode suffix: "Mv(P)" -> "Mv"
		cel.Function("baseCode",
			cel.Overload("basecode_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					str, ok := val.(types.String)
					if !ok {
						return types.NewErr("expected string type for baseCode")
					}
					s := string(str)
					if i := strings.IndexByte(s, '('); i > 0 && strings.HasSuffix(s, ")") {
						s = s[:i]
					}
					return types.String(s)
				}),
			),
		),
	}
}

func (*tokenLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}
