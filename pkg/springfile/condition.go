package springfile

import (
	"regexp"
	"strconv"
	"strings"
)

// ConditionKind tags the variant held by a Condition
type ConditionKind int

const (
	ConditionNone ConditionKind = iota
	ConditionLiteral
	ConditionRowReference
	ConditionFormula
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionLiteral:
		return "literal"
	case ConditionRowReference:
		return "row_reference"
	case ConditionFormula:
		return "formula"
	default:
		return "none"
	}
}

var rowReferencePattern = regexp.MustCompile(`^R(\d{1,4})(?:\s*,\s*([-+]?\d+(?:\.\d+)?))?$`)

// Condition is the condition slot of a row. Row references and formulas are
// kept symbolic; resolving them is left to consumers.
type Condition struct {
	Kind ConditionKind

	// Text holds the literal value or the formula source (including "="). For
	// row references it holds the source text when that differs from the
	// canonical "R03,2" form.
	Text string

	// Row and Multiplier are set for row references such as "R03,2"
	Row           int
	Multiplier    float64
	HasMultiplier bool
}

// Literal builds a literal condition
func Literal(text string) Condition {
	if text == "" {
		return Condition{}
	}
	return Condition{Kind: ConditionLiteral, Text: text}
}

// RowReference builds a reference to an earlier row with an optional multiplier
func RowReference(row int, multiplier *float64) Condition {
	c := Condition{Kind: ConditionRowReference, Row: row}
	if multiplier != nil {
		c.Multiplier = *multiplier
		c.HasMultiplier = true
	}
	return c
}

// Formula builds a formula condition such as "=(R02-24.3)"
func Formula(text string) Condition {
	return Condition{Kind: ConditionFormula, Text: text}
}

// ParseCondition classifies condition slot text
func ParseCondition(s string) Condition {
	switch {
	case s == "":
		return Condition{}
	case strings.HasPrefix(s, "="):
		return Formula(s)
	}

	if m := rowReferencePattern.FindStringSubmatch(s); m != nil {
		row, err := strconv.Atoi(m[1])
		if err == nil {
			var c Condition
			if m[2] == "" {
				c = RowReference(row, nil)
			} else if mult, err := strconv.ParseFloat(m[2], 64); err == nil {
				c = RowReference(row, &mult)
			} else {
				return Literal(s)
			}
			if c.String() != s {
				c.Text = s
			}
			return c
		}
	}
	return Literal(s)
}

// IsZero reports whether the condition slot is empty
func (c Condition) IsZero() bool {
	return c.Kind == ConditionNone
}

// Number returns the numeric value of a literal condition
func (c Condition) Number() (float64, bool) {
	if c.Kind != ConditionLiteral {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
	return v, err == nil
}

func (c Condition) String() string {
	switch c.Kind {
	case ConditionRowReference:
		if c.Text != "" {
			return c.Text
		}
		s := RowLabel(c.Row)
		if c.HasMultiplier {
			s += "," + formatNumber(c.Multiplier)
		}
		return s
	case ConditionLiteral, ConditionFormula:
		return c.Text
	default:
		return ""
	}
}
