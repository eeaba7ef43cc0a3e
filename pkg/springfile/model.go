package springfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Mandatory header field names, as they appear in both the binary and text forms
const (
	FieldPartNumber  = "Part Number"
	FieldModelNumber = "Model Number"
	FieldFreeLength  = "Free Length"
)

// DefaultLengthUnit is used when a free length carries no unit
const DefaultLengthUnit = "mm"

// noUnit is the placeholder unit the machine writes for unitless header fields
const noUnit = "--"

// TestFile is one decoded spring test program
type TestFile struct {
	PartNumber  string
	ModelNumber string
	FreeLength  Length

	// HeaderFields holds header entries other than the mandatory three
	HeaderFields []HeaderField

	// Setup holds the opaque tokens between the sentinel and the first row
	// (force unit, label, limit name and values)
	Setup []string

	Rows []TestRow
}

// ForceUnit returns the force unit announced in the setup block, if any
func (f *TestFile) ForceUnit() string {
	if len(f.Setup) == 0 {
		return ""
	}
	return f.Setup[0]
}

// Length is a numeric value with its unit. Text holds the value as found when
// it is not a number; it is then written back in place of Value.
type Length struct {
	Value float64
	Unit  string
	Text  string
}

// String renders the length as "120 mm". Non-numeric text is quoted.
func (l Length) String() string {
	unit := l.Unit
	if unit == "" {
		unit = DefaultLengthUnit
	}
	if l.Text != "" {
		return strconv.Quote(l.Text) + " " + unit
	}
	return formatNumber(l.Value) + " " + unit
}

// ValueText returns the value token written to the binary
func (l Length) ValueText() string {
	if l.Text != "" {
		return l.Text
	}
	return formatNumber(l.Value)
}

// ParseLength reads "120", "120 mm" or "120mm". A quoted value such as
// `"n/a" mm` is kept as text.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Length{}, fmt.Errorf("empty length")
	}
	if strings.HasPrefix(s, `"`) {
		q, err := strconv.QuotedPrefix(s)
		if err != nil {
			return Length{}, fmt.Errorf("bad quoted length %s", s)
		}
		text, _ := strconv.Unquote(q)
		unit := strings.TrimSpace(s[len(q):])
		if unit == "" {
			unit = DefaultLengthUnit
		}
		if text == "" {
			return Length{Unit: unit}, nil
		}
		return Length{Text: text, Unit: unit}, nil
	}

	numEnd := len(s)
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		numEnd = i
	} else {
		numEnd = strings.IndexFunc(s, func(r rune) bool {
			return !(r >= '0' && r <= '9' || r == '.' || r == '-' || r == '+')
		})
		if numEnd < 0 {
			numEnd = len(s)
		}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s[:numEnd]), 64)
	if err != nil {
		return Length{}, fmt.Errorf("length %q is not numeric", s)
	}
	unit := strings.TrimSpace(s[numEnd:])
	if unit == "" {
		unit = DefaultLengthUnit
	}
	return Length{Value: value, Unit: unit}, nil
}

// HeaderField is a header entry beyond the mandatory three, kept as found
type HeaderField struct {
	Index string
	Name  string
	Unit  string
	Value string
}

// TestRow is one step of the test sequence
type TestRow struct {
	Index       int
	Command     string
	Description string
	Condition   Condition
	Unit        string

	// Tolerance is set when the tolerance slot holds NOM(LOW,HIGH);
	// other tolerance text is kept verbatim in ToleranceText
	Tolerance     *ToleranceSpec
	ToleranceText string

	Speed string

	// Extra holds tokens found after the command's layout, in stream order
	Extra []string
}

// Label returns the row reference name used by formulas, e.g. R03
func (r *TestRow) Label() string {
	return RowLabel(r.Index)
}

// HasTolerance reports whether either tolerance form is present
func (r *TestRow) HasTolerance() bool {
	return r.Tolerance != nil || r.ToleranceText != ""
}

// ToleranceString renders the tolerance slot text
func (r *TestRow) ToleranceString() string {
	if r.Tolerance != nil {
		return r.Tolerance.String()
	}
	return r.ToleranceText
}

// SpeedValue parses the speed text
func (r *TestRow) SpeedValue() (float64, bool) {
	if r.Speed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Speed), 64)
	return v, err == nil
}

// setTolerance stores tolerance slot text in structured form when possible
func (r *TestRow) setTolerance(text string) {
	r.Tolerance, r.ToleranceText = nil, ""
	if text == "" {
		return
	}
	if spec, err := ParseTolerance(text); err == nil {
		r.Tolerance = &spec
		return
	}
	r.ToleranceText = text
}

// RowLabel formats a zero-based row index the way the machine does
func RowLabel(index int) string {
	return fmt.Sprintf("R%02d", index)
}

// Diagnostics collects structural observations made while decoding
type Diagnostics struct {
	Tokens        int
	HeaderTokens  int
	SetupTokens   int
	Rows          int
	ExtraTokens   int
	UnknownCodes  []string
	Unmatched     []string
	DanglingRefs  []string
	Notes         []string
	RoundTripSame *bool
}

func (d *Diagnostics) note(format string, args ...any) {
	d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
