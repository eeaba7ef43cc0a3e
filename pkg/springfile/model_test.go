package springfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	two := 2.0
	neg := -0.5

	tests := []struct {
		in   string
		want Condition
		text string
	}{
		{in: "", want: Condition{}, text: ""},
		{in: "1.12", want: Literal("1.12"), text: "1.12"},
		{in: "Remove spring", want: Literal("Remove spring"), text: "Remove spring"},
		{in: "R03", want: RowReference(3, nil), text: "R03"},
		{in: "R3", want: withText(RowReference(3, nil), "R3"), text: "R3"},
		{in: "R03,2", want: RowReference(3, &two), text: "R03,2"},
		{in: "R3,2.0", want: withText(RowReference(3, &two), "R3,2.0"), text: "R3,2.0"},
		{in: "R12, -0.5", want: withText(RowReference(12, &neg), "R12, -0.5"), text: "R12, -0.5"},
		{in: "=(R02-24.3)", want: Formula("=(R02-24.3)"), text: "=(R02-24.3)"},
		{in: "Rx", want: Literal("Rx"), text: "Rx"},
		{in: "R03,abc", want: Literal("R03,abc"), text: "R03,abc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseCondition(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func withText(c Condition, text string) Condition {
	c.Text = text
	return c
}

func TestConditionNumber(t *testing.T) {
	v, ok := Literal(" 42.5 ").Number()
	assert.True(t, ok)
	assert.Equal(t, 42.5, v)

	_, ok = Literal("abc").Number()
	assert.False(t, ok)

	_, ok = RowReference(1, nil).Number()
	assert.False(t, ok)

	assert.Equal(t, "row_reference", ConditionRowReference.String())
	assert.Equal(t, "none", Condition{}.Kind.String())
}

func TestParseTolerance(t *testing.T) {
	tests := []struct {
		in      string
		want    ToleranceSpec
		wantErr bool
	}{
		{in: "2799(2659,2939)", want: ToleranceSpec{Nominal: 2799, Low: 2659, High: 2939}},
		{in: " 1.5 ( 1.2 , 1.8 ) ", want: ToleranceSpec{Nominal: 1.5, Low: 1.2, High: 1.8}},
		{in: "-3(-4,-2)", want: ToleranceSpec{Nominal: -3, Low: -4, High: -2}},
		{in: "120", wantErr: true},
		{in: "1(2)", wantErr: true},
		{in: "a(b,c)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTolerance(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, IsTolerance(tt.in))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsTolerance(tt.in))
		})
	}

	spec := ToleranceSpec{Nominal: 10, Low: 9.5, High: 10.5}
	assert.True(t, spec.Contains(9.5))
	assert.True(t, spec.Contains(10.5))
	assert.False(t, spec.Contains(10.51))
	assert.Equal(t, "10(9.5,10.5)", spec.String())
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in      string
		want    Length
		wantErr bool
	}{
		{in: "120", want: Length{Value: 120, Unit: "mm"}},
		{in: "120 mm", want: Length{Value: 120, Unit: "mm"}},
		{in: "4.75in", want: Length{Value: 4.75, Unit: "in"}},
		{in: " 3 cm ", want: Length{Value: 3, Unit: "cm"}},
		{in: "", wantErr: true},
		{in: "mm", wantErr: true},
		{in: `"n/a" in`, want: Length{Text: "n/a", Unit: "in"}},
		{in: `"" mm`, want: Length{Unit: "mm"}},
		{in: `"open`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLength(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "120 mm", Length{Value: 120}.String())
	assert.Equal(t, `"n/a" in`, Length{Text: "n/a", Unit: "in"}.String())
	assert.Equal(t, "n/a", Length{Text: "n/a"}.ValueText())
}

func TestRowHelpers(t *testing.T) {
	row := TestRow{Index: 7, Speed: " 12.5"}
	assert.Equal(t, "R07", row.Label())
	v, ok := row.SpeedValue()
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	row.setTolerance("1(0,2)")
	assert.True(t, row.HasTolerance())
	assert.Empty(t, row.ToleranceText)
	assert.Equal(t, "1(0,2)", row.ToleranceString())

	row.setTolerance("max 3")
	assert.Nil(t, row.Tolerance)
	assert.Equal(t, "max 3", row.ToleranceString())

	row.setTolerance("")
	assert.False(t, row.HasTolerance())
}

func TestSplitPieces(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr string
	}{
		{in: "a, b ,c", want: []string{"a", "b", "c"}},
		{in: "120(119,121), mm", want: []string{"120(119,121)", "mm"}},
		{in: `"a, b", x`, want: []string{`"a, b"`, "x"}},
		{in: `"say \"hi\", ok"`, want: []string{`"say \"hi\", ok"`}},
		{in: `Extra: ["a,b",""], Target: 5`, want: []string{`Extra: ["a,b",""]`, "Target: 5"}},
		{in: `"open`, wantErr: "unterminated quote"},
		{in: "a)", wantErr: "unbalanced"},
		{in: "(a", wantErr: "unbalanced"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := splitPieces(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsQuote(t *testing.T) {
	tests := map[string]bool{
		"":              true,
		"lbf":           false,
		" x":            true,
		"a,b":           true,
		`say "hi"`:      true,
		"=(R02-24.3)":   false,
		"=MAX(R1,R2)":   false,
		"Target: 5":     true,
		"Extra: []":     true,
		"Targets":       false,
		"(open":         true,
		"line\nbreak":   true,
		"Remove spring": false,
	}
	for in, want := range tests {
		assert.Equal(t, want, needsQuote(in), "needsQuote(%q)", in)
	}
}

func TestReadPieces(t *testing.T) {
	pieces, err := readPieces(`R03, 2, "4", Unit: "m,m", Extra: ["z"]`)
	require.NoError(t, err)
	assert.Equal(t, []piece{
		{value: "R03,2"},
		{value: "4", quoted: true},
		{tag: tagUnit, value: "m,m", quoted: true},
		{tag: tagExtra, value: `["z"]`},
	}, pieces)

	_, err = readPieces("a,,b")
	require.Error(t, err)
}
