package springfile_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/spring-codec/pkg/springfile"
	"github.com/twinfer/spring-codec/testutil"
)

func TestInterpretHeader(t *testing.T) {
	tokens := []string{
		"1", "Part Number", "--", "10KN spring",
		"2", "Model Number", "--", "2022",
		"3", "Free Length", "mm", "120",
		"<Test Sequence>",
		"ZF", "Zero Force", "", "", "", "",
	}

	file, diag, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)

	assert.Equal(t, "10KN spring", file.PartNumber)
	assert.Equal(t, "2022", file.ModelNumber)
	assert.Equal(t, "120 mm", file.FreeLength.String())
	assert.Empty(t, file.HeaderFields)
	assert.Equal(t, 12, diag.HeaderTokens)
	require.Len(t, file.Rows, 1)
	assert.Equal(t, "ZF", file.Rows[0].Command)
	assert.Empty(t, file.Rows[0].Extra)
}

func TestInterpretSample(t *testing.T) {
	file, diag, err := springfile.New().Interpret(testutil.SampleTokens())
	require.NoError(t, err)

	mult := 2.0
	want := &springfile.TestFile{
		PartNumber:   "10KN spring",
		ModelNumber:  "2022",
		FreeLength:   springfile.Length{Value: 120, Unit: "mm"},
		HeaderFields: []springfile.HeaderField{{Index: "4", Name: "Operator", Unit: "--", Value: "QA"}},
		Setup:        []string{"lbf", "SPRING TEST", "Height", "125", "80"},
		Rows: []springfile.TestRow{
			{Index: 0, Command: "ZF", Description: "Zero Force"},
			{Index: 1, Command: "ZD", Description: "Zero Displacement"},
			{Index: 2, Command: "TH", Description: "Search Contact", Condition: springfile.Literal("1.12"), Unit: "lbf", Speed: "100"},
			{Index: 3, Command: "FL(P)", Description: "Measure Free Length", Unit: "mm", Tolerance: &springfile.ToleranceSpec{Nominal: 120, Low: 119, High: 121}},
			{Index: 4, Command: "Mv(P)", Description: "Move to Position", Condition: springfile.Formula("=(R03-24.3)"), Unit: "mm", Speed: "50"},
			{Index: 5, Command: "Scrag", Description: "Scragging", Condition: springfile.RowReference(4, &mult)},
			{Index: 6, Command: "Fr(P)", Description: "Force at Position", Unit: "lbf", Tolerance: &springfile.ToleranceSpec{Nominal: 2799, Low: 2659, High: 2939}},
			{Index: 7, Command: "TD", Description: "Time Delay", Condition: springfile.Literal("3"), Unit: "Sec"},
			{Index: 8, Command: "PMsg", Description: "User Message", Condition: springfile.Literal("Remove spring")},
		},
	}
	if diff := cmp.Diff(want, file, testutil.ModelOptions); diff != "" {
		t.Errorf("Interpret() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, len(testutil.SampleTokens()), diag.Tokens)
	assert.Equal(t, 5, diag.SetupTokens)
	assert.Equal(t, 9, diag.Rows)
	assert.Zero(t, diag.ExtraTokens)
	assert.Empty(t, diag.UnknownCodes)
	assert.Empty(t, diag.Unmatched)
	assert.Equal(t, "lbf", file.ForceUnit())
}

func TestInterpretMissingHeader(t *testing.T) {
	tokens := []string{
		"1", "Part Number", "--", "X1",
		"3", "Free Length", "mm", "120",
		"<Test Sequence>",
	}

	_, _, err := springfile.New().Interpret(tokens)
	require.Error(t, err)

	var headerErr *springfile.MalformedHeaderError
	require.True(t, errors.As(err, &headerErr))
	assert.Equal(t, []string{"Model Number"}, headerErr.Missing)
	assert.Contains(t, err.Error(), "Model Number")
}

func TestInterpretNonNumericFreeLength(t *testing.T) {
	tokens := testutil.Program([]string{
		"1", "Part Number", "--", "X1",
		"2", "Model Number", "--", "M",
		"3", "Free Length", "in", "long",
	}, testutil.SampleSetup, []string{"ZF", "Zero Force", "", "", "", ""})

	codec := springfile.New()
	file, diag, err := codec.Interpret(tokens)
	require.NoError(t, err)
	assert.Equal(t, springfile.Length{Text: "long", Unit: "in"}, file.FreeLength)
	assert.Contains(t, diag.Notes, `free length "long" is not numeric, kept as text`)

	text, err := codec.Render(file)
	require.NoError(t, err)
	assert.Contains(t, text, "Free Length: \"long\" in\n")

	parsed, _, err := codec.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, file.FreeLength, parsed.FreeLength)

	out, err := codec.Serialize(parsed)
	require.NoError(t, err)
	assert.Equal(t, tokens, out)

	data, err := codec.RenderJSON(file)
	require.NoError(t, err)
	fromJSON, _, err := codec.ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, file.FreeLength, fromJSON.FreeLength)
}

func TestInterpretEmptyFreeLength(t *testing.T) {
	tokens := []string{
		"1", "Part Number", "--", "X1",
		"2", "Model Number", "--", "M",
		"3", "Free Length", "mm", "",
		"<Test Sequence>",
	}

	file, diag, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)
	assert.Equal(t, springfile.Length{Unit: "mm"}, file.FreeLength)
	assert.Contains(t, diag.Notes, "free length is empty, read as 0")
}

func TestInterpretUnindexedHeaderAndLeftovers(t *testing.T) {
	tokens := []string{
		"Part Number", "--", "P",
		"Model Number", "--", "M",
		"Free Length", "--", "42.5",
		"Spare", "x",
		"<Test Sequence>",
	}

	file, diag, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)
	assert.Equal(t, "P", file.PartNumber)
	assert.Equal(t, springfile.Length{Value: 42.5, Unit: "mm"}, file.FreeLength)
	assert.Equal(t, []string{"Spare", "x"}, diag.Unmatched)
	assert.Empty(t, file.Rows)
}

func TestInterpretWithoutSentinel(t *testing.T) {
	tokens := testutil.SampleHeader

	file, diag, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)
	assert.Empty(t, file.Rows)
	assert.Empty(t, file.Setup)
	assert.Equal(t, len(tokens), diag.HeaderTokens)
	require.Len(t, diag.Notes, 1)
	assert.Contains(t, diag.Notes[0], "<Test Sequence>")
}

func TestInterpretUnknownCommand(t *testing.T) {
	tokens := testutil.Program(testutil.SampleHeader[:12], testutil.SampleSetup,
		[]string{"ZF", "Zero Force", "", "", "", ""},
		[]string{"QX", "Quick Check", "7"},
		[]string{"TD", "Time Delay", "3", "Sec"},
	)

	file, diag, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)
	require.Len(t, file.Rows, 3)

	row := file.Rows[1]
	assert.Equal(t, "QX", row.Command)
	assert.Equal(t, "Quick Check", row.Description)
	assert.Equal(t, []string{"7"}, row.Extra)
	assert.Equal(t, []string{"QX"}, diag.UnknownCodes)
	assert.Equal(t, 1, diag.ExtraTokens)
	assert.Equal(t, "TD", file.Rows[2].Command)
}

func TestInterpretShortRows(t *testing.T) {
	// rows cut short by the next known code keep their remaining slots empty
	tokens := testutil.Program(testutil.SampleHeader[:12], []string{"N"},
		[]string{"TH", "Search Contact"},
		[]string{"ZF", "Zero Force"},
		[]string{"Fr(P)", "Force at Position", "N", "abc", "trailing", "more"},
	)

	file, diag, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)
	require.Len(t, file.Rows, 3)

	assert.Equal(t, []string{"N"}, file.Setup)
	assert.True(t, file.Rows[0].Condition.IsZero())
	assert.Empty(t, file.Rows[0].Speed)
	assert.Empty(t, file.Rows[1].Extra)

	fr := file.Rows[2]
	assert.Nil(t, fr.Tolerance)
	assert.Equal(t, "abc", fr.ToleranceText)
	assert.Equal(t, []string{"trailing", "more"}, fr.Extra)
	assert.Equal(t, 2, diag.ExtraTokens)
}

func TestInterpretTrailingEmptySetup(t *testing.T) {
	tokens := testutil.Program(testutil.SampleHeader[:12], []string{"kgf", "", "", "", ""},
		[]string{"ZF", "Zero Force", "", "", "", ""},
	)

	file, _, err := springfile.New().Interpret(tokens)
	require.NoError(t, err)
	assert.Equal(t, []string{"kgf"}, file.Setup)
	require.Len(t, file.Rows, 1)
}
