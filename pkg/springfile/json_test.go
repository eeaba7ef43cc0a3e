package springfile_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/spring-codec/pkg/springfile"
	"github.com/twinfer/spring-codec/testutil"
)

func TestRenderJSONKeepsEveryField(t *testing.T) {
	codec := springfile.New()
	file, _, err := codec.Interpret(testutil.SampleTokens())
	require.NoError(t, err)

	data, err := codec.RenderJSON(file)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"part_number", "model_number", "free_length", "header_fields", "test_setup", "test_sequence"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, map[string]any{"value": 120.0, "unit": "mm"}, doc["free_length"])

	rows := doc["test_sequence"].([]any)
	require.Len(t, rows, 9)

	zf := rows[0].(map[string]any)
	assert.Equal(t, "R00", zf["row"])
	assert.Equal(t, "Zero Force", zf["command_name"])
	assert.Equal(t, "", zf["condition"])
	assert.Equal(t, "none", zf["condition_kind"])
	assert.Nil(t, zf["tolerance"])
	assert.Contains(t, zf, "tolerance")
	assert.Equal(t, []any{}, zf["extra"])

	fr := rows[6].(map[string]any)
	assert.Equal(t, map[string]any{"nominal": 2799.0, "low": 2659.0, "high": 2939.0}, fr["tolerance"])

	scrag := rows[5].(map[string]any)
	assert.Equal(t, "R04,2", scrag["condition"])
	assert.Equal(t, "row_reference", scrag["condition_kind"])
}

func TestParseJSONRoundTrip(t *testing.T) {
	codec := springfile.New()
	want, _, err := codec.Interpret(testutil.SampleTokens())
	require.NoError(t, err)

	data, err := codec.RenderJSON(want)
	require.NoError(t, err)
	got, diag, err := codec.ParseJSON(data)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, testutil.ModelOptions); diff != "" {
		t.Errorf("ParseJSON() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 9, diag.Rows)

	tokens, err := codec.Serialize(got)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleTokens(), tokens)
}

func TestParseJSONConditionKinds(t *testing.T) {
	input := `{
  "part_number": "P",
  "model_number": "M",
  "free_length": {"value": 10, "unit": ""},
  "test_sequence": [
    {"command": "PMsg", "condition": "R03", "condition_kind": "literal"},
    {"command": "Calc", "condition": "=R01*2", "condition_kind": "formula"},
    {"command": "Scrag", "condition": "R02,1.5"},
    {"command": "FL(P)", "tolerance_text": "5(4,6)"}
  ]
}`
	file, _, err := springfile.New().ParseJSON([]byte(input))
	require.NoError(t, err)
	require.Len(t, file.Rows, 4)

	assert.Equal(t, "mm", file.FreeLength.Unit)
	assert.Equal(t, springfile.Literal("R03"), file.Rows[0].Condition)
	assert.Equal(t, springfile.Formula("=R01*2"), file.Rows[1].Condition)
	assert.Equal(t, springfile.ConditionRowReference, file.Rows[2].Condition.Kind)
	assert.Equal(t, 1.5, file.Rows[2].Condition.Multiplier)
	require.NotNil(t, file.Rows[3].Tolerance)
	assert.Equal(t, 5.0, file.Rows[3].Tolerance.Nominal)
}

func TestParseJSONErrors(t *testing.T) {
	codec := springfile.New()

	_, _, err := codec.ParseJSON([]byte(`{"part_number": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode JSON test file")

	_, _, err = codec.ParseJSON([]byte(`{"test_sequence": [{"description": "orphan"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R00 has no command code")
}
