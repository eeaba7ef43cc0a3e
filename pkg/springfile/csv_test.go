package springfile_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/spring-codec/pkg/springfile"
	"github.com/twinfer/spring-codec/testutil"
)

func TestRenderCSV(t *testing.T) {
	codec := springfile.New()
	rows := append([][]string{}, testutil.SampleRows...)
	rows = append(rows, []string{"QX", "Quick, Check", "7"})
	file, _, err := codec.Interpret(testutil.Program(testutil.SampleHeader, testutil.SampleSetup, rows...))
	require.NoError(t, err)

	data, err := codec.RenderCSV(file)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(testutil.SampleRows)+2)

	assert.Equal(t, []string{
		"row", "command", "command_name", "description", "condition", "condition_kind",
		"unit", "tolerance", "tolerance_text", "speed", "extra",
	}, records[0])
	assert.Equal(t, []string{"R00", "ZF", "Zero Force", "Zero Force", "", "none", "", "", "", "", "[]"}, records[1])
	assert.Equal(t, []string{"R02", "TH", "Threshold (Search Contact)", "Search Contact", "1.12", "literal", "lbf", "", "", "100", "[]"}, records[3])
	assert.Equal(t, "120(119,121)", records[4][7])
	assert.Equal(t, []string{"=(R03-24.3)", "formula"}, records[5][4:6])
	assert.Equal(t, []string{"R04,2", "row_reference"}, records[6][4:6])

	last := records[len(records)-1]
	assert.Equal(t, "QX", last[1])
	assert.Equal(t, "Unrecognized command", last[2])
	assert.Equal(t, "Quick, Check", last[3])
	assert.Equal(t, `["7"]`, last[10])
}

func TestRenderCSVEmptySequence(t *testing.T) {
	data, err := springfile.New().RenderCSV(&springfile.TestFile{PartNumber: "P"})
	require.NoError(t, err)
	assert.Equal(t, "row,command,command_name,description,condition,condition_kind,unit,tolerance,tolerance_text,speed,extra\n", string(data))
}
