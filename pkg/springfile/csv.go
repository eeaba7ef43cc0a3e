package springfile

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
)

// csvColumns follows the row keys of the JSON form
var csvColumns = []string{
	"row", "command", "command_name", "description", "condition", "condition_kind",
	"unit", "tolerance", "tolerance_text", "speed", "extra",
}

// RenderCSV writes the test sequence as CSV, one record per row after a
// header record. Tolerances use the NOM(LOW,HIGH) form and extra tokens are a
// JSON list. The header block is not part of the export.
func (c *Codec) RenderCSV(f *TestFile) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}

	for i := range f.Rows {
		row := &f.Rows[i]
		cmd, err := c.table.Lookup(row.Command)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", RowLabel(i), err)
		}
		tolerance := ""
		if row.Tolerance != nil {
			tolerance = row.Tolerance.String()
		}
		extra := "[]"
		if len(row.Extra) > 0 {
			data, err := json.Marshal(row.Extra)
			if err != nil {
				return nil, err
			}
			extra = string(data)
		}
		record := []string{
			RowLabel(i),
			row.Command,
			cmd.Name,
			row.Description,
			row.Condition.String(),
			row.Condition.Kind.String(),
			row.Unit,
			tolerance,
			row.ToleranceText,
			row.Speed,
			extra,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
