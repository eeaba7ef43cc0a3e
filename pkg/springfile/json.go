package springfile

import (
	"encoding/json"
	"fmt"
)

type fileJSON struct {
	PartNumber   string            `json:"part_number"`
	ModelNumber  string            `json:"model_number"`
	FreeLength   lengthJSON        `json:"free_length"`
	HeaderFields []headerFieldJSON `json:"header_fields"`
	TestSetup    []string          `json:"test_setup"`
	TestSequence []rowJSON         `json:"test_sequence"`
}

type lengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Text  string  `json:"text,omitempty"`
}

type headerFieldJSON struct {
	Index string `json:"index"`
	Name  string `json:"name"`
	Unit  string `json:"unit"`
	Value string `json:"value"`
}

type rowJSON struct {
	Row           string         `json:"row"`
	Command       string         `json:"command"`
	CommandName   string         `json:"command_name"`
	Description   string         `json:"description"`
	Condition     string         `json:"condition"`
	ConditionKind string         `json:"condition_kind"`
	Unit          string         `json:"unit"`
	Tolerance     *ToleranceSpec `json:"tolerance"`
	ToleranceText string         `json:"tolerance_text"`
	Speed         string         `json:"speed"`
	Extra         []string       `json:"extra"`
}

// MarshalJSON keeps the field names used by the JSON export
func (t ToleranceSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Nominal float64 `json:"nominal"`
		Low     float64 `json:"low"`
		High    float64 `json:"high"`
	}{t.Nominal, t.Low, t.High})
}

func (t *ToleranceSpec) UnmarshalJSON(data []byte) error {
	var v struct {
		Nominal float64 `json:"nominal"`
		Low     float64 `json:"low"`
		High    float64 `json:"high"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = ToleranceSpec{Nominal: v.Nominal, Low: v.Low, High: v.High}
	return nil
}

// RenderJSON produces the structured JSON form of a TestFile. Every key is
// always present; absent values are empty strings, empty lists or null.
func (c *Codec) RenderJSON(f *TestFile) ([]byte, error) {
	out := fileJSON{
		PartNumber:   f.PartNumber,
		ModelNumber:  f.ModelNumber,
		FreeLength:   lengthJSON(f.FreeLength),
		HeaderFields: make([]headerFieldJSON, 0, len(f.HeaderFields)),
		TestSetup:    make([]string, 0, len(f.Setup)),
		TestSequence: make([]rowJSON, 0, len(f.Rows)),
	}
	if out.FreeLength.Unit == "" {
		out.FreeLength.Unit = DefaultLengthUnit
	}
	for _, h := range f.HeaderFields {
		out.HeaderFields = append(out.HeaderFields, headerFieldJSON(h))
	}
	out.TestSetup = append(out.TestSetup, f.Setup...)

	for i := range f.Rows {
		row := &f.Rows[i]
		cmd, err := c.table.Lookup(row.Command)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", RowLabel(i), err)
		}
		r := rowJSON{
			Row:           RowLabel(i),
			Command:       row.Command,
			CommandName:   cmd.Name,
			Description:   row.Description,
			Condition:     row.Condition.String(),
			ConditionKind: row.Condition.Kind.String(),
			Unit:          row.Unit,
			Tolerance:     row.Tolerance,
			ToleranceText: row.ToleranceText,
			Speed:         row.Speed,
			Extra:         make([]string, 0, len(row.Extra)),
		}
		r.Extra = append(r.Extra, row.Extra...)
		out.TestSequence = append(out.TestSequence, r)
	}
	return json.MarshalIndent(out, "", "  ")
}

// ParseJSON reads the form produced by RenderJSON. Row labels and command
// names are informational and ignored; rows are indexed by position.
func (c *Codec) ParseJSON(data []byte) (*TestFile, *Diagnostics, error) {
	var in fileJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, nil, fmt.Errorf("failed to decode JSON test file: %w", err)
	}

	diag := &Diagnostics{}
	file := &TestFile{
		PartNumber:  in.PartNumber,
		ModelNumber: in.ModelNumber,
		FreeLength:  Length(in.FreeLength),
		Setup:       in.TestSetup,
	}
	if file.FreeLength.Unit == "" {
		file.FreeLength.Unit = DefaultLengthUnit
	}
	if len(file.Setup) == 0 {
		file.Setup = nil
	}
	for _, h := range in.HeaderFields {
		file.HeaderFields = append(file.HeaderFields, HeaderField(h))
	}

	for i, r := range in.TestSequence {
		if r.Command == "" {
			return nil, diag, fmt.Errorf("row %s has no command code", RowLabel(i))
		}
		row := TestRow{
			Index:       i,
			Command:     r.Command,
			Description: r.Description,
			Condition:   conditionFromJSON(r.Condition, r.ConditionKind),
			Unit:        r.Unit,
			Speed:       r.Speed,
		}
		if r.Tolerance != nil {
			spec := *r.Tolerance
			row.Tolerance = &spec
		} else {
			row.setTolerance(r.ToleranceText)
		}
		if len(r.Extra) > 0 {
			row.Extra = r.Extra
		}
		if !c.table.Known(row.Command) {
			diag.UnknownCodes = append(diag.UnknownCodes, row.Command)
		}
		diag.ExtraTokens += len(row.Extra)
		file.Rows = append(file.Rows, row)
	}

	diag.SetupTokens = len(file.Setup)
	diag.Rows = len(file.Rows)
	return file, diag, nil
}

func conditionFromJSON(text, kind string) Condition {
	switch kind {
	case ConditionLiteral.String():
		return Literal(text)
	case ConditionFormula.String():
		if text != "" {
			return Formula(text)
		}
	}
	return ParseCondition(text)
}
