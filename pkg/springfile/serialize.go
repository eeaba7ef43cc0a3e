package springfile

import (
	"fmt"
	"strconv"

	"github.com/twinfer/spring-codec/pkg/layout"
)

// rowFieldOrder is the order in which fields without a layout slot are
// appended after a row's padding
var rowFieldOrder = []layout.SlotKind{
	layout.SlotDescription,
	layout.SlotCondition,
	layout.SlotUnit,
	layout.SlotTolerance,
	layout.SlotSpeed,
}

// Serialize flattens a TestFile back into the token sequence a machine would
// write. It is the structural inverse of Interpret and uses the same layout
// table: absent slot values are written as empty tokens so every row keeps its
// positional shape.
func (c *Codec) Serialize(f *TestFile) ([]string, error) {
	tokens := make([]string, 0, 16+len(f.HeaderFields)*4+len(f.Rows)*6)

	unit := f.FreeLength.Unit
	if unit == "" {
		unit = DefaultLengthUnit
	}
	tokens = append(tokens,
		"1", FieldPartNumber, noUnit, f.PartNumber,
		"2", FieldModelNumber, noUnit, f.ModelNumber,
		"3", FieldFreeLength, unit, f.FreeLength.ValueText(),
	)

	next := 4
	for _, field := range f.HeaderFields {
		index := field.Index
		if index == "" {
			index = strconv.Itoa(next)
		}
		next++
		fieldUnit := field.Unit
		if fieldUnit == "" {
			fieldUnit = noUnit
		}
		tokens = append(tokens, index, field.Name, fieldUnit, field.Value)
	}

	tokens = append(tokens, c.table.Sentinel())
	tokens = append(tokens, f.Setup...)
	for i := len(f.Setup); i < c.table.SetupTokens(); i++ {
		tokens = append(tokens, "")
	}

	for i := range f.Rows {
		row := &f.Rows[i]
		if row.Command == "" {
			return nil, fmt.Errorf("row %s has no command code", RowLabel(i))
		}
		cmd, err := c.table.Lookup(row.Command)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", RowLabel(i), err)
		}

		tokens = append(tokens, row.Command)
		for _, slot := range cmd.Slots {
			tokens = append(tokens, slotText(row, slot.Kind))
		}
		for pad := 0; pad < cmd.Padding; pad++ {
			tokens = append(tokens, "")
		}
		for _, kind := range rowFieldOrder {
			if !cmd.Has(kind) {
				if text := slotText(row, kind); text != "" {
					tokens = append(tokens, text)
				}
			}
		}
		tokens = append(tokens, row.Extra...)
	}

	c.logger.Debug("Serialized test file", "rows", len(f.Rows), "tokens", len(tokens))
	return tokens, nil
}
