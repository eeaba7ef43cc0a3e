package springfile

import (
	"fmt"
	"strings"

	"github.com/twinfer/spring-codec/pkg/layout"
)

// SequenceMarker separates the header block from the rows in the text form
const SequenceMarker = "--- Test Sequence ---"

const (
	labelPartNumber  = FieldPartNumber + ":"
	labelModelNumber = FieldModelNumber + ":"
	labelFreeLength  = FieldFreeLength + ":"
	labelTestSetup   = "Test Setup:"
)

var headerLabels = []string{labelPartNumber, labelModelNumber, labelFreeLength, labelTestSetup}

// Render produces the canonical text form of a TestFile.
//
//	Part Number: 10KN spring
//	Model Number: C-SPRING
//	Free Length: 120 mm
//
//	--- Test Sequence ---
//	ZF - Zero Force
//	TH - Search Contact: 1.12, lbf, Target: 100
//	FL(P) - Measure Free Length: Unit: mm, 120(119,121)
//
// Row parameters follow the command's slot order. A parameter is tagged with
// its field name once an earlier positional slot was left empty, and fields the
// layout has no slot for are always tagged.
func (c *Codec) Render(f *TestFile) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", labelPartNumber, quoteHeaderValue(f.PartNumber))
	fmt.Fprintf(&b, "%s %s\n", labelModelNumber, quoteHeaderValue(f.ModelNumber))
	fmt.Fprintf(&b, "%s %s\n", labelFreeLength, f.FreeLength)
	for _, field := range f.HeaderFields {
		if field.Unit != "" {
			fmt.Fprintf(&b, "%s (%s): %s\n", quoteHeaderName(field.Name), quoteHeaderUnit(field.Unit), quoteHeaderValue(field.Value))
		} else {
			fmt.Fprintf(&b, "%s: %s\n", quoteHeaderName(field.Name), quoteHeaderValue(field.Value))
		}
	}
	if len(f.Setup) > 0 {
		setup := make([]string, len(f.Setup))
		for i, tok := range f.Setup {
			setup[i] = quote(tok, false)
		}
		fmt.Fprintf(&b, "%s %s\n", labelTestSetup, strings.Join(setup, ", "))
	}

	b.WriteString("\n")
	b.WriteString(SequenceMarker)
	b.WriteString("\n")

	for i := range f.Rows {
		line, err := c.renderRow(&f.Rows[i])
		if err != nil {
			return "", fmt.Errorf("row %s: %w", RowLabel(i), err)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (c *Codec) renderRow(row *TestRow) (string, error) {
	cmd, err := c.table.Lookup(row.Command)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(row.Command)
	b.WriteString(" - ")
	b.WriteString(quoteDescription(row.Description))

	pieces, err := rowPieces(row, cmd)
	if err != nil {
		return "", err
	}
	if len(pieces) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(pieces, ", "))
	}
	return b.String(), nil
}

func rowPieces(row *TestRow, cmd *layout.Command) ([]string, error) {
	var (
		pieces []string
		gap    bool
	)
	add := func(kind layout.SlotKind, text string) {
		if gap {
			text = tagged(tagFor(kind), text)
		}
		pieces = append(pieces, text)
	}

	for _, slot := range cmd.Slots {
		switch slot.Kind {
		case layout.SlotCondition:
			if row.Condition.IsZero() {
				gap = true
				continue
			}
			add(slot.Kind, quoteCondition(row.Condition))
		case layout.SlotUnit:
			if row.Unit == "" {
				gap = true
				continue
			}
			add(slot.Kind, quoteValue(row.Unit))
		case layout.SlotTolerance:
			switch {
			case row.Tolerance != nil:
				pieces = append(pieces, row.Tolerance.String())
			case row.ToleranceText != "":
				add(slot.Kind, quoteValue(row.ToleranceText))
			default:
				gap = true
			}
		case layout.SlotSpeed:
			if row.Speed != "" {
				pieces = append(pieces, tagged(tagTarget, quote(row.Speed, false)))
			}
		}
	}

	if !cmd.Has(layout.SlotCondition) && !row.Condition.IsZero() {
		pieces = append(pieces, tagged(tagCondition, quoteCondition(row.Condition)))
	}
	if !cmd.Has(layout.SlotUnit) && row.Unit != "" {
		pieces = append(pieces, tagged(tagUnit, quote(row.Unit, false)))
	}
	if !cmd.Has(layout.SlotTolerance) && row.HasTolerance() {
		pieces = append(pieces, tagged(tagTolerance, quote(row.ToleranceString(), false)))
	}
	if !cmd.Has(layout.SlotSpeed) && row.Speed != "" {
		pieces = append(pieces, tagged(tagTarget, quote(row.Speed, false)))
	}

	if len(row.Extra) > 0 {
		extra, err := extraPiece(row.Extra)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, extra)
	}
	return pieces, nil
}
