package springfile

import (
	"strings"

	"github.com/twinfer/spring-codec/pkg/layout"
)

// Interpret groups a raw token sequence into a TestFile.
//
// Tokens before the sentinel are read as header entries of an optional numeric
// index, a name, a unit and a value. After the sentinel come the setup tokens
// and then the rows, each a command code followed by its layout's slots.
// Unknown commands never fail interpretation; only a header lacking one of the
// mandatory fields does. A free length that is not a number is kept as text.
func (c *Codec) Interpret(tokens []string) (*TestFile, *Diagnostics, error) {
	diag := &Diagnostics{Tokens: len(tokens)}
	sentinel := c.table.Sentinel()

	end := indexOf(tokens, sentinel)
	if end < 0 {
		end = len(tokens)
		diag.note("sentinel %q not found, file has no test sequence", sentinel)
	}
	diag.HeaderTokens = end

	file := &TestFile{}
	if err := c.interpretHeader(tokens[:end], file, diag); err != nil {
		return nil, diag, err
	}
	if end < len(tokens) {
		c.interpretSequence(tokens[end+1:], file, diag)
	}
	diag.Rows = len(file.Rows)

	c.logger.Debug("Interpreted token stream",
		"tokens", diag.Tokens,
		"header_tokens", diag.HeaderTokens,
		"setup_tokens", diag.SetupTokens,
		"rows", diag.Rows,
		"extra_tokens", diag.ExtraTokens)
	return file, diag, nil
}

func (c *Codec) interpretHeader(tokens []string, file *TestFile, diag *Diagnostics) error {
	var (
		freeLength HeaderField
		found      = make(map[string]bool, 3)
	)

	for i := 0; i < len(tokens); {
		var field HeaderField
		switch rest := len(tokens) - i; {
		case isDigits(tokens[i]) && rest >= 4:
			field = HeaderField{Index: tokens[i], Name: tokens[i+1], Unit: tokens[i+2], Value: tokens[i+3]}
			i += 4
		case rest >= 3:
			field = HeaderField{Name: tokens[i], Unit: tokens[i+1], Value: tokens[i+2]}
			i += 3
		default:
			diag.Unmatched = append(diag.Unmatched, tokens[i:]...)
			i = len(tokens)
			continue
		}

		switch field.Name {
		case FieldPartNumber:
			file.PartNumber = field.Value
		case FieldModelNumber:
			file.ModelNumber = field.Value
		case FieldFreeLength:
			freeLength = field
		default:
			file.HeaderFields = append(file.HeaderFields, field)
			continue
		}
		found[field.Name] = true
	}

	var missing []string
	for _, name := range []string{FieldPartNumber, FieldModelNumber, FieldFreeLength} {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MalformedHeaderError{Missing: missing}
	}

	length, err := ParseLength(freeLength.Value)
	if err != nil {
		length = Length{Unit: DefaultLengthUnit}
		if strings.TrimSpace(freeLength.Value) == "" {
			diag.note("free length is empty, read as 0")
		} else {
			length.Text = freeLength.Value
			diag.note("free length %q is not numeric, kept as text", length.Text)
		}
	}
	if freeLength.Unit != "" && freeLength.Unit != noUnit {
		length.Unit = freeLength.Unit
	}
	file.FreeLength = length
	return nil
}

func (c *Codec) interpretSequence(tokens []string, file *TestFile, diag *Diagnostics) {
	i := 0
	for i < len(tokens) && i < c.table.SetupTokens() && !c.table.Known(tokens[i]) {
		file.Setup = append(file.Setup, tokens[i])
		i++
	}
	for i < len(tokens) && !c.table.StartsRow(tokens[i]) {
		file.Setup = append(file.Setup, tokens[i])
		i++
	}
	for len(file.Setup) > 0 && file.Setup[len(file.Setup)-1] == "" {
		file.Setup = file.Setup[:len(file.Setup)-1]
	}
	diag.SetupTokens = len(file.Setup)

	for i < len(tokens) {
		var row TestRow
		row, i = c.interpretRow(tokens, i, len(file.Rows), diag)
		file.Rows = append(file.Rows, row)
	}
}

// interpretRow reads the row starting at tokens[start] and returns it with the
// index of the next row's code
func (c *Codec) interpretRow(tokens []string, start, index int, diag *Diagnostics) (TestRow, int) {
	code := tokens[start]
	row := TestRow{Index: index, Command: code}

	if !c.table.Known(code) {
		diag.UnknownCodes = append(diag.UnknownCodes, code)
	}
	cmd, err := c.table.Lookup(code)
	if err != nil {
		diag.note("row %s: %v", row.Label(), err)
		cmd = &layout.Command{Code: code}
	}

	i := start + 1
	for _, slot := range cmd.Slots {
		if i >= len(tokens) || c.table.Known(tokens[i]) {
			break
		}
		assignSlot(&row, slot.Kind, tokens[i])
		i++
	}
	for pad := 0; pad < cmd.Padding && i < len(tokens) && tokens[i] == ""; pad++ {
		i++
	}
	for i < len(tokens) && !c.table.StartsRow(tokens[i]) {
		row.Extra = append(row.Extra, tokens[i])
		i++
	}
	diag.ExtraTokens += len(row.Extra)
	return row, i
}

func assignSlot(row *TestRow, kind layout.SlotKind, text string) {
	switch kind {
	case layout.SlotDescription:
		row.Description = text
	case layout.SlotCondition:
		row.Condition = ParseCondition(text)
	case layout.SlotUnit:
		row.Unit = text
	case layout.SlotTolerance:
		row.setTolerance(text)
	case layout.SlotSpeed:
		row.Speed = text
	}
}

func slotText(row *TestRow, kind layout.SlotKind) string {
	switch kind {
	case layout.SlotDescription:
		return row.Description
	case layout.SlotCondition:
		return row.Condition.String()
	case layout.SlotUnit:
		return row.Unit
	case layout.SlotTolerance:
		return row.ToleranceString()
	case layout.SlotSpeed:
		return row.Speed
	}
	return ""
}

func indexOf(tokens []string, token string) int {
	for i, t := range tokens {
		if t == token {
			return i
		}
	}
	return -1
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
