package springfile

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/twinfer/spring-codec/pkg/layout"
)

// headerFieldPattern matches "Name: value" and "Name (unit): value". Name and
// unit may be Go quoted strings.
var headerFieldPattern = regexp.MustCompile(`^("(?:[^"\\]|\\.)*"|[^:()"]+?)(?:\s+\(("(?:[^"\\]|\\.)*"|[^()"]*)\))?:\s*(.*)$`)

// Parse reads the canonical text form produced by Render. Header labels may
// appear in any order before the sequence marker. Every line that cannot be
// read is reported in a single UnrecognizedLineError.
func (c *Codec) Parse(text string) (*TestFile, *Diagnostics, error) {
	var (
		file      = &TestFile{}
		diag      = &Diagnostics{}
		bad       []Line
		found     = make(map[string]bool, 3)
		lengthErr string
		inSeq     bool
	)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fail := func(reason string) {
			bad = append(bad, Line{Number: n + 1, Text: raw, Reason: reason})
		}

		if !inSeq {
			if isSequenceMarker(line) {
				inSeq = true
				continue
			}
			switch {
			case strings.HasPrefix(line, labelPartNumber):
				file.PartNumber = unquoteHeaderValue(line[len(labelPartNumber):])
				found[FieldPartNumber] = true
			case strings.HasPrefix(line, labelModelNumber):
				file.ModelNumber = unquoteHeaderValue(line[len(labelModelNumber):])
				found[FieldModelNumber] = true
			case strings.HasPrefix(line, labelFreeLength):
				found[FieldFreeLength] = true
				length, err := ParseLength(line[len(labelFreeLength):])
				if err != nil {
					lengthErr = "free length: " + err.Error()
					continue
				}
				file.FreeLength = length
			case strings.HasPrefix(line, labelTestSetup):
				setup, err := readSetup(line[len(labelTestSetup):])
				if err != nil {
					fail(err.Error())
					continue
				}
				file.Setup = setup
			default:
				field, reason := readHeaderField(line)
				if reason != "" {
					fail(reason)
					continue
				}
				file.HeaderFields = append(file.HeaderFields, field)
			}
			continue
		}

		row, reason := c.readRow(line, len(file.Rows))
		if reason != "" {
			fail(reason)
			continue
		}
		if !c.table.Known(row.Command) {
			diag.UnknownCodes = append(diag.UnknownCodes, row.Command)
		}
		diag.ExtraTokens += len(row.Extra)
		file.Rows = append(file.Rows, row)
	}

	if len(bad) > 0 {
		return nil, diag, &UnrecognizedLineError{Lines: bad}
	}

	var missing []string
	for _, name := range []string{FieldPartNumber, FieldModelNumber, FieldFreeLength} {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 || lengthErr != "" {
		return nil, diag, &MalformedHeaderError{Missing: missing, Reason: lengthErr}
	}
	if !inSeq {
		diag.note("%q marker not found, file has no test sequence", SequenceMarker)
	}

	diag.SetupTokens = len(file.Setup)
	diag.Rows = len(file.Rows)
	c.logger.Debug("Parsed text form", "rows", diag.Rows, "header_fields", len(file.HeaderFields))
	return file, diag, nil
}

func isSequenceMarker(line string) bool {
	return strings.Join(strings.Fields(line), " ") == SequenceMarker
}

func readSetup(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	raw, err := splitPieces(s)
	if err != nil {
		return nil, err
	}
	setup := make([]string, len(raw))
	for i, r := range raw {
		if strings.HasPrefix(r, `"`) {
			v, err := strconv.Unquote(r)
			if err != nil {
				return nil, err
			}
			r = v
		}
		setup[i] = r
	}
	return setup, nil
}

func readHeaderField(line string) (HeaderField, string) {
	m := headerFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return HeaderField{}, "not a header field"
	}
	name, quoted, err := unquoteHeaderPart(m[1])
	if err != nil {
		return HeaderField{}, "bad quoted header name"
	}
	if !quoted && strings.Contains(name, " - ") {
		return HeaderField{}, "row outside the test sequence"
	}
	unit, _, err := unquoteHeaderPart(m[2])
	if err != nil {
		return HeaderField{}, "bad quoted header unit"
	}
	return HeaderField{
		Name:  name,
		Unit:  unit,
		Value: unquoteHeaderValue(m[3]),
	}, ""
}

func unquoteHeaderPart(s string) (string, bool, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		return s, false, nil
	}
	v, err := strconv.Unquote(s)
	return v, true, err
}

// readRow parses "CODE - Description[: params]"
func (c *Codec) readRow(line string, index int) (TestRow, string) {
	code, rest, ok := strings.Cut(line, " - ")
	if !ok {
		code, ok = strings.CutSuffix(line, " -")
		rest = ""
	}
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return TestRow{}, `expected "CODE - Description"`
	}
	row := TestRow{Index: index, Command: code}

	rest = strings.TrimSpace(rest)
	var params string
	if strings.HasPrefix(rest, `"`) {
		q, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return TestRow{}, "bad quoted description"
		}
		row.Description, _ = strconv.Unquote(q)
		after := strings.TrimSpace(rest[len(q):])
		if after != "" {
			var hasParams bool
			if params, hasParams = strings.CutPrefix(after, ":"); !hasParams {
				return TestRow{}, "unexpected text after description"
			}
		}
	} else {
		desc, p, _ := strings.Cut(rest, ":")
		row.Description, params = strings.TrimSpace(desc), p
	}

	params = strings.TrimSpace(params)
	if params == "" {
		return row, ""
	}

	cmd, err := c.table.Lookup(code)
	if err != nil {
		return TestRow{}, err.Error()
	}
	pieces, err := readPieces(params)
	if err != nil {
		return TestRow{}, err.Error()
	}
	if reason := assignPieces(&row, cmd, pieces); reason != "" {
		return TestRow{}, reason
	}
	return row, ""
}

// assignPieces places tagged pieces and NOM(LOW,HIGH) tolerances first, then
// fills the command's remaining positional slots in order. Leftovers go to
// Extra ahead of the tagged Extra list.
func assignPieces(row *TestRow, cmd *layout.Command, pieces []piece) string {
	var (
		filled     = make(map[layout.SlotKind]bool)
		positional []piece
		extra      []string
	)

	for _, p := range pieces {
		switch p.tag {
		case tagExtra:
			var list []string
			if err := json.Unmarshal([]byte(p.value), &list); err != nil {
				return "bad Extra list: " + err.Error()
			}
			extra = append(extra, list...)
		case tagCondition:
			row.Condition = ParseCondition(p.value)
			filled[layout.SlotCondition] = true
		case tagUnit:
			row.Unit = p.value
			filled[layout.SlotUnit] = true
		case tagTolerance:
			row.setTolerance(p.value)
			filled[layout.SlotTolerance] = true
		case tagTarget:
			row.Speed = p.value
			filled[layout.SlotSpeed] = true
		default:
			if !p.quoted && !filled[layout.SlotTolerance] && IsTolerance(p.value) {
				row.setTolerance(p.value)
				filled[layout.SlotTolerance] = true
				continue
			}
			positional = append(positional, p)
		}
	}

	for _, slot := range cmd.Slots {
		if len(positional) == 0 {
			break
		}
		switch slot.Kind {
		case layout.SlotCondition, layout.SlotUnit, layout.SlotTolerance:
		default:
			continue
		}
		if filled[slot.Kind] {
			continue
		}
		assignSlot(row, slot.Kind, positional[0].value)
		filled[slot.Kind] = true
		positional = positional[1:]
	}
	for _, p := range positional {
		row.Extra = append(row.Extra, p.value)
	}
	row.Extra = append(row.Extra, extra...)
	return ""
}
