package springfile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/twinfer/spring-codec/pkg/layout"
)

// Tags that mark a row piece whose position does not identify its field
const (
	tagCondition = "Condition"
	tagUnit      = "Unit"
	tagTolerance = "Tolerance"
	tagTarget    = "Target"
	tagExtra     = "Extra"
)

var pieceTags = []string{tagCondition, tagUnit, tagTolerance, tagTarget, tagExtra}

var (
	rowReferenceHead = regexp.MustCompile(`^R\d{1,4}$`)
	bareNumber       = regexp.MustCompile(`^[-+]?\d+(?:\.\d+)?$`)
)

func tagFor(kind layout.SlotKind) string {
	switch kind {
	case layout.SlotCondition:
		return tagCondition
	case layout.SlotUnit:
		return tagUnit
	case layout.SlotTolerance:
		return tagTolerance
	case layout.SlotSpeed:
		return tagTarget
	}
	return ""
}

// piece is one comma separated element of a row's parameter list
type piece struct {
	tag    string
	value  string
	quoted bool
}

// needsQuote reports whether s cannot be written bare in a parameter list
func needsQuote(s string) bool {
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsRune(s, '"') {
		return true
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return true
	}
	if hasTag(s) {
		return true
	}
	parts, err := splitPieces(s)
	return err != nil || len(parts) != 1
}

func hasTag(s string) bool {
	for _, tag := range pieceTags {
		if strings.HasPrefix(s, tag+":") {
			return true
		}
	}
	return false
}

func quote(s string, force bool) string {
	if force || needsQuote(s) {
		return strconv.Quote(s)
	}
	return s
}

// quoteValue quotes unit and free-form tolerance text; bare numbers and
// tolerance lookalikes would otherwise be claimed by another field on parse
func quoteValue(s string) string {
	return quote(s, IsTolerance(s) || bareNumber.MatchString(s))
}

func quoteCondition(c Condition) string {
	if c.Kind == ConditionRowReference {
		s := c.String()
		if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
			return strconv.Quote(s)
		}
		return s
	}
	return quote(c.Text, IsTolerance(c.Text))
}

func quoteDescription(s string) string {
	return quote(s, s == "" || strings.ContainsRune(s, ':') || strings.HasPrefix(s, `"`))
}

// quoteHeaderValue quotes header values that would not survive trimming
func quoteHeaderValue(s string) string {
	if strings.TrimSpace(s) != s || strings.HasPrefix(s, `"`) || strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

// quoteHeaderName quotes extra header names that the header line grammar
// would split differently or mistake for a mandatory label
func quoteHeaderName(s string) string {
	switch {
	case s == "", strings.TrimSpace(s) != s, strings.ContainsAny(s, `():"`),
		strings.Contains(s, " - "), strings.IndexFunc(s, unicode.IsControl) >= 0:
		return strconv.Quote(s)
	}
	for _, label := range headerLabels {
		if s == strings.TrimSuffix(label, ":") {
			return strconv.Quote(s)
		}
	}
	return s
}

func quoteHeaderUnit(s string) string {
	if strings.TrimSpace(s) != s || strings.ContainsAny(s, `()"`) || strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func unquoteHeaderValue(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		if v, err := strconv.Unquote(s); err == nil {
			return v
		}
	}
	return s
}

func tagged(tag, value string) string {
	return tag + ": " + value
}

func extraPiece(extra []string) (string, error) {
	data, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return tagged(tagExtra, string(data)), nil
}

// splitPieces splits s on commas outside quotes, parentheses and brackets
func splitPieces(s string) ([]string, error) {
	var (
		parts   []string
		start   int
		depth   int
		inQuote bool
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inQuote = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuote = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q at column %d", ch, i+1)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	return append(parts, strings.TrimSpace(s[start:])), nil
}

// readPiece splits an optional tag off a raw piece and unquotes its value
func readPiece(raw string) (piece, error) {
	var p piece
	value := raw
	for _, tag := range pieceTags {
		if rest, ok := strings.CutPrefix(raw, tag+":"); ok {
			p.tag = tag
			value = strings.TrimSpace(rest)
			break
		}
	}
	if p.tag == tagExtra {
		p.value = value
		return p, nil
	}
	if strings.HasPrefix(value, `"`) {
		v, err := strconv.Unquote(value)
		if err != nil {
			return piece{}, fmt.Errorf("bad quoted value %s", value)
		}
		p.value, p.quoted = v, true
		return p, nil
	}
	p.value = value
	return p, nil
}

// readPieces parses a parameter list, re-joining "R03" and "2" into the row
// reference "R03,2"
func readPieces(s string) ([]piece, error) {
	raw, err := splitPieces(s)
	if err != nil {
		return nil, err
	}
	pieces := make([]piece, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			return nil, fmt.Errorf("empty parameter")
		}
		p, err := readPiece(r)
		if err != nil {
			return nil, err
		}
		if n := len(pieces); n > 0 && p.tag == "" && !p.quoted && bareNumber.MatchString(p.value) {
			prev := &pieces[n-1]
			if !prev.quoted && (prev.tag == "" || prev.tag == tagCondition) && rowReferenceHead.MatchString(prev.value) {
				prev.value += "," + p.value
				continue
			}
		}
		pieces = append(pieces, p)
	}
	return pieces, nil
}
