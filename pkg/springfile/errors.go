package springfile

import (
	"fmt"
	"strings"
)

// MalformedHeaderError is returned when the mandatory header fields cannot be
// located or read
type MalformedHeaderError struct {
	Missing []string
	Reason  string
}

func (e *MalformedHeaderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	return "malformed header: " + strings.Join(parts, "; ")
}

// Line identifies one input line
type Line struct {
	Number int
	Text   string
	Reason string
}

func (l Line) String() string {
	if l.Reason == "" {
		return fmt.Sprintf("line %d: %q", l.Number, l.Text)
	}
	return fmt.Sprintf("line %d: %q (%s)", l.Number, l.Text, l.Reason)
}

// UnrecognizedLineError lists every text line that could not be parsed
type UnrecognizedLineError struct {
	Lines []Line
}

func (e *UnrecognizedLineError) Error() string {
	if len(e.Lines) == 1 {
		return "unrecognized " + e.Lines[0].String()
	}
	descs := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		descs[i] = l.String()
	}
	return fmt.Sprintf("%d unrecognized lines: %s", len(e.Lines), strings.Join(descs, "; "))
}
