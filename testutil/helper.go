// Package testutil holds token fixtures and stream builders shared by the
// package tests.
package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// SampleHeader is the header block of the C-SPRING sample program
var SampleHeader = []string{
	"1", "Part Number", "--", "10KN spring",
	"2", "Model Number", "--", "2022",
	"3", "Free Length", "mm", "120",
	"4", "Operator", "--", "QA",
}

// SampleSetup is the setup block that follows the sentinel
var SampleSetup = []string{"lbf", "SPRING TEST", "Height", "125", "80"}

// SampleRows is the test sequence of the C-SPRING sample, laid out exactly as
// the default command table serializes it
var SampleRows = [][]string{
	{"ZF", "Zero Force", "", "", "", ""},
	{"ZD", "Zero Displacement", "", "", "", ""},
	{"TH", "Search Contact", "1.12", "lbf", "100"},
	{"FL(P)", "Measure Free Length", "", "mm", "120(119,121)"},
	{"Mv(P)", "Move to Position", "=(R03-24.3)", "mm", "50"},
	{"Scrag", "Scragging", "R04,2", "", "", "", ""},
	{"Fr(P)", "Force at Position", "lbf", "2799(2659,2939)"},
	{"TD", "Time Delay", "3", "Sec"},
	{"PMsg", "User Message", "Remove spring", "", "", "", ""},
}

// SampleText is the canonical text rendering of the sample program
const SampleText = `Part Number: 10KN spring
Model Number: 2022
Free Length: 120 mm
Operator (--): QA
Test Setup: lbf, SPRING TEST, Height, 125, 80

--- Test Sequence ---
ZF - Zero Force
ZD - Zero Displacement
TH - Search Contact: 1.12, lbf, Target: 100
FL(P) - Measure Free Length: Unit: mm, 120(119,121)
Mv(P) - Move to Position: =(R03-24.3), mm, Target: 50
Scrag - Scragging: R04,2
Fr(P) - Force at Position: lbf, 2799(2659,2939)
TD - Time Delay: 3, Sec
PMsg - User Message: Remove spring
`

// SampleTokens returns the full token sequence of the sample program
func SampleTokens() []string {
	return Program(SampleHeader, SampleSetup, SampleRows...)
}

// Program joins a header, the sentinel, a setup block and rows into one token
// sequence
func Program(header, setup []string, rows ...[]string) []string {
	tokens := make([]string, 0, len(header)+len(setup)+1+len(rows)*5)
	tokens = append(tokens, header...)
	tokens = append(tokens, "<Test Sequence>")
	tokens = append(tokens, setup...)
	for _, row := range rows {
		tokens = append(tokens, row...)
	}
	return tokens
}

// Frame encodes tokens with the 4-byte big-endian length prefix. It is kept
// independent of the tokenstream package so that tests can check it.
func Frame(tokens ...string) []byte {
	var out []byte
	for _, tok := range tokens {
		out = binary.BigEndian.AppendUint32(out, uint32(len(tok)))
		out = append(out, tok...)
	}
	return out
}

// SampleBinary returns the framed sample program
func SampleBinary() []byte {
	return Frame(SampleTokens()...)
}

// WriteFile writes data under dir and returns the path
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, data, 0o644))
	return path
}

// FloatComparer treats floats within 1e-9 as equal
var FloatComparer = cmp.Comparer(func(x, y float64) bool {
	return math.Abs(x-y) < 1e-9
})

// ModelOptions are the cmp options used when diffing decoded models
var ModelOptions = cmp.Options{FloatComparer, cmpopts.EquateEmpty()}
