package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/spring-codec/testutil"
)

// execute runs the CLI with an isolated config and history
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	state := t.TempDir()
	cfgPath := testutil.WriteFile(t, state, "config.yaml", []byte(
		"history_file: "+filepath.Join(state, "recent.yaml")+"\nlog:\n  level: error\n"))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	bin := testutil.WriteFile(t, dir, "sample.bin", testutil.SampleBinary())
	out := filepath.Join(dir, "out")

	stdout, _, err := execute(t, "encode", "-f", "all", "-o", out, "-v", bin)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 files: 1 succeeded, 0 failed")
	assert.Contains(t, stdout, "round trip: identical")

	text, err := os.ReadFile(filepath.Join(out, "sample.txt"))
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleText, string(text))
	assert.FileExists(t, filepath.Join(out, "sample.json"))
	csvData, err := os.ReadFile(filepath.Join(out, "sample.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "R05,Scrag,Scragging,Scragging,\"R04,2\",row_reference,")

	// sample.json and sample.txt both decode to sample.bin; the first one wins
	stdout, _, err = execute(t, "decode", "-o", filepath.Join(dir, "back"), out)
	require.ErrorIs(t, err, errFilesFailed)
	assert.Contains(t, stdout, "2 files: 1 succeeded, 1 failed")
	assert.Contains(t, stdout, "is already written for "+filepath.Join(out, "sample.json"))

	data, err := os.ReadFile(filepath.Join(dir, "back", "sample.bin"))
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleBinary(), data)
}

func TestDecodeFailureExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "1.txt", []byte(testutil.SampleText))
	testutil.WriteFile(t, dir, "2.txt", []byte(testutil.SampleText+"garbage line\n"))
	testutil.WriteFile(t, dir, "3.txt", []byte(testutil.SampleText))

	stdout, _, err := execute(t, "decode", "--workers", "3", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFilesFailed))

	assert.Contains(t, stdout, "FAIL")
	assert.Contains(t, stdout, `line 17: "garbage line"`)
	assert.Contains(t, stdout, "3 files: 2 succeeded, 1 failed")
	assert.FileExists(t, filepath.Join(dir, "1.bin"))
	assert.FileExists(t, filepath.Join(dir, "3.bin"))
	assert.NoFileExists(t, filepath.Join(dir, "2.bin"))
}

func TestNoInputs(t *testing.T) {
	_, _, err := execute(t, "decode", t.TempDir())
	assert.ErrorIs(t, err, errNoInputs)
}

func TestLayouts(t *testing.T) {
	stdout, _, err := execute(t, "layouts")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Layout table v1 (built-in)")
	assert.Contains(t, stdout, "Fr(P)")
	assert.Contains(t, stdout, "description, condition, unit, tolerance")

	layoutPath := testutil.WriteFile(t, t.TempDir(), "layouts.yaml", []byte(`version: 2
sentinel: "<Test Sequence>"
setup_tokens: 0
commands:
  - code: GO
    name: Go
    slots: [description, speed]
`))
	stdout, _, err = execute(t, "--layouts", layoutPath, "layouts")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Layout table v2")
	assert.Contains(t, stdout, "GO")
	assert.NotContains(t, stdout, "Fr(P)")

	_, stderr, err := execute(t, "--layouts", filepath.Join(t.TempDir(), "absent.yaml"), "layouts")
	require.Error(t, err)
	assert.Contains(t, stderr, "loading layout table")
}

func TestRecent(t *testing.T) {
	state := t.TempDir()
	cfgPath := testutil.WriteFile(t, state, "config.yaml", []byte(
		"history_file: "+filepath.Join(state, "recent.yaml")+"\nlog:\n  level: error\n"))
	bin := testutil.WriteFile(t, t.TempDir(), "sample.bin", testutil.SampleBinary())

	run := func(args ...string) string {
		var stdout bytes.Buffer
		cmd := newRootCmd(&stdout, &bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		require.NoError(t, cmd.Execute())
		return stdout.String()
	}

	assert.Contains(t, run("recent"), "No recent files")
	run("encode", "--no-history", bin)
	assert.Contains(t, run("recent"), "No recent files")
	run("encode", bin)
	assert.Contains(t, run("recent"), bin)
}

func TestInvalidFlags(t *testing.T) {
	_, stderr, err := execute(t, "encode", "-f", "xml", "x.bin")
	require.Error(t, err)
	assert.Contains(t, stderr, "format must be")

	_, stderr, err = execute(t, "--log-format", "text", "layouts")
	require.Error(t, err)
	assert.Contains(t, stderr, "log.format")
}
