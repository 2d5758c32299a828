package execx

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunCapturesCombinedOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo out; echo err >&2"},
	}, RunOptions{})

	require.True(t, res.Success())
	assert.Equal(t, "out\nerr", res.Output)
	assert.Equal(t, 0, res.ExitCode)
}

func TestLocalRunReportsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo boom >&2; exit 3"},
	}, RunOptions{})

	require.Error(t, res.Err)
	assert.False(t, res.Success())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom", res.Output)
}

func TestLocalRunMissingBinary(t *testing.T) {
	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"this-binary-does-not-exist-anywhere"},
	}, RunOptions{})

	require.Error(t, res.Err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Output, "executable file not found")
}

func TestLocalRunEmptyArgv(t *testing.T) {
	res := Local{}.Run(context.Background(), Command{}, RunOptions{})

	require.Error(t, res.Err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestLocalRunStreamsWhileCapturing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	var stream bytes.Buffer
	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"echo", "hello"},
	}, RunOptions{Stream: &stream})

	require.True(t, res.Success())
	assert.Equal(t, "hello", res.Output)
	assert.Equal(t, "hello\n", stream.String())
}

func TestLocalRunReplacesInvalidUTF8(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"sh", "-c", `printf 'a\377b'`},
	}, RunOptions{})

	require.True(t, res.Success())
	assert.True(t, utf8.ValidString(res.Output))
	assert.Equal(t, "a�b", res.Output)
}

func TestLocalRunHonorsDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"pwd"},
		Dir:  dir,
	}, RunOptions{})

	require.True(t, res.Success())
	assert.Equal(t, resolved, res.Output)
}

func TestLocalRunAppendsEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	res := Local{}.Run(context.Background(), Command{
		Argv: []string{"sh", "-c", `printf '%s' "$EXECX_TEST_VALUE"`},
		Env:  []string{"EXECX_TEST_VALUE=42"},
	}, RunOptions{})

	require.True(t, res.Success())
	assert.Equal(t, "42", res.Output)
}

func TestLocalRunContextCancellation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := Local{}.Run(ctx, Command{Argv: []string{"sleep", "5"}}, RunOptions{})

	require.Error(t, res.Err)
	assert.False(t, res.Success())
}
