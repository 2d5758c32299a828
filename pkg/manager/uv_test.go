package manager

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/execx"
	"github.com/ParisNeo/pipmaster/pkg/pyenv"
)

// fakeUvOnPath drops a uv stand-in on PATH so NewUv's lookup succeeds. The
// script never runs because tests use the stub runner.
func fakeUvOnPath(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("PATH script stubs are POSIX-only")
	}

	dir := t.TempDir()
	uv := filepath.Join(dir, "uv")
	require.NoError(t, os.WriteFile(uv, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	originalPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", originalPath) })
	require.NoError(t, os.Setenv("PATH", dir+":"+originalPath))
	return uv
}

func newTestUv(t *testing.T, stub *stubRunner) (*UvManager, string) {
	t.Helper()

	uvPath := fakeUvOnPath(t)
	u, err := NewUvWithRunner(stub, zerolog.Nop())
	require.NoError(t, err)
	return u, uvPath
}

func TestNewUvRequiresExecutableOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH isolation is POSIX-only")
	}

	originalPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", originalPath) })
	require.NoError(t, os.Setenv("PATH", t.TempDir()))

	_, err := NewUv(zerolog.Nop())
	require.Error(t, err)

	var envErr *pkgerrors.EnvironmentError
	require.ErrorAs(t, err, &envErr)
}

func TestUvCreateEnvTargetsNewEnvironment(t *testing.T) {
	stub := &stubRunner{}
	u, uvPath := newTestUv(t, stub)

	venv := filepath.Join(t.TempDir(), "venv")
	require.NoError(t, u.CreateEnv(context.Background(), venv, "3.12"))
	assert.Equal(t, venv, u.EnvironmentPath())

	calls := stub.commands()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{uvPath, "venv", venv, "--python", "3.12"}, calls[0].Argv)
}

func TestUvCreateEnvFailureLeavesTargetUnset(t *testing.T) {
	stub := &stubRunner{
		respond: func(execx.Command) execx.Result {
			return execx.Result{Output: "no interpreter found for 9.9", ExitCode: 1}
		},
	}
	u, _ := newTestUv(t, stub)

	err := u.CreateEnv(context.Background(), filepath.Join(t.TempDir(), "venv"), "9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no interpreter found")
	assert.Empty(t, u.EnvironmentPath())
}

func TestUvInstallRequiresConfiguredEnvironment(t *testing.T) {
	stub := &stubRunner{}
	u, _ := newTestUv(t, stub)

	err := u.Install(context.Background(), "requests", UvInstallOptions{})
	require.Error(t, err)
	assert.Empty(t, stub.commands())
}

func TestUvInstallMultipleArgv(t *testing.T) {
	stub := &stubRunner{}
	u, uvPath := newTestUv(t, stub)

	venv := filepath.Join(t.TempDir(), "venv")
	u.SetEnvironment(venv)

	require.NoError(t, u.InstallMultiple(context.Background(), []string{"requests", "flask"}, UvInstallOptions{
		Upgrade:  true,
		IndexURL: "https://mirror.example/simple",
	}))

	calls := stub.commands()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		uvPath, "pip", "install",
		"--python", pyenv.VenvPython(venv),
		"--upgrade",
		"--index-url", "https://mirror.example/simple",
		"requests", "flask",
	}, calls[0].Argv)
}

func TestUvInstallDryRunNeverExecutes(t *testing.T) {
	stub := &stubRunner{}
	u, _ := newTestUv(t, stub)
	u.SetEnvironment(filepath.Join(t.TempDir(), "venv"))

	require.NoError(t, u.Install(context.Background(), "requests", UvInstallOptions{DryRun: true}))
	assert.Empty(t, stub.commands())
}

func TestUvUninstallArgv(t *testing.T) {
	stub := &stubRunner{}
	u, uvPath := newTestUv(t, stub)

	venv := filepath.Join(t.TempDir(), "venv")
	u.SetEnvironment(venv)

	require.NoError(t, u.Uninstall(context.Background(), []string{"requests"}, UvInstallOptions{}))

	calls := stub.commands()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		uvPath, "pip", "uninstall",
		"--python", pyenv.VenvPython(venv),
		"requests",
	}, calls[0].Argv)
}

func TestUvRunTool(t *testing.T) {
	stub := &stubRunner{
		respond: func(execx.Command) execx.Result {
			return execx.Result{Output: "All done!", ExitCode: 0}
		},
	}
	u, uvPath := newTestUv(t, stub)

	out, err := u.RunTool(context.Background(), "black", []string{"--check", "."}, false)
	require.NoError(t, err)
	assert.Equal(t, "All done!", out)

	calls := stub.commands()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{uvPath, "tool", "run", "black", "--check", "."}, calls[0].Argv)
}

func TestUvRunToolFailure(t *testing.T) {
	stub := &stubRunner{
		respond: func(execx.Command) execx.Result {
			return execx.Result{Output: "would reformat main.py", ExitCode: 1}
		},
	}
	u, _ := newTestUv(t, stub)

	out, err := u.RunTool(context.Background(), "black", []string{"--check", "."}, false)
	require.Error(t, err)
	assert.Contains(t, out, "would reformat")
}
