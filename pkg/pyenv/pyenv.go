// Package pyenv resolves which Python interpreter a set of package
// operations targets, creating virtual environments on demand, and reads
// installed-distribution state straight from the environment's metadata.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/execx"
)

// Options selects the target environment. Precedence: PipCommand overrides
// the installer invocation outright; otherwise Python wins over VenvPath,
// and with neither set the ambient interpreter on PATH is used. One Options
// value per logical environment; there is no process-wide default.
type Options struct {
	// Python is an explicit interpreter path. It must exist when set.
	Python string
	// VenvPath is a virtual-environment directory, created on first use
	// when missing.
	VenvPath string
	// PipCommand replaces the "<python> -m pip" prefix verbatim, for
	// callers with a wrapper installer. Interpreter resolution still runs
	// for state inspection.
	PipCommand []string
}

// Environment is a resolved target: a concrete interpreter plus the
// installer invocation prefix derived from it.
type Environment struct {
	// Python is the interpreter path all operations run against.
	Python string

	pipBase []string
}

// PipArgv builds the argv for one pip invocation against this environment.
func (e *Environment) PipArgv(args ...string) []string {
	base := e.pipBase
	if len(base) == 0 {
		base = []string{e.Python, "-m", "pip"}
	}
	out := make([]string, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}

// Resolve produces the concrete Environment for opts. A configured
// interpreter that does not exist is fatal: nothing downstream can inspect
// or install without one.
func Resolve(ctx context.Context, opts Options, runner execx.Runner, log zerolog.Logger) (*Environment, error) {
	env := &Environment{pipBase: opts.PipCommand}

	switch {
	case opts.Python != "":
		if _, err := os.Stat(opts.Python); err != nil {
			return nil, errors.NewEnvironmentError(opts.Python, "interpreter does not exist", errors.ErrInterpreterNotFound)
		}
		env.Python = opts.Python

	case opts.VenvPath != "":
		if _, err := os.Stat(opts.VenvPath); os.IsNotExist(err) {
			created, createErr := CreateVenv(ctx, opts.VenvPath, runner, log)
			if createErr != nil {
				return nil, createErr
			}
			env.Python = created.Python
			break
		}
		interpreter := VenvPython(opts.VenvPath)
		if _, err := os.Stat(interpreter); err != nil {
			return nil, errors.NewEnvironmentError(interpreter, "virtual environment has no interpreter", errors.ErrInterpreterNotFound)
		}
		env.Python = interpreter

	default:
		ambient, err := AmbientPython()
		if err != nil {
			return nil, err
		}
		env.Python = ambient
	}

	log.Debug().Str("python", env.Python).Msg("resolved target environment")
	return env, nil
}

// CreateVenv creates a virtual environment at path using the ambient
// interpreter and returns the resolved Environment for it.
func CreateVenv(ctx context.Context, path string, runner execx.Runner, log zerolog.Logger) (*Environment, error) {
	bootstrap, err := AmbientPython()
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("creating virtual environment")
	res := runner.Run(ctx, execx.Command{Argv: []string{bootstrap, "-m", "venv", path}}, execx.RunOptions{})
	if !res.Success() {
		return nil, errors.NewEnvironmentError(path, fmt.Sprintf("virtual environment creation failed: %s", res.Output), res.Err)
	}

	interpreter := VenvPython(path)
	if _, statErr := os.Stat(interpreter); statErr != nil {
		return nil, errors.NewEnvironmentError(interpreter, "virtual environment has no interpreter", errors.ErrInterpreterNotFound)
	}
	return &Environment{Python: interpreter}, nil
}

// VenvPython returns the interpreter path inside a virtual environment
// rooted at root, following the platform layout.
func VenvPython(root string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(root, "Scripts", "python.exe")
	}
	return filepath.Join(root, "bin", "python")
}

// AmbientPython locates the interpreter the surrounding session would use:
// python3 on PATH, falling back to python.
func AmbientPython() (string, error) {
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.NewEnvironmentError("", "no python interpreter on PATH", errors.ErrInterpreterNotFound)
}

// SitePackages lists the environment's existing site-packages directories.
// Both venv layouts and system dist-packages layouts are probed.
func (e *Environment) SitePackages() []string {
	if e.Python == "" {
		return nil
	}
	root := filepath.Dir(filepath.Dir(e.Python))

	patterns := []string{
		filepath.Join(root, "lib", "python*", "site-packages"),
		filepath.Join(root, "lib", "python*", "dist-packages"),
		filepath.Join(root, "lib", "site-packages"),
		filepath.Join(root, "Lib", "site-packages"),
	}

	var dirs []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, match := range matches {
			if info, statErr := os.Stat(match); statErr == nil && info.IsDir() {
				dirs = append(dirs, match)
			}
		}
	}
	return dirs
}
