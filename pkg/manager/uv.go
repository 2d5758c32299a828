package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/execx"
	"github.com/ParisNeo/pipmaster/pkg/pyenv"
)

// UvManager drives the uv binary for environment creation, installs into a
// target environment, and one-off tool runs. Unlike pip there is no module
// entry point, so the uv executable must be on PATH.
//
// Install operations require a target environment, configured either by
// CreateEnv or SetEnvironment.
type UvManager struct {
	uvPath  string
	envPath string
	runner  execx.Runner
	log     zerolog.Logger
	stream  io.Writer
}

// NewUv locates the uv executable and returns a blocking manager for it.
func NewUv(log zerolog.Logger) (*UvManager, error) {
	return NewUvWithRunner(execx.Local{}, log)
}

// NewUvWithRunner is NewUv with an explicit command runner.
func NewUvWithRunner(runner execx.Runner, log zerolog.Logger) (*UvManager, error) {
	if runner == nil {
		runner = execx.Local{}
	}
	path, err := exec.LookPath("uv")
	if err != nil {
		return nil, errors.NewEnvironmentError("uv", "uv executable not found on PATH", err)
	}
	log.Debug().Str("uv", path).Msg("found uv executable")
	return &UvManager{uvPath: path, runner: runner, log: log, stream: os.Stdout}, nil
}

// SetEnvironment targets an existing virtual environment for subsequent
// install and uninstall operations.
func (u *UvManager) SetEnvironment(path string) {
	u.envPath = path
}

// EnvironmentPath returns the configured target environment, or "" when
// none has been set.
func (u *UvManager) EnvironmentPath() string {
	return u.envPath
}

// SetVerboseOutput redirects live command output for verbose operations.
func (u *UvManager) SetVerboseOutput(w io.Writer) {
	if w != nil {
		u.stream = w
	}
}

// run executes one uv subcommand, honoring the same dry-run contract as the
// pip manager: the command is built and logged but never launched.
func (u *UvManager) run(ctx context.Context, args []string, dryRun, verbose bool) execx.Result {
	argv := append([]string{u.uvPath}, args...)
	if dryRun {
		display := execx.Display(argv)
		u.log.Info().Str("command", display).Msg("dry run: command not executed")
		return execx.Result{Output: fmt.Sprintf("Dry run: command would be '%s'", display), ExitCode: 0}
	}

	u.log.Info().Str("command", execx.Display(argv)).Msg("executing")

	runOpts := execx.RunOptions{}
	if verbose {
		runOpts.Stream = u.stream
	}
	res := u.runner.Run(ctx, execx.Command{Argv: argv, Env: []string{"PYTHONUTF8=1"}}, runOpts)
	if !res.Success() {
		u.log.Error().
			Int("exit_code", res.ExitCode).
			Str("output", res.Output).
			Msg("uv command failed")
	}
	return res
}

// CreateEnv creates a virtual environment at path with uv and targets it
// for subsequent operations. pythonVersion optionally pins the interpreter
// ("3.12"); uv downloads it when missing.
func (u *UvManager) CreateEnv(ctx context.Context, path, pythonVersion string) error {
	args := []string{"venv", path}
	if pythonVersion != "" {
		args = append(args, "--python", pythonVersion)
	}

	res := u.run(ctx, args, false, false)
	if !res.Success() {
		return errors.NewEnvironmentError(path, fmt.Sprintf("failed to create environment: %s", res.Output), res.Err)
	}

	u.envPath = path
	u.log.Info().Str("path", path).Msg("created virtual environment")
	return nil
}

// UvInstallOptions tunes uv install invocations.
type UvInstallOptions struct {
	IndexURL  string
	Upgrade   bool
	ExtraArgs []string
	DryRun    bool
	Verbose   bool
}

// envPython resolves the interpreter of the configured target environment.
func (u *UvManager) envPython() (string, error) {
	if u.envPath == "" {
		return "", errors.NewEnvironmentError("", "no target environment is configured", nil)
	}
	return pyenv.VenvPython(u.envPath), nil
}

// Install installs one package into the target environment.
func (u *UvManager) Install(ctx context.Context, pkg string, opts UvInstallOptions) error {
	return u.InstallMultiple(ctx, []string{pkg}, opts)
}

// InstallMultiple installs several packages in one uv invocation.
func (u *UvManager) InstallMultiple(ctx context.Context, pkgs []string, opts UvInstallOptions) error {
	if len(pkgs) == 0 {
		u.log.Info().Msg("no packages provided to install")
		return nil
	}
	python, err := u.envPython()
	if err != nil {
		u.log.Error().Msg("cannot install packages: no target environment is configured")
		return err
	}

	args := []string{"pip", "install", "--python", python}
	if opts.Upgrade {
		args = append(args, "--upgrade")
	}
	if opts.IndexURL != "" {
		args = append(args, "--index-url", opts.IndexURL)
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, pkgs...)

	res := u.run(ctx, args, opts.DryRun, opts.Verbose)
	if !res.Success() {
		return execErr(args, res)
	}
	return nil
}

// Uninstall removes packages from the target environment.
func (u *UvManager) Uninstall(ctx context.Context, pkgs []string, opts UvInstallOptions) error {
	if len(pkgs) == 0 {
		u.log.Info().Msg("no packages provided to uninstall")
		return nil
	}
	python, err := u.envPython()
	if err != nil {
		u.log.Error().Msg("cannot uninstall packages: no target environment is configured")
		return err
	}

	args := []string{"pip", "uninstall", "--python", python}
	args = append(args, opts.ExtraArgs...)
	args = append(args, pkgs...)

	res := u.run(ctx, args, opts.DryRun, opts.Verbose)
	if !res.Success() {
		return execErr(args, res)
	}
	return nil
}

// RunTool executes a tool in an ephemeral environment via uv tool run
// (the uvx flow) and returns its output.
func (u *UvManager) RunTool(ctx context.Context, tool string, toolArgs []string, verbose bool) (string, error) {
	args := append([]string{"tool", "run", tool}, toolArgs...)

	res := u.run(ctx, args, false, verbose)
	if !res.Success() {
		return res.Output, execErr(args, res)
	}
	return res.Output, nil
}
