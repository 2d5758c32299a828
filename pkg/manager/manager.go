// Package manager exposes pip and uv operations as callable functions and
// reconciles desired package sets against a target environment. Every
// Manager is built from an explicit environment description; there is no
// process-wide default instance.
package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/audit"
	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/execx"
	"github.com/ParisNeo/pipmaster/pkg/pyenv"
	"github.com/ParisNeo/pipmaster/pkg/requirement"
)

// Manager drives pip against one resolved Python environment.
type Manager struct {
	env    *pyenv.Environment
	runner execx.Runner
	log    zerolog.Logger
	stream io.Writer
}

// New resolves the target environment described by opts and returns a
// blocking Manager for it. Environment resolution failures (missing
// interpreter) are fatal and returned here, before any operation runs.
func New(ctx context.Context, opts pyenv.Options, log zerolog.Logger) (*Manager, error) {
	return NewWithRunner(ctx, opts, execx.Local{}, log)
}

// NewWithRunner is New with an explicit command runner. Passing an
// execx.Queue yields the non-blocking mode; the reconciliation logic is
// identical either way.
func NewWithRunner(ctx context.Context, opts pyenv.Options, runner execx.Runner, log zerolog.Logger) (*Manager, error) {
	if runner == nil {
		runner = execx.Local{}
	}
	env, err := pyenv.Resolve(ctx, opts, runner, log)
	if err != nil {
		return nil, err
	}
	return &Manager{env: env, runner: runner, log: log, stream: os.Stdout}, nil
}

// Environment returns the resolved target environment.
func (m *Manager) Environment() *pyenv.Environment {
	return m.env
}

// SetVerboseOutput redirects live command output for verbose operations.
// The default is standard output.
func (m *Manager) SetVerboseOutput(w io.Writer) {
	if w != nil {
		m.stream = w
	}
}

// invoke runs one pip subcommand. In dry-run mode the command is built and
// logged with --dry-run spliced in after the subcommand, but never executed;
// a successful canned result is returned so callers can report the plan.
func (m *Manager) invoke(ctx context.Context, log zerolog.Logger, args []string, dryRun, verbose bool) execx.Result {
	if dryRun {
		argv := m.env.PipArgv(dryRunArgs(args)...)
		display := execx.Display(argv)
		log.Info().Str("command", display).Msg("dry run: command not executed")
		return execx.Result{Output: fmt.Sprintf("Dry run: command would be '%s'", display), ExitCode: 0}
	}

	argv := m.env.PipArgv(args...)
	log.Info().Str("command", execx.Display(argv)).Msg("executing")

	runOpts := execx.RunOptions{}
	if verbose {
		runOpts.Stream = m.stream
	}
	res := m.runner.Run(ctx, execx.Command{Argv: argv, Env: []string{"PYTHONUTF8=1"}}, runOpts)
	if res.Success() {
		log.Debug().Str("command", argv[0]).Msg("command succeeded")
	} else {
		log.Error().
			Int("exit_code", res.ExitCode).
			Str("output", res.Output).
			Msg("command failed")
	}
	return res
}

// dryRunArgs splices --dry-run in directly after the subcommand for the pip
// verbs that accept it.
func dryRunArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	switch args[0] {
	case "install", "uninstall", "download":
		out := make([]string, 0, len(args)+1)
		out = append(out, args[0], "--dry-run")
		return append(out, args[1:]...)
	}
	return args
}

// execErr wraps a failed invocation result as an ExecutionError.
func execErr(args []string, res execx.Result) error {
	return errors.NewExecutionError(execx.Display(args), res.ExitCode, res.Err)
}

// InstallOptions tunes a plain install invocation.
type InstallOptions struct {
	// IndexURL selects a custom package index.
	IndexURL string
	// Upgrade passes --upgrade so already-installed packages move to the
	// newest allowed version.
	Upgrade bool
	// ForceReinstall passes --force-reinstall.
	ForceReinstall bool
	// ExtraArgs are appended to the pip command verbatim.
	ExtraArgs []string
	// DryRun builds and logs the command without executing it.
	DryRun bool
	// Verbose streams pip's output live in addition to capturing it.
	Verbose bool
}

func (o InstallOptions) args() []string {
	var args []string
	if o.Upgrade {
		args = append(args, "--upgrade")
	}
	if o.ForceReinstall {
		args = append(args, "--force-reinstall")
	}
	if o.IndexURL != "" {
		args = append(args, "--index-url", o.IndexURL)
	}
	return append(args, o.ExtraArgs...)
}

// Install installs or upgrades a single package. The package string may
// carry an inline specifier ("requests>=2.25").
func (m *Manager) Install(ctx context.Context, pkg string, opts InstallOptions) error {
	return m.InstallMultiple(ctx, []string{pkg}, opts)
}

// InstallMultiple installs several packages in one pip invocation.
func (m *Manager) InstallMultiple(ctx context.Context, pkgs []string, opts InstallOptions) error {
	if len(pkgs) == 0 {
		m.log.Info().Msg("no packages provided to install")
		return nil
	}

	args := append([]string{"install"}, opts.args()...)
	args = append(args, pkgs...)

	res := m.invoke(ctx, m.log, args, opts.DryRun, opts.Verbose)
	if !res.Success() {
		return execErr(args, res)
	}
	return nil
}

// InstallVersion installs one exact version, force-reinstalling over
// whatever is present by default.
func (m *Manager) InstallVersion(ctx context.Context, pkg, version string, opts InstallOptions) error {
	opts.ForceReinstall = true
	opts.Upgrade = false
	return m.Install(ctx, fmt.Sprintf("%s==%s", pkg, version), opts)
}

// InstallOrUpdate installs pkg if missing, or updates it to the newest
// allowed version when present.
func (m *Manager) InstallOrUpdate(ctx context.Context, pkg string, opts InstallOptions) error {
	opts.Upgrade = true
	return m.Install(ctx, pkg, opts)
}

// InstallOrUpdateMultiple is InstallOrUpdate over one batched invocation.
func (m *Manager) InstallOrUpdateMultiple(ctx context.Context, pkgs []string, opts InstallOptions) error {
	opts.Upgrade = true
	return m.InstallMultiple(ctx, pkgs, opts)
}

// InstallEditable installs a local project in editable mode (pip install -e).
func (m *Manager) InstallEditable(ctx context.Context, path string, opts InstallOptions) error {
	args := []string{"install", "-e", path}
	args = append(args, opts.args()...)

	res := m.invoke(ctx, m.log, args, opts.DryRun, opts.Verbose)
	if !res.Success() {
		return execErr(args, res)
	}
	return nil
}

// InstallRequirements installs everything in a requirements file via pip's
// native -r handling.
func (m *Manager) InstallRequirements(ctx context.Context, file string, opts InstallOptions) error {
	if _, err := os.Stat(file); err != nil {
		return errors.NewEnvironmentError(file, "requirements file not found", err)
	}

	args := []string{"install", "-r", file}
	args = append(args, opts.args()...)

	res := m.invoke(ctx, m.log, args, opts.DryRun, opts.Verbose)
	if !res.Success() {
		return execErr(args, res)
	}
	return nil
}

// InstallIfMissingOptions tunes conditional single-package installs.
type InstallIfMissingOptions struct {
	// Specifier constrains the acceptable installed version. It takes
	// precedence over any inline specifier in the package string.
	Specifier string
	// AlwaysUpdate refreshes the package to latest even when the installed
	// version already satisfies the requirement.
	AlwaysUpdate bool
	IndexURL     string
	ExtraArgs    []string
	DryRun       bool
	Verbose      bool
}

// InstallIfMissing installs pkg only when absent or failing its version
// constraint. Satisfied requirements are left untouched unless AlwaysUpdate
// is set.
func (m *Manager) InstallIfMissing(ctx context.Context, pkg string, opts InstallIfMissingOptions) error {
	parsed, err := requirement.Parse(pkg)
	if err != nil {
		return err
	}

	specifier := opts.Specifier
	if specifier == "" {
		specifier = parsed.Specifier
	}
	target := strings.TrimSpace(pkg)

	install := InstallOptions{
		IndexURL:  opts.IndexURL,
		ExtraArgs: opts.ExtraArgs,
		DryRun:    opts.DryRun,
		Verbose:   opts.Verbose,
	}

	state := pyenv.NewInspector(m.env, m.log).Lookup(parsed.Name)
	if !state.Installed {
		m.log.Info().Str("package", parsed.Name).Msg("package not found, installing")
		install.Upgrade = opts.AlwaysUpdate
		return m.Install(ctx, target, install)
	}

	met := true
	if specifier != "" {
		met, err = requirement.Satisfies(state.Version, specifier)
		if err != nil {
			m.log.Warn().Err(err).Str("package", parsed.Name).Msg("treating requirement as unmet")
			met = false
		}
	}

	switch {
	case !met:
		m.log.Info().
			Str("package", parsed.Name).
			Str("installed", state.Version).
			Str("required", specifier).
			Msg("installed version does not satisfy requirement, reinstalling")
		install.Upgrade = true
		install.ForceReinstall = true
		return m.Install(ctx, target, install)
	case opts.AlwaysUpdate:
		m.log.Info().Str("package", parsed.Name).Msg("always_update set, refreshing package")
		install.Upgrade = true
		return m.Install(ctx, target, install)
	default:
		m.log.Info().
			Str("package", parsed.Name).
			Str("version", state.Version).
			Msg("requirement already satisfied")
		return nil
	}
}

// InstallMultipleIfNotInstalled installs only the packages that are absent.
// Presence is the sole check; version constraints belong to Ensure.
func (m *Manager) InstallMultipleIfNotInstalled(ctx context.Context, pkgs []string, opts InstallOptions) error {
	if len(pkgs) == 0 {
		m.log.Info().Msg("no packages provided to install")
		return nil
	}

	inspector := pyenv.NewInspector(m.env, m.log)
	var missing []string
	for _, pkg := range pkgs {
		name := pkg
		if parsed, err := requirement.Parse(pkg); err == nil {
			name = parsed.Name
		}
		if inspector.Lookup(name).Installed {
			m.log.Debug().Str("package", name).Msg("already installed, skipping")
			continue
		}
		m.log.Info().Str("package", name).Msg("marked for installation")
		missing = append(missing, pkg)
	}

	if len(missing) == 0 {
		m.log.Info().Msg("all specified packages are already installed")
		return nil
	}

	opts.Upgrade = false
	opts.ForceReinstall = false
	return m.InstallMultiple(ctx, missing, opts)
}

// UninstallOptions tunes uninstall invocations.
type UninstallOptions struct {
	ExtraArgs []string
	DryRun    bool
	Verbose   bool
}

// Uninstall removes a single package without prompting.
func (m *Manager) Uninstall(ctx context.Context, pkg string, opts UninstallOptions) error {
	return m.UninstallMultiple(ctx, []string{pkg}, opts)
}

// UninstallMultiple removes several packages in one invocation.
func (m *Manager) UninstallMultiple(ctx context.Context, pkgs []string, opts UninstallOptions) error {
	if len(pkgs) == 0 {
		m.log.Info().Msg("no packages provided to uninstall")
		return nil
	}

	args := []string{"uninstall", "-y"}
	args = append(args, pkgs...)
	args = append(args, opts.ExtraArgs...)

	res := m.invoke(ctx, m.log, args, opts.DryRun, opts.Verbose)
	if !res.Success() {
		return execErr(args, res)
	}
	return nil
}

// IsInstalled reports whether a package is present, and when specifier is
// non-empty, whether the installed version satisfies it. State is read
// fresh from the environment on every call.
func (m *Manager) IsInstalled(name, specifier string) bool {
	state := pyenv.NewInspector(m.env, m.log).Lookup(name)
	if !state.Installed {
		return false
	}
	if strings.TrimSpace(specifier) == "" {
		return true
	}
	met, err := requirement.Satisfies(state.Version, specifier)
	if err != nil {
		m.log.Warn().Err(err).Str("package", name).Msg("version comparison failed")
		return false
	}
	return met
}

// InstalledVersion returns the installed version of a package, with false
// when it is not installed.
func (m *Manager) InstalledVersion(name string) (string, bool) {
	state := pyenv.NewInspector(m.env, m.log).Lookup(name)
	if !state.Installed {
		return "", false
	}
	return state.Version, true
}

// PackageInfo returns pip's metadata dump for one package (pip show).
func (m *Manager) PackageInfo(ctx context.Context, name string) (string, error) {
	args := []string{"show", name}
	res := m.invoke(ctx, m.log, args, false, false)
	if !res.Success() {
		return "", execErr(args, res)
	}
	return res.Output, nil
}

// Audit runs the vulnerability scanner against this manager's runner.
func (m *Manager) Audit(ctx context.Context, opts audit.Options) (bool, string) {
	return audit.Check(ctx, m.runner, opts, m.log)
}
