// Package audit runs the pip-audit vulnerability scanner and folds its exit
// status into a found/not-found answer. Scanner failures default to
// "vulnerabilities found": a broken scanner must not read as a clean bill.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/execx"
)

// DefaultTool is the scanner binary resolved on PATH.
const DefaultTool = "pip-audit"

// Options configures one audit run.
type Options struct {
	// Requirements audits the given requirements file instead of the
	// installed environment.
	Requirements string
	// FailOpen reports "no vulnerabilities" when the scanner itself fails
	// to run. Leave false to keep the conservative default, where scanner
	// failure counts as vulnerabilities found.
	FailOpen bool
	// ExtraArgs are appended to the scanner invocation verbatim.
	ExtraArgs []string
	// Tool overrides the scanner binary. Empty means DefaultTool.
	Tool string
}

// Check runs the scanner and returns whether vulnerabilities were found
// plus the report text. Exit code 0 means clean, 1 means findings; anything
// else is a scanner failure resolved by the FailOpen policy, with the error
// text as the report.
func Check(ctx context.Context, runner execx.Runner, opts Options, log zerolog.Logger) (bool, string) {
	tool := opts.Tool
	if tool == "" {
		tool = DefaultTool
	}

	argv := []string{tool}
	if opts.Requirements != "" {
		argv = append(argv, "-r", opts.Requirements)
	}
	argv = append(argv, opts.ExtraArgs...)

	log.Info().Str("command", execx.Display(argv)).Msg("running vulnerability audit")
	res := runner.Run(ctx, execx.Command{Argv: argv}, execx.RunOptions{})

	switch res.ExitCode {
	case 0:
		log.Info().Msg("audit found no known vulnerabilities")
		return false, res.Output
	case 1:
		log.Warn().Msg("audit found vulnerabilities")
		return true, res.Output
	default:
		found := !opts.FailOpen
		log.Error().
			Err(res.Err).
			Int("exit_code", res.ExitCode).
			Bool("reported_as_found", found).
			Msg("audit tool failed to run")
		return found, res.Output
	}
}
