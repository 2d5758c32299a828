package manager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/execx"
	"github.com/ParisNeo/pipmaster/pkg/pyenv"
	"github.com/ParisNeo/pipmaster/pkg/requirement"
)

// EventKind classifies reconciliation progress events.
type EventKind string

const (
	EventChecking     EventKind = "checking"
	EventSatisfied    EventKind = "satisfied"
	EventQueued       EventKind = "queued"
	EventInstalling   EventKind = "installing"
	EventWouldInstall EventKind = "would_install"
	EventInstalled    EventKind = "installed"
	EventFailed       EventKind = "failed"
)

// Event is one progress notification from Ensure, keyed by package name.
// Events arrive in plan order on the goroutine running Ensure.
type Event struct {
	Kind   EventKind
	Name   string
	Detail string
}

// EnsureOptions tunes one reconciliation run.
type EnsureOptions struct {
	// AlwaysUpdate puts satisfied plain requirements into the batch anyway
	// so everything moves to its newest allowed version.
	AlwaysUpdate bool
	// DryRun plans and reports every invocation without executing any.
	DryRun bool
	// Verbose streams pip output live.
	Verbose bool
	// IndexURL applies to the batched install. Per-requirement index URLs
	// override it and run as separate invocations.
	IndexURL string
	// ExtraArgs are appended to every install invocation.
	ExtraArgs []string
	// Observer receives progress events when non-nil.
	Observer func(Event)
}

// Outcome records one executed (or, under dry run, simulated) invocation.
type Outcome struct {
	// Names lists the requirement names the invocation covers.
	Names []string
	// Argv is the full command as run, including --dry-run under dry run.
	Argv []string
	// VCS marks individual source installs.
	VCS bool
	// Result is the captured execution result. Dry runs report success.
	Result execx.Result
}

// Report is the outcome of one Ensure run.
type Report struct {
	RunID     string
	DryRun    bool
	Satisfied []string
	Outcomes  []Outcome
}

// Success reports whether every issued invocation succeeded. A run with no
// invocations is a success.
func (r *Report) Success() bool {
	for _, o := range r.Outcomes {
		if !o.Result.Success() {
			return false
		}
	}
	return true
}

// Failed returns the names covered by failed invocations, in plan order.
func (r *Report) Failed() []string {
	var names []string
	for _, o := range r.Outcomes {
		if !o.Result.Success() {
			names = append(names, o.Names...)
		}
	}
	return names
}

// invocation is one planned pip command, not yet executed.
type invocation struct {
	names []string
	args  []string
	vcs   bool
}

// Ensure reconciles the desired requirements against the environment's
// installed state. Plain requirements needing action are installed in a
// single batched invocation; VCS requirements and per-requirement index
// overrides run individually afterwards. Already-satisfied requirements are
// not touched, so a second run over the same input performs no work.
//
// Failures are isolated: a failed batch does not stop the individual
// installs and vice versa. The report captures every result; fatal errors
// do not occur here because the environment was resolved at construction.
func (m *Manager) Ensure(ctx context.Context, items []requirement.Item, opts EnsureOptions) *Report {
	runID := uuid.NewString()
	log := m.log.With().Str("run_id", runID).Logger()

	emit := func(e Event) {
		if opts.Observer != nil {
			opts.Observer(e)
		}
	}

	report := &Report{RunID: runID, DryRun: opts.DryRun}

	reqs := requirement.Normalize(items, log)
	if len(reqs) == 0 {
		log.Info().Msg("no requirements to reconcile")
		return report
	}

	batch, individual := m.plan(reqs, opts, log, emit, report)
	log.Info().
		Int("satisfied", len(report.Satisfied)).
		Int("batched", batchSize(batch)).
		Int("individual", len(individual)).
		Bool("dry_run", opts.DryRun).
		Msg("reconciliation plan ready")

	if batch != nil {
		report.Outcomes = append(report.Outcomes, m.run(ctx, *batch, opts, log, emit))
	}
	for _, inv := range individual {
		report.Outcomes = append(report.Outcomes, m.run(ctx, inv, opts, log, emit))
	}

	if report.Success() {
		log.Info().Msg("reconciliation complete")
	} else {
		log.Error().Strs("failed", report.Failed()).Msg("reconciliation finished with failures")
	}
	return report
}

// EnsureStrings is Ensure over plain requirement lines.
func (m *Manager) EnsureStrings(ctx context.Context, lines []string, opts EnsureOptions) *Report {
	return m.Ensure(ctx, requirement.FromStrings(lines), opts)
}

// plan walks the normalized requirements in order and splits them into one
// optional batch plus individual invocations. Satisfied names land in the
// report directly.
func (m *Manager) plan(reqs []requirement.Requirement, opts EnsureOptions, log zerolog.Logger, emit func(Event), report *Report) (*invocation, []invocation) {
	inspector := pyenv.NewInspector(m.env, log)

	var batched []string
	var batchNames []string
	var individual []invocation

	for _, req := range reqs {
		emit(Event{Kind: EventChecking, Name: req.Name})
		state := inspector.Lookup(req.Name)

		if req.IsVCS() {
			if m.vcsConditionMet(req, state, log) {
				log.Info().
					Str("package", req.Name).
					Str("version", state.Version).
					Msg("version condition met, skipping source install")
				report.Satisfied = append(report.Satisfied, req.Name)
				emit(Event{Kind: EventSatisfied, Name: req.Name, Detail: state.Version})
				continue
			}
			individual = append(individual, invocation{
				names: []string{req.Name},
				args:  installArgs(opts, "", req.VCSURL),
				vcs:   true,
			})
			emit(Event{Kind: EventQueued, Name: req.Name, Detail: "source install"})
			continue
		}

		if m.plainSatisfied(req, state, log) && !opts.AlwaysUpdate {
			log.Info().
				Str("package", req.Name).
				Str("version", state.Version).
				Msg("requirement satisfied")
			report.Satisfied = append(report.Satisfied, req.Name)
			emit(Event{Kind: EventSatisfied, Name: req.Name, Detail: state.Version})
			continue
		}

		if req.IndexURL != "" && req.IndexURL != opts.IndexURL {
			individual = append(individual, invocation{
				names: []string{req.Name},
				args:  installArgs(opts, req.IndexURL, req.InstallTarget()),
			})
			emit(Event{Kind: EventQueued, Name: req.Name, Detail: "custom index"})
			continue
		}

		batched = append(batched, req.InstallTarget())
		batchNames = append(batchNames, req.Name)
		emit(Event{Kind: EventQueued, Name: req.Name})
	}

	if len(batched) == 0 {
		return nil, individual
	}
	return &invocation{
		names: batchNames,
		args:  installArgs(opts, opts.IndexURL, batched...),
	}, individual
}

// vcsConditionMet evaluates a conditional VCS record against installed
// state. An unreadable condition or installed version counts as unmet, so
// the source install still happens.
func (m *Manager) vcsConditionMet(req requirement.Requirement, state pyenv.InstalledState, log zerolog.Logger) bool {
	if !state.Installed {
		return false
	}
	met, err := requirement.Satisfies(state.Version, req.Condition)
	if err != nil {
		log.Warn().
			Err(err).
			Str("package", req.Name).
			Msg("cannot evaluate version condition, installing from source")
		return false
	}
	return met
}

// plainSatisfied reports whether an index requirement needs no action.
// Normalization already rejected malformed specifiers, so errors here mean
// the installed metadata is unreadable and the package gets reinstalled.
func (m *Manager) plainSatisfied(req requirement.Requirement, state pyenv.InstalledState, log zerolog.Logger) bool {
	if !state.Installed {
		return false
	}
	met, err := requirement.Satisfies(state.Version, req.Specifier)
	if err != nil {
		log.Warn().
			Err(err).
			Str("package", req.Name).
			Str("installed", state.Version).
			Msg("cannot read installed version, reinstalling")
		return false
	}
	return met
}

// installArgs builds the argument list for an ensure install invocation.
func installArgs(opts EnsureOptions, indexURL string, targets ...string) []string {
	args := []string{"install", "--upgrade"}
	if indexURL != "" {
		args = append(args, "--index-url", indexURL)
	}
	args = append(args, opts.ExtraArgs...)
	return append(args, targets...)
}

// run executes one planned invocation and reports per-name events.
func (m *Manager) run(ctx context.Context, inv invocation, opts EnsureOptions, log zerolog.Logger, emit func(Event)) Outcome {
	shown := inv.args
	kind := EventInstalling
	if opts.DryRun {
		shown = dryRunArgs(inv.args)
		kind = EventWouldInstall
	}
	for _, name := range inv.names {
		emit(Event{Kind: kind, Name: name})
	}

	outcome := Outcome{
		Names:  inv.names,
		Argv:   m.env.PipArgv(shown...),
		VCS:    inv.vcs,
		Result: m.invoke(ctx, log, inv.args, opts.DryRun, opts.Verbose),
	}
	if opts.DryRun {
		return outcome
	}

	if outcome.Result.Success() {
		for _, name := range inv.names {
			emit(Event{Kind: EventInstalled, Name: name})
		}
	} else {
		detail := fmt.Sprintf("exit code %d", outcome.Result.ExitCode)
		for _, name := range inv.names {
			emit(Event{Kind: EventFailed, Name: name, Detail: detail})
		}
	}
	return outcome
}

func batchSize(inv *invocation) int {
	if inv == nil {
		return 0
	}
	return len(inv.names)
}
