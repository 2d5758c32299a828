package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ParisNeo/pipmaster/internal/logger"
	"github.com/ParisNeo/pipmaster/internal/tui"
	"github.com/ParisNeo/pipmaster/internal/watch"
	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/manager"
	"github.com/ParisNeo/pipmaster/pkg/manifest"
	"github.com/ParisNeo/pipmaster/pkg/requirement"
)

type ensureFlags struct {
	manifestPath string
	requirements string
	indexURL     string
	alwaysUpdate bool
	watch        bool
	debounce     time.Duration
}

func newEnsureCmd(root *rootFlags) *cobra.Command {
	flags := &ensureFlags{}

	cmd := &cobra.Command{
		Use:   "ensure [requirements...] [-- pip args...]",
		Short: "Reconcile the environment against a desired package set",
		Long: `Reconcile installed packages against a desired set.

The desired set comes from a manifest (--file), a requirements file
(--requirements), inline requirement strings, or any combination.
Satisfied requirements are skipped, plain installs are batched into a
single pip invocation, and VCS requirements run individually. With
--watch the command keeps running and reconciles again whenever the
watched file changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inline, extra := splitDashArgs(cmd, args)
			if flags.manifestPath == "" && flags.requirements == "" && len(inline) == 0 {
				return errors.NewValidationError("requirements", "nothing to reconcile: give requirements, --file, or --requirements", nil)
			}
			if flags.watch && flags.manifestPath == "" && flags.requirements == "" {
				return errors.NewValidationError("watch", "--watch needs a manifest or requirements file to watch", nil)
			}
			return runEnsure(cmd.Context(), root, flags, inline, extra)
		},
	}

	cmd.Flags().StringVarP(&flags.manifestPath, "file", "f", "", "Manifest file describing the desired package set")
	cmd.Flags().StringVarP(&flags.requirements, "requirements", "r", "", "Requirements file to reconcile")
	cmd.Flags().StringVarP(&flags.indexURL, "index-url", "i", "", "Base URL of the package index")
	cmd.Flags().BoolVar(&flags.alwaysUpdate, "always-update", false, "Upgrade requirements that are already satisfied")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Keep running and reconcile again on file changes")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "Delay before re-running after a change (watch mode)")

	return cmd
}

func runEnsure(ctx context.Context, root *rootFlags, flags *ensureFlags, inline, extra []string) error {
	log, err := newLogger(root)
	if err != nil {
		return err
	}

	var doc *manifest.Manifest
	if flags.manifestPath != "" {
		doc, err = manifest.Load(flags.manifestPath)
		if err != nil {
			return err
		}
	}

	// The manifest may pin its target environment. Flags win, and the
	// environment stays fixed for the lifetime of a watch session.
	target := *root
	if doc != nil {
		if target.python == "" && doc.Python != "" {
			target.python = doc.Python
		}
		if target.python == "" && target.venv == "" && doc.Venv != "" {
			target.venv = doc.Venv
		}
	}

	mgr, err := newManager(ctx, &target, log)
	if err != nil {
		return err
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd())) && !root.verbose && !flags.watch

	runOnce := func(ctx context.Context, doc *manifest.Manifest) error {
		items, err := gatherItems(flags, inline, doc, log)
		if err != nil {
			return err
		}
		opts := ensureOptions(root, flags, doc, extra)
		return reconcile(ctx, mgr, ensureTitle(flags, doc), items, opts, interactive)
	}

	if !flags.watch {
		return runOnce(ctx, doc)
	}

	rerun := func(ctx context.Context) error {
		fresh := doc
		if flags.manifestPath != "" {
			loaded, err := manifest.Load(flags.manifestPath)
			if err != nil {
				return err
			}
			fresh = loaded
		}
		return runOnce(ctx, fresh)
	}

	if err := rerun(ctx); err != nil {
		log.Error(err, "reconciliation failed, still watching for changes")
	}

	watched := flags.manifestPath
	if watched == "" {
		watched = flags.requirements
	}
	watcher, err := watch.New(watch.Config{
		Path:     watched,
		Debounce: flags.debounce,
		OnChange: rerun,
		Log:      log.Zerolog(),
	})
	if err != nil {
		return err
	}

	log.WithFields(map[string]any{"path": watched}).Info("watching for changes, press Ctrl-C to stop")
	return watcher.Run(ctx)
}

// gatherItems collects requirements from every configured source in a
// stable order: manifest entries, then requirements-file lines, then
// inline arguments.
func gatherItems(flags *ensureFlags, inline []string, doc *manifest.Manifest, log *logger.Logger) ([]requirement.Item, error) {
	var items []requirement.Item
	if doc != nil {
		items = append(items, doc.Items()...)
	}
	if flags.requirements != "" {
		fileItems, err := manifest.ParseRequirementsFile(flags.requirements, log.Zerolog())
		if err != nil {
			return nil, err
		}
		items = append(items, fileItems...)
	}
	for _, line := range inline {
		items = append(items, requirement.Line(line))
	}
	return items, nil
}

func ensureOptions(root *rootFlags, flags *ensureFlags, doc *manifest.Manifest, extra []string) manager.EnsureOptions {
	opts := manager.EnsureOptions{
		AlwaysUpdate: flags.alwaysUpdate,
		DryRun:       root.dryRun,
		Verbose:      root.verbose,
		IndexURL:     flags.indexURL,
		ExtraArgs:    extra,
	}
	if doc != nil {
		if opts.IndexURL == "" {
			opts.IndexURL = doc.IndexURL
		}
		opts.AlwaysUpdate = opts.AlwaysUpdate || doc.AlwaysUpdate
		if len(doc.ExtraArgs) > 0 {
			opts.ExtraArgs = append(append([]string{}, doc.ExtraArgs...), extra...)
		}
	}
	return opts
}

func ensureTitle(flags *ensureFlags, doc *manifest.Manifest) string {
	switch {
	case doc != nil && doc.Name != "":
		return doc.Name
	case flags.requirements != "":
		return filepath.Base(flags.requirements)
	default:
		return "requirements"
	}
}

func reconcile(ctx context.Context, mgr *manager.Manager, title string, items []requirement.Item, opts manager.EnsureOptions, interactive bool) error {
	modelState := tui.NewModel(title)

	var program *tea.Program
	var programErr error
	done := make(chan struct{})

	if interactive {
		program = tea.NewProgram(modelState)
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	}

	opts.Observer = func(ev manager.Event) {
		dispatchTuiMessage(interactive, program, &modelState, tui.EventMsg{Event: ev})
	}

	report := mgr.Ensure(ctx, items, opts)
	dispatchTuiMessage(interactive, program, &modelState, tui.DoneMsg{Report: report})

	if interactive {
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(os.Stdout, modelState.View())
	}

	if !report.Success() {
		return fmt.Errorf("failed to reconcile: %s", strings.Join(report.Failed(), ", "))
	}
	return nil
}

func dispatchTuiMessage(interactive bool, program *tea.Program, state *tui.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
		}
		return
	}

	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
