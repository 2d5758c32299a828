package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/manager"
)

type installFlags struct {
	requirements   string
	editable       string
	indexURL       string
	upgrade        bool
	forceReinstall bool
	ifMissing      bool
	alwaysUpdate   bool
}

func newInstallCmd(root *rootFlags) *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install [packages...] [-- pip args...]",
		Short: "Install packages into the target environment",
		Long: `Install packages, a requirements file, or an editable project.

Arguments after "--" are passed to pip verbatim. With --if-missing each
package is checked first and only installed when absent or when its
version specifier is not satisfied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			packages, extra := splitDashArgs(cmd, args)
			if len(packages) == 0 && flags.requirements == "" && flags.editable == "" {
				return errors.NewValidationError("packages", "nothing to install: give packages, --requirements, or --editable", nil)
			}

			log, err := newLogger(root)
			if err != nil {
				return err
			}
			mgr, err := newManager(cmd.Context(), root, log)
			if err != nil {
				return err
			}

			opts := manager.InstallOptions{
				IndexURL:       flags.indexURL,
				Upgrade:        flags.upgrade,
				ForceReinstall: flags.forceReinstall,
				ExtraArgs:      extra,
				DryRun:         root.dryRun,
				Verbose:        root.verbose,
			}

			ctx := cmd.Context()
			if flags.requirements != "" {
				if err := mgr.InstallRequirements(ctx, flags.requirements, opts); err != nil {
					return err
				}
			}
			if flags.editable != "" {
				if err := mgr.InstallEditable(ctx, flags.editable, opts); err != nil {
					return err
				}
			}
			if len(packages) == 0 {
				return nil
			}

			if flags.ifMissing {
				return installIfMissing(ctx, mgr, packages, flags, extra, root)
			}
			return mgr.InstallMultiple(ctx, packages, opts)
		},
	}

	cmd.Flags().StringVarP(&flags.requirements, "requirements", "r", "", "Install from the given requirements file")
	cmd.Flags().StringVarP(&flags.editable, "editable", "e", "", "Install a project in editable mode from the given path")
	cmd.Flags().StringVarP(&flags.indexURL, "index-url", "i", "", "Base URL of the package index")
	cmd.Flags().BoolVarP(&flags.upgrade, "upgrade", "U", false, "Upgrade packages to the newest available version")
	cmd.Flags().BoolVar(&flags.forceReinstall, "force-reinstall", false, "Reinstall packages even when already up to date")
	cmd.Flags().BoolVar(&flags.ifMissing, "if-missing", false, "Install only packages that are absent or fail their specifier")
	cmd.Flags().BoolVar(&flags.alwaysUpdate, "always-update", false, "With --if-missing, upgrade packages that are already satisfied")

	return cmd
}

// installIfMissing checks each package before installing so satisfied
// requirements are left alone. Failures stop at the first package.
func installIfMissing(ctx context.Context, mgr *manager.Manager, packages []string, flags *installFlags, extra []string, root *rootFlags) error {
	for _, pkg := range packages {
		opts := manager.InstallIfMissingOptions{
			AlwaysUpdate: flags.alwaysUpdate,
			IndexURL:     flags.indexURL,
			ExtraArgs:    extra,
			DryRun:       root.dryRun,
			Verbose:      root.verbose,
		}
		if err := mgr.InstallIfMissing(ctx, pkg, opts); err != nil {
			return err
		}
	}
	return nil
}
