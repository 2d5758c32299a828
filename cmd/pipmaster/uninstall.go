package main

import (
	"github.com/spf13/cobra"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/manager"
)

func newUninstallCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <packages...> [-- pip args...]",
		Short: "Remove packages from the target environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			packages, extra := splitDashArgs(cmd, args)
			if len(packages) == 0 {
				return errors.NewValidationError("packages", "nothing to uninstall", nil)
			}

			log, err := newLogger(root)
			if err != nil {
				return err
			}
			mgr, err := newManager(cmd.Context(), root, log)
			if err != nil {
				return err
			}

			return mgr.UninstallMultiple(cmd.Context(), packages, manager.UninstallOptions{
				ExtraArgs: extra,
				DryRun:    root.dryRun,
				Verbose:   root.verbose,
			})
		},
	}

	return cmd
}
