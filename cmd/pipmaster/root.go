package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
	dryRun  bool
	python  string
	venv    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "pipmaster",
		Short: "pipmaster reconciles Python package installations",
		Long: `pipmaster drives pip and uv against a target Python environment.

The ensure command reconciles a desired package set (a manifest, a
requirements file, or inline requirements) against what is installed:
satisfied requirements are skipped, plain installs are batched into one
pip invocation, and VCS requirements run individually.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Stream pip output and enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Log commands without executing them")
	cmd.PersistentFlags().StringVar(&flags.python, "python", "", "Path to the Python interpreter to target")
	cmd.PersistentFlags().StringVar(&flags.venv, "venv", "", "Virtual environment to target, created when missing")

	cmd.AddCommand(newInstallCmd(flags))
	cmd.AddCommand(newUninstallCmd(flags))
	cmd.AddCommand(newEnsureCmd(flags))
	cmd.AddCommand(newShowCmd(flags))
	cmd.AddCommand(newAuditCmd(flags))
	cmd.AddCommand(newVenvCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// splitDashArgs separates positional arguments from raw pip arguments
// passed after "--".
func splitDashArgs(cmd *cobra.Command, args []string) (positional, extra []string) {
	at := cmd.ArgsLenAtDash()
	if at < 0 {
		return args, nil
	}
	return args[:at], args[at:]
}
