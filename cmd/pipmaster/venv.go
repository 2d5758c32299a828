package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/execx"
	"github.com/ParisNeo/pipmaster/pkg/manager"
	"github.com/ParisNeo/pipmaster/pkg/pyenv"
)

type venvFlags struct {
	pythonVersion string
	uv            bool
}

func newVenvCmd(root *rootFlags) *cobra.Command {
	flags := &venvFlags{}

	cmd := &cobra.Command{
		Use:   "venv <path>",
		Short: "Create a virtual environment",
		Long: `Create a virtual environment at the given path and print its
interpreter. By default the ambient Python's venv module is used; with
--uv the environment is created by uv, which can also pin a Python
version and download it when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(root)
			if err != nil {
				return err
			}

			if flags.uv {
				uvm, err := manager.NewUv(log.Zerolog())
				if err != nil {
					return err
				}
				if err := uvm.CreateEnv(cmd.Context(), args[0], flags.pythonVersion); err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, pyenv.VenvPython(args[0]))
				return nil
			}

			if flags.pythonVersion != "" {
				return errors.NewValidationError("python-version", "--python-version needs --uv", nil)
			}
			env, err := pyenv.CreateVenv(cmd.Context(), args[0], execx.Local{}, log.Zerolog())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, env.Python)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.pythonVersion, "python-version", "", "Python version for the environment, uv only")
	cmd.Flags().BoolVar(&flags.uv, "uv", false, "Create the environment with uv instead of the venv module")

	return cmd
}
