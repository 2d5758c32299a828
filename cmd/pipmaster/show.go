package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <package>",
		Short: "Show pip metadata for an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(root)
			if err != nil {
				return err
			}
			mgr, err := newManager(cmd.Context(), root, log)
			if err != nil {
				return err
			}

			info, err := mgr.PackageInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, strings.TrimRight(info, "\n"))
			return nil
		},
	}

	return cmd
}
