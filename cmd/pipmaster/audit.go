package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ParisNeo/pipmaster/pkg/audit"
	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/execx"
)

type auditFlags struct {
	requirements string
	failOpen     bool
	tool         string
}

func newAuditCmd(root *rootFlags) *cobra.Command {
	flags := &auditFlags{}

	cmd := &cobra.Command{
		Use:   "audit [-- audit args...]",
		Short: "Scan for known vulnerabilities with pip-audit",
		Long: `Run the vulnerability scanner against the active environment or a
requirements file. A failing scanner counts as vulnerabilities found
unless --fail-open is set. Arguments after "--" are passed to the
scanner verbatim.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, extra := splitDashArgs(cmd, args)
			if len(positional) > 0 {
				return errors.NewValidationError("args", fmt.Sprintf("unexpected argument %q, pass scanner arguments after --", positional[0]), nil)
			}

			log, err := newLogger(root)
			if err != nil {
				return err
			}

			found, report := audit.Check(cmd.Context(), execx.Local{}, audit.Options{
				Requirements: flags.requirements,
				FailOpen:     flags.failOpen,
				ExtraArgs:    extra,
				Tool:         flags.tool,
			}, log.Zerolog())

			if report != "" {
				fmt.Fprintln(os.Stdout, strings.TrimRight(report, "\n"))
			}
			if found {
				return fmt.Errorf("vulnerabilities found")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.requirements, "requirements", "r", "", "Audit the given requirements file instead of the environment")
	cmd.Flags().BoolVar(&flags.failOpen, "fail-open", false, "Report success when the scanner itself fails to run")
	cmd.Flags().StringVar(&flags.tool, "tool", audit.DefaultTool, "Scanner binary to run")

	return cmd
}
