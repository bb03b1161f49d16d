package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photomesh/internal/hardware"
	"photomesh/internal/logging"
	"photomesh/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the environment and external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			checks := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(checks))
			for _, check := range checks {
				rows = append(rows, []string{check.Name, passMark(check.Passed), check.Detail})
			}
			fmt.Fprintln(out, "Environment:")
			fmt.Fprintln(out, renderTable([]string{"Check", "OK", "Detail"}, rows, nil))

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				detail := status.Detail
				if detail == "" {
					detail = status.Description
				}
				name := status.Name
				if status.Optional {
					name += " (optional)"
				}
				depRows = append(depRows, []string{name, passMark(status.Available), detail})
			}
			fmt.Fprintln(out, "Dependencies:")
			fmt.Fprintln(out, renderTable([]string{"Binary", "OK", "Detail"}, depRows, nil))

			capability := hardware.Probe(cmd.Context(), logging.NewNop())
			fmt.Fprintf(out, "Accelerator: %s\n", capability.Detail)
			return nil
		},
	}
}

func passMark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
