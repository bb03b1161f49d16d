package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photomesh/internal/runlog"
)

var stageTitle = cases.Title(language.English)

// stageLabel turns a stage identifier into a display label, e.g.
// "structure_from_motion" into "Structure From Motion".
func stageLabel(stage string) string {
	return stageTitle.String(strings.ReplaceAll(stage, "_", " "))
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(ctx, func(ledger *runlog.Store) error {
				runs, err := ledger.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					detail := run.ResultKey
					if run.Status == runlog.StatusFailed {
						detail = run.ErrorKind
					}
					rows = append(rows, []string{
						run.ID,
						run.SourceBucket + "/" + run.SourceKey,
						run.Status,
						detail,
						run.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(),
					renderTable([]string{"Run", "Source", "Status", "Result", "Started"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")

	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its stage history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(ctx, func(ledger *runlog.Store) error {
				run, err := ledger.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:    %s\n", run.ID)
				fmt.Fprintf(out, "Source: %s/%s\n", run.SourceBucket, run.SourceKey)
				fmt.Fprintf(out, "Status: %s\n", run.Status)
				if run.ResultKey != "" {
					fmt.Fprintf(out, "Result: %s/%s\n", run.DestBucket, run.ResultKey)
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:  [%s] %s\n", run.ErrorKind, run.ErrorMessage)
				}

				stages, err := ledger.Stages(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if len(stages) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(stages))
				for _, stage := range stages {
					elapsed := ""
					if !stage.FinishedAt.IsZero() {
						elapsed = stage.FinishedAt.Sub(stage.StartedAt).Round(time.Millisecond).String()
					}
					rows = append(rows, []string{
						stageLabel(stage.Stage),
						stage.Status,
						elapsed,
						stage.ErrorMessage,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Stage", "Status", "Elapsed", "Error"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
}

// withLedger opens the run ledger directly so history stays readable even
// when storage is misconfigured.
func withLedger(ctx *commandContext, fn func(*runlog.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	ledger, err := runlog.Open(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()
	return fn(ledger)
}
