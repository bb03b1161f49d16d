package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photomesh/internal/config"
	"photomesh/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sourceBucket, sourceKey, destBucket string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one batch job end to end",
		Long: "Fetches the source object, reconstructs a mesh from it, cleans the mesh, " +
			"and uploads the printable result. Job parameters come from " +
			config.EnvSourceBucket + ", " + config.EnvSourceKey + ", and " + config.EnvDestBucket +
			"; flags override the environment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			job := config.JobFromEnv()
			if v := strings.TrimSpace(sourceBucket); v != "" {
				job.SourceBucket = v
			}
			if v := strings.TrimSpace(sourceKey); v != "" {
				job.SourceKey = v
			}
			if v := strings.TrimSpace(destBucket); v != "" {
				job.DestBucket = v
			}

			p, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx, cancel := signalContext()
			defer cancel()

			outcome, err := p.Run(runCtx, job)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s complete in %s\n", outcome.RunID, outcome.Elapsed.Round(time.Second))
			fmt.Fprintf(out, "Published %s/%s (%d input images)\n", job.DestBucket, outcome.ResultKey, outcome.ImageCount)
			if !outcome.Cleaned {
				fmt.Fprintln(out, "Mesh cleanup was skipped; the raw reconstruction was published")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceBucket, "source-bucket", "", "Bucket holding the input object")
	cmd.Flags().StringVar(&sourceKey, "source-key", "", "Key of the input archive or video")
	cmd.Flags().StringVar(&destBucket, "dest-bucket", "", "Bucket receiving the printable mesh")
	return cmd
}
