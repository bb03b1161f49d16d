package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photomesh/internal/hardware"
	"photomesh/internal/logging"
	"photomesh/internal/toolchain"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report toolchain location and accelerator capability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			env, err := toolchain.Resolve(cfg.Toolchain.SearchRoot)
			if err != nil {
				fmt.Fprintf(out, "Toolchain: not found (%v)\n", err)
			} else {
				fmt.Fprintf(out, "Toolchain:       %s\n", env.RootDir)
				fmt.Fprintf(out, "Sensor database: %s\n", env.SensorDatabase)
			}

			capability := hardware.Probe(cmd.Context(), logging.NewNop())
			mode := "CPU fallback"
			if capability.CUDA {
				mode = "CUDA"
			}
			fmt.Fprintf(out, "Accelerator:     %s (%s)\n", mode, capability.Detail)
			return nil
		},
	}
}
