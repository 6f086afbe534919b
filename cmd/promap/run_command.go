package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promap/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [config-file]",
		Short: "Run every stage for every reads file",
		Long: "Run verifies that the required tools are installed, then processes each\n" +
			"*.fastq.gz file in reads_dir through the stage chain. Stages whose output\n" +
			"already exists are skipped, so an interrupted run resumes where it stopped.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := workflow.Run(cmd.Context(), workflow.Options{
				ConfigPath: ctx.configPath(args),
				LogLevel:   ctx.logLevel,
				LogFormat:  ctx.logFormat,
				Logger:     ctx.logger,
				Runner:     ctx.runner,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s complete: %d sample(s), %d stage(s) executed, %d skipped\n",
				summary.RunID, len(summary.Samples), summary.Executed(), summary.Skipped())
			return nil
		},
	}
}
