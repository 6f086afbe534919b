package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"promap/internal/config"
	"promap/internal/logging"
	"promap/internal/logs"
	"promap/internal/sample"
	"promap/internal/stages"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [sample [stage]]",
		Short: "Print the run log or a sample's stage log",
		Long: "Without arguments logs prints the run log. With a sample it prints the\n" +
			"log of the last stage that ran for that sample, or of the named stage.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := ctx.loadConfig(nil)
			if err != nil {
				return err
			}
			path, err := resolveLogPath(cfg, args)
			if err != nil {
				return err
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, logs.DefaultPoll, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	return cmd
}

func resolveLogPath(cfg *config.Config, args []string) (string, error) {
	if len(args) == 0 {
		return filepath.Join(cfg.LogDir, logging.RunLogName), nil
	}
	s, err := sample.New(filepath.Join(cfg.ReadsDir, args[0]+sample.ReadsSuffix), cfg.LogDir)
	if err != nil {
		return "", err
	}
	if len(args) == 2 {
		st, ok := stages.ByName(args[1])
		if !ok {
			return "", fmt.Errorf("unknown stage %q (see promap stages)", args[1])
		}
		return st.LogPath(s), nil
	}

	pipeline := stages.Pipeline()
	for i := len(pipeline) - 1; i >= 0; i-- {
		path := pipeline[i].LogPath(s)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no stage logs for sample %q in %s", s.Prefix, s.LogDir)
}
