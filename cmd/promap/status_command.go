package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"promap/internal/config"
	"promap/internal/journal"
	"promap/internal/stages"
	"promap/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [config-file]",
		Short: "Show which stage outputs exist for each sample",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := ctx.loadConfig(args)
			if err != nil {
				return err
			}
			samples, err := workflow.Inspect(cfg, stages.Pipeline())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			history, lastRun, err := readJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if lastRun != nil {
				line := fmt.Sprintf("Last run %s: %s (started %s)", lastRun.ID, lastRun.Status, lastRun.StartedAt.Local().Format(time.DateTime))
				if lastRun.ErrorMessage != "" {
					line += ": " + lastRun.ErrorMessage
				}
				fmt.Fprintln(out, line)
			}
			if len(samples) == 0 {
				fmt.Fprintf(out, "No *.fastq.gz files in %s\n", cfg.ReadsDir)
				return nil
			}

			var rows [][]string
			for _, smp := range samples {
				for _, st := range smp.Stages {
					outcome := "-"
					if ev, ok := history[journal.Key{Sample: smp.Prefix, Stage: st.Stage}]; ok {
						outcome = ev.Outcome
					}
					size := "-"
					if st.Size > 0 {
						size = humanize.Bytes(uint64(st.Size))
					}
					rows = append(rows, []string{smp.Prefix, strconv.Itoa(st.Ordinal), st.Stage, yesNo(st.Present), size, outcome})
				}
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "Sample"},
				{header: "#", align: alignRight},
				{header: "Stage"},
				{header: "Output"},
				{header: "Size", align: alignRight},
				{header: "Last outcome"},
			}, rows))
			return nil
		},
	}
}

// readJournal returns nothing when no run has created the journal yet.
func readJournal(ctx context.Context, cfg *config.Config) (map[journal.Key]journal.StageEvent, *journal.Run, error) {
	path := filepath.Join(cfg.LogDir, journal.FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	history, err := j.LatestOutcomes(ctx)
	if err != nil {
		return nil, nil, err
	}
	lastRun, err := j.LatestRun(ctx)
	if err != nil {
		return nil, nil, err
	}
	return history, lastRun, nil
}
