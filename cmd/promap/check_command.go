package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"promap/internal/config"
	"promap/internal/deps"
	"promap/internal/preflight"
	"promap/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [config-file]",
		Short: "Report tool availability and directory readiness",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := ctx.loadConfig(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			source := "defaults (no config file found)"
			if exists {
				source = path
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, source, colorize))
			fmt.Fprintln(out)

			statuses := deps.CheckBinaries(deps.PipelineRequirements())
			printDependencySection(out, statuses, colorize)
			fmt.Fprintln(out)
			printDirectorySection(out, preflight.RunAll(cfg), colorize)
			fmt.Fprintln(out)
			printReferenceSection(out, cfg, colorize)

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return &services.MissingDependencyError{Missing: missing}
			}
			return nil
		},
	}
}

func printDependencySection(out io.Writer, statuses []deps.Status, colorize bool) {
	for _, line := range renderSectionHeader("Tools", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, status := range statuses {
		switch {
		case status.Available:
			fmt.Fprintln(out, renderStatusLine(status.Command, statusOK, status.Path, colorize))
		case status.Optional:
			fmt.Fprintln(out, renderStatusLine(status.Command, statusWarn, status.Detail, colorize))
		default:
			detail := fmt.Sprintf("%s; needed by %s", status.Detail, strings.Join(status.Stages, ", "))
			fmt.Fprintln(out, renderStatusLine(status.Command, statusError, detail, colorize))
		}
	}
}

func printDirectorySection(out io.Writer, results []preflight.Result, colorize bool) {
	for _, line := range renderSectionHeader("Directories", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
}

func printReferenceSection(out io.Writer, cfg *config.Config, colorize bool) {
	for _, line := range renderSectionHeader("References", colorize) {
		fmt.Fprintln(out, line)
	}
	missing := map[string]bool{}
	for _, key := range cfg.MissingReferences() {
		missing[key] = true
	}
	for _, key := range []string{"bowtie_genome_prefix", "bowtie_rdna_prefix"} {
		if missing[key] {
			fmt.Fprintln(out, renderStatusLine(key, statusWarn, "not set; alignment stages will fail", colorize))
			continue
		}
		value, _ := cfg.Lookup(key)
		fmt.Fprintln(out, renderStatusLine(key, statusOK, value, colorize))
	}
}
