package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"promap/internal/stage"
	"promap/internal/stages"
)

func newStagesCommand() *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List the stage chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline := stages.Pipeline()
			if dot {
				return stage.WriteDOT(cmd.OutOrStdout(), pipeline)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStageTable(pipeline))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "Print the chain as a Graphviz DOT graph")
	return cmd
}

func renderStageTable(pipeline []stage.Stage) string {
	caser := cases.Title(language.English)
	rows := make([][]string, 0, len(pipeline))
	for _, st := range pipeline {
		rows = append(rows, []string{
			strconv.Itoa(st.Ordinal),
			caser.String(strings.ReplaceAll(st.Name, "_", " ")),
			strings.Join(st.Tools, ", "),
			st.Consumes.String() + " → " + st.Produces.String(),
			st.LogName(),
			yesNo(st.Finalize != nil),
		})
	}
	return renderTable([]column{
		{header: "#", align: alignRight},
		{header: "Stage"},
		{header: "Tools"},
		{header: "Roles"},
		{header: "Log"},
		{header: "Post-process"},
	}, rows)
}
