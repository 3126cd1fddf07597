package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
)

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the detection rules",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Category", "Level", "Title", "Description"})

			for _, rule := range smell.Rules() {
				tw.AppendRow(table.Row{rule.Category, rule.Level, rule.Title, rule.Description})
			}

			tw.Render()
		},
	}
}
