package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runsJob   *string
	runsLimit *int
)

func init() {
	runsJob = runsCmd.Flags().String("job", "", "Only list runs of this job (vidas, igr).")
	runsLimit = runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--job <name>] [--limit <n>]",
	Short: "Lists published runs from the configured store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Stop()

		records, err := app.RecentRuns(cmd.Context(), *runsJob, *runsLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Run", "Job", "Cube", "Rows", "Entities", "Started", "Took"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.ID,
				r.Job,
				r.Cube,
				r.Rows,
				fmt.Sprint(r.Entities),
				r.StartedAt.Format(time.DateTime),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
