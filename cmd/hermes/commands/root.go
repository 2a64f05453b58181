package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lazuli-inc/hermes"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "hermes extracts health plan data from the ANS dashboards.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the extractor and starts it; the caller must Stop it.
func newApp() *hermes.Extractor {
	app := hermes.NewExtractor("")
	app.Start()
	return app
}

func renderTable(t *hermes.Table) {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	w.AppendHeader(header)

	for _, values := range t.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = v.String()
		}
		w.AppendRow(row)
	}

	w.SetStyle(table.StyleRounded)
	w.Render()
}

func renderRecord(record map[string]interface{}, columns []string) {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"Field", "Value"})
	for _, c := range columns {
		w.AppendRow(table.Row{c, record[c]})
	}
	w.SetStyle(table.StyleRounded)
	w.Render()
}
