package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vidasPublish *bool

func init() {
	vidasPublish = vidasCmd.Flags().Bool("publish", false, "Export the merged table and send it to the configured sinks.")
	rootCmd.AddCommand(vidasCmd)
}

var vidasCmd = &cobra.Command{
	Use:   "vidas [entity codes...]",
	Short: "Extracts beneficiaries per entity from the Pentaho analysis UI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Stop()

		entities := args
		if len(entities) == 0 {
			entities = app.EntityCodes()
		}
		out, err := app.VidasOperadora(cmd.Context(), entities)
		if err != nil {
			return err
		}
		renderTable(out.Table)
		fmt.Printf("%d rows, cube %q\n", out.Table.Len(), out.Cube)

		if *vidasPublish {
			return app.Publish(cmd.Context(), app.VidasPublication(out))
		}
		return nil
	},
}
