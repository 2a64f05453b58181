package commands

import (
	"fmt"
	"time"

	"github.com/lazuli-inc/hermes"
	"github.com/spf13/cobra"
)

var igrPublish *bool

func init() {
	igrPublish = pbiIGRCmd.Flags().Bool("publish", false, "Export the IGR table and send it to the configured sinks.")
	pbiCmd.AddCommand(pbiDateCmd, pbiIGRCmd, pbiSampleCmd)
	rootCmd.AddCommand(pbiCmd)
}

var pbiCmd = &cobra.Command{
	Use:   "pbi",
	Short: "Queries the public Power BI complaints report.",
}

var pbiDateCmd = &cobra.Command{
	Use:   "date",
	Short: "Prints the report's last update date.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Stop()

		pbi, err := app.PBI()
		if err != nil {
			return err
		}
		updated := pbi.LastUpdated(cmd.Context())
		if updated == nil {
			return fmt.Errorf("last update date unavailable")
		}
		fmt.Println(updated)
		return nil
	},
}

var pbiIGRCmd = &cobra.Command{
	Use:   "igr",
	Short: "Collects the IGR table for every month, size and plan type.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Stop()

		started := time.Now()
		pbi, err := app.PBI()
		if err != nil {
			return err
		}
		t := pbi.IGR(cmd.Context(), hermes.DefaultIGRQuery())
		if t == nil {
			return fmt.Errorf("no IGR rows collected")
		}
		renderTable(t)

		if *igrPublish {
			return app.Publish(cmd.Context(), app.IGRPublication(t, started))
		}
		return nil
	},
}

var pbiSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Prints one IGR record of January, large operators, medical plans.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Stop()

		pbi, err := app.PBI()
		if err != nil {
			return err
		}
		record := pbi.SampleIGR(cmd.Context())
		if record == nil {
			return fmt.Errorf("no sample record")
		}
		renderRecord(record, hermes.IGRColumns())
		return nil
	},
}
