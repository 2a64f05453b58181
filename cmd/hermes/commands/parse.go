package commands

import (
	"github.com/lazuli-inc/hermes"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.html>",
	Short: "Parses a saved result table the way a live run would.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := hermes.ParseTableFile(args[0], hermes.BrazilianNumbers)
		if err != nil {
			return err
		}
		renderTable(hermes.ForwardFill(t))
		return nil
	},
}
