package cli

import (
	"github.com/spf13/cobra"

	"streamsight/internal/app"
)

var runInput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analytics pipeline over a transaction log",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			InputPath: runInput,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Override input file defined in config")
}
