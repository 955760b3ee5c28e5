package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and model status",
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		status, err := engine.Status()
		if err != nil {
			return err
		}

		info := engine.ModelInfo()
		return newFormatter().Status(status, info.ChatModel, info.BaseURL)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
