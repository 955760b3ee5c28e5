package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var flagLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search over the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		results, err := engine.Search(strings.Join(args, " "), flagLimit)
		if err != nil {
			return err
		}
		return newFormatter().SearchResults(results)
	},
}

var vsearchCmd = &cobra.Command{
	Use:   "vsearch <query>",
	Short: "Semantic search over the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		results, err := engine.VectorSearch(context.Background(), strings.Join(args, " "), flagLimit)
		if err != nil {
			return err
		}
		return newFormatter().SearchResults(results)
	},
}

func init() {
	searchCmd.Flags().IntVarP(&flagLimit, "limit", "n", 10, "maximum results")
	vsearchCmd.Flags().IntVarP(&flagLimit, "limit", "n", 10, "maximum results")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(vsearchCmd)
}
