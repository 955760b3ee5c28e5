package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage document collections",
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <name> <path> [mask]",
	Short: "Register a folder as a collection",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		mask := "**/*"
		if len(args) == 3 {
			mask = args[2]
		}

		if err := engine.Store().AddCollection(args[0], args[1], mask); err != nil {
			return err
		}
		fmt.Printf("Collection %s -> %s (%s)\n", args[0], args[1], mask)
		return nil
	},
}

var collectionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List collections",
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		collections, err := engine.Store().ListCollections()
		if err != nil {
			return err
		}
		return newFormatter().Collections(collections)
	},
}

var collectionRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a collection and its documents from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		return engine.Store().RemoveCollection(args[0])
	},
}

func init() {
	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionLsCmd)
	collectionCmd.AddCommand(collectionRmCmd)
	rootCmd.AddCommand(collectionCmd)
}
