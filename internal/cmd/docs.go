package cmd

import (
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List archive files and their index status",
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		files, err := engine.ListArchive()
		if err != nil {
			return err
		}
		return newFormatter().ArchiveFiles(files)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <path|hash|id>",
	Short: "Show an indexed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		doc, err := engine.Store().GetDocument(args[0])
		if err != nil {
			return err
		}
		return newFormatter().Document(doc)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path|hash|id>",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, err := getEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		return engine.Store().DeleteDocument(args[0])
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(rmCmd)
}
