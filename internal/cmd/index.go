package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var flagRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the archive folder",
	Long: `Load every supported document from the archive folder, index it for
search and generate embeddings. Use --rebuild to drop the existing
index and start over.`,
	RunE: runIndex,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Index new and changed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd, args)
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate embeddings for pending documents",
	RunE:  runEmbed,
}

func init() {
	indexCmd.Flags().BoolVar(&flagRebuild, "rebuild", false, "drop the index and re-index everything")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(embedCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	engine, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild := flagRebuild && cmd.Name() == "index"
	report, err := engine.IndexArchive(ctx, rebuild)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d, unchanged %d, embedded %d, skipped %d.\n",
		report.Indexed, report.Unchanged, report.Embedded, report.Skipped)
	for _, e := range report.Errors {
		fmt.Fprintln(os.Stderr, "Warning:", e)
	}
	return nil
}

func runEmbed(_ *cobra.Command, _ []string) error {
	engine, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := engine.GenerateEmbeddings(ctx, func(done, total int) {
		fmt.Printf("\rEmbedding %d/%d", done, total)
	})
	if n > 0 {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	if n == 0 {
		fmt.Println("Nothing to embed.")
	} else {
		fmt.Printf("Embedded %d documents.\n", n)
	}
	return nil
}
