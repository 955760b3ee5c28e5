package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rageddy/internal/format"
)

var pullCmd = &cobra.Command{
	Use:   "pull [url|owner/repo/file.gguf]",
	Short: "Download a GGUF model",
	Long: `Download a model file into the models directory. With no argument the
configured default model is pulled. Accepts a full URL or a HuggingFace
owner/repo/file.gguf reference.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(_ *cobra.Command, args []string) error {
	engine, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := engine.PullModel(ctx, ref, func(downloaded, total int64) {
		if total > 0 {
			fmt.Printf("\r%s / %s (%.1f%%)   ", format.FormatBytes(downloaded), format.FormatBytes(total),
				float64(downloaded)/float64(total)*100)
		} else {
			fmt.Printf("\r%s downloaded   ", format.FormatBytes(downloaded))
		}
	})
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Println("Model ready at", path)
	return nil
}
