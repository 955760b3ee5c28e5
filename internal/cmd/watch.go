package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rageddy/pkg/rageddy"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the archive folder and keep the index current",
	Long: `Monitor the archive folder for new, changed and deleted files. Each
change is indexed and embedded once the file has settled. Runs until
interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	engine, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s (ctrl-c to stop)\n", engine.Config().ArchivePath)

	err = engine.Watch(ctx, func(ev rageddy.WatchEvent) {
		switch {
		case ev.Err != nil:
			fmt.Fprintf(os.Stderr, "Error handling %s: %v\n", ev.Path, ev.Err)
		case ev.Removed:
			fmt.Printf("Removed %s\n", ev.Path)
		default:
			fmt.Printf("Indexed %s\n", ev.Path)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
