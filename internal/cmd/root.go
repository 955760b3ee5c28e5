// Package cmd implements the rageddy command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rageddy/internal/config"
	"rageddy/internal/format"
	"rageddy/pkg/rageddy"
)

var (
	flagDB      string
	flagArchive string
	flagOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "rageddy",
	Short: "Chat with your document archive",
	Long: `rageddy indexes a folder of documents (PDF, text, markdown, HTML, CSV)
into a local SQLite database and answers questions about them using a
local language model. Nothing leaves your machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagArchive, "archive", "", "archive folder (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text or json")
}

// loadConfig resolves the effective configuration, applying flag
// overrides on top of the config file and environment.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}

	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagArchive != "" {
		cfg.Archive.Path = flagArchive
	}

	return cfg, nil
}

// getEngine opens the engine with the effective configuration. Callers
// own the returned engine and must Close it.
func getEngine() (*rageddy.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return rageddy.New(engineConfig(cfg))
}

func engineConfig(cfg *config.Config) rageddy.Config {
	return rageddy.Config{
		DBPath:         cfg.DBPath,
		ArchivePath:    cfg.Archive.Path,
		Mask:           cfg.Archive.Mask,
		SettleSecs:     cfg.Archive.SettleSecs,
		BaseURL:        cfg.Model.BaseURL,
		APIKey:         cfg.Model.APIKey,
		ChatModel:      cfg.Model.ChatModel,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		ModelsDir:      cfg.Model.ModelsDir,
		ModelURL:       cfg.Model.ModelURL,
		Temperature:    cfg.Model.Temperature,
		MaxTokens:      cfg.Model.MaxTokens,
		ContextWindow:  cfg.Model.ContextWindow,
		SystemPrompt:   cfg.Model.SystemPrompt,
		ChunkSize:      cfg.Index.ChunkSize,
		ChunkOverlap:   cfg.Index.ChunkOverlap,
		TopK:           cfg.Index.TopK,
		MinScore:       cfg.Index.MinScore,
	}
}

func newFormatter() *format.Formatter {
	return format.New(os.Stdout, flagOutput)
}
