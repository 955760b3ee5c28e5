// Package config loads the application configuration from YAML, with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ArchiveConfig describes the watched document folder.
type ArchiveConfig struct {
	Path string `yaml:"path" validate:"required"`
	Mask string `yaml:"mask"`
	// SettleSecs is how long a file must stay unchanged before the
	// watcher indexes it.
	SettleSecs int `yaml:"settle_secs" validate:"gte=0"`
}

// ModelConfig configures the LLM endpoint and models.
type ModelConfig struct {
	BaseURL        string  `yaml:"base_url" validate:"required,url"`
	APIKey         string  `yaml:"api_key"`
	ChatModel      string  `yaml:"chat_model" validate:"required"`
	EmbeddingModel string  `yaml:"embedding_model" validate:"required"`
	ModelURL       string  `yaml:"model_url"`
	ModelsDir      string  `yaml:"models_dir"`
	Temperature    float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int     `yaml:"max_tokens" validate:"gt=0"`
	ContextWindow  int     `yaml:"context_window" validate:"gt=0"`
	// SystemPrompt overrides the built-in assistant instructions when set.
	SystemPrompt string `yaml:"system_prompt"`
}

// IndexConfig tunes chunking and retrieval.
type IndexConfig struct {
	ChunkSize    int     `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int     `yaml:"chunk_overlap" validate:"gte=0"`
	TopK         int     `yaml:"top_k" validate:"gt=0"`
	MinScore     float64 `yaml:"min_score" validate:"gte=0,lte=1"`
}

// Config is the root configuration.
type Config struct {
	DBPath  string        `yaml:"db_path" validate:"required"`
	Archive ArchiveConfig `yaml:"archive"`
	Model   ModelConfig   `yaml:"model"`
	Index   IndexConfig   `yaml:"index"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".rageddy")

	return &Config{
		DBPath: filepath.Join(dataDir, "rageddy.db"),
		Archive: ArchiveConfig{
			Path:       filepath.Join(dataDir, "archive"),
			Mask:       "**/*",
			SettleSecs: 2,
		},
		Model: ModelConfig{
			BaseURL:        "http://localhost:11434/v1",
			ChatModel:      "qwen3:8b",
			EmbeddingModel: "BAAI/bge-m3",
			ModelsDir:      filepath.Join(dataDir, "models"),
			Temperature:    0.3,
			MaxTokens:      1024,
			ContextWindow:  4096,
		},
		Index: IndexConfig{
			ChunkSize:    512,
			ChunkOverlap: 50,
			TopK:         5,
			MinScore:     0.3,
		},
	}
}

// Load reads a config file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if err := ensureDirs(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureDirs creates the folders the config points at, so a fresh
// install works without manual setup.
func ensureDirs(cfg *Config) error {
	dirs := []string{cfg.Archive.Path, filepath.Dir(cfg.DBPath), cfg.Model.ModelsDir}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// LoadDefault tries ./rageddy.yaml first, then
// ~/.config/rageddy/config.yaml, then built-in defaults. A .env file in
// the working directory is applied before anything else.
func LoadDefault() (*Config, string, error) {
	// Missing .env files are fine.
	_ = godotenv.Load()

	cwdPath := "rageddy.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}

	userPath, err := defaultUserConfigPath()
	if err == nil {
		if _, statErr := os.Stat(userPath); statErr == nil {
			cfg, loadErr := Load(userPath)
			return cfg, userPath, loadErr
		}
	}

	cfg, err := Load(cwdPath)
	return cfg, "", err
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the config against its constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid config: field %s failed %q", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overlays RAGEDDY_* environment variables on the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RAGEDDY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RAGEDDY_ARCHIVE"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("RAGEDDY_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("RAGEDDY_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("RAGEDDY_CHAT_MODEL"); v != "" {
		cfg.Model.ChatModel = v
	}
	if v := os.Getenv("RAGEDDY_EMBEDDING_MODEL"); v != "" {
		cfg.Model.EmbeddingModel = v
	}
	if v := os.Getenv("RAGEDDY_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.TopK = n
		}
	}
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rageddy", "config.yaml"), nil
}
