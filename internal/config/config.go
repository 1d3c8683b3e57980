package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// Config represents the critiq configuration.
type Config struct {
	Model               string        `json:"model"`
	Format              string        `json:"format"`
	Event               string        `json:"event"`
	ContextLines        int           `json:"contextLines"`
	MaxFileSize         int           `json:"maxFileSize"`
	MaxTokensPerChunk   int           `json:"maxTokensPerChunk"`
	ChunkConcurrency    int           `json:"chunkConcurrency"`
	MinFilesForChunking int           `json:"minFilesForChunking"`
	Exclude             []string      `json:"exclude"`
	Cache               CacheConfig   `json:"cache"`
	Privacy             PrivacyConfig `json:"privacy"`
}

// CacheConfig controls analysis-result caching behavior.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Model:               "claude-sonnet-4-20250514",
		Format:              "text",
		Event:               "COMMENT",
		ContextLines:        5,
		MaxFileSize:         500000,
		MaxTokensPerChunk:   50000,
		ChunkConcurrency:    3,
		MinFilesForChunking: 3,
		Exclude:             []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for critiq.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "critiq"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "critiq"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "critiq"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "critiq"), nil
	default:
		return filepath.Join(home, ".config", "critiq"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.Event != "" {
		dst.Event = src.Event
	}
	if src.ContextLines > 0 {
		dst.ContextLines = src.ContextLines
	}
	if src.MaxFileSize > 0 {
		dst.MaxFileSize = src.MaxFileSize
	}
	if src.MaxTokensPerChunk > 0 {
		dst.MaxTokensPerChunk = src.MaxTokensPerChunk
	}
	if src.ChunkConcurrency > 0 {
		dst.ChunkConcurrency = src.ChunkConcurrency
	}
	if src.MinFilesForChunking > 0 {
		dst.MinFilesForChunking = src.MinFilesForChunking
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	// Bool fields from file: only override if the file explicitly set them
	// Since JSON zero value for bool is false, we can't distinguish unset from false
	// in a simple merge. We'll trust the file value if the whole struct was loaded.
	dst.Cache.Enabled = src.Cache.Enabled || dst.Cache.Enabled
	if len(src.Privacy.RedactPaths) > 0 {
		dst.Privacy.RedactPaths = src.Privacy.RedactPaths
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("CRITIQ_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("CRITIQ_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("CRITIQ_EVENT"); v != "" {
		cfg.Event = v
	}
	if v := os.Getenv("CRITIQ_CONTEXT_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContextLines = n
		}
	}
	if v := os.Getenv("CRITIQ_MAX_TOKENS_PER_CHUNK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokensPerChunk = n
		}
	}
	if v := os.Getenv("CRITIQ_CHUNK_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkConcurrency = n
		}
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["event"]; ok && v != "" {
		cfg.Event = v
	}
	if v, ok := overrides["contextLines"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContextLines = n
		}
	}
	if v, ok := overrides["maxFileSize"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFileSize = n
		}
	}
	if v, ok := overrides["maxTokensPerChunk"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokensPerChunk = n
		}
	}
	if v, ok := overrides["chunkConcurrency"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChunkConcurrency = n
		}
	}
	if v, ok := overrides["minFilesForChunking"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinFilesForChunking = n
		}
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "event":
		cfg.Event = value
	case "contextLines":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("contextLines must be an integer: %w", err)
		}
		cfg.ContextLines = n
	case "maxFileSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxFileSize must be an integer: %w", err)
		}
		cfg.MaxFileSize = n
	case "maxTokensPerChunk":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxTokensPerChunk must be an integer: %w", err)
		}
		cfg.MaxTokensPerChunk = n
	case "chunkConcurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("chunkConcurrency must be an integer: %w", err)
		}
		cfg.ChunkConcurrency = n
	case "minFilesForChunking":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("minFilesForChunking must be an integer: %w", err)
		}
		cfg.MinFilesForChunking = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
