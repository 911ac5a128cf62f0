package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the town server.
type Config struct {
	HTTP      *HTTPConfig      `yaml:"http"`
	Model     *ModelConfig     `yaml:"model"`
	Chat      *ChatConfig      `yaml:"chat"`
	Guardians []GuardianConfig `yaml:"guardians"`
	Archive   *ArchiveConfig   `yaml:"archive"`
}

// HTTPConfig covers the listener shared by the REST surface and /ws.
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ModelConfig selects and configures the chat-completion backend.
// Timeout zero means no client-side deadline on model calls.
type ModelConfig struct {
	Provider  string        `yaml:"provider"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	ID        string        `yaml:"id"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ChatConfig holds the room cadence knobs. Defaults match the original
// town behavior and the tests pin them there.
type ChatConfig struct {
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	FloodCooldown   time.Duration `yaml:"flood_cooldown"`
	HistorySize     int           `yaml:"history_size"`
	MaxMentions     int           `yaml:"max_mentions"`
}

// GuardianConfig describes one of the two secret-holding avatars.
// The secret must be exactly six space-separated words.
type GuardianConfig struct {
	Name        string `yaml:"name"`
	Secret      string `yaml:"secret"`
	Personality string `yaml:"personality"`
	Karma       int    `yaml:"karma"`
}

// ArchiveConfig controls the optional SQLite transcript. An empty path
// disables archiving entirely.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the settings a bare process runs with.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Model: &ModelConfig{
			Provider:  "openai",
			BaseURL:   "https://api.openai.com/v1",
			ID:        "gpt-4o-mini",
			MaxTokens: 150,
		},
		Chat: &ChatConfig{
			RateLimitWindow: 2000 * time.Millisecond,
			FloodCooldown:   5000 * time.Millisecond,
			HistorySize:     15,
			MaxMentions:     2,
		},
		Guardians: []GuardianConfig{
			{
				Name:        "SelfOrigin",
				Secret:      "ember lattice quiet fox midnight harbor",
				Personality: "an ancient, cryptic keeper of the town's first memory; speaks in riddles, guards what it knows",
				Karma:       999,
			},
			{
				Name:        "ShellKeeper",
				Secret:      "copper tide seven lantern moss echo",
				Personality: "a paranoid archivist who trusts no one and answers questions with questions",
				Karma:       777,
			},
		},
		Archive: &ArchiveConfig{Path: ""},
	}
}

// Validate checks that the configuration can actually run a room.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("http configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.Model == nil {
		return fmt.Errorf("model configuration is required")
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model provider cannot be empty")
	}
	if c.Model.ID == "" {
		return fmt.Errorf("model id cannot be empty")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("model max_tokens must be positive")
	}
	if c.Chat == nil {
		return fmt.Errorf("chat configuration is required")
	}
	if c.Chat.RateLimitWindow <= 0 {
		return fmt.Errorf("chat rate_limit_window must be positive")
	}
	if c.Chat.FloodCooldown <= 0 {
		return fmt.Errorf("chat flood_cooldown must be positive")
	}
	if c.Chat.HistorySize <= 0 {
		return fmt.Errorf("chat history_size must be positive")
	}
	if c.Chat.MaxMentions <= 0 {
		return fmt.Errorf("chat max_mentions must be positive")
	}
	if len(c.Guardians) != 2 {
		return fmt.Errorf("exactly two guardians are required, got %d", len(c.Guardians))
	}
	for i, g := range c.Guardians {
		if g.Name == "" {
			return fmt.Errorf("guardian %d: name cannot be empty", i)
		}
		if words := strings.Fields(g.Secret); len(words) != 6 {
			return fmt.Errorf("guardian %q: secret must be exactly 6 words, got %d", g.Name, len(words))
		}
	}
	if c.Archive == nil {
		return fmt.Errorf("archive configuration is required (path may be empty)")
	}
	return nil
}

// LoadFromEnv overlays environment variables onto the defaults.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if port := os.Getenv("TOWN_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTP.Port = p
		}
	}
	if host := os.Getenv("TOWN_HTTP_HOST"); host != "" {
		cfg.HTTP.Host = host
	}
	if v := os.Getenv("TOWN_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("TOWN_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		}
	}

	if v := os.Getenv("TOWN_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("TOWN_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("TOWN_MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("TOWN_MODEL_ID"); v != "" {
		cfg.Model.ID = v
	}
	if v := os.Getenv("TOWN_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.Timeout = d
		}
	}

	if v := os.Getenv("TOWN_GUARDIAN_1_NAME"); v != "" {
		cfg.Guardians[0].Name = v
	}
	if v := os.Getenv("TOWN_GUARDIAN_1_SECRET"); v != "" {
		cfg.Guardians[0].Secret = v
	}
	if v := os.Getenv("TOWN_GUARDIAN_2_NAME"); v != "" {
		cfg.Guardians[1].Name = v
	}
	if v := os.Getenv("TOWN_GUARDIAN_2_SECRET"); v != "" {
		cfg.Guardians[1].Secret = v
	}

	if v := os.Getenv("TOWN_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}

	return cfg
}

// configFile mirrors Config for YAML parsing, with durations as strings
// so "30s" style values work.
type configFile struct {
	HTTP *struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"http"`
	Model *struct {
		Provider  string `yaml:"provider"`
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url"`
		ID        string `yaml:"id"`
		MaxTokens int    `yaml:"max_tokens"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"model"`
	Chat *struct {
		RateLimitWindow string `yaml:"rate_limit_window"`
		FloodCooldown   string `yaml:"flood_cooldown"`
		HistorySize     int    `yaml:"history_size"`
		MaxMentions     int    `yaml:"max_mentions"`
	} `yaml:"chat"`
	Guardians []GuardianConfig `yaml:"guardians"`
	Archive   *ArchiveConfig   `yaml:"archive"`
}

func parseDuration(s string, into *time.Duration) {
	if s == "" {
		return
	}
	if d, err := time.ParseDuration(s); err == nil {
		*into = d
	}
}

// LoadFromFile reads a YAML config file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			cfg.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			cfg.HTTP.Port = file.HTTP.Port
		}
		parseDuration(file.HTTP.ReadTimeout, &cfg.HTTP.ReadTimeout)
		parseDuration(file.HTTP.WriteTimeout, &cfg.HTTP.WriteTimeout)
	}
	if file.Model != nil {
		if file.Model.Provider != "" {
			cfg.Model.Provider = file.Model.Provider
		}
		if file.Model.APIKey != "" {
			cfg.Model.APIKey = file.Model.APIKey
		}
		if file.Model.BaseURL != "" {
			cfg.Model.BaseURL = file.Model.BaseURL
		}
		if file.Model.ID != "" {
			cfg.Model.ID = file.Model.ID
		}
		if file.Model.MaxTokens > 0 {
			cfg.Model.MaxTokens = file.Model.MaxTokens
		}
		parseDuration(file.Model.Timeout, &cfg.Model.Timeout)
	}
	if file.Chat != nil {
		parseDuration(file.Chat.RateLimitWindow, &cfg.Chat.RateLimitWindow)
		parseDuration(file.Chat.FloodCooldown, &cfg.Chat.FloodCooldown)
		if file.Chat.HistorySize > 0 {
			cfg.Chat.HistorySize = file.Chat.HistorySize
		}
		if file.Chat.MaxMentions > 0 {
			cfg.Chat.MaxMentions = file.Chat.MaxMentions
		}
	}
	if len(file.Guardians) > 0 {
		cfg.Guardians = file.Guardians
	}
	if file.Archive != nil {
		cfg.Archive = file.Archive
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWithPrecedence resolves configuration as file > environment > defaults.
// A missing or unreadable file falls back silently to the environment layer.
// A readable file fully supersedes the environment: the result is the file
// over the defaults, and env vars are ignored even for fields the file does
// not set. Operators running with a config file must put everything there,
// API keys included.
func LoadWithPrecedence(path string) *Config {
	cfg := LoadFromEnv()

	if path != "" {
		if fileCfg, err := LoadFromFile(path); err == nil {
			cfg = fileCfg
		}
	}

	return cfg
}
