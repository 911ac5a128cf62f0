package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Chat.RateLimitWindow != 2000*time.Millisecond {
		t.Errorf("RateLimitWindow = %v, want 2s", cfg.Chat.RateLimitWindow)
	}
	if cfg.Chat.FloodCooldown != 5000*time.Millisecond {
		t.Errorf("FloodCooldown = %v, want 5s", cfg.Chat.FloodCooldown)
	}
	if cfg.Chat.HistorySize != 15 {
		t.Errorf("HistorySize = %d, want 15", cfg.Chat.HistorySize)
	}
	if cfg.Model.MaxTokens != 150 {
		t.Errorf("MaxTokens = %d, want 150", cfg.Model.MaxTokens)
	}
	if len(cfg.Guardians) != 2 {
		t.Fatalf("Guardians = %d, want 2", len(cfg.Guardians))
	}
}

func TestValidate_GuardianRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Guardians = cfg.Guardians[:1]
	if err := cfg.Validate(); err == nil {
		t.Error("One guardian should fail validation")
	}

	cfg = DefaultConfig()
	cfg.Guardians[0].Secret = "only five words right here"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "6 words") {
		t.Errorf("Five-word secret error = %v", err)
	}

	cfg = DefaultConfig()
	cfg.Guardians[1].Name = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Unnamed guardian should fail validation")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty provider", func(c *Config) { c.Model.Provider = "" }},
		{"zero max tokens", func(c *Config) { c.Model.MaxTokens = 0 }},
		{"zero rate limit", func(c *Config) { c.Chat.RateLimitWindow = 0 }},
		{"zero history", func(c *Config) { c.Chat.HistorySize = 0 }},
		{"nil archive", func(c *Config) { c.Archive = nil }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TOWN_HTTP_PORT", "9090")
	t.Setenv("TOWN_MODEL_API_KEY", "sk-test")
	t.Setenv("TOWN_MODEL_PROVIDER", "gemini")
	t.Setenv("TOWN_GUARDIAN_1_SECRET", "alpha bravo charlie delta echo foxtrot")
	t.Setenv("TOWN_ARCHIVE_PATH", "/tmp/town.db")

	cfg := LoadFromEnv()
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Model.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Model.APIKey)
	}
	if cfg.Model.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.Model.Provider)
	}
	if cfg.Guardians[0].Secret != "alpha bravo charlie delta echo foxtrot" {
		t.Errorf("Guardian secret = %q", cfg.Guardians[0].Secret)
	}
	if cfg.Archive.Path != "/tmp/town.db" {
		t.Errorf("Archive path = %q", cfg.Archive.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Env config failed validation: %v", err)
	}
}

func TestLoadFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("TOWN_HTTP_PORT", "not-a-number")

	cfg := LoadFromEnv()
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Port = %d, want the default 8080", cfg.HTTP.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
http:
  port: 3000
  read_timeout: 45s
model:
  provider: openai
  id: gpt-4o
  max_tokens: 200
chat:
  rate_limit_window: 1s
  flood_cooldown: 10s
guardians:
  - name: FirstKeeper
    secret: one two three four five six
    karma: 500
  - name: SecondKeeper
    secret: six five four three two one
    karma: 400
`
	path := filepath.Join(t.TempDir(), "town.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.HTTP.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeout != 45*time.Second {
		t.Errorf("ReadTimeout = %v, want 45s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Model.ID != "gpt-4o" || cfg.Model.MaxTokens != 200 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Chat.RateLimitWindow != time.Second {
		t.Errorf("RateLimitWindow = %v, want 1s", cfg.Chat.RateLimitWindow)
	}
	if cfg.Chat.FloodCooldown != 10*time.Second {
		t.Errorf("FloodCooldown = %v, want 10s", cfg.Chat.FloodCooldown)
	}
	// Unset fields keep their defaults.
	if cfg.Chat.HistorySize != 15 {
		t.Errorf("HistorySize = %d, want the default 15", cfg.Chat.HistorySize)
	}
	if cfg.Guardians[0].Name != "FirstKeeper" {
		t.Errorf("Guardian = %q, want the file's FirstKeeper", cfg.Guardians[0].Name)
	}
}

func TestLoadFromFile_RejectsInvalid(t *testing.T) {
	content := `
guardians:
  - name: OnlyOne
    secret: one two three four five six
`
	path := filepath.Join(t.TempDir(), "town.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("A single-guardian file should fail to load")
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/town.yaml"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadWithPrecedence_FileWins(t *testing.T) {
	t.Setenv("TOWN_HTTP_PORT", "9090")
	t.Setenv("TOWN_MODEL_API_KEY", "sk-from-env")

	content := `
http:
  port: 3000
`
	path := filepath.Join(t.TempDir(), "town.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadWithPrecedence(path)
	if cfg.HTTP.Port != 3000 {
		t.Errorf("Port = %d, want the file's 3000", cfg.HTTP.Port)
	}
	// A readable file supersedes the whole environment layer, even for
	// fields it does not set.
	if cfg.Model.APIKey != "" {
		t.Errorf("APIKey = %q, want the env overlay discarded with a file present", cfg.Model.APIKey)
	}

	// Without a file the environment layer applies.
	cfg = LoadWithPrecedence("")
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d, want the env's 9090", cfg.HTTP.Port)
	}
	if cfg.Model.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want the env value", cfg.Model.APIKey)
	}
}
