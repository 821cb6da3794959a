package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LLMConfig holds all LLM-related configuration
type LLMConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Provider string `json:"provider" mapstructure:"provider"` // ollama, bedrock, anthropic
	Model    string `json:"model" mapstructure:"model"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Region   string `json:"region" mapstructure:"region"` // For AWS Bedrock
	// APIKey takes precedence over the keyring entry when set
	APIKey    string `json:"api_key,omitempty" mapstructure:"api_key"`
	Timeout   string `json:"timeout" mapstructure:"timeout"`
	MaxTokens int    `json:"max_tokens" mapstructure:"max_tokens"`

	// Prompt templates file (YAML); relative paths resolve against the config dir
	PromptsFile string `json:"prompts_file" mapstructure:"prompts_file"`
}

// StorageConfig locates local state
type StorageConfig struct {
	DatabasePath string `json:"database_path" mapstructure:"database_path"`
	// EmailsPath is the JSON or .eml file the email list is loaded from
	EmailsPath string `json:"emails_path" mapstructure:"emails_path"`
}

// ComposerConfig holds reply composer preferences
type ComposerConfig struct {
	DefaultTone string `json:"default_tone" mapstructure:"default_tone"`
}

// Config holds all configuration for mailtriage
type Config struct {
	LLM      LLMConfig      `json:"llm" mapstructure:"llm"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Composer ComposerConfig `json:"composer" mapstructure:"composer"`

	// Logging
	LogFile string `json:"log_file" mapstructure:"log_file"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM:      DefaultLLMConfig(),
		Storage:  DefaultStorageConfig(),
		Composer: ComposerConfig{DefaultTone: "professional"},
		LogFile:  "",
	}
}

// DefaultLLMConfig returns default LLM configuration
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Enabled:     true,
		Provider:    "ollama",
		Model:       "llama3.2:latest",
		Endpoint:    "http://localhost:11434/api/generate",
		Timeout:     "20s",
		MaxTokens:   2048,
		PromptsFile: "prompts.yaml",
	}
}

// DefaultStorageConfig returns storage paths under the config dir
func DefaultStorageConfig() StorageConfig {
	dir := DefaultConfigDir()
	if dir == "" {
		return StorageConfig{DatabasePath: "mailtriage.db", EmailsPath: "emails.json"}
	}
	return StorageConfig{
		DatabasePath: filepath.Join(dir, "mailtriage.db"),
		EmailsPath:   filepath.Join(dir, "emails.json"),
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("llm.enabled", cfg.LLM.Enabled)
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.endpoint", cfg.LLM.Endpoint)
	v.SetDefault("llm.region", cfg.LLM.Region)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.prompts_file", cfg.LLM.PromptsFile)
	v.SetDefault("storage.database_path", cfg.Storage.DatabasePath)
	v.SetDefault("storage.emails_path", cfg.Storage.EmailsPath)
	v.SetDefault("composer.default_tone", cfg.Composer.DefaultTone)
	v.SetDefault("log_file", cfg.LogFile)
}

// LoadConfig loads configuration from a JSON file, applying MAILTRIAGE_*
// environment overrides (MAILTRIAGE_LLM_PROVIDER, ...). A missing file
// yields defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("MAILTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if configPath = ExpandPath(configPath); configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", configPath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", configPath, err)
	}
	cfg.Storage.DatabasePath = ExpandPath(cfg.Storage.DatabasePath)
	cfg.Storage.EmailsPath = ExpandPath(cfg.Storage.EmailsPath)
	cfg.LogFile = ExpandPath(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that cannot be defaulted later
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if c.LLM.Enabled {
		if strings.TrimSpace(c.LLM.Model) == "" {
			return fmt.Errorf("LLM is enabled but no model specified")
		}
		switch c.LLM.Provider {
		case "ollama", "bedrock", "anthropic":
		default:
			return fmt.Errorf("unsupported LLM provider %q", c.LLM.Provider)
		}
		if c.LLM.Timeout != "" {
			if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
				return fmt.Errorf("invalid LLM timeout: %w", err)
			}
		}
	}
	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		return fmt.Errorf("empty database path")
	}
	return nil
}

// DefaultConfigDir returns ~/.config/mailtriage
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailtriage")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DefaultLogDir returns the default log directory path
func DefaultLogDir() string {
	return DefaultConfigDir()
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetLLMTimeout returns parsed timeout for LLM
func (c *Config) GetLLMTimeout() time.Duration {
	if c.LLM.Timeout != "" {
		if d, err := time.ParseDuration(c.LLM.Timeout); err == nil {
			return d
		}
	}
	return 20 * time.Second
}

// ResolvePromptsPath returns the prompts file path, relative paths being
// resolved against the directory of configPath (or the default config dir)
func (c *Config) ResolvePromptsPath(configPath string) string {
	p := ExpandPath(strings.TrimSpace(c.LLM.PromptsFile))
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	dir := DefaultConfigDir()
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	return filepath.Join(dir, p)
}
