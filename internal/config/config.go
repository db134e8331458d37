// Package config loads the model registry and CLI settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/quocvuong92/chatybot/internal/constants"
)

// Environment variable names
const (
	EnvConfigPath = "CHATYBOT_CONFIG"
	EnvModel      = "CHATYBOT_MODEL"
)

// Defaults - re-exported from constants for convenience
const (
	DefaultSystemMessage = constants.DefaultSystemMessage
	DefaultBaseURL       = constants.DefaultBaseURL
	DefaultTemperature   = constants.DefaultTemperature
	DefaultAPITimeout    = constants.DefaultAPITimeout
)

// Errors
var (
	ErrConfigNotFound = errors.New("configuration file not found. Run 'chatybot init' or create chat_config.toml")
	ErrNoModels       = errors.New("no models configured. Add a [models.<alias>] table to the config file")
	ErrUnknownModel   = errors.New("model alias not found in configuration")
	ErrMissingName    = errors.New("model entry has no name")
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrMissingKeyName = errors.New("model entry has no api_key environment variable")
)

// ModelEntry is one model in the registry. APIKey names an environment
// variable; the secret itself never lives in the config file.
type ModelEntry struct {
	Alias       string   `toml:"-" yaml:"-"`
	Name        string   `toml:"name" yaml:"name"`
	BaseURL     string   `toml:"base_url" yaml:"base_url,omitempty"`
	APIKey      string   `toml:"api_key" yaml:"api_key"`
	Temperature *float64 `toml:"temperature" yaml:"temperature,omitempty"`
	MaxTokens   int      `toml:"max_tokens" yaml:"max_tokens,omitempty"`
	TopK        int      `toml:"top_k" yaml:"top_k,omitempty"`
}

// GetBaseURL returns the configured base URL without a trailing slash,
// or the OpenAI default.
func (e ModelEntry) GetBaseURL() string {
	if e.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(e.BaseURL, "/")
}

// GetTemperature returns the configured temperature or the default.
func (e ModelEntry) GetTemperature() float64 {
	if e.Temperature == nil {
		return DefaultTemperature
	}
	return *e.Temperature
}

// ResolveAPIKey reads the API key from the environment variable named by the entry.
func (e ModelEntry) ResolveAPIKey() (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%w (alias %q)", ErrMissingKeyName, e.Alias)
	}
	key := strings.TrimSpace(os.Getenv(e.APIKey))
	if key == "" {
		return "", fmt.Errorf("%w for model alias '%s'. Please set the '%s' environment variable",
			ErrAPIKeyNotFound, e.Alias, e.APIKey)
	}
	return key, nil
}

// Config holds the application configuration
type Config struct {
	// Explicit config file path (flag or env), searched for when empty
	ConfigPath string
	// Path the configuration was actually loaded from
	SourcePath string

	// Active model alias
	Model string
	// System message for chat requests
	SystemMessage string

	// Model registry
	Models map[string]ModelEntry
	Order  []string

	// Scripts to run (--script / run subcommand)
	ScriptPaths []string

	// Flags
	Stream     bool
	Render     bool
	Verbose    bool
	ListModels bool

	// Diagnostic logging (--log-level, --log-format)
	LogLevel  string
	LogFormat string
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{}
}

// Validate loads the config file and checks the result.
// Priority: CLI flags, then environment variables, then the config file.
func (c *Config) Validate() error {
	if c.ConfigPath == "" {
		c.ConfigPath = os.Getenv(EnvConfigPath)
	}
	if c.Model == "" {
		c.Model = os.Getenv(EnvModel)
	}

	var (
		fc  *FileConfig
		err error
	)
	if c.ConfigPath != "" {
		fc, err = loadConfigFromPath(c.ConfigPath)
		c.SourcePath = c.ConfigPath
	} else {
		fc, c.SourcePath, err = LoadConfigFile()
	}
	if err != nil {
		return err
	}
	c.ApplyFileConfig(fc)

	if len(c.Models) == 0 {
		return ErrNoModels
	}
	for _, alias := range c.Order {
		if c.Models[alias].Name == "" {
			return fmt.Errorf("%w: %s", ErrMissingName, alias)
		}
	}

	if c.Model == "" {
		c.Model = c.Order[0]
	}
	if !c.ValidateModel(c.Model) {
		return fmt.Errorf("%w: %s (available: %s)", ErrUnknownModel, c.Model, c.GetAvailableModelsString())
	}

	if c.SystemMessage == "" {
		c.SystemMessage = DefaultSystemMessage
	}

	return nil
}

// Lookup returns the model entry registered under alias
func (c *Config) Lookup(alias string) (ModelEntry, bool) {
	entry, ok := c.Models[alias]
	return entry, ok
}

// Aliases returns the configured aliases in file order
func (c *Config) Aliases() []string {
	aliases := make([]string, len(c.Order))
	copy(aliases, c.Order)
	return aliases
}

// ValidateModel checks if the given alias is configured
func (c *Config) ValidateModel(alias string) bool {
	_, ok := c.Models[alias]
	return ok
}

// GetAvailableModelsString returns a formatted string of available aliases
func (c *Config) GetAvailableModelsString() string {
	if len(c.Order) == 0 {
		return "(none configured)"
	}
	return strings.Join(c.Order, ", ")
}
