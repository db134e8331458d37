package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/chatybot/internal/constants"
)

// Config file names
const (
	TOMLConfigFileName = "chat_config.toml"
	YAMLConfigFileName = "config.yaml"
)

// FileConfig represents the configuration file structure.
// The same keys are accepted in TOML and YAML files.
type FileConfig struct {
	// Alias used at startup; the first model in the file when empty
	DefaultModel string `toml:"default_model" yaml:"default_model,omitempty"`

	// System message sent with every chat request
	SystemMessage string `toml:"system_message" yaml:"system_message,omitempty"`

	// Default flags
	Defaults *DefaultsConfig `toml:"defaults" yaml:"defaults,omitempty"`

	// Model entries keyed by alias
	Models map[string]ModelEntry `toml:"models" yaml:"models,omitempty"`

	// Aliases in the order they appear in the file
	Order []string `toml:"-" yaml:"-"`
}

// DefaultsConfig holds default flag values
type DefaultsConfig struct {
	Stream bool `toml:"stream" yaml:"stream,omitempty"`
	Render bool `toml:"render" yaml:"render,omitempty"`
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	paths := []string{
		filepath.Join(".", TOMLConfigFileName),
		filepath.Join(".", "."+constants.AppName, YAMLConfigFileName),
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(configDir, constants.AppName, TOMLConfigFileName),
			filepath.Join(configDir, constants.AppName, YAMLConfigFileName),
		)
	}

	return paths
}

// LoadConfigFile loads the first config file found in GetConfigPaths.
// It returns ErrConfigNotFound when none of them exists.
func LoadConfigFile() (*FileConfig, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			fc, err := loadConfigFromPath(path)
			return fc, path, err
		}
	}
	return nil, "", ErrConfigNotFound
}

// loadConfigFromPath loads config from a specific path, choosing the decoder
// by file extension (TOML unless the extension is .yaml or .yml).
func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc *FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		fc, err = decodeYAML(data)
	default:
		fc, err = decodeTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for alias, entry := range fc.Models {
		entry.Alias = alias
		fc.Models[alias] = entry
	}
	fc.Order = completeOrder(fc.Order, fc.Models)

	return fc, nil
}

func decodeTOML(data []byte) (*FileConfig, error) {
	var fc FileConfig
	md, err := toml.Decode(string(data), &fc)
	if err != nil {
		return nil, err
	}

	// Keys() lists table headers in document order, e.g. [models gpt4]
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "models" {
			fc.Order = append(fc.Order, key[1])
		}
	}
	return &fc, nil
}

func decodeYAML(data []byte) (*FileConfig, error) {
	var fc FileConfig
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return &fc, nil
	}
	if err := root.Decode(&fc); err != nil {
		return nil, err
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return &fc, nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "models" || doc.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		models := doc.Content[i+1]
		for j := 0; j+1 < len(models.Content); j += 2 {
			fc.Order = append(fc.Order, models.Content[j].Value)
		}
	}
	return &fc, nil
}

// completeOrder drops unknown aliases from order and appends any alias the
// decoder could not place (inline tables), sorted for determinism.
func completeOrder(order []string, models map[string]ModelEntry) []string {
	seen := make(map[string]bool, len(models))
	result := make([]string, 0, len(models))
	for _, alias := range order {
		if _, ok := models[alias]; ok && !seen[alias] {
			seen[alias] = true
			result = append(result, alias)
		}
	}

	var rest []string
	for alias := range models {
		if !seen[alias] {
			rest = append(rest, alias)
		}
	}
	sort.Strings(rest)
	return append(result, rest...)
}

// ApplyFileConfig applies file configuration to the main Config.
// File config has lower priority than environment variables and CLI flags.
func (c *Config) ApplyFileConfig(fc *FileConfig) {
	if fc == nil {
		return
	}

	c.Models = fc.Models
	c.Order = fc.Order

	if c.Model == "" && fc.DefaultModel != "" {
		c.Model = fc.DefaultModel
	}
	if c.SystemMessage == "" && fc.SystemMessage != "" {
		c.SystemMessage = fc.SystemMessage
	}

	// Only "true" values can be applied: an unset flag and a false flag look the same
	if fc.Defaults != nil {
		if fc.Defaults.Stream {
			c.Stream = true
		}
		if fc.Defaults.Render {
			c.Render = true
		}
	}
}

// CreateDefaultConfigFile writes a commented default config file into dir.
// It refuses to overwrite an existing file.
func CreateDefaultConfigFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, TOMLConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	defaultConfig := `# chatybot configuration

# Alias used at startup (default: first model below)
# default_model = "gpt4"

# System message sent with every request (omitted for gemma models)
# system_message = "You are a helpful assistant."

# [defaults]
# stream = true
# render = true

# Each model entry names the environment variable holding its API key.
# A .env file in the working directory is loaded at startup.
[models.gpt4]
name = "gpt-4o"
base_url = "https://api.openai.com/v1"
api_key = "OPENAI_API_KEY"
temperature = 0.7
max_tokens = 2048

# [models.local]
# name = "llama3.1"
# base_url = "http://localhost:11434/v1"
# api_key = "OLLAMA_API_KEY"
# temperature = 0.2
`

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
