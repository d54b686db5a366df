// Package config loads the YAML configuration file that drives a forge
// session: model selection, the OpenAI-compatible endpoint to talk to, and
// the generation parameters passed on every request.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultOllamaBase is used when Model names an Ollama model and ApiBase is
// left unset in the config file.
const defaultOllamaBase = "http://localhost:11434"

// Config is the on-disk shape of a forge config file.
type Config struct {
	Model            string   `yaml:"model"`
	APIBase          string   `yaml:"api_base"`
	APIKey           string   `yaml:"api_key,omitempty"`
	HTTPSProxy       string   `yaml:"https_proxy,omitempty"`
	Temperature      *float32 `yaml:"temperature,omitempty"`
	MaxOutputTokens  int      `yaml:"max_output_tokens,omitempty"`
	TopP             *float32 `yaml:"top_p,omitempty"`
	MaxContextTokens int      `yaml:"max_context_tokens,omitempty"`
	Skills           []string `yaml:"skills,omitempty"`
}

// Load reads and parses a config file at path, applies the Ollama
// default-endpoint rule, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIBase == "" && IsOllamaModel(c.Model) {
		c.APIBase = defaultOllamaBase
	}
}

// Validate checks the invariants spec.md places on the config file: a model
// name, and an api_base that is actually an HTTP(S) URL.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if strings.TrimSpace(c.APIBase) == "" {
		return fmt.Errorf("api_base is required")
	}
	if !strings.HasPrefix(c.APIBase, "http://") && !strings.HasPrefix(c.APIBase, "https://") {
		return fmt.Errorf("api_base must begin with http:// or https://, got %q", c.APIBase)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *c.Temperature)
	}
	if c.TopP != nil && (*c.TopP < 0 || *c.TopP > 1) {
		return fmt.Errorf("top_p must be between 0 and 1, got %v", *c.TopP)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max_output_tokens cannot be negative")
	}
	if c.MaxContextTokens < 0 {
		return fmt.Errorf("max_context_tokens cannot be negative")
	}
	return nil
}

// IsOllamaModel reports whether model looks like it names an Ollama model,
// mirroring the same heuristic the LLM error-reporting layer uses.
func IsOllamaModel(model string) bool {
	return strings.HasPrefix(model, "ollama/") || strings.Contains(model, "ollama")
}

// Overrides holds CLI-flag values to layer onto the loaded config. A zero
// value in any field leaves the existing config field untouched.
type Overrides struct {
	Model           string
	APIBase         string
	Temperature     *float32
	MaxOutputTokens int
	TopP            *float32
	Ollama          string
}

// ApplyOverrides returns a copy of c with any non-zero override fields
// applied, re-running defaults and validation.
func (c Config) ApplyOverrides(o Overrides) (Config, error) {
	out := c
	if o.Ollama != "" {
		out.Model = "ollama/" + o.Ollama
		out.APIBase = defaultOllamaBase
	}
	if o.Model != "" {
		out.Model = o.Model
	}
	if o.APIBase != "" {
		out.APIBase = o.APIBase
	}
	if o.Temperature != nil {
		out.Temperature = o.Temperature
	}
	if o.MaxOutputTokens != 0 {
		out.MaxOutputTokens = o.MaxOutputTokens
	}
	if o.TopP != nil {
		out.TopP = o.TopP
	}
	out.applyDefaults()
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}
