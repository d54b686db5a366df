package openai

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds everything needed to construct a Client.
type Config struct {
	Model           string
	APIBase         string
	APIKey          string
	Temperature     float32
	MaxOutputTokens int
	TopP            float32
}

// Validate checks that the minimum fields needed to make a request are set.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model name is required")
	}
	if strings.TrimSpace(c.APIKey) == "" && !strings.Contains(c.APIBase, "localhost") && !strings.Contains(c.APIBase, "127.0.0.1") {
		return fmt.Errorf("api_key is required for non-local endpoints")
	}
	return nil
}

// ConfigFromEnv builds a Config from FORGE_MODEL / FORGE_API_BASE /
// FORGE_API_KEY / FORGE_TEMPERATURE / FORGE_MAX_OUTPUT_TOKENS / FORGE_TOP_P,
// falling back to sane defaults (an Ollama-compatible local endpoint) when
// FORGE_API_BASE is unset.
func ConfigFromEnv() Config {
	cfg := Config{
		Model:           envOr("FORGE_MODEL", "gpt-4o-mini"),
		APIBase:         envOr("FORGE_API_BASE", "http://localhost:11434/v1"),
		APIKey:          os.Getenv("FORGE_API_KEY"),
		Temperature:     envFloat32("FORGE_TEMPERATURE", 0.7),
		MaxOutputTokens: envInt("FORGE_MAX_OUTPUT_TOKENS", 4096),
		TopP:            envFloat32("FORGE_TOP_P", 1.0),
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat32(key string, def float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
