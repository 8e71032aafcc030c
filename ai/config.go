// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
)

// DefaultHost is the OpenAI API base URL.
const DefaultHost = "https://api.openai.com/v1"

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	EmbeddingHost string `yaml:"embedding_host" json:"embedding_host"`

	// ChatHost is the base URL for the chat completion API used for query
	// analysis and answer synthesis.
	ChatHost string `yaml:"chat_host" json:"chat_host"`

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small"
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`

	// ChatModel is the model identifier to use for chat completions.
	// Example: "gpt-4o-mini"
	ChatModel string `yaml:"chat_model" json:"chat_model"`

	// APIKey authenticates against the service. Local servers accept "none".
	APIKey string `yaml:"-" json:"-"`

	// Temperature is the sampling temperature for chat completions.
	// Default: 0.1
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// MaxAttempts bounds retries when the model returns malformed JSON.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTemperature sets the chat sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxAttempts sets the malformed-response retry bound.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// DefaultConfig returns a Config targeting the OpenAI API.
// By default, both embedding and chat use the same host.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultHost,
		ChatHost:       DefaultHost,
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		Temperature:    0.1,
		MaxAttempts:    3,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	    WithAPIKey("none"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	return nil
}

// Token returns the API key, or "none" for unauthenticated local servers.
func (c *Config) Token() string {
	if c.APIKey == "" {
		return "none"
	}
	return c.APIKey
}
