package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost)
	assert.Equal(t, "https://api.openai.com/v1", cfg.ChatHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "none", cfg.Token())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), NewConfig())
	})

	t.Run("with shared host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434/v1"))

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("nomic-embed-text"),
			WithChatModel("qwen2.5:7b"),
			WithAPIKey("sk-test"),
			WithTemperature(0),
			WithMaxAttempts(5),
		)

		assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
		assert.Equal(t, "qwen2.5:7b", cfg.ChatModel)
		assert.Equal(t, "sk-test", cfg.Token())
		assert.Equal(t, 0.0, cfg.Temperature)
		assert.Equal(t, 5, cfg.MaxAttempts)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"has trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host, ChatHost: tt.host}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
			assert.Equal(t, tt.expected, cfg.ChatHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			ChatHost:       "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			ChatModel:      "qwen2.5:7b",
			Temperature:    0.1,
			MaxAttempts:    3,
		}
	}

	t.Run("valid config is normalized", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing chat host", func(c *Config) { c.ChatHost = "" }, "ChatHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing chat model", func(c *Config) { c.ChatModel = "" }, "ChatModel"},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, "Temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "Temperature"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "MaxAttempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})
}
