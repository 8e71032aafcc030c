// Package config loads policygraph configuration.
//
// Values are resolved in order: defaults, then the YAML file, then
// environment variables prefixed with POLICYGRAPH_ (plus OPENAI_API_KEY).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/reembed"
	"github.com/poiesic/policygraph/search"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POLICYGRAPH_"

// Store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	AI        ai.Config       `yaml:"ai"`
	Retrieval search.Config   `yaml:"retrieval"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Reembed   reembed.Config  `yaml:"reembed"`
	QA        QAConfig        `yaml:"qa"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig selects and locates the clause store.
type StoreConfig struct {
	// Backend is "badger" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the badger directory or SQLite file. Empty opens an
	// in-memory store.
	Path       string `yaml:"path"`
	Dimensions int    `yaml:"dimensions"`
}

// IngestionConfig sizes the ingestion embedding pool.
type IngestionConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// QAConfig tunes the question answering engine.
type QAConfig struct {
	// Concurrency bounds the questions a batch answers at once.
	Concurrency int `yaml:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBatch     int           `yaml:"max_batch"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    BackendBadger,
			Path:       "data/policygraph",
			Dimensions: 1536,
		},
		AI:        *ai.DefaultConfig(),
		Retrieval: search.DefaultConfig(),
		Ingestion: IngestionConfig{Workers: 4, BatchSize: 32},
		Reembed:   *reembed.DefaultConfig(),
		QA:        QAConfig{Concurrency: 4},
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBatch:     50,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overlays environment variables onto cfg.
func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"STORE_BACKEND":   &c.Store.Backend,
		"STORE_PATH":      &c.Store.Path,
		"EMBEDDING_HOST":  &c.AI.EmbeddingHost,
		"CHAT_HOST":       &c.AI.ChatHost,
		"EMBEDDING_MODEL": &c.AI.EmbeddingModel,
		"CHAT_MODEL":      &c.AI.ChatModel,
		"SERVER_ADDR":     &c.Server.Addr,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"STORE_DIMENSIONS":  &c.Store.Dimensions,
		"TOP_K":             &c.Retrieval.TopK,
		"HOP_LIMIT":         &c.Retrieval.HopLimit,
		"INGEST_WORKERS":    &c.Ingestion.Workers,
		"QA_CONCURRENCY":    &c.QA.Concurrency,
		"SERVER_MAX_BATCH":  &c.Server.MaxBatch,
		"REEMBED_BATCHSIZE": &c.Reembed.BatchSize,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "ALPHA"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %sALPHA: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Retrieval.Alpha = f
	}
	if v, ok := lookup(EnvPrefix + "RETRIEVER_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sRETRIEVER_TIMEOUT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Retrieval.RetrieverTimeout = d
	}

	if v, ok := lookup(EnvPrefix + "API_KEY"); ok {
		c.AI.APIKey = v
	} else if v, ok := lookup("OPENAI_API_KEY"); ok {
		c.AI.APIKey = v
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("%w: store.backend must be %q or %q, got %q", ErrInvalidConfig, BackendBadger, BackendSQLite, c.Store.Backend)
	}
	if c.Store.Dimensions < 1 {
		return fmt.Errorf("%w: store.dimensions must be positive, got %d", ErrInvalidConfig, c.Store.Dimensions)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("%w: retrieval: %w", ErrInvalidConfig, err)
	}
	if c.Ingestion.Workers < 1 || c.Ingestion.BatchSize < 1 {
		return fmt.Errorf("%w: ingestion workers and batch_size must be positive", ErrInvalidConfig)
	}
	if c.Reembed.MaxRetries < 1 {
		return fmt.Errorf("%w: reembed.max_retries must be at least 1, got %d", ErrInvalidConfig, c.Reembed.MaxRetries)
	}
	if c.QA.Concurrency < 1 {
		return fmt.Errorf("%w: qa.concurrency must be positive, got %d", ErrInvalidConfig, c.QA.Concurrency)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidConfig)
	}
	if c.Server.MaxBatch < 1 {
		return fmt.Errorf("%w: server.max_batch must be positive, got %d", ErrInvalidConfig, c.Server.MaxBatch)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// NewLogger builds a logger writing to w as configured.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
