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

package policygraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/policygraph/ai"
	"github.com/poiesic/policygraph/ai/openai"
	"github.com/poiesic/policygraph/api"
	"github.com/poiesic/policygraph/config"
	"github.com/poiesic/policygraph/ingestion"
	"github.com/poiesic/policygraph/qa"
	"github.com/poiesic/policygraph/reembed"
	"github.com/poiesic/policygraph/search"
	"github.com/poiesic/policygraph/storage"
	"github.com/poiesic/policygraph/storage/badger"
	"github.com/poiesic/policygraph/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "policygraph"

// Database wires a clause store to an AI provider and builds the
// components that run over them.
type Database struct {
	cfg      *config.Config
	store    storage.Store
	provider ai.AIProvider
	registry *prometheus.Registry
	monitor  *search.PrometheusMonitor
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	registry *prometheus.Registry
	logger   *slog.Logger
}

// WithProvider supplies the AI provider instead of opening the OpenAI one.
// The database closes it on Close.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on.
// Default is a fresh registry.
func WithRegistry(reg *prometheus.Registry) DatabaseOption {
	return func(o *databaseOptions) {
		o.registry = reg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the configured store and AI provider.
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.registry == nil {
		options.registry = prometheus.NewRegistry()
	}

	store, err := openStore(cfg.Store, options.logger)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		aiCfg := cfg.AI
		provider, err = openai.NewProvider(&aiCfg)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return &Database{
		cfg:      cfg,
		store:    store,
		provider: provider,
		registry: options.registry,
		monitor:  search.NewPrometheusMonitor(metricsNamespace, options.registry),
		logger:   options.logger,
	}, nil
}

func openStore(cfg config.StoreConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendBadger, "":
		backendOpts := []badger.BackendOption{badger.WithDimensions(cfg.Dimensions), badger.WithLogger(logger)}
		if cfg.Path == "" {
			backend, err := badger.OpenBackend("", true, backendOpts...)
			if err != nil {
				return nil, err
			}
			return badger.NewStore(backend), nil
		}
		return badger.OpenStore(cfg.Path, backendOpts...)
	case config.BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		return sqlite.Open(path, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// Close releases the provider and the store.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Store returns the clause store.
func (db *Database) Store() storage.Store {
	return db.store
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// Registry returns the Prometheus registry holding search and HTTP metrics.
func (db *Database) Registry() *prometheus.Registry {
	return db.registry
}

// Stats summarizes the store contents.
func (db *Database) Stats(ctx context.Context) (storage.Stats, error) {
	return storage.CollectStats(ctx, db.store)
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithPoolSize(db.cfg.Ingestion.Workers),
		ingestion.WithBatchSize(db.cfg.Ingestion.BatchSize),
		ingestion.WithLogger(db.logger),
	}
	return ingestion.NewPipeline(db.store, db.provider.Embedder(), append(base, opts...)...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithConfig(db.cfg.Retrieval),
		search.WithMonitor(db.monitor),
		search.WithArticleSelector(db.provider.ArticleSelector()),
		search.WithLogger(db.logger),
	}
	return search.NewSearcher(db.store, db.provider.Embedder(), append(base, opts...)...)
}

// NewReembedder builds a reembedder from the configured settings, writing
// progress to w.
func (db *Database) NewReembedder(w io.Writer, staleOnly bool) *reembed.Reembedder {
	cfg := db.cfg.Reembed
	cfg.StaleOnly = cfg.StaleOnly || staleOnly
	return reembed.NewReembedder(db.store, db.provider.Embedder(), &cfg, w)
}

// NewEngine builds a question answering engine over a new searcher.
func (db *Database) NewEngine(opts ...qa.Option) (*qa.Engine, error) {
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}
	base := []qa.Option{
		qa.WithConcurrency(db.cfg.QA.Concurrency),
		qa.WithSpecialClauses(db.store),
		qa.WithLogger(db.logger),
	}
	return qa.NewEngine(searcher, db.provider.QueryAnalyzer(), db.provider.AnswerSynthesizer(), append(base, opts...)...)
}

// NewServer builds the HTTP API over a new engine.
func (db *Database) NewServer(opts ...api.Option) (*api.Server, error) {
	engine, err := db.NewEngine()
	if err != nil {
		return nil, err
	}
	base := []api.Option{
		api.WithMetrics(db.registry, db.registry),
		api.WithMaxBatch(db.cfg.Server.MaxBatch),
		api.WithLogger(db.logger),
	}
	return api.NewServer(engine, db.store, append(base, opts...)...)
}
