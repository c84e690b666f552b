package main

import (
	"context"
	"fmt"

	"github.com/xhad/shopsage/internal/types"
	cfgPkg "github.com/xhad/shopsage/pkg/config"
	"github.com/xhad/shopsage/pkg/ingest"
	"github.com/xhad/shopsage/pkg/llm"
	"github.com/xhad/shopsage/pkg/rag"
	"github.com/xhad/shopsage/pkg/search"
	"github.com/xhad/shopsage/pkg/shopify"
	"github.com/xhad/shopsage/pkg/store"
)

// app holds the components shared by every command. Close releases the
// store and the embedding cache.
type app struct {
	store        *store.DocumentStore
	embedder     types.Embedder
	orchestrator *rag.Orchestrator
	shopify      *shopify.Client
	cache        *llm.CachedEmbedder
}

func newApp(ctx context.Context, config *cfgPkg.Config) (*app, error) {
	retry := llm.RetryPolicy{
		Timeout:    config.Ollama.Timeout,
		MaxRetries: config.Ollama.MaxRetries,
		Backoff:    config.Ollama.Backoff,
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Backend: config.Ollama.Backend,
		BaseURL: config.Ollama.BaseURL,
		Model:   config.Ollama.EmbedModel,
		Retry:   retry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	a := &app{}
	if config.Cache.Path != "" {
		a.cache, err = llm.NewCachedEmbedder(embedder, config.Cache.Path)
		if err != nil {
			return nil, err
		}
		embedder = a.cache
	}
	a.embedder = embedder

	generator, err := llm.NewGeneratorWithConfig(llm.ChatConfig{
		Backend:     config.Ollama.Backend,
		BaseURL:     config.Ollama.BaseURL,
		Model:       config.Ollama.ChatModel,
		Temperature: config.Ollama.Temperature,
		Retry:       retry,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	repo, err := openRepository(ctx, config)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	a.store = store.NewDocumentStore(repo, embedder)

	a.orchestrator = rag.NewOrchestrator(embedder, search.NewEngine(a.store), generator)
	a.shopify = shopify.NewWithConfig(shopify.ClientConfig{
		APIVersion: config.Shopify.APIVersion,
		RateLimit:  config.Shopify.RateLimit,
	})
	return a, nil
}

func openRepository(ctx context.Context, config *cfgPkg.Config) (store.Repository, error) {
	switch config.Database.Driver {
	case cfgPkg.DriverPostgres:
		return store.NewPostgresRepository(ctx, store.PostgresConfig{ConnString: config.Database.URL})
	default:
		return store.NewSQLiteRepository(config.Database.Path)
	}
}

func (a *app) pipeline(onProgress func(done, total int, refID string)) *ingest.Pipeline {
	return ingest.NewWithConfig(ingest.Config{OnProgress: onProgress}, a.store)
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}
