package app

import (
	"context"
	"fmt"

	"github.com/dmauro/triago/internal/config"
	"github.com/dmauro/triago/internal/httpapi"
	"github.com/dmauro/triago/internal/middleware"
	"github.com/dmauro/triago/internal/observability"
	"github.com/dmauro/triago/internal/pipeline"
	"github.com/dmauro/triago/internal/reasoning"
	"github.com/dmauro/triago/internal/retrieval"
	"github.com/dmauro/triago/internal/session"
	"github.com/dmauro/triago/internal/store"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Engine   *pipeline.Engine
	Limiter  *middleware.RateLimiter
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the full service from configuration: store, retriever,
// reasoning providers, session manager, pipeline engine and HTTP server.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	conditions, err := retrieval.LoadKnowledgeBase(cfg.KnowledgeBasePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge base init failed: %w", err)
	}
	retriever := retrieval.NewKeywordIndex(conditions)

	primary, fallback, err := buildProviders(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	analyzer := reasoning.NewAnalyzer(primary, fallback,
		reasoning.RetryPolicy{
			MaxAttempts: cfg.LLMMaxRetries,
			BaseDelay:   cfg.LLMRetryBaseDelay,
			MaxDelay:    cfg.LLMRetryMaxDelay,
		},
		reasoning.GenerationOptions{
			Temperature: float32(cfg.LLMTemperature),
			MaxTokens:   cfg.LLMMaxTokens,
		})

	sessions := session.NewManager(cfg.SessionMaxTurns, cfg.SessionTimeout, cfg.ContextWindow)

	engine := pipeline.NewEngine(sessions, retriever, analyzer, db, metrics, pipeline.Config{
		EmergencyConfidenceThreshold: cfg.EmergencyConfidenceThreshold,
		RetrievalTopK:                cfg.RetrievalTopK,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	api := httpapi.New(cfg, engine, limiter, metrics)

	cleanup := func() error {
		return db.Close()
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Engine:   engine,
		Limiter:  limiter,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}

// buildProviders resolves the primary and optional fallback reasoning
// providers. Groq speaks the OpenAI wire protocol, so both real providers
// share the same client.
func buildProviders(cfg config.Config) (primary, fallback reasoning.Provider, err error) {
	switch cfg.LLMProvider {
	case "mock":
		return reasoning.NewMockProvider(), nil, nil
	case "groq", "openai":
		baseURL := cfg.LLMBaseURL
		if baseURL == "" && cfg.LLMProvider == "groq" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		primary, err = reasoning.NewOpenAIProvider(reasoning.OpenAIConfig{
			Name:           cfg.LLMProvider,
			APIKey:         cfg.LLMAPIKey,
			BaseURL:        baseURL,
			Model:          cfg.LLMModel,
			RequestTimeout: cfg.LLMRequestTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("primary provider init failed: %w", err)
		}
		if cfg.LLMFallbackModel != "" {
			fallback, err = reasoning.NewOpenAIProvider(reasoning.OpenAIConfig{
				Name:           cfg.LLMProvider + "-fallback",
				APIKey:         cfg.LLMAPIKey,
				BaseURL:        baseURL,
				Model:          cfg.LLMFallbackModel,
				RequestTimeout: cfg.LLMRequestTimeout,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("fallback provider init failed: %w", err)
			}
		}
		return primary, fallback, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
