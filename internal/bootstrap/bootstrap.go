package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ragwiame/gateway/internal/config"
	"github.com/ragwiame/gateway/internal/core/ports"
	"github.com/ragwiame/gateway/internal/core/usecase"
	"github.com/ragwiame/gateway/internal/infrastructure/lexical/elastic"
	openaicompat "github.com/ragwiame/gateway/internal/infrastructure/llm/openai"
	"github.com/ragwiame/gateway/internal/infrastructure/reranker/crossencoder"
	"github.com/ragwiame/gateway/internal/infrastructure/repository/postgres"
	"github.com/ragwiame/gateway/internal/infrastructure/resilience"
	"github.com/ragwiame/gateway/internal/infrastructure/vector/qdrant"
	"github.com/ragwiame/gateway/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	SearchUC ports.DocumentSearcher
	AnswerUC ports.AnswerService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.NewHTTPServerMetrics("rag-gateway")
	executor := resilience.NewExecutor(resilience.DefaultConfig()).WithLogger(logger)

	completion := openaicompatClient(cfg, executor)
	embedder := openaicompatEmbedder(cfg, executor)

	dense := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)
	lexical := elastic.New(cfg.ElasticURL, cfg.ElasticIndex)

	var scorer ports.RelevanceScorer
	if cfg.EnableReranker {
		scorer = crossencoder.New(cfg.RerankerURL, executor)
	}

	router := usecase.NewQueryRouter(completion, m, logger)
	searchUC := usecase.NewSearchUseCase(dense, lexical, scorer, router, m, logger, usecase.SearchConfig{
		TopK:               cfg.RAGTopK,
		InitialTopK:        cfg.RAGInitialTopK,
		BM25TopK:           cfg.HybridBM25TopK,
		FusionStrategy:     cfg.HybridFusion,
		WeightVector:       cfg.HybridWeightVector,
		WeightKeyword:      cfg.HybridWeightKeyword,
		MinRelevanceScore:  cfg.MinRelevanceScore,
		MaxChunkChars:      cfg.RAGMaxChunkChars,
		MaxChunksPerSource: cfg.RAGMaxChunksPerSource,
		RerankTimeout:      time.Duration(cfg.RerankTimeoutSeconds) * time.Second,
		DefaultUseRAG:      cfg.DefaultUseRAG,
	})

	var (
		inventory *usecase.InventoryAnswerer
		insights  *usecase.InsightAnswerer
		closeFn   = func() {}
	)
	if cfg.EnableInventory || cfg.EnableInsights {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closeFn = func() { _ = db.Close() }

		if cfg.EnableInventory {
			repo := postgres.NewInventoryRepository(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("ensure inventory schema: %w", err)
			}
			inventory = usecase.NewInventoryAnswerer(repo, logger)
		}
		if cfg.EnableInsights {
			repo := postgres.NewInsightRepository(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("ensure insight schema: %w", err)
			}
			insights = usecase.NewInsightAnswerer(repo, logger)
		}
	}

	answerUC := usecase.NewAnswerUseCase(searchUC, completion, inventory, insights, logger)

	return &App{
		Config:   cfg,
		Metrics:  m,
		SearchUC: searchUC,
		AnswerUC: answerUC,
		closeFn:  closeFn,
	}, nil
}

func openaicompatClient(cfg config.Config, executor *resilience.Executor) *openaicompat.Client {
	return openaicompat.NewClient(cfg.VLLMURL, cfg.VLLMModel, executor)
}

func openaicompatEmbedder(cfg config.Config, executor *resilience.Executor) *openaicompat.Embedder {
	return openaicompat.NewEmbedder(cfg.EmbeddingURL, cfg.EmbedModel, executor)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
