package ports

import (
	"context"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// DenseSearcher runs a similarity search over the vector store. It is the
// primary retrieval backend: an error here aborts the query.
type DenseSearcher interface {
	Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.RetrievalCandidate, error)
}

// LexicalSearcher runs a keyword (BM25-style) search. A failing lexical
// backend degrades the query to dense-only, it never aborts it.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.RetrievalCandidate, error)
}

// RelevanceScorer scores (query, text) pairs through a cross-encoder.
// The returned slice has the same length and order as texts.
type RelevanceScorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Embedder turns query text into a vector for the dense backend.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionClient is the raw completion backend used by the router's
// structured-filter fallback.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// AnswerGenerator synthesizes the final answer from the formatted context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, intent domain.QueryIntent, contextText, question string) (string, error)
	GenerateWithoutContext(ctx context.Context, question string) (string, error)
}

// InventoryStore reads the per-project document inventory.
type InventoryStore interface {
	ListProjects(ctx context.Context) ([]string, error)
	ListDocuments(ctx context.Context, project string) ([]domain.InventoryRecord, error)
}

// InsightStore reads precomputed estimate totals.
type InsightStore interface {
	TopEstimateTotals(ctx context.Context, limit int) ([]domain.InsightRecord, error)
}

// PipelineObserver receives retrieval pipeline events for metrics. All
// implementations must be safe for concurrent use.
type PipelineObserver interface {
	SearchCompleted(outcome domain.SearchOutcome, fusedCount int)
	LexicalDegraded()
	RerankSkipped(reason string)
	RouterFallbackFailed()
}
