package ports

import (
	"context"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// DocumentSearcher is the inbound contract of the hybrid retrieval core.
type DocumentSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
}

// AnswerService is the inbound contract of the full question-answering
// shell: retrieval core plus answer synthesis and short-circuit lookups.
type AnswerService interface {
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error)
}
