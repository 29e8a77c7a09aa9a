package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

// AnswerUseCase composes the short-circuit answerers, the retrieval
// pipeline and the generator into the end-to-end question flow.
type AnswerUseCase struct {
	searcher  ports.DocumentSearcher
	generator ports.AnswerGenerator
	inventory *InventoryAnswerer
	insights  *InsightAnswerer
	logger    *slog.Logger
}

func NewAnswerUseCase(
	searcher ports.DocumentSearcher,
	generator ports.AnswerGenerator,
	inventory *InventoryAnswerer,
	insights *InsightAnswerer,
	logger *slog.Logger,
) *AnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		searcher:  searcher,
		generator: generator,
		inventory: inventory,
		insights:  insights,
		logger:    logger,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errEmptyQuestion)
	}

	// Structured stores answer listing and aggregate questions without
	// spending a retrieval round trip.
	if answer := uc.inventory.TryAnswer(ctx, question); answer != nil {
		return answer, nil
	}
	if answer := uc.insights.TryAnswer(ctx, question); answer != nil {
		return answer, nil
	}

	searchReq := domain.SearchRequest{
		Question:    question,
		UseHybrid:   true,
		ExplicitRAG: req.ExplicitRAG,
	}
	if req.Service != "" {
		searchReq.Filters.Service = req.Service
	}
	if req.Role != "" {
		searchReq.Filters.Role = req.Role
	}

	result, err := uc.searcher.Search(ctx, searchReq)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case domain.OutcomeVagueQuestion, domain.OutcomeEmptyRetrieval, domain.OutcomeNotRelevant:
		return &domain.Answer{Text: result.Message, Citations: []domain.CitationRecord{}}, nil
	case domain.OutcomeRAGDisabled:
		text, err := uc.generator.GenerateWithoutContext(ctx, result.Question)
		if err != nil {
			return nil, err
		}
		return &domain.Answer{Text: text, Citations: []domain.CitationRecord{}}, nil
	}

	text, err := uc.generator.GenerateAnswer(ctx, result.Intent, result.Context, result.Question)
	if err != nil {
		return nil, err
	}
	citations := result.Citations
	if citations == nil {
		citations = []domain.CitationRecord{}
	}
	return &domain.Answer{Text: text, Citations: citations}, nil
}
