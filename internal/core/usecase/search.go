package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

const hitSnippetChars = 200

var errEmptyQuestion = errors.New("question is empty")

// Fixed user-facing copy for the two retrieval-side terminal outcomes.
// "Nothing found" and "nothing relevant enough" are deliberately distinct.
const (
	emptyRetrievalMessage = "Aucun document trouvé pour cette question."
	notRelevantMessage    = "Les documents disponibles ne contiennent aucun passage suffisamment pertinent pour cette question."
)

// SearchConfig is the read-only tuning of the retrieval pipeline, loaded
// once at process start.
type SearchConfig struct {
	TopK               int
	InitialTopK        int
	BM25TopK           int
	FusionStrategy     string
	WeightVector       float64
	WeightKeyword      float64
	MinRelevanceScore  float64
	MaxChunkChars      int
	MaxChunksPerSource int
	RerankTimeout      time.Duration
	DefaultUseRAG      bool
}

func (c SearchConfig) normalize() SearchConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 6
	}
	if out.InitialTopK <= 0 {
		out.InitialTopK = 30
	}
	if out.BM25TopK <= 0 {
		out.BM25TopK = 30
	}
	if out.FusionStrategy != FusionWeighted {
		out.FusionStrategy = FusionRRF
	}
	if out.WeightVector <= 0 && out.WeightKeyword <= 0 {
		out.WeightVector = 0.6
		out.WeightKeyword = 0.4
	}
	if out.MaxChunkChars <= 0 {
		out.MaxChunkChars = 800
	}
	if out.MaxChunksPerSource <= 0 {
		out.MaxChunksPerSource = 2
	}
	return out
}

// SearchUseCase turns a question into a ranked, deduplicated,
// relevance-filtered and provenance-tagged set of passages.
type SearchUseCase struct {
	dense    ports.DenseSearcher
	lexical  ports.LexicalSearcher
	scorer   ports.RelevanceScorer
	router   *QueryRouter
	observer ports.PipelineObserver
	logger   *slog.Logger
	cfg      SearchConfig
}

func NewSearchUseCase(
	dense ports.DenseSearcher,
	lexical ports.LexicalSearcher,
	scorer ports.RelevanceScorer,
	router *QueryRouter,
	observer ports.PipelineObserver,
	logger *slog.Logger,
	cfg SearchConfig,
) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		dense:    dense,
		lexical:  lexical,
		scorer:   scorer,
		router:   router,
		observer: observer,
		logger:   logger,
		cfg:      cfg.normalize(),
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	raw := strings.TrimSpace(req.Question)
	if raw == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errEmptyQuestion)
	}

	question, useRAG := resolveRAGMode(raw, req.ExplicitRAG, uc.cfg.DefaultUseRAG)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errEmptyQuestion)
	}

	if isVagueQuestion(question) {
		return uc.finish(&domain.SearchResult{
			Outcome:   domain.OutcomeVagueQuestion,
			Question:  question,
			Intent:    domain.IntentOther,
			Citations: []domain.CitationRecord{},
			Message:   clarificationAnswer,
		}, 0)
	}

	intent := classifyIntent(question)
	if !useRAG {
		return uc.finish(&domain.SearchResult{
			Outcome:   domain.OutcomeRAGDisabled,
			Question:  question,
			Intent:    intent,
			Citations: []domain.CitationRecord{},
		}, 0)
	}

	filters := req.Filters
	if uc.router != nil {
		routed := uc.router.Analyze(ctx, question)
		filters = filters.Merge(routed.Filters)
		uc.logger.Debug("router_filters",
			"confidence", routed.Confidence,
			"filter_count", len(routed.Filters.Fields()),
		)
	}

	dense, lexical, err := uc.retrieve(ctx, question, filters, req.UseHybrid)
	if err != nil {
		return nil, err
	}
	if len(dense) == 0 && len(lexical) == 0 {
		return uc.finish(&domain.SearchResult{
			Outcome:   domain.OutcomeEmptyRetrieval,
			Question:  question,
			Intent:    intent,
			Filters:   filters,
			Citations: []domain.CitationRecord{},
			Message:   emptyRetrievalMessage,
		}, 0)
	}

	var fused []domain.FusedCandidate
	if uc.cfg.FusionStrategy == FusionWeighted {
		fused = fuseWeighted(dense, lexical, uc.cfg.WeightVector, uc.cfg.WeightKeyword)
	} else {
		fused = fuseRRF(dense, lexical)
	}
	fused = trimFused(fused, oversampleLimit(uc.cfg.TopK))

	reranked := rerankCandidates(ctx, uc.scorer, uc.observer, uc.logger, question, fused, uc.cfg.TopK, uc.cfg.RerankTimeout)

	if req.ReturnHitsOnly {
		return uc.finish(&domain.SearchResult{
			Outcome:  domain.OutcomeAnswerable,
			Question: question,
			Intent:   intent,
			Filters:  filters,
			Hits:     buildHits(reranked),
		}, len(fused))
	}

	if intent == domain.IntentNumeric {
		reranked = prioritizeNumericCandidates(reranked, fused, uc.cfg.TopK)
	}

	gated := make([]domain.FusedCandidate, 0, len(reranked))
	for _, candidate := range reranked {
		if candidate.RelevanceScore() >= uc.cfg.MinRelevanceScore {
			gated = append(gated, candidate)
		}
	}
	if len(gated) == 0 {
		return uc.finish(&domain.SearchResult{
			Outcome:   domain.OutcomeNotRelevant,
			Question:  question,
			Intent:    intent,
			Filters:   filters,
			Citations: []domain.CitationRecord{},
			Message:   notRelevantMessage,
		}, len(fused))
	}

	built := buildContext(question, gated, uc.cfg.TopK, uc.cfg.MaxChunksPerSource, uc.cfg.MaxChunkChars)
	return uc.finish(&domain.SearchResult{
		Outcome:   domain.OutcomeAnswerable,
		Question:  question,
		Intent:    intent,
		Filters:   filters,
		Context:   built.Context,
		Citations: built.Citations,
	}, len(fused))
}

// retrieve runs both backends concurrently. The lexical leg is best
// effort: its failure logs and degrades to dense-only.
func (uc *SearchUseCase) retrieve(
	ctx context.Context,
	question string,
	filters domain.SearchFilter,
	useHybrid bool,
) ([]domain.RetrievalCandidate, []domain.RetrievalCandidate, error) {
	var (
		wg         sync.WaitGroup
		dense      []domain.RetrievalCandidate
		denseErr   error
		lexical    []domain.RetrievalCandidate
		lexicalErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		dense, denseErr = uc.dense.Search(ctx, question, uc.cfg.InitialTopK, filters)
	}()

	if useHybrid && uc.lexical != nil {
		limit := uc.cfg.BM25TopK
		if uc.cfg.InitialTopK > limit {
			limit = uc.cfg.InitialTopK
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			lexical, lexicalErr = uc.lexical.Search(ctx, question, limit, filters)
		}()
	}

	wg.Wait()

	if denseErr != nil {
		return nil, nil, domain.WrapError(domain.ErrPrimaryRetrieval, "dense search", denseErr)
	}
	if lexicalErr != nil {
		uc.logger.Warn("lexical_search_degraded", "error", lexicalErr)
		if uc.observer != nil {
			uc.observer.LexicalDegraded()
		}
		lexical = nil
	}

	annotateOriginRanks(dense)
	annotateOriginRanks(lexical)
	return dense, lexical, nil
}

func (uc *SearchUseCase) finish(result *domain.SearchResult, fusedCount int) (*domain.SearchResult, error) {
	if uc.observer != nil {
		uc.observer.SearchCompleted(result.Outcome, fusedCount)
	}
	return result, nil
}

func annotateOriginRanks(candidates []domain.RetrievalCandidate) {
	for i := range candidates {
		candidates[i].OriginRank = i
	}
}

func buildHits(candidates []domain.FusedCandidate) []domain.Hit {
	hits := make([]domain.Hit, 0, len(candidates))
	for _, candidate := range candidates {
		snippet := candidate.Text
		if runes := []rune(snippet); len(runes) > hitSnippetChars {
			snippet = string(runes[:hitSnippetChars])
		}
		hits = append(hits, domain.Hit{
			ID:       candidate.ID,
			Score:    candidate.RelevanceScore(),
			Source:   candidate.Source,
			Metadata: candidate.Metadata,
			Snippet:  snippet,
		})
	}
	return hits
}
