package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

// rerankCandidates rescores fused candidates against the raw question
// through the cross-encoder and keeps the top topK. Candidates without
// text never reach the scorer. A nil scorer, a scorer error or a timeout
// all degrade to a plain truncation of the fused order: reranking is an
// improvement step, never a failure source.
func rerankCandidates(
	ctx context.Context,
	scorer ports.RelevanceScorer,
	observer ports.PipelineObserver,
	logger *slog.Logger,
	question string,
	fused []domain.FusedCandidate,
	topK int,
	timeout time.Duration,
) []domain.FusedCandidate {
	if len(fused) == 0 {
		return fused
	}
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		if observer != nil {
			observer.RerankSkipped("disabled")
		}
		return trimFused(fused, topK)
	}

	scored := make([]domain.FusedCandidate, 0, len(fused))
	texts := make([]string, 0, len(fused))
	for _, candidate := range fused {
		if strings.TrimSpace(candidate.Text) == "" {
			continue
		}
		scored = append(scored, candidate)
		texts = append(texts, candidate.Text)
	}
	if len(scored) == 0 {
		return trimFused(fused, topK)
	}

	scoreCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	scores, err := scorer.Score(scoreCtx, question, texts)
	if err == nil && len(scores) != len(texts) {
		err = fmt.Errorf("scorer returned %d scores for %d texts", len(scores), len(texts))
	}
	if err != nil {
		logger.Warn("rerank_skipped", "error", err)
		if observer != nil {
			observer.RerankSkipped("error")
		}
		return trimFused(fused, topK)
	}

	for i := range scored {
		scored[i].RerankScore = scores[i]
		scored[i].Reranked = true
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})
	return trimFused(scored, topK)
}
