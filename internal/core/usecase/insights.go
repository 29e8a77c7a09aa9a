package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

var insightTriggerKeywords = []string{
	"montant", "total", "coût", "cout", "budget", "estimatif", " ht",
}

// estimate questions must also look like ranking or aggregate queries,
// otherwise a plain numeric question should go through retrieval.
var insightAggregateKeywords = []string{
	"plus élevé", "plus eleve", "plus gros", "plus important",
	"classement", "comparatif", "par projet", "tous les projets",
}

const defaultInsightLimit = 10

// InsightAnswerer answers aggregate cost questions from precomputed
// spreadsheet totals instead of raw passages.
type InsightAnswerer struct {
	store  ports.InsightStore
	logger *slog.Logger
}

func NewInsightAnswerer(store ports.InsightStore, logger *slog.Logger) *InsightAnswerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightAnswerer{store: store, logger: logger}
}

// TryAnswer returns a ranked list of estimate totals when the question
// asks for cross-project amounts. Failures fall through to retrieval.
func (a *InsightAnswerer) TryAnswer(ctx context.Context, question string) *domain.Answer {
	if a == nil || a.store == nil {
		return nil
	}
	lowered := strings.ToLower(question)
	if !containsAny(lowered, insightTriggerKeywords) || !containsAny(lowered, insightAggregateKeywords) {
		return nil
	}

	records, err := a.store.TopEstimateTotals(ctx, defaultInsightLimit)
	if err != nil {
		a.logger.Warn("insight_lookup_failed", "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Montants estimatifs les plus élevés :\n")
	citations := make([]domain.CitationRecord, 0, len(records))
	for i, rec := range records {
		unit := rec.Unit
		if unit == "" {
			unit = "€"
		}
		fmt.Fprintf(&sb, "%d. %s : %.2f %s (%s)\n", i+1, rec.Label, rec.Value, unit, rec.SourcePath)
		citations = append(citations, domain.CitationRecord{
			Source:   rec.SourcePath,
			ChunkKey: rec.Label,
			Number:   i + 1,
			Snippet:  fmt.Sprintf("%s → %.2f %s", rec.Label, rec.Value, unit),
		})
	}
	return &domain.Answer{Text: strings.TrimRight(sb.String(), "\n"), Citations: citations}
}
