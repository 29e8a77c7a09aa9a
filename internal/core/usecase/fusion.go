package usecase

import (
	"sort"

	"github.com/ragwiame/gateway/internal/core/domain"
)

const (
	FusionRRF      = "rrf"
	FusionWeighted = "weighted"
)

// fuseRRF merges the two ranked lists with reciprocal rank fusion: each
// list contributes 1/(rank+1) per candidate, contributions sum across
// lists. Duplicates collapse into the first copy seen; ties keep
// first-seen order.
func fuseRRF(dense, lexical []domain.RetrievalCandidate) []domain.FusedCandidate {
	order := make([]string, 0, len(dense)+len(lexical))
	byID := make(map[string]*domain.FusedCandidate, len(dense)+len(lexical))

	addList := func(candidates []domain.RetrievalCandidate) {
		for rank, candidate := range candidates {
			contribution := 1.0 / float64(rank+1)
			if existing, ok := byID[candidate.ID]; ok {
				existing.FusedScore += contribution
				continue
			}
			fused := domain.FusedCandidate{
				RetrievalCandidate: candidate,
				FusedScore:         contribution,
			}
			byID[candidate.ID] = &fused
			order = append(order, candidate.ID)
		}
	}

	addList(dense)
	addList(lexical)

	out := make([]domain.FusedCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FusedScore > out[j].FusedScore
	})
	return out
}

// fuseWeighted min-max normalizes each list's raw scores independently and
// combines them over the union of ids. A candidate absent from a list
// contributes 0 for that list; a degenerate list (max == min) normalizes
// every member to 1.0.
func fuseWeighted(dense, lexical []domain.RetrievalCandidate, weightVector, weightKeyword float64) []domain.FusedCandidate {
	denseNorm := normalizeRawScores(dense)
	lexicalNorm := normalizeRawScores(lexical)

	order := make([]string, 0, len(dense)+len(lexical))
	byID := make(map[string]domain.RetrievalCandidate, len(dense)+len(lexical))
	for _, candidate := range dense {
		if _, ok := byID[candidate.ID]; !ok {
			byID[candidate.ID] = candidate
			order = append(order, candidate.ID)
		}
	}
	for _, candidate := range lexical {
		if _, ok := byID[candidate.ID]; !ok {
			byID[candidate.ID] = candidate
			order = append(order, candidate.ID)
		}
	}

	out := make([]domain.FusedCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, domain.FusedCandidate{
			RetrievalCandidate: byID[id],
			FusedScore:         weightVector*denseNorm[id] + weightKeyword*lexicalNorm[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FusedScore > out[j].FusedScore
	})
	return out
}

func normalizeRawScores(candidates []domain.RetrievalCandidate) map[string]float64 {
	out := make(map[string]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	minScore := candidates[0].RawScore
	maxScore := candidates[0].RawScore
	for _, c := range candidates[1:] {
		if c.RawScore < minScore {
			minScore = c.RawScore
		}
		if c.RawScore > maxScore {
			maxScore = c.RawScore
		}
	}

	for _, c := range candidates {
		if _, ok := out[c.ID]; ok {
			continue
		}
		if maxScore == minScore {
			out[c.ID] = 1.0
			continue
		}
		out[c.ID] = (c.RawScore - minScore) / (maxScore - minScore)
	}
	return out
}

// oversampleLimit leaves headroom above topK for reranking and filtering
// losses downstream.
func oversampleLimit(topK int) int {
	n := topK * 3
	if minimum := topK + 2; n < minimum {
		n = minimum
	}
	return n
}

func trimFused(candidates []domain.FusedCandidate, limit int) []domain.FusedCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
