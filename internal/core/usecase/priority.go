package usecase

import (
	"regexp"
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// staffingKeywords flag passages likely to answer headcount questions.
var staffingKeywords = []string{
	"effectif",
	"effectifs",
	"personnel",
	"encadrement",
	"compagnons",
	"salariés",
	"salaries",
	"équipe",
	"equipe",
}

// numericSignalKeywords flag passages likely to carry an amount.
var numericSignalKeywords = []string{
	"€",
	"k€",
	"m€",
	"montant",
	"total",
}

var digitNearQuestionMark = regexp.MustCompile(`[0-9]\s*\?|\?\s*[0-9]`)

func hasStaffingSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range staffingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasNumericSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range numericSignalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return digitNearQuestionMark.MatchString(lower)
}

// prioritizeNumericCandidates repartitions the reranked list, backed by the
// pre-rerank fused reserve pool, into staffing-signal, numeric-signal and
// remaining buckets, in that order. Within each bucket the reranked order
// comes first and the reserve keeps its fused order, so ties stay
// deterministic. Duplicates collapse by id; the result is capped at topK.
func prioritizeNumericCandidates(reranked, reserve []domain.FusedCandidate, topK int) []domain.FusedCandidate {
	var staffing, numeric, others []domain.FusedCandidate
	seen := make(map[string]struct{}, len(reranked)+len(reserve))

	classify := func(candidates []domain.FusedCandidate) {
		for _, candidate := range candidates {
			if _, ok := seen[candidate.ID]; ok {
				continue
			}
			seen[candidate.ID] = struct{}{}
			switch {
			case hasStaffingSignal(candidate.Text):
				staffing = append(staffing, candidate)
			case hasNumericSignal(candidate.Text):
				numeric = append(numeric, candidate)
			default:
				others = append(others, candidate)
			}
		}
	}

	classify(reranked)
	classify(reserve)

	out := make([]domain.FusedCandidate, 0, len(staffing)+len(numeric)+len(others))
	out = append(out, staffing...)
	out = append(out, numeric...)
	out = append(out, others...)
	return trimFused(out, topK)
}
