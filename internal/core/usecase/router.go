package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

var (
	tenderIDPattern = regexp.MustCompile(`(?i)\bED\d{5,7}\b`)
	phasePattern    = regexp.MustCompile(`(?i)phase\s*(candidature|offre|[0-9]+)`)
)

// docRolePatterns mirrors the keyword sets the ingestion side tags
// documents with, so router filters line up with indexed metadata.
var docRolePatterns = map[string][]string{
	"BPU":          {"bpu", "bordereau des prix"},
	"DE":           {"detail estimatif", "détail estimatif", "de "},
	"AE":           {"acte d'engagement", "ae "},
	"RC":           {"reglement de consultation", "règlement de consultation", "rc "},
	"CCAP":         {"ccap"},
	"CCTP":         {"cctp"},
	"PLANNING":     {"planning"},
	"MEMOIRE":      {"memoire technique", "mémoire technique"},
	"PRESENTATION": {"presentation de l'entreprise", "présentation de l'entreprise"},
}

var signedKeywords = []string{"signé", "signée", "signee"}

// QueryRouter extracts metadata filter predicates from the question text.
// Pattern matching runs first; a constrained completion call fills the
// gaps when patterns found nothing or a locality cue is present.
type QueryRouter struct {
	completion    ports.CompletionClient
	observer      ports.PipelineObserver
	logger        *slog.Logger
	keywordToCode map[string]string
}

func NewQueryRouter(completion ports.CompletionClient, observer ports.PipelineObserver, logger *slog.Logger) *QueryRouter {
	keywordToCode := make(map[string]string, 16)
	for code, keywords := range docRolePatterns {
		for _, kw := range keywords {
			keywordToCode[strings.ToLower(kw)] = code
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryRouter{
		completion:    completion,
		observer:      observer,
		logger:        logger,
		keywordToCode: keywordToCode,
	}
}

func (r *QueryRouter) Analyze(ctx context.Context, question string) domain.RouterResult {
	text := strings.TrimSpace(question)
	lower := strings.ToLower(text)

	var filters domain.SearchFilter

	if m := tenderIDPattern.FindString(text); m != "" {
		filters.TenderID = strings.ToUpper(m)
	}

	if m := phasePattern.FindStringSubmatch(lower); m != nil {
		val := m[1]
		if isDigits(val) {
			filters.PhaseCode = padPhaseCode(val)
		} else {
			filters.PhaseLabel = strings.ToUpper(val[:1]) + val[1:]
		}
	}

	// Longest matching keyword wins so "de " cannot shadow "detail estimatif".
	foundCode := ""
	longest := 0
	for kw, code := range r.keywordToCode {
		if strings.Contains(lower, kw) && len(kw) > longest {
			longest = len(kw)
			foundCode = code
		}
	}
	if foundCode != "" {
		filters.DocCode = foundCode
	}

	for _, kw := range signedKeywords {
		if strings.Contains(lower, kw) {
			filters.Signed = true
			break
		}
	}

	localityCue := strings.Contains(lower, "commune") || strings.Contains(lower, "mairie")
	if r.completion != nil && (filters.IsZero() || localityCue) {
		extracted, err := r.extractWithCompletion(ctx, text)
		if err != nil {
			r.logger.Warn("router_fallback_failed", "error", err)
			if r.observer != nil {
				r.observer.RouterFallbackFailed()
			}
		} else {
			merged := filters.Merge(extracted)
			// Free-text localities are unreliable to pattern-match, so the
			// extraction result always wins for the commune.
			if extracted.Commune != "" {
				merged.Commune = extracted.Commune
			}
			filters = merged
		}
	}

	return domain.RouterResult{
		Filters:    filters,
		Confidence: estimateConfidence(filters),
	}
}

func (r *QueryRouter) extractWithCompletion(ctx context.Context, question string) (domain.SearchFilter, error) {
	raw, err := r.completion.CompleteJSON(ctx, buildRouterPrompt(question))
	if err != nil {
		return domain.SearchFilter{}, fmt.Errorf("router extraction: %w", err)
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	var payload struct {
		TenderID   string `json:"ao_id"`
		PhaseCode  string `json:"ao_phase_code"`
		PhaseLabel string `json:"ao_phase_label"`
		DocCode    string `json:"ao_doc_code"`
		Commune    string `json:"ao_commune"`
		Signed     string `json:"ao_signed"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return domain.SearchFilter{}, fmt.Errorf("parse router extraction json: %w", err)
	}

	return domain.SearchFilter{
		TenderID:   strings.ToUpper(strings.TrimSpace(payload.TenderID)),
		PhaseCode:  strings.TrimSpace(payload.PhaseCode),
		PhaseLabel: strings.TrimSpace(payload.PhaseLabel),
		DocCode:    strings.ToUpper(strings.TrimSpace(payload.DocCode)),
		Commune:    strings.TrimSpace(payload.Commune),
		Signed:     strings.EqualFold(strings.TrimSpace(payload.Signed), "true"),
	}, nil
}

func buildRouterPrompt(question string) string {
	return `Tu extrais des filtres de recherche depuis une question sur des appels d'offres.
Réponds UNIQUEMENT par un objet JSON avec les clés suivantes (valeur vide si absente) :
ao_id (identifiant AO, format EDxxxxx), ao_phase_code (code à deux chiffres),
ao_phase_label (Candidature ou Offre), ao_doc_code (BPU, DE, AE, RC, CCAP, CCTP, PLANNING, MEMOIRE, PRESENTATION),
ao_commune (nom de la commune ou de la ville), ao_signed ("true" si la version signée est demandée).
Pas de markdown, pas d'autres clés.

Question : ` + question
}

// estimateConfidence scores filter specificity: the tender identifier is
// the strongest signal, the document code the weakest.
func estimateConfidence(filters domain.SearchFilter) float64 {
	if filters.IsZero() {
		return 0.0
	}
	score := 0.2
	if filters.TenderID != "" {
		score += 0.5
	}
	if filters.Commune != "" {
		score += 0.3
	}
	if filters.DocCode != "" {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func padPhaseCode(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
