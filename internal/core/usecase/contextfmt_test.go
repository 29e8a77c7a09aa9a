package usecase

import (
	"strings"
	"testing"

	"github.com/ragwiame/gateway/internal/core/domain"
)

func contextCandidate(id, source, text string, meta map[string]string) domain.FusedCandidate {
	return domain.FusedCandidate{
		RetrievalCandidate: domain.RetrievalCandidate{
			ID:       id,
			Source:   source,
			Text:     text,
			Metadata: meta,
		},
	}
}

func TestBuildContextPerSourceQuotaSkipsNotDefers(t *testing.T) {
	candidates := []domain.FusedCandidate{
		contextCandidate("a1", "docs/a.txt", "premier extrait du document a", nil),
		contextCandidate("a2", "docs/a.txt", "deuxième extrait du document a", nil),
		contextCandidate("a3", "docs/a.txt", "troisième extrait du document a", nil),
		contextCandidate("b1", "docs/b.txt", "extrait du document b", nil),
	}

	built := buildContext("extrait", candidates, 6, 2, 800)
	if len(built.Citations) != 3 {
		t.Fatalf("expected 3 citations (2 from a, 1 from b), got %d", len(built.Citations))
	}
	for _, c := range built.Citations {
		if c.ChunkKey == "a3" {
			t.Fatalf("third passage of a saturated source must be skipped")
		}
	}
}

func TestBuildContextCitationNumbersPerSource(t *testing.T) {
	candidates := []domain.FusedCandidate{
		contextCandidate("a1", "docs/a.txt", "extrait un", nil),
		contextCandidate("b1", "docs/b.txt", "extrait deux", nil),
		contextCandidate("a2", "docs/a.txt", "extrait trois", nil),
	}

	built := buildContext("extrait", candidates, 6, 2, 800)
	wantNumbers := []int{1, 2, 1}
	for i, c := range built.Citations {
		if c.Number != wantNumbers[i] {
			t.Fatalf("citation %d: expected number %d, got %d", i, wantNumbers[i], c.Number)
		}
	}
	if !strings.Contains(built.Context, "[1] 📄 Source: a.txt") {
		t.Fatalf("missing numbered header in context:\n%s", built.Context)
	}
}

func TestBuildContextEmptyYieldsPlaceholder(t *testing.T) {
	candidates := []domain.FusedCandidate{
		contextCandidate("a1", "docs/a.txt", "   ", nil),
	}

	built := buildContext("question", candidates, 6, 2, 800)
	if built.Context != noExcerptPlaceholder {
		t.Fatalf("expected placeholder context, got %q", built.Context)
	}
	if len(built.Citations) != 0 {
		t.Fatalf("expected no citations, got %d", len(built.Citations))
	}
}

func TestBuildContextHeaderMetadata(t *testing.T) {
	meta := map[string]string{
		"ao_phase_label": "Offre",
		"ao_section":     "DCE",
		"ao_doc_code":    "CCTP",
		"ao_signed":      "true",
		"date":           "2024-06-12T09:30:00Z",
	}
	candidates := []domain.FusedCandidate{
		contextCandidate("c1", "projets/ED123456/cctp.txt", "le délai d'exécution est de six mois", meta),
	}

	built := buildContext("délai", candidates, 6, 2, 800)
	header := built.Context
	for _, want := range []string{
		"Source: cctp.txt",
		"Phase: Offre (Dossier: DCE)",
		"Type: CCTP",
		"✅ SIGNE",
		"Date: 2024-06-12",
	} {
		if !strings.Contains(header, want) {
			t.Fatalf("header missing %q:\n%s", want, header)
		}
	}
}

func TestSelectRelevantTextKeywordSentences(t *testing.T) {
	text := "Le chantier démarre en mai. Le montant total est de 120 000 euros. La réception est prévue en octobre."
	got := selectRelevantText(text, []string{"montant"}, 800)
	if got != "Le montant total est de 120 000 euros." {
		t.Fatalf("unexpected snippet: %q", got)
	}
}

func TestSelectRelevantTextFallsBackToFullText(t *testing.T) {
	text := "Aucune phrase ne contient le terme cherché."
	got := selectRelevantText(text, []string{"introuvable"}, 800)
	if got != text {
		t.Fatalf("expected full-text fallback, got %q", got)
	}
}

func TestSelectRelevantTextRuneSafeTruncation(t *testing.T) {
	text := strings.Repeat("é", 20)
	got := selectRelevantText(text, nil, 10)
	if got != strings.Repeat("é", 10)+"…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestChunkKeyPrefersChunkIndex(t *testing.T) {
	c := domain.RetrievalCandidate{ID: "uuid-1", Metadata: map[string]string{"chunk_index": "4"}}
	if got := chunkKeyFor(c); got != "4" {
		t.Fatalf("expected chunk index key, got %q", got)
	}
	c.Metadata = nil
	if got := chunkKeyFor(c); got != "uuid-1" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}
