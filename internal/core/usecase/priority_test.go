package usecase

import (
	"testing"

	"github.com/ragwiame/gateway/internal/core/domain"
)

func fusedWithText(id, text string) domain.FusedCandidate {
	return domain.FusedCandidate{
		RetrievalCandidate: domain.RetrievalCandidate{
			ID:     id,
			Source: "docs/" + id + ".txt",
			Text:   text,
		},
	}
}

func TestPrioritizeNumericBucketsOrder(t *testing.T) {
	reranked := []domain.FusedCandidate{
		fusedWithText("plain", "présentation générale du chantier"),
		fusedWithText("amount", "le montant total s'élève à 120 000 €"),
		fusedWithText("staff", "l'effectif du chantier est de 12 compagnons"),
	}

	out := prioritizeNumericCandidates(reranked, nil, 6)
	if len(out) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(out))
	}
	if out[0].ID != "staff" || out[1].ID != "amount" || out[2].ID != "plain" {
		t.Fatalf("unexpected order: %q %q %q", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestPrioritizeNumericPullsFromReserve(t *testing.T) {
	reranked := []domain.FusedCandidate{
		fusedWithText("plain", "description des travaux"),
	}
	reserve := []domain.FusedCandidate{
		fusedWithText("plain", "description des travaux"),
		fusedWithText("deep", "montant estimatif de 95 k€ HT"),
	}

	out := prioritizeNumericCandidates(reranked, reserve, 6)
	if len(out) != 2 {
		t.Fatalf("expected reserve candidate merged without duplicates, got %d", len(out))
	}
	if out[0].ID != "deep" {
		t.Fatalf("expected reserve numeric candidate promoted first, got %q", out[0].ID)
	}
}

func TestPrioritizeNumericCapsAtTopK(t *testing.T) {
	reranked := []domain.FusedCandidate{
		fusedWithText("a", "montant de 10 €"),
		fusedWithText("b", "montant de 20 €"),
		fusedWithText("c", "montant de 30 €"),
	}

	out := prioritizeNumericCandidates(reranked, nil, 2)
	if len(out) != 2 {
		t.Fatalf("expected topK cap of 2, got %d", len(out))
	}
}

func TestNumericSignalDetection(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"montant des travaux", true},
		{"estimation à 40 k€", true},
		{"prix unitaire 12 ?", true},
		{"calendrier des réunions", false},
	}
	for _, tc := range cases {
		if got := hasNumericSignal(tc.text); got != tc.want {
			t.Fatalf("hasNumericSignal(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
