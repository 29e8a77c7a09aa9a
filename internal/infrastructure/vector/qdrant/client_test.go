package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ragwiame/gateway/internal/core/domain"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func TestSearchBuildsFilteredRequest(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/rag_documents/points/search" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"id":    "11111111-1111-1111-1111-111111111111",
					"score": 0.87,
					"payload": map[string]any{
						"source":      "projets/ED123456/cctp.txt",
						"text":        "le délai d'exécution est de six mois",
						"ao_id":       "ED123456",
						"chunk_index": float64(3),
						"ao_signed":   true,
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents", &stubEmbedder{vector: []float32{0.1, 0.2}})
	filter := domain.SearchFilter{TenderID: "ED123456", Signed: true}

	got, err := client.Search(context.Background(), "délai d'exécution", 10, filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["limit"].(float64) != 10 {
		t.Fatalf("limit not forwarded: %v", captured["limit"])
	}
	must := captured["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected 2 filter clauses, got %d", len(must))
	}
	first := must[0].(map[string]any)
	if first["key"] != "ao_id" {
		t.Fatalf("expected ao_id clause first, got %v", first["key"])
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.ID != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("unexpected id: %s", c.ID)
	}
	if c.Source != "projets/ED123456/cctp.txt" || c.RawScore != 0.87 {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Metadata["chunk_index"] != "3" || c.Metadata["ao_signed"] != "true" {
		t.Fatalf("payload metadata lost: %+v", c.Metadata)
	}
	if _, ok := c.Metadata["text"]; ok {
		t.Fatalf("chunk text must not leak into metadata")
	}
}

func TestSearchNoFilterOmitsClause(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["filter"]; ok {
			t.Fatalf("empty filter must be omitted: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents", &stubEmbedder{vector: []float32{0.1}})
	if _, err := client.Search(context.Background(), "question", 5, domain.SearchFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	client := New("http://localhost:1", "rag_documents", &stubEmbedder{err: errors.New("embedding backend down")})

	if _, err := client.Search(context.Background(), "question", 5, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected embedding error")
	}
}

func TestSearchBackendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents", &stubEmbedder{vector: []float32{0.1}})
	if _, err := client.Search(context.Background(), "question", 5, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestSearchIntegerPointID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": float64(42), "score": 0.5, "payload": map[string]any{"source": "a.txt", "text": "x"}},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents", &stubEmbedder{vector: []float32{0.1}})
	got, err := client.Search(context.Background(), "question", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID != "42" {
		t.Fatalf("expected numeric id normalized, got %q", got[0].ID)
	}
}
