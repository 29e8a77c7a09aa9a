package elastic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ragwiame/gateway/internal/core/domain"
)

func TestSearchBuildsFuzzyBoolQuery(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rag_documents/_search" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"hits": []map[string]any{
					{
						"_id":    "chunk-1",
						"_score": 7.2,
						"_source": map[string]any{
							"source":      "projets/ED123456/bpu.txt",
							"content":     "bordereau des prix unitaires du lot 2",
							"ao_id":       "ED123456",
							"chunk_index": float64(0),
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents")
	got, err := client.Search(context.Background(), "prix unitaires", 30, domain.SearchFilter{TenderID: "ED123456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["size"].(float64) != 30 {
		t.Fatalf("size not forwarded: %v", captured["size"])
	}
	must := captured["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected match plus one term clause, got %d", len(must))
	}
	match := must[0].(map[string]any)["match"].(map[string]any)["content"].(map[string]any)
	if match["fuzziness"] != "AUTO" || match["operator"] != "or" || match["minimum_should_match"] != "50%" {
		t.Fatalf("unexpected match options: %v", match)
	}
	term := must[1].(map[string]any)["term"].(map[string]any)
	if term["ao_id"] != "ED123456" {
		t.Fatalf("term filter missing: %v", term)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.ID != "chunk-1" || c.RawScore != 7.2 {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Text != "bordereau des prix unitaires du lot 2" {
		t.Fatalf("content not mapped to text: %q", c.Text)
	}
	if c.Metadata["ao_id"] != "ED123456" || c.Metadata["chunk_index"] != "0" {
		t.Fatalf("metadata lost: %+v", c.Metadata)
	}
	if _, ok := c.Metadata["content"]; ok {
		t.Fatalf("content body must not leak into metadata")
	}
}

func TestSearchBackendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index_not_found_exception", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents")
	if _, err := client.Search(context.Background(), "question", 10, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestSearchOriginRanksFollowHitOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"hits": []map[string]any{
					{"_id": "a", "_score": 3.0, "_source": map[string]any{"source": "a.txt", "content": "a"}},
					{"_id": "b", "_score": 2.0, "_source": map[string]any{"source": "b.txt", "content": "b"}},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "rag_documents")
	got, err := client.Search(context.Background(), "question", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].OriginRank != 0 || got[1].OriginRank != 1 {
		t.Fatalf("origin ranks wrong: %d %d", got[0].OriginRank, got[1].OriginRank)
	}
}
