package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ragwiame/gateway/internal/core/domain"
)

type stubAnswerService struct {
	answer *domain.Answer
	err    error
	gotReq domain.AnswerRequest
}

func (s *stubAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

type stubSearchService struct {
	result *domain.SearchResult
	err    error
	gotReq domain.SearchRequest
}

func (s *stubSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestRouter(answer *stubAnswerService, search *stubSearchService) http.Handler {
	return NewRouter(answer, search, nil, nil, RouterConfig{
		ModelID:          "ao-rag",
		PublicGatewayURL: "http://gw.local",
	}).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&stubAnswerService{}, &stubSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRAGQuery(t *testing.T) {
	answer := &stubAnswerService{answer: &domain.Answer{
		Text:      "Le montant est de 120 000 €.",
		Citations: []domain.CitationRecord{{Source: "docs/dqe.xlsx", ChunkKey: "0", Number: 1}},
	}}
	handler := newTestRouter(answer, &stubSearchService{})

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{
		"question": "Quel est le montant du DQE ?",
		"service":  "travaux",
		"use_rag":  true,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var got domain.Answer
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Text != "Le montant est de 120 000 €." || len(got.Citations) != 1 {
		t.Fatalf("unexpected response: %+v", got)
	}
	if answer.gotReq.Service != "travaux" {
		t.Fatalf("service not forwarded: %+v", answer.gotReq)
	}
	if answer.gotReq.ExplicitRAG == nil || !*answer.gotReq.ExplicitRAG {
		t.Fatalf("explicit rag flag not forwarded: %+v", answer.gotReq)
	}
}

func TestRAGQueryWildcardFilters(t *testing.T) {
	answer := &stubAnswerService{answer: &domain.Answer{Text: "ok", Citations: []domain.CitationRecord{}}}
	handler := newTestRouter(answer, &stubSearchService{})

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{
		"question": "Quel est le montant du DQE ?",
		"service":  "all",
		"role":     "*",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if answer.gotReq.Service != "" || answer.gotReq.Role != "" {
		t.Fatalf("wildcard filters should be cleared: %+v", answer.gotReq)
	}
}

func TestRAGQueryDefaultServiceFilter(t *testing.T) {
	answer := &stubAnswerService{answer: &domain.Answer{Text: "ok", Citations: []domain.CitationRecord{}}}
	handler := NewRouter(answer, &stubSearchService{}, nil, nil, RouterConfig{
		DefaultService: "travaux",
	}).Handler()

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{
		"question": "Quel est le montant du DQE ?",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if answer.gotReq.Service != "travaux" {
		t.Fatalf("default service not applied: %+v", answer.gotReq)
	}

	res = postJSON(t, handler, "/v1/rag/query", map[string]any{
		"question": "Quel est le montant du DQE ?",
		"service":  "fournitures",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if answer.gotReq.Service != "fournitures" {
		t.Fatalf("explicit service must win over the default: %+v", answer.gotReq)
	}
}

func TestRAGQueryValidation(t *testing.T) {
	handler := newTestRouter(&stubAnswerService{}, &stubSearchService{})

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "  "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/rag/query", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRAGQueryBackendDown(t *testing.T) {
	answer := &stubAnswerService{err: domain.WrapError(domain.ErrPrimaryRetrieval, "dense search", errors.New("qdrant down"))}
	handler := newTestRouter(answer, &stubSearchService{})

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "Quel est le montant ?"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestHybridSearch(t *testing.T) {
	search := &stubSearchService{result: &domain.SearchResult{
		Outcome: domain.OutcomeAnswerable,
		Hits: []domain.Hit{
			{ID: "a", Score: 0.9, Source: "docs/a.txt", Snippet: "extrait"},
		},
	}}
	handler := newTestRouter(&stubAnswerService{}, search)

	res := postJSON(t, handler, "/v1/hybrid/search", map[string]any{
		"question": "prix unitaires",
		"ao_id":    "ED123456",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !search.gotReq.ReturnHitsOnly || !search.gotReq.UseHybrid {
		t.Fatalf("expected hits-only hybrid request: %+v", search.gotReq)
	}
	if search.gotReq.Filters.TenderID != "ED123456" {
		t.Fatalf("filters not forwarded: %+v", search.gotReq.Filters)
	}

	var got struct {
		Outcome string       `json:"outcome"`
		Hits    []domain.Hit `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Hits) != 1 || got.Hits[0].ID != "a" {
		t.Fatalf("unexpected hits: %+v", got)
	}
}

func TestListModels(t *testing.T) {
	handler := newTestRouter(&stubAnswerService{}, &stubSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var got struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].ID != "ao-rag" {
		t.Fatalf("unexpected models: %+v", got)
	}
}

func TestChatCompletionsAppendsReferences(t *testing.T) {
	answer := &stubAnswerService{answer: &domain.Answer{
		Text: "Le montant est de 120 000 €.",
		Citations: []domain.CitationRecord{
			{Source: "montmirail/dqe.xlsx", ChunkKey: "0", Number: 1, Snippet: "montant total"},
		},
	}}
	handler := newTestRouter(answer, &stubSearchService{})

	res := postJSON(t, handler, "/v1/chat/completions", map[string]any{
		"model": "ao-rag",
		"messages": []map[string]string{
			{"role": "system", "content": "tu es un assistant"},
			{"role": "user", "content": "Quel est le montant du DQE ?"},
		},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if answer.gotReq.Question != "Quel est le montant du DQE ?" {
		t.Fatalf("last user message not extracted: %q", answer.gotReq.Question)
	}

	var got struct {
		Object  string `json:"object"`
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Object != "chat.completion" || len(got.Choices) != 1 {
		t.Fatalf("unexpected response shape: %+v", got)
	}
	content := got.Choices[0].Message.Content
	if !strings.Contains(content, "> Références :") || !strings.Contains(content, "montmirail/dqe.xlsx") {
		t.Fatalf("reference block missing:\n%s", content)
	}
	if got.Choices[0].FinishReason != "stop" {
		t.Fatalf("unexpected finish reason: %q", got.Choices[0].FinishReason)
	}
}

func TestChatCompletionsNoUserMessage(t *testing.T) {
	handler := newTestRouter(&stubAnswerService{}, &stubSearchService{})

	res := postJSON(t, handler, "/v1/chat/completions", map[string]any{
		"messages": []map[string]string{{"role": "system", "content": "config"}},
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestChatCompletionsStream(t *testing.T) {
	answer := &stubAnswerService{answer: &domain.Answer{Text: strings.Repeat("réponse ", 40)}}
	handler := newTestRouter(answer, &stubSearchService{})

	res := postJSON(t, handler, "/v1/chat/completions", map[string]any{
		"stream":   true,
		"messages": []map[string]string{{"role": "user", "content": "Quel est le montant ?"}},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", ct)
	}
	body := res.Body.String()
	if !strings.Contains(body, "chat.completion.chunk") {
		t.Fatalf("expected chunk objects:\n%s", body)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Fatalf("stream must end with DONE:\n%s", body)
	}
}
