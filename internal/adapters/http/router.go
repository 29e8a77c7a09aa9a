package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
	"github.com/ragwiame/gateway/internal/observability/metrics"
)

type RouterConfig struct {
	ServiceName      string
	ModelID          string
	PublicGatewayURL string
	DataRoot         string
	DefaultService   string
	DefaultRole      string
	RateLimitRPS     int
	RateLimitBurst   int
	MaxInFlight      int
	InFlightWait     time.Duration
	StreamChunkChars int
}

func (c RouterConfig) normalize() RouterConfig {
	out := c
	if out.ServiceName == "" {
		out.ServiceName = "rag-gateway"
	}
	if out.ModelID == "" {
		out.ModelID = "ao-rag"
	}
	if out.DataRoot == "" {
		out.DataRoot = "/data"
	}
	if out.MaxInFlight <= 0 {
		out.MaxInFlight = 32
	}
	if out.InFlightWait <= 0 {
		out.InFlightWait = 2 * time.Second
	}
	if out.StreamChunkChars <= 0 {
		out.StreamChunkChars = 120
	}
	return out
}

type Router struct {
	answer  ports.AnswerService
	search  ports.DocumentSearcher
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
	cfg     RouterConfig
}

func NewRouter(
	answer ports.AnswerService,
	search ports.DocumentSearcher,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	cfg RouterConfig,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		answer:  answer,
		search:  search,
		metrics: m,
		logger:  logger,
		cfg:     cfg.normalize(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/rag/query", rt.ragQuery)
	mux.HandleFunc("/v1/hybrid/search", rt.hybridSearch)
	mux.HandleFunc("/v1/models", rt.listModels)
	mux.HandleFunc("/v1/chat/completions", rt.chatCompletions)
	mux.HandleFunc("/files/view", rt.viewFile)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.InFlightWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ragQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		Service  string `json:"service"`
		Role     string `json:"role"`
		UseRAG   *bool  `json:"use_rag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), domain.AnswerRequest{
		Question:    req.Question,
		Service:     rt.filterOrDefault(req.Service, rt.cfg.DefaultService),
		Role:        rt.filterOrDefault(req.Role, rt.cfg.DefaultRole),
		ExplicitRAG: req.UseRAG,
	})
	if err != nil {
		rt.writeError(w, r, "rag_query", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswerDuration("rag_query", time.Since(start))
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) hybridSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		Service  string `json:"service"`
		Role     string `json:"role"`
		TenderID string `json:"ao_id"`
		DocCode  string `json:"ao_doc_code"`
		Commune  string `json:"ao_commune"`
		Signed   bool   `json:"ao_signed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	result, err := rt.search.Search(r.Context(), domain.SearchRequest{
		Question: req.Question,
		Filters: domain.SearchFilter{
			Service:  rt.filterOrDefault(req.Service, rt.cfg.DefaultService),
			Role:     rt.filterOrDefault(req.Role, rt.cfg.DefaultRole),
			TenderID: req.TenderID,
			DocCode:  req.DocCode,
			Commune:  req.Commune,
			Signed:   req.Signed,
		},
		UseHybrid:      true,
		ReturnHitsOnly: true,
	})
	if err != nil {
		rt.writeError(w, r, "hybrid_search", err)
		return
	}

	hits := result.Hits
	if hits == nil {
		hits = []domain.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome": result.Outcome,
		"hits":    hits,
	})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	rt.logger.Error("request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"operation", operation,
		"status", status,
		"error", err,
	)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// normalizeFilterValue maps wildcard filter values to "no filter".
func normalizeFilterValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "all", "*", "any":
		return ""
	}
	return v
}

// filterOrDefault resolves a request filter value, substituting the
// configured default when the request leaves it open.
func (rt *Router) filterOrDefault(v, fallback string) string {
	if normalized := normalizeFilterValue(v); normalized != "" {
		return normalized
	}
	return normalizeFilterValue(fallback)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
