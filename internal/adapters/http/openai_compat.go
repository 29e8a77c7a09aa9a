package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// The OpenAI-compatible surface lets chat frontends talk to the gateway
// without knowing about retrieval. The answer text comes back with the
// markdown reference block appended.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]any{
			{
				"id":       rt.cfg.ModelID,
				"object":   "model",
				"owned_by": rt.cfg.ServiceName,
			},
		},
	})
}

func (rt *Router) chatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	question := lastUserMessage(req.Messages)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no user message in request"})
		return
	}

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), domain.AnswerRequest{Question: question})
	if err != nil {
		rt.writeError(w, r, "chat_completions", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswerDuration("chat_completions", time.Since(start))
	}

	text := appendCitationsBlock(answer.Text, answer.Citations, rt.cfg.PublicGatewayURL)
	if req.Stream {
		rt.streamCompletion(w, text)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-" + uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   rt.cfg.ModelID,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       chatMessage{Role: "assistant", Content: text},
				"finish_reason": "stop",
			},
		},
	})
}

// streamCompletion replays the finished answer as SSE chunks; generation
// itself is not token streamed.
func (rt *Router) streamCompletion(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	writeChunk := func(delta map[string]any, finish any) {
		payload, _ := json.Marshal(map[string]any{
			"id":      id,
			"object":  "chat.completion.chunk",
			"created": created,
			"model":   rt.cfg.ModelID,
			"choices": []map[string]any{
				{"index": 0, "delta": delta, "finish_reason": finish},
			},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}

	writeChunk(map[string]any{"role": "assistant"}, nil)
	for _, part := range splitRunes(text, rt.cfg.StreamChunkChars) {
		writeChunk(map[string]any{"content": part}, nil)
	}
	writeChunk(map[string]any{}, "stop")
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func splitRunes(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
