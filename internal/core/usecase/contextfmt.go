package usecase

import (
	"fmt"
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// noExcerptPlaceholder replaces an empty context so the completion backend
// never receives a blank document block.
const noExcerptPlaceholder = "Aucun extrait pertinent."

const unknownSource = "inconnu"

type builtContext struct {
	Context   string
	Citations []domain.CitationRecord
}

// buildContext assembles the bounded context string and the citation list.
// Sources are capped at maxPerSource passages; once a source is full its
// further candidates are skipped, not deferred. Citation numbers are
// 1-based and assigned per distinct source in first-appearance order.
func buildContext(question string, candidates []domain.FusedCandidate, topK, maxPerSource, maxChunkChars int) builtContext {
	keywords := queryKeywords(question)

	blocks := make([]string, 0, topK)
	citations := make([]domain.CitationRecord, 0, topK)
	numberBySource := make(map[string]int, topK)
	countBySource := make(map[string]int, topK)

	for _, candidate := range candidates {
		if len(blocks) >= topK {
			break
		}

		source := candidate.Source
		if source == "" {
			source = unknownSource
		}
		if countBySource[source] >= maxPerSource {
			continue
		}

		text := strings.TrimSpace(candidate.Text)
		if text == "" {
			continue
		}
		countBySource[source]++

		number, ok := numberBySource[source]
		if !ok {
			number = len(numberBySource) + 1
			numberBySource[source] = number
		}

		snippet := selectRelevantText(text, keywords, maxChunkChars)
		chunkKey := chunkKeyFor(candidate.RetrievalCandidate)

		citations = append(citations, domain.CitationRecord{
			Source:   source,
			ChunkKey: chunkKey,
			Number:   number,
			Snippet:  snippet,
		})
		blocks = append(blocks, candidateHeader(number, source, candidate.RetrievalCandidate)+" "+snippet)
	}

	if len(blocks) == 0 {
		return builtContext{Context: noExcerptPlaceholder, Citations: citations}
	}
	return builtContext{Context: strings.Join(blocks, "\n\n"), Citations: citations}
}

// selectRelevantText keeps the sentences containing at least one query
// keyword and falls back to the full text when none match. The result is
// capped at maxChars with a truncation marker.
func selectRelevantText(text string, keywords []string, maxChars int) string {
	collapsed := strings.Join(strings.Fields(text), " ")

	var matches []string
	if len(keywords) > 0 {
		for _, sentence := range splitSentences(collapsed) {
			lower := strings.ToLower(sentence)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					matches = append(matches, sentence)
					break
				}
			}
		}
	}

	snippet := collapsed
	if len(matches) > 0 {
		snippet = strings.Join(matches, " ")
	}
	if maxChars > 0 {
		if runes := []rune(snippet); len(runes) > maxChars {
			snippet = strings.TrimRight(string(runes[:maxChars]), " ") + "…"
		}
	}
	return snippet
}

// chunkKeyFor returns the stable per-candidate citation key part: the
// chunk index when indexed, the candidate id otherwise.
func chunkKeyFor(candidate domain.RetrievalCandidate) string {
	if idx, ok := candidate.Metadata["chunk_index"]; ok && idx != "" {
		return idx
	}
	return candidate.ID
}

// CitationKey builds the lookup key used by the citation assembly step.
func CitationKey(source, chunkKey string) string {
	return source + "::" + chunkKey
}

func candidateHeader(number int, source string, candidate domain.RetrievalCandidate) string {
	meta := candidate.Metadata

	parts := make([]string, 0, 5)
	parts = append(parts, "Source: "+baseName(source))

	phase := meta["ao_phase_label"]
	if phase == "" {
		phase = meta["ao_phase_code"]
	}
	section := meta["ao_section"]
	switch {
	case phase != "" && section != "":
		parts = append(parts, fmt.Sprintf("Phase: %s (Dossier: %s)", phase, section))
	case phase != "":
		parts = append(parts, "Phase: "+phase)
	case section != "":
		parts = append(parts, "Dossier: "+section)
	}

	docType := firstNonEmpty(meta["ao_doc_code"], meta["doc_hint"], meta["ao_doc_role"], meta["content_type_detected"])
	if docType != "" {
		parts = append(parts, "Type: "+docType)
	}

	if signed := meta["ao_signed"]; signed == "true" || signed == "True" {
		if label := meta["ao_signature_label"]; label != "" {
			parts = append(parts, "✅ SIGNE ("+label+")")
		} else {
			parts = append(parts, "✅ SIGNE")
		}
	}

	date := firstNonEmpty(meta["date"], meta["creation_date"])
	if date != "" {
		if i := strings.Index(date, "T"); i > 0 {
			date = date[:i]
		}
		parts = append(parts, "Date: "+date)
	}

	return fmt.Sprintf("[%d] 📄 %s", number, strings.Join(parts, " | "))
}

func baseName(source string) string {
	if i := strings.LastIndex(source, "/"); i >= 0 {
		return source[i+1:]
	}
	return source
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
