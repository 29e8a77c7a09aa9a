package httpadapter

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
)

const citationSnippetChars = 120

var conversionSuffixPattern = regexp.MustCompile(`(?i)\.txt\.(pdf|docx|xlsx|xls|csv)\b`)
var doubledSuffixPattern = regexp.MustCompile(`(?i)\.(pdf|docx|xlsx|xls|csv)\.(pdf|docx|xlsx|xls|csv)\b`)

// appendCitationsBlock appends the markdown reference block to the
// answer. Citations collapse on (source, chunk) so repeated passages of
// one document yield a single reference line.
func appendCitationsBlock(answer string, citations []domain.CitationRecord, gatewayURL string) string {
	if len(citations) == 0 {
		return answer
	}

	type key struct{ source, chunk string }
	seen := make(map[key]struct{}, len(citations))
	unique := make([]domain.CitationRecord, 0, len(citations))
	for _, c := range citations {
		k := key{c.Source, c.ChunkKey}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, c)
	}
	if len(unique) == 0 {
		return answer
	}

	lines := []string{"> Références :"}
	for i, c := range unique {
		lines = append(lines, fmt.Sprintf("> %d. %s", i+1, formatReferenceLink(c, gatewayURL)))
		if snippet := formatCitationSnippet(c); snippet != "" {
			lines = append(lines, ">    ↳ "+snippet)
		}
	}
	return answer + "\n\n" + strings.Join(lines, "\n")
}

func formatReferenceLink(c domain.CitationRecord, gatewayURL string) string {
	source := c.Source
	if source == "" {
		source = "source inconnue"
	}
	relative := strings.TrimPrefix(source, "/data/")
	relative = strings.ReplaceAll(relative, "\\", "/")

	displayPath := prettifyDisplayPath(relative)
	link := strings.TrimRight(gatewayURL, "/") + "/files/view?path=" + url.QueryEscape(relative)

	baseName := path.Base(displayPath)
	if suffix := formatChunkSuffix(baseName, c.ChunkKey); suffix != "" {
		displayPath = displayPath + " - " + suffix
	}
	safeLabel := strings.ReplaceAll(displayPath, "`", "'")
	return fmt.Sprintf("[%s](%s)", safeLabel, link)
}

// prettifyDisplayPath strips conversion suffixes left by the text
// extraction step (cctp.txt.pdf reads as cctp.pdf).
func prettifyDisplayPath(relative string) string {
	name := path.Base(relative)
	pretty := conversionSuffixPattern.ReplaceAllString(name, ".$1")
	// RE2 has no backreferences, so equal-extension doubling (.pdf.pdf)
	// is checked by hand.
	pretty = doubledSuffixPattern.ReplaceAllStringFunc(pretty, func(m string) string {
		parts := strings.Split(strings.ToLower(m), ".")
		if len(parts) == 3 && parts[1] == parts[2] {
			return m[:len(m)-len(parts[2])-1]
		}
		return m
	})
	if strings.HasSuffix(relative, name) {
		return relative[:len(relative)-len(name)] + pretty
	}
	return pretty
}

func formatCitationSnippet(c domain.CitationRecord) string {
	snippet := strings.Join(strings.Fields(c.Snippet), " ")
	if snippet == "" {
		return ""
	}
	normalizedChunk := strings.ToLower(strings.Trim(strings.Join(strings.Fields(c.ChunkKey), " "), "\""))
	if normalizedChunk != "" && normalizedChunk == strings.ToLower(strings.Trim(snippet, "\"")) {
		return ""
	}
	if runes := []rune(snippet); len(runes) > citationSnippetChars {
		snippet = strings.TrimRight(string(runes[:citationSnippetChars]), " ") + "…"
	}
	return snippet
}

// formatChunkSuffix renders the chunk key part of a reference label,
// dropping segments that just repeat the file name.
func formatChunkSuffix(baseName, chunk string) string {
	cleaned := strings.Join(strings.Fields(chunk), " ")
	if cleaned == "" || strings.EqualFold(cleaned, baseName) {
		return ""
	}
	raw := strings.Split(cleaned, "::")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 && strings.EqualFold(parts[0], baseName) {
		parts = parts[1:]
	}
	return strings.Join(parts, " · ")
}
