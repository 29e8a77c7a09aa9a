package usecase

import (
	"strings"
	"unicode"
)

// tokenize extracts lowercase alphanumeric tokens. Both the snippet
// selector and the router keyword tables rely on this exact shape.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// queryKeywords keeps the tokens long enough to carry signal.
func queryKeywords(question string) []string {
	tokens := tokenize(question)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) > 2 {
			out = append(out, token)
		}
	}
	return out
}

// splitSentences cuts text after sentence-final punctuation followed by a
// space. Whitespace runs are collapsed first.
func splitSentences(text string) []string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return nil
	}

	sentences := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(collapsed)-1; i++ {
		c := collapsed[i]
		if (c == '.' || c == '!' || c == '?') && collapsed[i+1] == ' ' {
			sentences = append(sentences, collapsed[start:i+1])
			start = i + 2
		}
	}
	if start < len(collapsed) {
		sentences = append(sentences, collapsed[start:])
	}
	return sentences
}
