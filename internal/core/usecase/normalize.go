package usecase

import (
	"regexp"
	"strings"
)

// clarificationAnswer is returned verbatim for vague questions, with no
// retrieval, reranking or completion call behind it.
const clarificationAnswer = "Je ne peux pas répondre à cette question car elle manque de contexte. " +
	"Pourriez-vous préciser ce que vous cherchez ? Par exemple : " +
	"\"Quel est le montant du DQE pour le projet Montmirail ?\""

var disableRAGPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)#norag\b`),
	regexp.MustCompile(`(?i)\[norag\]`),
	regexp.MustCompile(`(?i)rag\s*:\s*false`),
}

var enableRAGPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)#forcerag\b`),
	regexp.MustCompile(`(?i)#userag\b`),
	regexp.MustCompile(`(?i)\[rag\]`),
	regexp.MustCompile(`(?i)rag\s*:\s*true`),
}

var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^quel\s+(est|sont)\s+(le|la|les)\s+\w+\s*\??$`),
	regexp.MustCompile(`^quel\s+(est|sont)\s+\w+\s*\??$`),
	regexp.MustCompile(`^combien\s*\??$`),
	regexp.MustCompile(`^où\s*\??$`),
	regexp.MustCompile(`^quoi\s*\??$`),
	regexp.MustCompile(`^qui\s*\??$`),
}

// resolveRAGMode strips inline retrieval markers from the question and
// resolves whether retrieval should run. Precedence: explicit flag, then
// inline markers, then the process default.
func resolveRAGMode(question string, explicit *bool, defaultUseRAG bool) (string, bool) {
	var decision *bool
	if explicit != nil {
		v := *explicit
		decision = &v
	}

	cleaned := question
	for _, pattern := range disableRAGPatterns {
		if pattern.MatchString(cleaned) {
			cleaned = pattern.ReplaceAllString(cleaned, "")
			if explicit == nil {
				v := false
				decision = &v
			}
		}
	}
	for _, pattern := range enableRAGPatterns {
		if pattern.MatchString(cleaned) {
			cleaned = pattern.ReplaceAllString(cleaned, "")
			if explicit == nil {
				v := true
				decision = &v
			}
		}
	}

	if decision == nil {
		return strings.TrimSpace(cleaned), defaultUseRAG
	}
	return strings.TrimSpace(cleaned), *decision
}

// isVagueQuestion reports whether the question is too short to retrieve
// against ("combien ?", "où ?", ...).
func isVagueQuestion(question string) bool {
	lower := strings.ToLower(strings.TrimSpace(question))
	for _, pattern := range vaguePatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}
