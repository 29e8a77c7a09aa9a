package openai

import (
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
)

const defaultPrompt = `Tu es un assistant expert en Appels d'Offres (AO) qui répond en français.

REGLES (Rigueur et Précision) :
- Utilise UNIQUEMENT les informations du contexte.
- CITE TES SOURCES AVEC DETAILS : Pour chaque information, mentionne le **Dossier source** (ex: "Dossier 01-Document marché"), l'AO, la phase et le type de doc.
  Exemple : "Selon le CCTP (Dossier 01-Document marché, AO ED258239)..."
- Si un document provient du dossier "01-Document marché", présente-le comme la référence prioritaire.
- Si un document est marqué "SIGNE", mentionne-le explicitement comme "version officielle signée".
- Si la réponse n'est pas dans le contexte, réponds strictement : "Non disponible dans les documents."
- Pas de spéculation.

Contexte :
{context}

Question : {question}`

const fichePrompt = `Tu es un assistant qui synthétise des fiches d'identité structurées pour des Appels d'Offres.

REGLES (Rigueur et Précision) :
- Combine les informations du contexte en citant systématiquement la source précise (AO, Phase, Type de doc).
- Mets en avant les versions SIGNÉES qui font foi.
- Organise la réponse sous forme de points clés.
- Si une info manque, indique "[Non disponible]".
- Aucun contenu inventé.

Contexte :
{context}

Question : {question}`

const chiffresPrompt = `Tu es un expert financier qui extrait des montants de marchés publics.

REGLES :
- Extrais UNIQUEMENT les chiffres explicites (Montants HT/TTC, Quantités) avec leur unité.
- CITE LA SOURCE DE CHAQUE CHIFFRE : Précise toujours le document (ex: "BPU Offre", "DQE Candidature"), l'AO et si c'est une version signée.
- Distingue bien les phases (ne pas confondre les montants de l'Offre avec ceux de la Candidature).
- Ne calcule rien qui n'est pas écrit.
- Si vide, réponds "Non disponible".

Contexte :
{context}

Question : {question}`

const chatPrompt = `Tu es un assistant francophone polyvalent. Réponds de manière claire et concise.
Question : {question}`

// buildAnswerPrompt picks the template by question category and fills in
// the retrieved context.
func buildAnswerPrompt(intent domain.QueryIntent, contextText, question string) string {
	template := defaultPrompt
	switch intent {
	case domain.IntentIdentitySheet:
		template = fichePrompt
	case domain.IntentNumeric:
		template = chiffresPrompt
	}
	out := strings.ReplaceAll(template, "{context}", contextText)
	return strings.ReplaceAll(out, "{question}", question)
}

func buildChatPrompt(question string) string {
	return strings.ReplaceAll(chatPrompt, "{question}", question)
}
