package usecase

import (
	"strings"

	"github.com/ragwiame/gateway/internal/core/domain"
)

var identityKeywords = []string{
	"qui est ",
	"qui sont ",
	"présente",
	"presentation",
	"présentation",
	"donne moi les infos",
	"donne-moi les infos",
	"informations sur",
	"infos sur",
	"parle moi de",
	"parle-moi de",
}

var numericKeywords = []string{
	"prix",
	"montant",
	"coût",
	"cout",
	"combien",
	"total",
	"totaux",
	"unitaire",
	"unité",
	"unite",
	"valeur",
	"budget",
}

var inventoryKeywords = []string{
	"documents disponibles",
	"quels sont les documents",
	"liste des documents",
	"fichiers disponibles",
	"liste des fichiers",
	"inventaire des documents",
	"inventaire",
}

// classifyIntent tags the question with a coarse category. First matching
// group wins, in identity > numeric > inventory order.
func classifyIntent(question string) domain.QueryIntent {
	q := strings.ToLower(strings.TrimSpace(question))

	for _, kw := range identityKeywords {
		if strings.Contains(q, kw) {
			return domain.IntentIdentitySheet
		}
	}
	for _, kw := range numericKeywords {
		if strings.Contains(q, kw) {
			return domain.IntentNumeric
		}
	}
	for _, kw := range inventoryKeywords {
		if strings.Contains(q, kw) {
			return domain.IntentInventory
		}
	}
	return domain.IntentOther
}
