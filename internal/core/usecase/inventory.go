package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ragwiame/gateway/internal/core/domain"
	"github.com/ragwiame/gateway/internal/core/ports"
)

var inventoryTriggerKeywords = []string{
	"document", "documents",
	"fichier", "fichiers",
	"dossier", "dossiers",
	"liste des pièces", "liste des pieces",
}

// InventoryAnswerer answers document-listing questions straight from the
// indexed file inventory, without touching the retrieval pipeline.
type InventoryAnswerer struct {
	store  ports.InventoryStore
	logger *slog.Logger

	mu       sync.Mutex
	projects []string
}

func NewInventoryAnswerer(store ports.InventoryStore, logger *slog.Logger) *InventoryAnswerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryAnswerer{store: store, logger: logger}
}

// TryAnswer returns a non-nil answer only when the question both reads
// like an inventory query and names a known project. Lookup failures are
// swallowed so the caller can fall through to retrieval.
func (a *InventoryAnswerer) TryAnswer(ctx context.Context, question string) *domain.Answer {
	if a == nil || a.store == nil {
		return nil
	}
	lowered := strings.ToLower(question)
	if !containsAny(lowered, inventoryTriggerKeywords) {
		return nil
	}

	project := a.matchProject(ctx, lowered)
	if project == "" {
		return nil
	}

	records, err := a.store.ListDocuments(ctx, project)
	if err != nil {
		a.logger.Warn("inventory_lookup_failed", "project", project, "error", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Documents disponibles pour le projet %s (%d fichiers) :\n", project, len(records))
	byFolder := map[string][]domain.InventoryRecord{}
	var folders []string
	for _, rec := range records {
		if _, seen := byFolder[rec.Folder]; !seen {
			folders = append(folders, rec.Folder)
		}
		byFolder[rec.Folder] = append(byFolder[rec.Folder], rec)
	}
	for _, folder := range folders {
		fmt.Fprintf(&sb, "\n%s :\n", folder)
		for _, rec := range byFolder[folder] {
			if rec.DocType != "" {
				fmt.Fprintf(&sb, "- %s (%s)\n", rec.Filename, rec.DocType)
			} else {
				fmt.Fprintf(&sb, "- %s\n", rec.Filename)
			}
		}
	}
	citations := make([]domain.CitationRecord, 0, len(records))
	for i, rec := range records {
		citations = append(citations, domain.CitationRecord{
			Source:   "/data/" + rec.RelativePath,
			ChunkKey: rec.Filename,
			Number:   i + 1,
			Snippet:  inventoryCitationSnippet(rec),
		})
	}
	return &domain.Answer{Text: strings.TrimRight(sb.String(), "\n"), Citations: citations}
}

// inventoryCitationSnippet stands in for a passage preview, which the
// inventory does not carry.
func inventoryCitationSnippet(rec domain.InventoryRecord) string {
	folder := rec.Folder
	if folder == "" {
		folder = "(racine)"
	}
	kind := strings.ToUpper(rec.DocType)
	if kind == "" {
		kind = "DOCUMENT"
	}
	return fmt.Sprintf("Aperçu indisponible (inventaire). Dossier : %s | Type : %s", folder, kind)
}

// matchProject resolves a project name mentioned in the question by
// normalized containment against the known project list. When the
// question names none and a single project is indexed, that project is
// assumed.
func (a *InventoryAnswerer) matchProject(ctx context.Context, loweredQuestion string) string {
	projects := a.knownProjects(ctx)
	normalizedQuestion := normalizeForMatch(loweredQuestion)
	best := ""
	for _, project := range projects {
		needle := normalizeForMatch(strings.ToLower(project))
		if needle == "" {
			continue
		}
		if strings.Contains(normalizedQuestion, needle) && len(project) > len(best) {
			best = project
		}
	}
	if best == "" && len(projects) == 1 {
		best = projects[0]
	}
	return best
}

// knownProjects lazily fetches the project list and caches it for the
// lifetime of the answerer. The answerer is shared across requests, so
// the cache is guarded; the cached slice itself is never mutated.
func (a *InventoryAnswerer) knownProjects(ctx context.Context) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.projects == nil {
		projects, err := a.store.ListProjects(ctx)
		if err != nil {
			a.logger.Warn("inventory_projects_failed", "error", err)
			return nil
		}
		if projects == nil {
			projects = []string{}
		}
		a.projects = projects
	}
	return a.projects
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// normalizeForMatch strips separators so "Saint-Brice" matches
// "saint brice" in a question.
func normalizeForMatch(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '-', '_', '\'', '.':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
