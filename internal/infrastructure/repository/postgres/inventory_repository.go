package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// InventoryRepository reads the per-project document inventory that the
// ingestion side maintains.
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS document_inventory (
	id BIGSERIAL PRIMARY KEY,
	project TEXT NOT NULL,
	folder TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	doc_type TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_document_inventory_project ON document_inventory(project);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute inventory schema ddl: %w", err)
	}
	return nil
}

func (r *InventoryRepository) ListProjects(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT project FROM document_inventory ORDER BY project`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (r *InventoryRepository) ListDocuments(ctx context.Context, project string) ([]domain.InventoryRecord, error) {
	const query = `
SELECT project, folder, filename, relative_path, doc_type
FROM document_inventory
WHERE project = $1
ORDER BY folder, filename`

	rows, err := r.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.Project, &rec.Folder, &rec.Filename, &rec.RelativePath, &rec.DocType); err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory records: %w", err)
	}
	return records, nil
}
