package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// InsightRepository reads precomputed spreadsheet totals extracted from
// estimate workbooks during ingestion.
type InsightRepository struct {
	db *sql.DB
}

func NewInsightRepository(db *sql.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

func (r *InsightRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS estimate_totals (
	id BIGSERIAL PRIMARY KEY,
	source_path TEXT NOT NULL,
	label TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL DEFAULT ''
);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute insight schema ddl: %w", err)
	}
	return nil
}

func (r *InsightRepository) TopEstimateTotals(ctx context.Context, limit int) ([]domain.InsightRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	const query = `
SELECT source_path, label, value, unit
FROM estimate_totals
ORDER BY value DESC
LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top estimate totals: %w", err)
	}
	defer rows.Close()

	var records []domain.InsightRecord
	for rows.Next() {
		var rec domain.InsightRecord
		if err := rows.Scan(&rec.SourcePath, &rec.Label, &rec.Value, &rec.Unit); err != nil {
			return nil, fmt.Errorf("scan insight record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insight records: %w", err)
	}
	return records, nil
}
