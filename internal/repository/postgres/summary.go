package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"

	"github.com/google/uuid"
)

// CreateSummary stores the summary of a document
func (p *PostgresDB) CreateSummary(ctx context.Context, summary db.Summary) (*db.Summary, error) {
	conn := p.conn

	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}

	var definitions sql.NullString
	if summary.Definitions != "" {
		definitions = sql.NullString{String: summary.Definitions, Valid: true}
	}

	query := `
	INSERT INTO summaries (id, document_id, abstract_summary, introduction_summary, methodology_summary,
	                       results_summary, conclusion_summary, keywords, definitions)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at
	`

	err := conn.QueryRowContext(ctx, query,
		summary.ID, summary.DocumentID, summary.Abstract, summary.Introduction, summary.Methodology,
		summary.Results, summary.Conclusion, summary.Keywords, definitions,
	).Scan(&summary.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("summary already exists for document %s", summary.DocumentID)
		}
		return nil, fmt.Errorf("error creating summary: %w", err)
	}

	logger.Log.WithField("document_id", summary.DocumentID).Info("Created summary")

	return &summary, nil
}
