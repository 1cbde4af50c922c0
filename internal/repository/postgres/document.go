package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const documentColumns = `id, user_id, title, COALESCE(file_url, ''), COALESCE(file_type, 'text'), original_text, created_at`

// CreateDocument inserts a document and returns the stored row
func (p *PostgresDB) CreateDocument(ctx context.Context, doc db.Document) (*db.Document, error) {
	conn := p.conn

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.FileType == "" {
		doc.FileType = db.FileTypeText
	}

	query := `
	INSERT INTO documents (id, user_id, title, file_url, file_type, original_text)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
	`

	err := conn.QueryRowContext(ctx, query, doc.ID, doc.UserID, doc.Title, doc.FileURL, doc.FileType, doc.OriginalText).Scan(&doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating document: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"file_type":   doc.FileType,
	}).Info("Created document")

	return &doc, nil
}

// GetDocumentByID retrieves a specific document
func (p *PostgresDB) GetDocumentByID(ctx context.Context, id string) (*db.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(p.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %w", db.ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document; its summary and chats go with it (ON DELETE CASCADE)
func (p *PostgresDB) DeleteDocument(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %w", db.ErrNotFound)
	}

	logger.Log.WithField("document_id", id).Info("Deleted document")
	return nil
}

// GetDocumentsWithSummaries returns every document of a user left-joined with its summary, newest first
func (p *PostgresDB) GetDocumentsWithSummaries(ctx context.Context, userID string) ([]db.DocumentWithSummary, error) {
	query := `
	SELECT d.id, d.user_id, d.title, COALESCE(d.file_url, ''), COALESCE(d.file_type, 'text'), d.original_text, d.created_at,
	       s.id, s.abstract_summary, s.introduction_summary, s.methodology_summary,
	       s.results_summary, s.conclusion_summary, s.keywords, s.definitions, s.created_at
	FROM documents d
	LEFT JOIN summaries s ON s.document_id = d.id
	WHERE d.user_id = $1
	ORDER BY d.created_at DESC
	`

	rows, err := p.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	var result []db.DocumentWithSummary
	for rows.Next() {
		var (
			doc          db.Document
			originalText sql.NullString
			summaryID    sql.NullString
			abstract     sql.NullString
			introduction sql.NullString
			methodology  sql.NullString
			results      sql.NullString
			conclusion   sql.NullString
			keywords     sql.NullString
			definitions  sql.NullString
			summaryAt    sql.NullTime
		)
		if err := rows.Scan(
			&doc.ID, &doc.UserID, &doc.Title, &doc.FileURL, &doc.FileType, &originalText, &doc.CreatedAt,
			&summaryID, &abstract, &introduction, &methodology, &results, &conclusion, &keywords, &definitions, &summaryAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning history row: %w", err)
		}
		if originalText.Valid {
			doc.OriginalText = &originalText.String
		}

		row := db.DocumentWithSummary{Document: doc}
		if summaryID.Valid {
			row.Summary = &db.Summary{
				ID:           summaryID.String,
				DocumentID:   doc.ID,
				Abstract:     abstract.String,
				Introduction: introduction.String,
				Methodology:  methodology.String,
				Results:      results.String,
				Conclusion:   conclusion.String,
				Keywords:     keywords.String,
				Definitions:  definitions.String,
				CreatedAt:    summaryAt.Time,
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*db.Document, error) {
	var doc db.Document
	var originalText sql.NullString
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.FileURL, &doc.FileType, &originalText, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if originalText.Valid {
		doc.OriginalText = &originalText.String
	}
	return &doc, nil
}
