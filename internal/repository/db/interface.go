package db

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Database defines the interface for all table operations of the data service.
// This allows for easier testing through mocking and decouples the orchestrators from the specific database implementation
type Database interface {
	// Users
	CreateUser(ctx context.Context, id, name, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	// Documents
	CreateDocument(ctx context.Context, doc Document) (*Document, error)
	GetDocumentByID(ctx context.Context, id string) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// Summaries
	CreateSummary(ctx context.Context, summary Summary) (*Summary, error)

	// History
	GetDocumentsWithSummaries(ctx context.Context, userID string) ([]DocumentWithSummary, error)
}
