package db

import "time"

// File kinds stored in documents.file_type
const (
	FileTypePDF  = "pdf"
	FileTypeDOCX = "docx"
	FileTypeText = "text"
)

// User mirrors the users table; rows are created after sign-up and never mutated here
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Document represents one submitted paper
type Document struct {
	ID           string
	UserID       string
	Title        string
	FileURL      string // storage path, empty for pasted text
	FileType     string
	OriginalText *string
	CreatedAt    time.Time
}

// Summary is the persisted summarization result of a document (one-to-one)
type Summary struct {
	ID           string
	DocumentID   string
	Abstract     string
	Introduction string
	Methodology  string
	Results      string
	Conclusion   string
	Keywords     string
	Definitions  string // JSON-encoded term -> definition map, may be empty or malformed
	CreatedAt    time.Time
}

// DocumentWithSummary is a document left-joined with its summary
type DocumentWithSummary struct {
	Document Document
	Summary  *Summary
}

// ChatMessage is one question/answer pair about a document
type ChatMessage struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
}
