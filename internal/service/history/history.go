package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/summary"
	"paper-summarizer/internal/state"
	"paper-summarizer/internal/storage"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// ErrNotOwner is returned when a user touches another user's document
var ErrNotOwner = errors.New("unauthorized: user does not own this document")

// Item is one entry of the user's submission history
type Item struct {
	Document db.Document
	// Summary is nil when the document has no summary row
	Summary   *summary.Result
	Timestamp string
	Preview   string
}

// ID is the document id of the item
func (i Item) ID() string {
	return i.Document.ID
}

// Result is the view shown when the item is opened
func (i Item) Result() state.Result {
	return state.Result{Document: i.Document, Summary: i.Summary}
}

// HistoryService keeps a per-user snapshot of submitted documents
type HistoryService struct {
	db      db.Database
	storage storage.BlobStorage
	cache   *cache.Cache
	now     func() time.Time
}

// NewHistoryService creates a new HistoryService; snapshots expire after ttl
func NewHistoryService(database db.Database, blobs storage.BlobStorage, ttl time.Duration) *HistoryService {
	return &HistoryService{
		db:      database,
		storage: blobs,
		cache:   cache.New(ttl, 2*ttl),
		now:     time.Now,
	}
}

// Refresh reloads the user's history newest first and replaces the snapshot.
// On failure the previous snapshot is kept.
func (s *HistoryService) Refresh(ctx context.Context, userID string) ([]Item, error) {
	rows, err := s.db.GetDocumentsWithSummaries(ctx, userID)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to refresh history")
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}

	now := s.now()
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		result := summary.FromRecord(row.Summary)
		items = append(items, Item{
			Document:  row.Document,
			Summary:   result,
			Timestamp: RelativeTimestamp(row.Document.CreatedAt, now),
			Preview:   result.Preview(),
		})
	}

	s.cache.SetDefault(userID, items)

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   len(items),
	}).Debug("History refreshed")

	return copyItems(items), nil
}

// Items returns the current snapshot without touching the network
func (s *HistoryService) Items(userID string) []Item {
	cached, ok := s.cache.Get(userID)
	if !ok {
		return nil
	}
	return copyItems(cached.([]Item))
}

// Select finds a document in the snapshot
func (s *HistoryService) Select(userID, documentID string) (*Item, bool) {
	for _, item := range s.Items(userID) {
		if item.Document.ID == documentID {
			return &item, true
		}
	}
	return nil, false
}

// Delete removes a document with its summary and chat history, then refreshes the snapshot
func (s *HistoryService) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("document not found: %w", err)
	}
	if doc.UserID != userID {
		return ErrNotOwner
	}

	if err := s.db.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if doc.FileURL != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, doc.FileURL); err != nil {
			logger.Log.WithError(err).WithField("path", doc.FileURL).Warn("Failed to delete stored file")
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":     userID,
		"document_id": documentID,
	}).Info("Document deleted")

	if _, err := s.Refresh(ctx, userID); err != nil {
		return fmt.Errorf("document deleted but history refresh failed: %w", err)
	}
	return nil
}

// RelativeTimestamp renders t as "Today", "Yesterday" or M/D/YYYY, comparing calendar days in now's location
func RelativeTimestamp(t, now time.Time) string {
	t = t.In(now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Format("1/2/2006")
	}
}

// UploadDate is the long-form date line of the results view
func UploadDate(t time.Time) string {
	return "Uploaded on " + t.Format("January 2, 2006")
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
