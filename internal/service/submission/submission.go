package submission

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"paper-summarizer/internal/config"
	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/history"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/internal/service/summary"
	"paper-summarizer/internal/state"
	"paper-summarizer/internal/storage"
	"paper-summarizer/pkg/validation"

	"github.com/sirupsen/logrus"
)

// titleLength is how many characters of pasted text make up a title
const titleLength = 40

// SuccessTitle is the notification shown after a complete submission
const SuccessTitle = "Paper summarized successfully!"

// Input is a paper to summarize: exactly one of File or Text
type Input struct {
	File *paperapi.File
	Text string
}

// Result is what a submission produced.
// Document is nil unless both the document and its summary were saved.
type Result struct {
	Document *db.Document
	Summary  *summary.Result
	Title    string
	// UploadDate is the results-view date line
	UploadDate string
}

// HistoryRefresher reloads the user's history after a submission
type HistoryRefresher interface {
	Refresh(ctx context.Context, userID string) ([]history.Item, error)
}

// SubmissionService runs a paper through upload, summarization and persistence
type SubmissionService struct {
	db        db.Database
	storage   storage.BlobStorage
	api       paperapi.PaperAPI
	history   HistoryRefresher
	store     *state.Store
	validator *validation.SubmissionValidator

	uploadTimeout  time.Duration
	requestTimeout time.Duration
	queryTimeout   time.Duration
	now            func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	database db.Database,
	blobs storage.BlobStorage,
	api paperapi.PaperAPI,
	hist HistoryRefresher,
	store *state.Store,
	appConfig *config.AppConfig,
) *SubmissionService {
	return &SubmissionService{
		db:             database,
		storage:        blobs,
		api:            api,
		history:        hist,
		store:          store,
		validator:      validation.NewSubmissionValidator(),
		uploadTimeout:  appConfig.Storage.UploadTimeout,
		requestTimeout: appConfig.API.RequestTimeout,
		queryTimeout:   appConfig.Database.QueryTimeout,
		now:            time.Now,
	}
}

// Submit runs the steps strictly in order: upload (files only), summarize, save document,
// save summary, refresh history. A failing step stops everything after it. Every outcome
// is published to the state store as a notification.
func (s *SubmissionService) Submit(ctx context.Context, in Input, userID string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Submission panicked")
			if s.store.Snapshot().Stage == state.StageProcessing {
				s.store.SetStage(state.StageUpload)
			}
			if result != nil && result.Summary == nil {
				result = nil
			}
			err = s.fail(newError(KindUnknown, fmt.Errorf("panic: %v", r)))
		}
	}()

	if userID == "" {
		return nil, s.fail(newError(KindAuthRequired, nil))
	}

	if err := s.validate(in); err != nil {
		return nil, s.fail(newError(KindInvalidInput, err))
	}

	s.store.SetStage(state.StageProcessing)

	title := Title(in)
	draft := db.Document{
		UserID:   userID,
		Title:    title,
		FileType: db.FileTypeText,
	}
	if in.File == nil {
		text := in.Text
		draft.OriginalText = &text
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"title":   title,
	})

	// 1. Upload
	if in.File != nil {
		path := fmt.Sprintf("%s/%d_%s", userID, s.now().UnixMilli(), in.File.Name)

		uploadCtx, cancel := withTimeout(ctx, s.uploadTimeout)
		storedPath, err := s.storage.Upload(uploadCtx, path, in.File.ContentType, in.File.Data)
		cancel()
		if err != nil {
			s.store.SetStage(state.StageUpload)
			return nil, s.fail(newError(KindUploadFailed, err))
		}

		draft.FileURL = storedPath
		draft.FileType = FileKind(in.File.ContentType)
		log.WithField("path", storedPath).Info("File uploaded")
	}

	// 2. Summarize
	result = &Result{Title: title}
	summaryCtx, cancel := withTimeout(ctx, s.requestTimeout)
	if in.File != nil {
		result.Summary, err = s.api.SummarizeFile(summaryCtx, *in.File)
	} else {
		result.Summary, err = s.api.SummarizeText(summaryCtx, in.Text)
	}
	cancel()
	if err != nil {
		s.store.SetStage(state.StageUpload)
		return nil, s.fail(summarizationError(err))
	}

	draft.CreatedAt = s.now()
	result.UploadDate = history.UploadDate(draft.CreatedAt)
	s.store.SetResult(state.Result{Document: draft, Summary: result.Summary})
	log.Info("Paper summarized")

	// 3. Save document
	queryCtx, cancel := withTimeout(ctx, s.queryTimeout)
	doc, err := s.db.CreateDocument(queryCtx, draft)
	cancel()
	if err == nil && doc == nil {
		err = errors.New("document not returned")
	}
	if err != nil {
		return result, s.fail(newError(KindDocumentSaveFailed, err))
	}

	// 4. Save summary
	queryCtx, cancel = withTimeout(ctx, s.queryTimeout)
	_, err = s.db.CreateSummary(queryCtx, result.Summary.ToRecord(doc.ID))
	cancel()
	if err != nil {
		s.discardDocument(ctx, doc.ID)
		return result, s.fail(newError(KindSummarySaveFailed, err))
	}

	result.Document = doc
	s.store.SetResult(state.Result{Document: *doc, Summary: result.Summary})
	log.WithField("document_id", doc.ID).Info("Document and summary saved")

	// 5. Refresh history
	if _, err := s.history.Refresh(ctx, userID); err != nil {
		log.WithError(err).Warn("History refresh after submission failed")
	}

	s.store.Notify(state.NotificationSuccess, SuccessTitle, "")
	return result, nil
}

func (s *SubmissionService) validate(in Input) error {
	if in.File != nil {
		return s.validator.ValidateSubmission(true, in.File.Name, len(in.File.Data), in.Text)
	}
	return s.validator.ValidateSubmission(false, "", 0, in.Text)
}

// discardDocument removes a document whose summary could not be saved
func (s *SubmissionService) discardDocument(ctx context.Context, documentID string) {
	queryCtx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.db.DeleteDocument(queryCtx, documentID); err != nil {
		logger.Log.WithError(err).WithField("document_id", documentID).Error("Failed to remove document without summary")
		return
	}
	logger.Log.WithField("document_id", documentID).Warn("Removed document without summary")
}

// fail publishes the error notification and returns err
func (s *SubmissionService) fail(err *Error) error {
	logger.Log.WithError(err).WithField("kind", err.Kind.String()).Error("Submission failed")
	s.store.Notify(state.NotificationError, err.Kind.Title(), err.Error())
	return err
}

func summarizationError(err error) *Error {
	subErr := newError(KindSummarizationFailed, err)
	var httpErr *paperapi.HTTPError
	if errors.As(err, &httpErr) {
		subErr.Status = httpErr.Status
		subErr.Body = httpErr.Body
	}
	return subErr
}

// Title is the file name, else the first 40 characters of the text with "..." when cut
func Title(in Input) string {
	if in.File != nil {
		return in.File.Name
	}
	if utf8.RuneCountInString(in.Text) <= titleLength {
		return in.Text
	}
	return string([]rune(in.Text)[:titleLength]) + "..."
}

// FileKind maps a content type to the stored file type
func FileKind(contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return db.FileTypePDF
	}
	return db.FileTypeDOCX
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
