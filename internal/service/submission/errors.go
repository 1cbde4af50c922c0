package submission

import (
	"errors"
	"fmt"
)

// Kind classifies a submission failure
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthRequired
	KindInvalidInput
	KindUploadFailed
	KindSummarizationFailed
	KindDocumentSaveFailed
	KindSummarySaveFailed
)

// Sentinels for errors.Is; each matches any *Error of the same Kind
var (
	ErrUnknown             = errors.New("an error occurred")
	ErrAuthRequired        = errors.New("authentication required")
	ErrInvalidInput        = errors.New("invalid submission")
	ErrUploadFailed        = errors.New("file upload failed")
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrDocumentSaveFailed  = errors.New("failed to save document")
	ErrSummarySaveFailed   = errors.New("failed to save summary")
)

var sentinels = map[Kind]error{
	KindUnknown:             ErrUnknown,
	KindAuthRequired:        ErrAuthRequired,
	KindInvalidInput:        ErrInvalidInput,
	KindUploadFailed:        ErrUploadFailed,
	KindSummarizationFailed: ErrSummarizationFailed,
	KindDocumentSaveFailed:  ErrDocumentSaveFailed,
	KindSummarySaveFailed:   ErrSummarySaveFailed,
}

// notification titles
var titles = map[Kind]string{
	KindUnknown:             "An error occurred",
	KindAuthRequired:        "Authentication required",
	KindInvalidInput:        "Invalid submission",
	KindUploadFailed:        "File upload failed",
	KindSummarizationFailed: "Summarization failed",
	KindDocumentSaveFailed:  "Failed to save document",
	KindSummarySaveFailed:   "Failed to save summary",
}

func (k Kind) String() string {
	return sentinels[k].Error()
}

// Title is the notification headline for the kind
func (k Kind) Title() string {
	return titles[k]
}

// Error is a failed submission step.
// Status and Body are set when the summarization service answered with a non-2xx status.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindSummarizationFailed && e.Status != 0 {
		return fmt.Sprintf("Server error %d: %s", e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
