package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize bounds an uploaded document
const MaxFileSize = 50 << 20

// allowedExtensions are the document types the summarizer accepts
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// SubmissionValidator validates paper submissions
type SubmissionValidator struct{}

// NewSubmissionValidator creates a new SubmissionValidator
func NewSubmissionValidator() *SubmissionValidator {
	return &SubmissionValidator{}
}

// ValidateFile validates an uploaded file by name and size
func (v *SubmissionValidator) ValidateFile(name string, size int) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("file name cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type must be .pdf or .docx, got %q", ext)
	}

	if size == 0 {
		return errors.New("file cannot be empty")
	}

	if size > MaxFileSize {
		return fmt.Errorf("file must be at most %d bytes, got %d", MaxFileSize, size)
	}
	return nil
}

// ValidateText validates pasted paper text
func (v *SubmissionValidator) ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	return nil
}

// ValidateSubmission checks that exactly one of file or text is given and that it is valid
func (v *SubmissionValidator) ValidateSubmission(hasFile bool, fileName string, fileSize int, text string) error {
	hasText := text != ""
	if hasFile == hasText {
		return errors.New("provide either a file or text")
	}

	if hasFile {
		return v.ValidateFile(fileName, fileSize)
	}
	return v.ValidateText(text)
}
