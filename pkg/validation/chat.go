package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxQuestionLength bounds a single chat question
const maxQuestionLength = 4000

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateQuestion validates a chat question
func (v *ChatRequestValidator) ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("question cannot be empty")
	}

	if n := utf8.RuneCountInString(question); n > maxQuestionLength {
		return fmt.Errorf("question must be at most %d characters long, got %d", maxQuestionLength, n)
	}
	return nil
}

// ValidateDocumentID validates the document a chat is about
func (v *ChatRequestValidator) ValidateDocumentID(documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return errors.New("document id cannot be empty")
	}
	return nil
}

// ValidateAskRequest validates a complete chat request
func (v *ChatRequestValidator) ValidateAskRequest(documentID, question string) error {
	if err := v.ValidateDocumentID(documentID); err != nil {
		return err
	}

	if err := v.ValidateQuestion(question); err != nil {
		return err
	}

	return nil
}
