package chat

import (
	"context"
	"errors"

	"paper-summarizer/internal/service/paperapi"
)

// Operations reported in Error
const (
	OpAsk         = "ask"
	OpLoadHistory = "load_history"
)

// MsgLoadHistoryFailed is shown when the stored conversation cannot be fetched
const MsgLoadHistoryFailed = "Failed to load chat history."

// Error is a chat failure with the message shown to the user
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func askErrorMessage(err error) string {
	switch {
	case errors.Is(err, paperapi.ErrNoAnswer):
		return "No answer"
	case errors.Is(err, context.DeadlineExceeded):
		return "The assistant took too long to answer."
	default:
		return err.Error()
	}
}
