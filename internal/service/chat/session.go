package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle stage of a message
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the answer side of a message: Answer is set only when Resolved, Err only when Failed
type State struct {
	Status Status
	Answer string
	Err    error
}

// Message is one question and its answer state
type Message struct {
	ID        string
	Question  string
	CreatedAt time.Time
	State     State
}

// AskResult is delivered by AskAsync once the answer arrives or the ask fails
type AskResult struct {
	Message Message
	Err     error
}

// tempIDPrefix marks ids of messages that only exist locally
const tempIDPrefix = "temp-"

// Session is the chat about one document.
// Messages are kept in insertion order and addressed by id so concurrent asks resolve independently.
type Session struct {
	userID     string
	documentID string
	api        paperapi.PaperAPI
	timeout    time.Duration
	validator  *validation.ChatRequestValidator

	order    []string
	messages map[string]*Message
	draft    string
	err      error
	mu       sync.RWMutex

	newID func() string
	now   func() time.Time
}

// NewSession creates an empty chat session for a document
func NewSession(api paperapi.PaperAPI, userID, documentID string, timeout time.Duration) *Session {
	return &Session{
		userID:     userID,
		documentID: documentID,
		api:        api,
		timeout:    timeout,
		validator:  validation.NewChatRequestValidator(),
		messages:   make(map[string]*Message),
		newID:      func() string { return tempIDPrefix + uuid.NewString() },
		now:        time.Now,
	}
}

// DocumentID is the document this session is about
func (s *Session) DocumentID() string {
	return s.documentID
}

// SetDraft stores the text being typed
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// Draft returns the text being typed
func (s *Session) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Err is the last error shown to the user, nil after a successful operation
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Messages returns the conversation in display order
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.messages[id])
	}
	return out
}

// Pending reports whether any question is still waiting for an answer
func (s *Session) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if s.messages[id].State.Status == StatusPending {
			return true
		}
	}
	return false
}

// LoadHistory replaces the conversation with the stored one, oldest first.
// On failure the conversation is left empty and Err reports it.
func (s *Session) LoadHistory(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	chats, err := s.api.ChatHistory(ctx, s.documentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.messages = make(map[string]*Message)

	if err != nil {
		logger.Log.WithError(err).WithField("document_id", s.documentID).Error("Failed to load chat history")
		s.err = &Error{Op: OpLoadHistory, Message: MsgLoadHistoryFailed, Err: err}
		return s.err
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	for _, c := range chats {
		if _, dup := s.messages[c.ID]; dup {
			continue
		}
		s.order = append(s.order, c.ID)
		s.messages[c.ID] = &Message{
			ID:        c.ID,
			Question:  c.Question,
			CreatedAt: c.CreatedAt,
			State:     State{Status: StatusResolved, Answer: c.Answer},
		}
	}
	s.err = nil

	logger.Log.WithFields(logrus.Fields{
		"document_id": s.documentID,
		"count":       len(s.order),
	}).Debug("Chat history loaded")
	return nil
}

// Ask sends a question and waits for the answer.
// A blank question is ignored and returns (nil, nil). The question is shown as pending
// before the request is made; on success it is resolved in place, otherwise it is removed.
func (s *Session) Ask(ctx context.Context, question string) (*Message, error) {
	id, asked, err := s.begin(question)
	if err != nil || id == "" {
		return nil, err
	}

	msg, err := s.complete(ctx, id, asked)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// AskAsync is Ask without waiting: the pending message is visible when it returns.
// For a blank question the channel is closed without a value.
func (s *Session) AskAsync(ctx context.Context, question string) <-chan AskResult {
	results := make(chan AskResult, 1)

	id, asked, err := s.begin(question)
	if err != nil {
		results <- AskResult{Err: err}
		close(results)
		return results
	}
	if id == "" {
		close(results)
		return results
	}

	go func() {
		defer close(results)
		msg, err := s.complete(ctx, id, asked)
		results <- AskResult{Message: msg, Err: err}
	}()
	return results
}

// begin clears the draft, validates the question and appends it as pending.
// It returns the message id and the trimmed question; the id is "" for a blank question.
func (s *Session) begin(question string) (string, string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = ""
	if err := s.validator.ValidateQuestion(question); err != nil {
		chatErr := &Error{Op: OpAsk, Message: err.Error(), Err: err}
		s.err = chatErr
		return "", "", chatErr
	}

	id := s.newID()
	s.order = append(s.order, id)
	s.messages[id] = &Message{
		ID:        id,
		Question:  question,
		CreatedAt: s.now(),
		State:     State{Status: StatusPending},
	}
	s.err = nil
	return id, question, nil
}

// complete sends the question of pending message id and reconciles the outcome by id.
// The message may already be gone when a LoadHistory ran in between.
func (s *Session) complete(ctx context.Context, id, question string) (Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	answer, err := s.api.Ask(ctx, paperapi.AskRequest{
		UserID:     s.userID,
		DocumentID: s.documentID,
		Question:   question,
	})
	if err == nil && answer == "" {
		err = paperapi.ErrNoAnswer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		// Dropped by a concurrent LoadHistory
		if err != nil {
			chatErr := &Error{Op: OpAsk, Message: askErrorMessage(err), Err: err}
			return Message{ID: id, Question: question, State: State{Status: StatusFailed, Err: chatErr}}, chatErr
		}
		return Message{ID: id, Question: question, State: State{Status: StatusResolved, Answer: answer}}, nil
	}

	if err != nil {
		s.removeLocked(id)
		chatErr := &Error{Op: OpAsk, Message: askErrorMessage(err), Err: err}
		s.err = chatErr

		logger.Log.WithError(err).WithFields(logrus.Fields{
			"document_id": s.documentID,
			"message_id":  id,
		}).Warn("Chat question failed")

		failed := *msg
		failed.State = State{Status: StatusFailed, Err: chatErr}
		return failed, chatErr
	}

	msg.State = State{Status: StatusResolved, Answer: answer}
	return *msg, nil
}

func (s *Session) removeLocked(id string) {
	delete(s.messages, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
