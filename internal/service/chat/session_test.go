package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(api *testutil.MockPaperAPI) *Session {
	return NewSession(api, "user-1", "doc-1", 5*time.Second)
}

func TestAsk_BlankQuestionIsNoOp(t *testing.T) {
	var calls int32
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "answer", nil
		},
	}
	session := newTestSession(api)
	session.SetDraft("  \n")

	msg, err := session.Ask(context.Background(), "  \n")
	assert.NoError(t, err)
	assert.Nil(t, msg)

	_, open := <-session.AskAsync(context.Background(), "")
	assert.False(t, open)

	assert.Empty(t, session.Messages())
	assert.Equal(t, "  \n", session.Draft(), "draft is kept for a blank question")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestAskAsync_PendingBeforeResponse(t *testing.T) {
	started := make(chan paperapi.AskRequest, 1)
	release := make(chan struct{})
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			started <- req
			<-release
			return "It uses a transformer.", nil
		},
	}
	session := newTestSession(api)
	session.SetDraft("What model is used?")

	results := session.AskAsync(context.Background(), "  What model is used? ")

	// The pending message exists before the service has answered
	msgs := session.Messages()
	require.Len(t, msgs, 1)
	pendingID := msgs[0].ID
	assert.True(t, strings.HasPrefix(pendingID, tempIDPrefix))
	assert.Equal(t, "What model is used?", msgs[0].Question)
	assert.Equal(t, StatusPending, msgs[0].State.Status)
	assert.True(t, session.Pending())
	assert.Empty(t, session.Draft())

	req := <-started
	assert.Equal(t, paperapi.AskRequest{UserID: "user-1", DocumentID: "doc-1", Question: "What model is used?"}, req)

	close(release)
	result := <-results
	require.NoError(t, result.Err)
	assert.Equal(t, pendingID, result.Message.ID)
	assert.Equal(t, StatusResolved, result.Message.State.Status)

	msgs = session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, pendingID, msgs[0].ID)
	assert.Equal(t, "It uses a transformer.", msgs[0].State.Answer)
	assert.False(t, session.Pending())
}

func TestAsk_ResolvesInPlace(t *testing.T) {
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return "answer to " + req.Question, nil
		},
		ChatHistoryFunc: func(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
			return []db.ChatMessage{{ID: "42", Question: "old", Answer: "old answer"}}, nil
		},
	}
	session := newTestSession(api)
	require.NoError(t, session.LoadHistory(context.Background()))

	msg, err := session.Ask(context.Background(), "new")
	require.NoError(t, err)
	require.NotNil(t, msg)

	msgs := session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "42", msgs[0].ID)
	assert.Equal(t, msg.ID, msgs[1].ID)
	assert.Equal(t, "answer to new", msgs[1].State.Answer)
	assert.NoError(t, session.Err())
}

func TestAsk_FailureRemovesMessage(t *testing.T) {
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return "", errors.New("Document not found")
		},
	}
	session := newTestSession(api)

	msg, err := session.Ask(context.Background(), "Why?")
	assert.Nil(t, msg)
	require.Error(t, err)

	var chatErr *Error
	require.True(t, errors.As(err, &chatErr))
	assert.Equal(t, OpAsk, chatErr.Op)
	assert.Equal(t, "Document not found", chatErr.Error())

	assert.Empty(t, session.Messages())
	assert.False(t, session.Pending())
	assert.Equal(t, err, session.Err())
}

func TestAsk_EmptyAnswerIsFailure(t *testing.T) {
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return "", nil
		},
	}
	session := newTestSession(api)

	_, err := session.Ask(context.Background(), "Why?")
	require.Error(t, err)
	assert.ErrorIs(t, err, paperapi.ErrNoAnswer)
	assert.Equal(t, "No answer", err.Error())
	assert.Empty(t, session.Messages())
}

func TestAsk_WhitespaceAnswerIsKept(t *testing.T) {
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return "  ", nil
		},
	}
	session := newTestSession(api)

	msg, err := session.Ask(context.Background(), "Why?")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, msg.State.Status)
	assert.Equal(t, "  ", msg.State.Answer)
}

func TestAskAsync_FailureReportsFailedState(t *testing.T) {
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return "", &paperapi.HTTPError{Status: 502, Body: "bad gateway"}
		},
	}
	session := newTestSession(api)

	result := <-session.AskAsync(context.Background(), "Why?")
	require.Error(t, result.Err)
	assert.Equal(t, StatusFailed, result.Message.State.Status)
	assert.Equal(t, "Why?", result.Message.Question)

	var httpErr *paperapi.HTTPError
	assert.True(t, errors.As(result.Err, &httpErr))
	assert.Empty(t, session.Messages())
}

func TestAskAsync_ConcurrentOutOfOrder(t *testing.T) {
	gates := map[string]chan string{
		"first":  make(chan string),
		"second": make(chan string),
	}
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return <-gates[req.Question], nil
		},
	}
	session := newTestSession(api)

	firstResult := session.AskAsync(context.Background(), "first")
	secondResult := session.AskAsync(context.Background(), "second")

	msgs := session.Messages()
	require.Len(t, msgs, 2)
	firstID, secondID := msgs[0].ID, msgs[1].ID
	assert.NotEqual(t, firstID, secondID)

	// The later question is answered first
	gates["second"] <- "answer two"
	second := <-secondResult
	require.NoError(t, second.Err)
	assert.Equal(t, secondID, second.Message.ID)

	msgs = session.Messages()
	assert.Equal(t, StatusPending, msgs[0].State.Status)
	assert.Equal(t, StatusResolved, msgs[1].State.Status)
	assert.True(t, session.Pending())

	gates["first"] <- "answer one"
	first := <-firstResult
	require.NoError(t, first.Err)

	msgs = session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, firstID, msgs[0].ID)
	assert.Equal(t, "answer one", msgs[0].State.Answer)
	assert.Equal(t, secondID, msgs[1].ID)
	assert.Equal(t, "answer two", msgs[1].State.Answer)
	assert.False(t, session.Pending())
}

func TestAsk_TooLongQuestionRejected(t *testing.T) {
	var calls int32
	api := &testutil.MockPaperAPI{
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "answer", nil
		},
	}
	session := newTestSession(api)

	session.SetDraft(strings.Repeat("x", 5000))

	_, err := session.Ask(context.Background(), session.Draft())
	require.Error(t, err)
	assert.Empty(t, session.Messages())
	assert.Empty(t, session.Draft())
	assert.Equal(t, err, session.Err())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestComplete_AfterHistoryReload(t *testing.T) {
	api := &testutil.MockPaperAPI{
		ChatHistoryFunc: func(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
			return []db.ChatMessage{{ID: "stored-1", Question: "Old?", Answer: "Old answer"}}, nil
		},
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			assert.Equal(t, "What is the method?", req.Question)
			return "Gradient descent.", nil
		},
	}
	session := newTestSession(api)

	id, question, err := session.begin("What is the method?")
	require.NoError(t, err)
	require.True(t, session.Pending())

	require.NoError(t, session.LoadHistory(context.Background()))

	msg, err := session.complete(context.Background(), id, question)
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, StatusResolved, msg.State.Status)
	assert.Equal(t, "Gradient descent.", msg.State.Answer)

	msgs := session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "stored-1", msgs[0].ID)
	assert.False(t, session.Pending())
}

func TestComplete_FailureAfterHistoryReload(t *testing.T) {
	api := &testutil.MockPaperAPI{
		ChatHistoryFunc: func(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
			return nil, nil
		},
		AskFunc: func(ctx context.Context, req paperapi.AskRequest) (string, error) {
			return "", errors.New("Document not found")
		},
	}
	session := newTestSession(api)

	id, question, err := session.begin("What is the method?")
	require.NoError(t, err)
	require.NoError(t, session.LoadHistory(context.Background()))

	msg, err := session.complete(context.Background(), id, question)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, msg.State.Status)
	assert.Equal(t, "Document not found", err.Error())
	assert.Empty(t, session.Messages())
}

func TestLoadHistory_Chronological(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &testutil.MockPaperAPI{
		ChatHistoryFunc: func(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
			assert.Equal(t, "doc-1", documentID)
			return []db.ChatMessage{
				{ID: "2", Question: "later", Answer: "b", CreatedAt: base.Add(time.Minute)},
				{ID: "1", Question: "earlier", Answer: "a", CreatedAt: base},
			}, nil
		},
	}
	session := newTestSession(api)

	require.NoError(t, session.LoadHistory(context.Background()))

	msgs := session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "earlier", msgs[0].Question)
	assert.Equal(t, "later", msgs[1].Question)
	for _, m := range msgs {
		assert.Equal(t, StatusResolved, m.State.Status)
	}
}

func TestLoadHistory_Failure(t *testing.T) {
	fail := false
	api := &testutil.MockPaperAPI{
		ChatHistoryFunc: func(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return []db.ChatMessage{{ID: "1", Question: "q", Answer: "a"}}, nil
		},
	}
	session := newTestSession(api)
	require.NoError(t, session.LoadHistory(context.Background()))
	require.Len(t, session.Messages(), 1)

	fail = true
	err := session.LoadHistory(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgLoadHistoryFailed, err.Error())
	assert.Equal(t, MsgLoadHistoryFailed, session.Err().Error())
	assert.Empty(t, session.Messages())
}

func TestManager_OneSessionPerDocument(t *testing.T) {
	manager := NewManager(&testutil.MockPaperAPI{}, time.Second)

	a := manager.Session("user-1", "doc-1")
	assert.Same(t, a, manager.Session("user-1", "doc-1"))

	b := manager.Session("user-1", "doc-2")
	assert.NotSame(t, a, b)
	assert.Equal(t, "doc-2", b.DocumentID())

	manager.Forget("doc-1")
	assert.NotSame(t, a, manager.Session("user-1", "doc-1"))
}
