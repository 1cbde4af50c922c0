package state

import (
	"testing"

	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()

	assert.Equal(t, StageUpload, snap.Stage)
	assert.Equal(t, ThemeDark, snap.Theme)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Notifications)
}

func TestSetResult_MovesToResults(t *testing.T) {
	s := NewStore()
	s.SetStage(StageProcessing)

	s.SetResult(Result{
		Document: db.Document{ID: "doc-1", Title: "paper.pdf"},
		Summary:  &summary.Result{Abstract: "A"},
	})

	snap := s.Snapshot()
	assert.Equal(t, StageResults, snap.Stage)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "doc-1", snap.Result.Document.ID)

	s.ClearResult()
	snap = s.Snapshot()
	assert.Equal(t, StageUpload, snap.Stage)
	assert.Nil(t, snap.Result)
}

func TestSelectHistoryItem(t *testing.T) {
	s := NewStore()
	s.SelectHistoryItem(Result{Document: db.Document{ID: "doc-2"}})

	snap := s.Snapshot()
	assert.Equal(t, "doc-2", snap.SelectedDocumentID)
	assert.Equal(t, StageResults, snap.Stage)
	require.NotNil(t, snap.Result)
	assert.Nil(t, snap.Result.Summary)
}

func TestSetTheme(t *testing.T) {
	s := NewStore()
	assert.Equal(t, ThemeDark, s.Snapshot().Theme)

	s.SetTheme(ThemeLight)
	assert.Equal(t, ThemeLight, s.Snapshot().Theme)
}

func TestNotify_IsBounded(t *testing.T) {
	s := NewStore()
	for i := 0; i < maxNotifications+5; i++ {
		s.Notify(NotificationError, "An error occurred", "")
	}
	s.Notify(NotificationSuccess, "Paper summarized successfully!", "")

	notes := s.Snapshot().Notifications
	assert.Len(t, notes, maxNotifications)
	assert.Equal(t, NotificationSuccess, notes[len(notes)-1].Kind)
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	s := NewStore()
	events, cancel := s.Subscribe(4)
	defer cancel()

	s.SetStage(StageProcessing)
	s.Notify(NotificationSuccess, "Paper summarized successfully!", "")

	ev := <-events
	assert.Equal(t, EventStage, ev.Type)
	assert.Equal(t, StageProcessing, ev.Snapshot.Stage)

	ev = <-events
	assert.Equal(t, EventNotification, ev.Type)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "Paper summarized successfully!", ev.Notification.Title)
}

func TestSubscribe_FullBufferDropsEvents(t *testing.T) {
	s := NewStore()
	events, cancel := s.Subscribe(1)
	defer cancel()

	s.SetStage(StageProcessing)
	s.SetStage(StageResults)

	ev := <-events
	assert.Equal(t, StageProcessing, ev.Snapshot.Stage)
	select {
	case extra := <-events:
		t.Fatalf("unexpected event %v", extra.Type)
	default:
	}
}

func TestCancelAndClose(t *testing.T) {
	s := NewStore()
	first, cancelFirst := s.Subscribe(1)
	second, _ := s.Subscribe(1)

	cancelFirst()
	_, ok := <-first
	assert.False(t, ok)

	s.Close()
	_, ok = <-second
	assert.False(t, ok)

	// Safe after close
	cancelFirst()
	s.Close()
	late, _ := s.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)

	s.SetStage(StageResults)
	assert.Equal(t, StageResults, s.Snapshot().Stage)
}
