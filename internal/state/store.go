package state

import (
	"sync"
	"time"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/summary"

	"github.com/sirupsen/logrus"
)

// Stage is the step of the submission screen
type Stage string

const (
	StageUpload     Stage = "upload"
	StageProcessing Stage = "processing"
	StageResults    Stage = "results"
)

// Theme is the color scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// NotificationKind tells success from error notifications
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// maxNotifications bounds the retained notification log
const maxNotifications = 50

// Notification is a user-visible message
type Notification struct {
	Kind   NotificationKind
	Title  string
	Detail string
	At     time.Time
}

// Result is the document and summary shown in the results view
type Result struct {
	Document db.Document
	Summary  *summary.Result
}

// EventType names what changed
type EventType string

const (
	EventStage        EventType = "stage"
	EventResult       EventType = "result"
	EventSelection    EventType = "selection"
	EventTheme        EventType = "theme"
	EventNotification EventType = "notification"
)

// Event is delivered to subscribers after each mutation
type Event struct {
	Type         EventType
	Notification *Notification
	Snapshot     Snapshot
}

// Snapshot is a copy of the whole state
type Snapshot struct {
	Stage              Stage
	Result             *Result
	SelectedDocumentID string
	Theme              Theme
	Notifications      []Notification
}

// Store is the single application state; all mutation goes through its methods
type Store struct {
	stage         Stage
	result        *Result
	selected      string
	theme         Theme
	notifications []Notification

	subscribers map[int]chan Event
	nextID      int
	closed      bool
	now         func() time.Time
	mu          sync.RWMutex
}

// NewStore creates a store on the upload stage with the dark theme
func NewStore() *Store {
	return &Store{
		stage:       StageUpload,
		theme:       ThemeDark,
		subscribers: make(map[int]chan Event),
		now:         time.Now,
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SetStage moves the submission screen to stage
func (s *Store) SetStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage == stage {
		return
	}
	s.stage = stage
	s.publishLocked(Event{Type: EventStage})
}

// SetResult shows result and moves to the results stage
func (s *Store) SetResult(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = &result
	s.stage = StageResults
	s.publishLocked(Event{Type: EventResult})
}

// ClearResult drops the current result and returns to the upload stage
func (s *Store) ClearResult() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = nil
	s.selected = ""
	s.stage = StageUpload
	s.publishLocked(Event{Type: EventResult})
}

// SelectHistoryItem marks a history entry as selected and shows its result
func (s *Store) SelectHistoryItem(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = result.Document.ID
	s.result = &result
	s.stage = StageResults
	s.publishLocked(Event{Type: EventSelection})
}

// SetTheme sets the color scheme
func (s *Store) SetTheme(theme Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.theme = theme
	s.publishLocked(Event{Type: EventTheme})
}

// Notify records a notification and publishes it
func (s *Store) Notify(kind NotificationKind, title, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := Notification{Kind: kind, Title: title, Detail: detail, At: s.now()}
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	logger.Log.WithFields(logrus.Fields{
		"kind":   kind,
		"title":  title,
		"detail": detail,
	}).Debug("Notification")

	s.publishLocked(Event{Type: EventNotification, Notification: &n})
}

// Subscribe returns a channel of events and a function that cancels the subscription.
// Events are dropped for a subscriber whose buffer is full.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// Close ends all subscriptions; later mutations are still applied but not published
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Store) publishLocked(event Event) {
	if len(s.subscribers) == 0 {
		return
	}
	event.Snapshot = s.snapshotLocked()
	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			logger.Log.WithFields(logrus.Fields{"subscriber": id, "event": event.Type}).Warn("Subscriber buffer full, dropping event")
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Stage:              s.stage,
		SelectedDocumentID: s.selected,
		Theme:              s.theme,
		Notifications:      make([]Notification, len(s.notifications)),
	}
	copy(snap.Notifications, s.notifications)
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}
