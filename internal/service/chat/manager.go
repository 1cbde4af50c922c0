package chat

import (
	"sync"
	"time"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/service/paperapi"

	"github.com/sirupsen/logrus"
)

// Manager keeps one chat session per document
type Manager struct {
	api      paperapi.PaperAPI
	timeout  time.Duration
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(api paperapi.PaperAPI, timeout time.Duration) *Manager {
	return &Manager{
		api:      api,
		timeout:  timeout,
		sessions: make(map[string]*Session),
	}
}

// Session gets or creates the session for a document
func (m *Manager) Session(userID, documentID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, exists := m.sessions[documentID]; exists && session.userID == userID {
		return session
	}

	session := NewSession(m.api, userID, documentID, m.timeout)
	m.sessions[documentID] = session
	logger.Log.WithFields(logrus.Fields{
		"document_id": documentID,
		"user_id":     userID,
	}).Debug("Created chat session")
	return session
}

// Forget drops the session of a document, e.g. after it was deleted
func (m *Manager) Forget(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[documentID]; exists {
		delete(m.sessions, documentID)
		logger.Log.WithField("document_id", documentID).Debug("Dropped chat session")
	}
}
