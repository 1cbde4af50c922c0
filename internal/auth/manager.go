package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// Manager ties the remote auth service to the local session file and the users table
type Manager struct {
	service Service
	store   *FileStore
	users   db.Database
	now     func() time.Time
}

// NewManager creates a Manager
func NewManager(service Service, store *FileStore, users db.Database) *Manager {
	return &Manager{
		service: service,
		store:   store,
		users:   users,
		now:     time.Now,
	}
}

// SignUp registers the account and creates its profile row.
// The session, if the service issued one, is saved.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (*SignUpResult, error) {
	result, err := m.service.SignUp(ctx, name, email, password)
	if err != nil {
		return nil, err
	}

	if _, err := m.users.CreateUser(ctx, result.User.ID, name, email); err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	if result.Session != nil {
		result.Session.User.Name = name
		if err := m.store.Save(result.Session); err != nil {
			return nil, err
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":   result.User.ID,
		"confirmed": result.Session != nil,
	}).Info("User signed up")
	return result, nil
}

// SignIn authenticates and saves the session
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := m.service.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	m.fillProfile(ctx, session)
	if err := m.store.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

// SignOut revokes the remote session and always clears the local one
func (m *Manager) SignOut(ctx context.Context) error {
	session, err := m.store.Load()
	if errors.Is(err, ErrNotSignedIn) {
		return nil
	}
	if err != nil {
		return err
	}

	remoteErr := m.service.SignOut(ctx, session.AccessToken)
	if remoteErr != nil {
		logger.Log.WithError(remoteErr).Warn("Remote sign-out failed, clearing local session anyway")
	}
	if err := m.store.Clear(); err != nil {
		return err
	}
	return nil
}

// ResetPassword sends the reset e-mail
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	return m.service.ResetPasswordForEmail(ctx, email)
}

// UpdatePassword changes the password of the signed-in user
func (m *Manager) UpdatePassword(ctx context.Context, password string) error {
	session, err := m.Session(ctx)
	if err != nil {
		return err
	}
	return m.service.UpdatePassword(ctx, session.AccessToken, password)
}

// Session returns a live session, refreshing it when the access token has expired
func (m *Manager) Session(ctx context.Context) (*Session, error) {
	session, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if !session.Expired(m.now()) {
		return session, nil
	}

	if session.RefreshToken == "" {
		return nil, ErrNotSignedIn
	}

	refreshed, err := m.service.Refresh(ctx, session.RefreshToken)
	if err != nil {
		var authErr *Error
		if errors.As(err, &authErr) {
			// Refresh token rejected; the user has to sign in again
			_ = m.store.Clear()
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("error refreshing session: %w", err)
	}

	if refreshed.User.Name == "" {
		refreshed.User.Name = session.User.Name
	}
	if err := m.store.Save(refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// CurrentUser returns the signed-in user or ErrNotSignedIn
func (m *Manager) CurrentUser(ctx context.Context) (*User, error) {
	session, err := m.Session(ctx)
	if err != nil {
		return nil, err
	}
	user := session.User
	return &user, nil
}

// VerifiedUser asks the auth service who owns the current session.
// A session the service rejects is cleared and reported as ErrNotSignedIn.
func (m *Manager) VerifiedUser(ctx context.Context) (*User, error) {
	session, err := m.Session(ctx)
	if err != nil {
		return nil, err
	}

	user, err := m.service.GetUser(ctx, session.AccessToken)
	if err != nil {
		var authErr *Error
		if errors.As(err, &authErr) && (authErr.Status == http.StatusUnauthorized || authErr.Status == http.StatusForbidden) {
			_ = m.store.Clear()
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("error verifying session: %w", err)
	}

	if user.Name == "" {
		user.Name = session.User.Name
	}
	return user, nil
}

// fillProfile takes the display name from the users table when the token lacks it
func (m *Manager) fillProfile(ctx context.Context, session *Session) {
	if session.User.Name != "" {
		return
	}
	profile, err := m.users.GetUserByID(ctx, session.User.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logger.Log.WithError(err).WithField("user_id", session.User.ID).Warn("Failed to load user profile")
		}
		return
	}
	session.User.Name = profile.Name
}
