package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"paper-summarizer/internal/auth"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) (*auth.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	return auth.NewFileStore(path), path
}

func liveSession() *auth.Session {
	return &auth.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         auth.User{ID: "user-1", Email: "ada@example.com", Name: "Ada"},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, path := newFileStore(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	want := liveSession()
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.User, got.User)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestFileStore_CorruptFile(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestManager_SignUpCreatesProfile(t *testing.T) {
	store, _ := newFileStore(t)
	var created []string
	mockDB := &testutil.MockDatabase{
		CreateUserFunc: func(ctx context.Context, id, name, email string) (*db.User, error) {
			created = append(created, id, name, email)
			return &db.User{ID: id, Name: name, Email: email}, nil
		},
	}
	service := &testutil.MockAuthService{
		SignUpFunc: func(ctx context.Context, name, email, password string) (*auth.SignUpResult, error) {
			session := liveSession()
			session.User.Name = ""
			return &auth.SignUpResult{User: session.User, Session: session}, nil
		},
	}

	manager := auth.NewManager(service, store, mockDB)
	result, err := manager.SignUp(context.Background(), "Ada", "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "Ada", "ada@example.com"}, created)
	require.NotNil(t, result.Session)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Ada", saved.User.Name)
}

func TestManager_SignUpPendingConfirmationSavesNothing(t *testing.T) {
	store, _ := newFileStore(t)
	mockDB := &testutil.MockDatabase{
		CreateUserFunc: func(ctx context.Context, id, name, email string) (*db.User, error) {
			return &db.User{ID: id}, nil
		},
	}
	service := &testutil.MockAuthService{
		SignUpFunc: func(ctx context.Context, name, email, password string) (*auth.SignUpResult, error) {
			return &auth.SignUpResult{User: auth.User{ID: "user-2", Email: email}}, nil
		},
	}

	manager := auth.NewManager(service, store, mockDB)
	_, err := manager.SignUp(context.Background(), "Bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestManager_SignUpProfileFailure(t *testing.T) {
	store, _ := newFileStore(t)
	mockDB := &testutil.MockDatabase{
		CreateUserFunc: func(ctx context.Context, id, name, email string) (*db.User, error) {
			return nil, errors.New("insert failed")
		},
	}
	service := &testutil.MockAuthService{
		SignUpFunc: func(ctx context.Context, name, email, password string) (*auth.SignUpResult, error) {
			return &auth.SignUpResult{User: auth.User{ID: "user-2"}, Session: liveSession()}, nil
		},
	}

	manager := auth.NewManager(service, store, mockDB)
	_, err := manager.SignUp(context.Background(), "Bob", "bob@example.com", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user profile")

	_, err = store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestManager_SignInFillsProfileName(t *testing.T) {
	store, _ := newFileStore(t)
	mockDB := &testutil.MockDatabase{
		GetUserByIDFunc: func(ctx context.Context, id string) (*db.User, error) {
			return &db.User{ID: id, Name: "Ada From Profile"}, nil
		},
	}
	service := &testutil.MockAuthService{
		SignInFunc: func(ctx context.Context, email, password string) (*auth.Session, error) {
			session := liveSession()
			session.User.Name = ""
			return session, nil
		},
	}

	manager := auth.NewManager(service, store, mockDB)
	session, err := manager.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ada From Profile", session.User.Name)

	user, err := manager.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada From Profile", user.Name)
}

func TestManager_SignInMissingProfile(t *testing.T) {
	store, _ := newFileStore(t)
	mockDB := &testutil.MockDatabase{
		GetUserByIDFunc: func(ctx context.Context, id string) (*db.User, error) {
			return nil, db.ErrNotFound
		},
	}
	service := &testutil.MockAuthService{
		SignInFunc: func(ctx context.Context, email, password string) (*auth.Session, error) {
			session := liveSession()
			session.User.Name = ""
			return session, nil
		},
	}

	manager := auth.NewManager(service, store, mockDB)
	session, err := manager.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Empty(t, session.User.Name)
	assert.Equal(t, "AD", session.User.Avatar())
}

func TestManager_SessionRefreshesExpiredToken(t *testing.T) {
	store, _ := newFileStore(t)
	expired := liveSession()
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(expired))

	service := &testutil.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*auth.Session, error) {
			assert.Equal(t, "refresh", refreshToken)
			return &auth.Session{
				AccessToken:  "new-access",
				RefreshToken: "new-refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
				User:         auth.User{ID: "user-1", Email: "ada@example.com"},
			}, nil
		},
	}

	manager := auth.NewManager(service, store, &testutil.MockDatabase{})
	session, err := manager.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", session.AccessToken)
	assert.Equal(t, "Ada", session.User.Name)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", saved.RefreshToken)
}

func TestManager_RejectedRefreshSignsOut(t *testing.T) {
	store, _ := newFileStore(t)
	expired := liveSession()
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(expired))

	service := &testutil.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*auth.Session, error) {
			return nil, &auth.Error{Status: 400, Message: "Invalid Refresh Token"}
		},
	}

	manager := auth.NewManager(service, store, &testutil.MockDatabase{})
	_, err := manager.CurrentUser(context.Background())
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	_, err = store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestManager_RefreshTransportErrorKeepsSession(t *testing.T) {
	store, _ := newFileStore(t)
	expired := liveSession()
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(expired))

	service := &testutil.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*auth.Session, error) {
			return nil, errors.New("connection refused")
		},
	}

	manager := auth.NewManager(service, store, &testutil.MockDatabase{})
	_, err := manager.Session(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotSignedIn)

	_, err = store.Load()
	assert.NoError(t, err)
}

func TestManager_SignOutClearsLocalSessionOnRemoteFailure(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.Save(liveSession()))

	service := &testutil.MockAuthService{
		SignOutFunc: func(ctx context.Context, accessToken string) error {
			assert.Equal(t, "access", accessToken)
			return errors.New("network down")
		},
	}

	manager := auth.NewManager(service, store, &testutil.MockDatabase{})
	require.NoError(t, manager.SignOut(context.Background()))

	_, err := store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	// Signing out twice is a no-op
	require.NoError(t, manager.SignOut(context.Background()))
}

func TestManager_VerifiedUser(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.Save(liveSession()))

	service := &testutil.MockAuthService{
		GetUserFunc: func(ctx context.Context, accessToken string) (*auth.User, error) {
			assert.Equal(t, "access", accessToken)
			return &auth.User{ID: "user-1", Email: "ada@example.com"}, nil
		},
	}

	manager := auth.NewManager(service, store, &testutil.MockDatabase{})
	user, err := manager.VerifiedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.User{ID: "user-1", Email: "ada@example.com", Name: "Ada"}, *user)
}

func TestManager_VerifiedUserRejectedSessionSignsOut(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.Save(liveSession()))

	service := &testutil.MockAuthService{
		GetUserFunc: func(ctx context.Context, accessToken string) (*auth.User, error) {
			return nil, &auth.Error{Status: 401, Message: "invalid JWT"}
		},
	}

	manager := auth.NewManager(service, store, &testutil.MockDatabase{})
	_, err := manager.VerifiedUser(context.Background())
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	_, err = store.Load()
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestManager_UpdatePasswordRequiresSession(t *testing.T) {
	store, _ := newFileStore(t)
	var gotToken string
	service := &testutil.MockAuthService{
		UpdatePasswordFunc: func(ctx context.Context, accessToken, password string) error {
			gotToken = accessToken
			return nil
		},
	}
	manager := auth.NewManager(service, store, &testutil.MockDatabase{})

	err := manager.UpdatePassword(context.Background(), "newsecret")
	assert.ErrorIs(t, err, auth.ErrNotSignedIn)

	require.NoError(t, store.Save(liveSession()))
	require.NoError(t, manager.UpdatePassword(context.Background(), "newsecret"))
	assert.Equal(t, "access", gotToken)
}
