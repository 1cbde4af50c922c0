package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paper-summarizer/internal/config"
	"paper-summarizer/internal/logger"

	"github.com/sirupsen/logrus"
)

// ErrNotSignedIn is returned when no usable session exists
var ErrNotSignedIn = errors.New("not signed in")

// Error is a failure reported by the auth service
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth error %d: %s", e.Status, e.Message)
}

// User is the signed-in account as reported by the auth service
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Avatar is the two-letter badge shown for the user
func (u *User) Avatar() string {
	return Avatar(u.Name, u.Email)
}

// Session is an authenticated session
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past (or within a minute of) expiry
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || now.Add(time.Minute).After(s.ExpiresAt)
}

// SignUpResult holds the created user; Session is nil when e-mail confirmation is pending
type SignUpResult struct {
	User    User
	Session *Session
}

// Service is the remote authentication API
type Service interface {
	SignUp(ctx context.Context, name, email, password string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, password string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Ensure Client implements Service
var _ Service = (*Client)(nil)

// Client talks to the Supabase auth (GoTrue) REST API
type Client struct {
	baseURL          string
	anonKey          string
	jwtSecret        []byte
	emailRedirectURL string
	passwordResetURL string
	httpClient       *http.Client
	timeout          time.Duration
	now              func() time.Time
}

// NewClient creates an auth client with config
func NewClient(cfg config.SupabaseConfig) *Client {
	return &Client{
		baseURL:          strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:          cfg.AnonKey,
		jwtSecret:        cfg.JWTSecret,
		emailRedirectURL: cfg.EmailRedirectURL,
		passwordResetURL: cfg.PasswordResetURL,
		httpClient:       &http.Client{},
		timeout:          cfg.AuthRequestTimeout,
		now:              time.Now,
	}
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         *gotrueUser `json:"user"`
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// SignUp registers a new account; the display name goes to user metadata
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*SignUpResult, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}

	body, err := c.do(ctx, http.MethodPost, "/signup", withRedirect(c.emailRedirectURL), "", payload)
	if err != nil {
		return nil, err
	}

	// The response is a session when auto-confirm is on, otherwise the bare user
	var sess gotrueSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("error decoding sign-up response: %w", err)
	}
	if sess.AccessToken != "" && sess.User != nil {
		session := c.toSession(sess)
		return &SignUpResult{User: session.User, Session: session}, nil
	}

	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("error decoding sign-up user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("failed to get user id from auth service")
	}

	logger.Log.WithField("user_id", user.ID).Info("Signed up, e-mail confirmation pending")
	return &SignUpResult{User: toUser(user)}, nil
}

// SignIn exchanges e-mail and password for a session
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	return c.tokenGrant(ctx, "password", payload)
}

// Refresh exchanges a refresh token for a new session
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	return c.tokenGrant(ctx, "refresh_token", payload)
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, payload any) (*Session, error) {
	query := url.Values{"grant_type": {grantType}}
	body, err := c.do(ctx, http.MethodPost, "/token", query, "", payload)
	if err != nil {
		return nil, err
	}

	var sess gotrueSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("error decoding session: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("auth service returned no access token")
	}

	session := c.toSession(sess)
	logger.Log.WithFields(logrus.Fields{"user_id": session.User.ID, "grant_type": grantType}).Info("Session issued")
	return session, nil
}

// SignOut revokes the session server-side
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil)
	return err
}

// ResetPasswordForEmail sends a password reset link
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	_, err := c.do(ctx, http.MethodPost, "/recover", withRedirect(c.passwordResetURL), "", payload)
	return err
}

// UpdatePassword sets a new password for the signed-in user
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) error {
	payload := map[string]string{"password": password}
	_, err := c.do(ctx, http.MethodPut, "/user", nil, accessToken, payload)
	return err
}

// GetUser returns the user owning the access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("error decoding user: %w", err)
	}
	u := toUser(user)
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, payload any) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func (c *Client) toSession(s gotrueSession) *Session {
	session := &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	if s.User != nil {
		session.User = toUser(*s.User)
	} else if claims, err := ParseClaims(s.AccessToken, c.jwtSecret); err == nil {
		session.User = claims.User()
	}
	return session
}

func toUser(u gotrueUser) User {
	name, _ := u.UserMetadata["name"].(string)
	if name == "" {
		name, _ = u.UserMetadata["full_name"].(string)
	}
	return User{ID: u.ID, Email: u.Email, Name: name}
}

func withRedirect(redirectURL string) url.Values {
	if redirectURL == "" {
		return nil
	}
	return url.Values{"redirect_to": {redirectURL}}
}

func errorMessage(body []byte) string {
	var e gotrueError
	if err := json.Unmarshal(body, &e); err == nil {
		for _, msg := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// Avatar derives the two-letter badge: first two characters of the name, else the e-mail, uppercased; "U" if blank
func Avatar(name, email string) string {
	source := name
	if source == "" {
		source = email
	}
	if strings.TrimSpace(source) == "" {
		return "U"
	}
	runes := []rune(source)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
