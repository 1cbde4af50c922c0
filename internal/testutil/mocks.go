package testutil

import (
	"context"
	"errors"

	"paper-summarizer/internal/auth"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/paperapi"
	"paper-summarizer/internal/service/summary"
	"paper-summarizer/internal/storage"
)

var (
	_ db.Database         = (*MockDatabase)(nil)
	_ storage.BlobStorage = (*MockStorage)(nil)
	_ paperapi.PaperAPI   = (*MockPaperAPI)(nil)
	_ auth.Service        = (*MockAuthService)(nil)
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// User mocks
	CreateUserFunc  func(ctx context.Context, id, name, email string) (*db.User, error)
	GetUserByIDFunc func(ctx context.Context, id string) (*db.User, error)

	// Document mocks
	CreateDocumentFunc  func(ctx context.Context, doc db.Document) (*db.Document, error)
	GetDocumentByIDFunc func(ctx context.Context, id string) (*db.Document, error)
	DeleteDocumentFunc  func(ctx context.Context, id string) error

	// Summary mocks
	CreateSummaryFunc             func(ctx context.Context, summary db.Summary) (*db.Summary, error)
	GetDocumentsWithSummariesFunc func(ctx context.Context, userID string) ([]db.DocumentWithSummary, error)
}

// User methods
func (m *MockDatabase) CreateUser(ctx context.Context, id, name, email string) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, id, name, email)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

// Document methods
func (m *MockDatabase) CreateDocument(ctx context.Context, doc db.Document) (*db.Document, error) {
	if m.CreateDocumentFunc != nil {
		return m.CreateDocumentFunc(ctx, doc)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetDocumentByID(ctx context.Context, id string) (*db.Document, error) {
	if m.GetDocumentByIDFunc != nil {
		return m.GetDocumentByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) DeleteDocument(ctx context.Context, id string) error {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, id)
	}
	return errors.New("not implemented")
}

// Summary methods
func (m *MockDatabase) CreateSummary(ctx context.Context, summary db.Summary) (*db.Summary, error) {
	if m.CreateSummaryFunc != nil {
		return m.CreateSummaryFunc(ctx, summary)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetDocumentsWithSummaries(ctx context.Context, userID string) ([]db.DocumentWithSummary, error) {
	if m.GetDocumentsWithSummariesFunc != nil {
		return m.GetDocumentsWithSummariesFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

// MockStorage is a mock implementation of storage.BlobStorage for testing
type MockStorage struct {
	UploadFunc func(ctx context.Context, path, contentType string, data []byte) (string, error)
	DeleteFunc func(ctx context.Context, path string) error
}

func (m *MockStorage) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, path, contentType, data)
	}
	return "", errors.New("not implemented")
}

func (m *MockStorage) Delete(ctx context.Context, path string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, path)
	}
	return errors.New("not implemented")
}

// MockPaperAPI is a mock implementation of paperapi.PaperAPI for testing
type MockPaperAPI struct {
	SummarizeFileFunc func(ctx context.Context, file paperapi.File) (*summary.Result, error)
	SummarizeTextFunc func(ctx context.Context, text string) (*summary.Result, error)
	AskFunc           func(ctx context.Context, req paperapi.AskRequest) (string, error)
	ChatHistoryFunc   func(ctx context.Context, documentID string) ([]db.ChatMessage, error)
}

func (m *MockPaperAPI) SummarizeFile(ctx context.Context, file paperapi.File) (*summary.Result, error) {
	if m.SummarizeFileFunc != nil {
		return m.SummarizeFileFunc(ctx, file)
	}
	return nil, errors.New("not implemented")
}

func (m *MockPaperAPI) SummarizeText(ctx context.Context, text string) (*summary.Result, error) {
	if m.SummarizeTextFunc != nil {
		return m.SummarizeTextFunc(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func (m *MockPaperAPI) Ask(ctx context.Context, req paperapi.AskRequest) (string, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, req)
	}
	return "", errors.New("not implemented")
}

func (m *MockPaperAPI) ChatHistory(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
	if m.ChatHistoryFunc != nil {
		return m.ChatHistoryFunc(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

// MockAuthService is a mock implementation of auth.Service for testing
type MockAuthService struct {
	SignUpFunc                func(ctx context.Context, name, email, password string) (*auth.SignUpResult, error)
	SignInFunc                func(ctx context.Context, email, password string) (*auth.Session, error)
	SignOutFunc               func(ctx context.Context, accessToken string) error
	ResetPasswordForEmailFunc func(ctx context.Context, email string) error
	UpdatePasswordFunc        func(ctx context.Context, accessToken, password string) error
	GetUserFunc               func(ctx context.Context, accessToken string) (*auth.User, error)
	RefreshFunc               func(ctx context.Context, refreshToken string) (*auth.Session, error)
}

func (m *MockAuthService) SignUp(ctx context.Context, name, email, password string) (*auth.SignUpResult, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, name, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *MockAuthService) SignOut(ctx context.Context, accessToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return errors.New("not implemented")
}

func (m *MockAuthService) ResetPasswordForEmail(ctx context.Context, email string) error {
	if m.ResetPasswordForEmailFunc != nil {
		return m.ResetPasswordForEmailFunc(ctx, email)
	}
	return errors.New("not implemented")
}

func (m *MockAuthService) UpdatePassword(ctx context.Context, accessToken, password string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, accessToken, password)
	}
	return errors.New("not implemented")
}

func (m *MockAuthService) GetUser(ctx context.Context, accessToken string) (*auth.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, accessToken)
	}
	return nil, errors.New("not implemented")
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, errors.New("not implemented")
}
