package paperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paper-summarizer/internal/config"
	"paper-summarizer/internal/logger"
	"paper-summarizer/internal/repository/db"
	"paper-summarizer/internal/service/summary"

	"github.com/sirupsen/logrus"
)

// PaperAPI is the remote summarization/chat service
type PaperAPI interface {
	// SummarizeFile posts the file as multipart field "file"
	SummarizeFile(ctx context.Context, file File) (*summary.Result, error)
	// SummarizeText posts pasted text as JSON {text}
	SummarizeText(ctx context.Context, text string) (*summary.Result, error)
	// Ask sends a question about a document and returns the answer
	Ask(ctx context.Context, req AskRequest) (string, error)
	// ChatHistory returns the stored question/answer pairs of a document, oldest first
	ChatHistory(ctx context.Context, documentID string) ([]db.ChatMessage, error)
}

// File is an uploaded file held in memory
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// AskRequest is the body of POST /chat
type AskRequest struct {
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error"`
}

type chatHistoryResponse struct {
	Chats []wireChatMessage `json:"chats"`
}

// wireChatMessage tolerates numeric ids and loosely formatted timestamps
type wireChatMessage struct {
	ID         any    `json:"id"`
	CreatedAt  string `json:"created_at"`
	UserID     string `json:"user_id"`
	DocumentID any    `json:"document_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// ErrNoAnswer is returned when the chat service replies without an answer
var ErrNoAnswer = errors.New("no answer")

// HTTPError is a non-2xx response; Body is kept for diagnostics
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Body)
}

// Ensure Client implements PaperAPI
var _ PaperAPI = (*Client)(nil)

// Client talks to the summarization/chat service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a new service client with config
func NewClient(apiConfig config.APIConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(apiConfig.BaseURL, "/"),
		httpClient: &http.Client{},
		timeout:    apiConfig.RequestTimeout,
	}
}

// NewClientWithHTTP allows a custom transport (tests, proxies)
func NewClientWithHTTP(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// SummarizeFile sends a file to POST /summarize as multipart form data
func (c *Client) SummarizeFile(ctx context.Context, file File) (*summary.Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("error creating multipart field: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("error writing multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("error closing multipart body: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"file_name": file.Name,
		"bytes":     len(file.Data),
	}).Info("Calling summarization API with file")

	body, err := c.do(ctx, http.MethodPost, "/summarize", writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return summary.ParseResponse(body)
}

// SummarizeText sends pasted text to POST /summarize as JSON
func (c *Client) SummarizeText(ctx context.Context, text string) (*summary.Result, error) {
	jsonData, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	logger.Log.WithField("text_length", len(text)).Info("Calling summarization API with text")

	body, err := c.do(ctx, http.MethodPost, "/summarize", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	return summary.ParseResponse(body)
}

// Ask sends a question to POST /chat.
// A non-2xx status or an empty answer is an error carrying the service's error text when present.
func (c *Client) Ask(ctx context.Context, req AskRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"document_id":     req.DocumentID,
		"question_length": len(req.Question),
	}).Info("Calling chat API")

	body, err := c.do(ctx, http.MethodPost, "/chat", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			var resp askResponse
			if json.Unmarshal([]byte(httpErr.Body), &resp) == nil && resp.Error != "" {
				return "", errors.New(resp.Error)
			}
		}
		return "", err
	}

	var resp askResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	if resp.Answer == "" {
		if resp.Error != "" {
			return "", errors.New(resp.Error)
		}
		return "", ErrNoAnswer
	}

	return resp.Answer, nil
}

// ChatHistory fetches GET /chat/{document_id}
func (c *Client) ChatHistory(ctx context.Context, documentID string) ([]db.ChatMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(documentID), "", nil)
	if err != nil {
		return nil, err
	}

	var resp chatHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error decoding chat history: %w", err)
	}

	messages := make([]db.ChatMessage, 0, len(resp.Chats))
	for _, m := range resp.Chats {
		messages = append(messages, db.ChatMessage{
			ID:         stringify(m.ID),
			CreatedAt:  parseTimestamp(m.CreatedAt),
			UserID:     m.UserID,
			DocumentID: stringify(m.DocumentID),
			Question:   m.Question,
			Answer:     m.Answer,
		})
	}

	logger.Log.WithFields(logrus.Fields{"document_id": documentID, "count": len(messages)}).Debug("Loaded chat history")
	return messages, nil
}

// do performs one request under the client timeout and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	logger.Log.WithFields(logrus.Fields{"path": path, "response_length": len(respBody)}).Debug("Received raw response")
	return respBody, nil
}
