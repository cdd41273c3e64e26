// Package restapi is the HTTP client for the backend resources the session
// controller consumes: conversation history, the generated document and the
// two-phase edit endpoint.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/drafter/pkg/masking"
	"github.com/codeready-toolchain/drafter/pkg/models"
	"github.com/codeready-toolchain/drafter/pkg/version"
)

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Client talks to the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	history    *Cache
	masker     *masking.Service
	logger     *slog.Logger

	tokenMu sync.RWMutex
	token   string
}

// NewClient creates a client. token may be empty for unauthenticated backends.
// historyTTL > 0 enables caching of fetched history per session.
func NewClient(baseURL string, timeout time.Duration, token string, historyTTL time.Duration) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
		masker:     masking.NewService(),
		logger:     slog.With("component", "restapi"),
	}
	if historyTTL > 0 {
		c.history = NewCache(historyTTL)
	}
	return c
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

// historyResponse accepts both a bare list and an object wrapping it.
type historyResponse struct {
	History  []models.HistoryEntry `json:"history"`
	Messages []models.HistoryEntry `json:"messages"`
}

// FetchHistory returns the prior turns of a session, oldest first.
func (c *Client) FetchHistory(ctx context.Context, sessionID string) ([]models.HistoryEntry, error) {
	if c.history != nil {
		if entries, ok := c.history.Get(sessionID); ok {
			return entries, nil
		}
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/chat/sessions/"+url.PathEscape(sessionID)+"/history/", nil, &raw); err != nil {
		return nil, err
	}

	var entries []models.HistoryEntry
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	} else {
		var wrapped historyResponse
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		entries = wrapped.History
		if entries == nil {
			entries = wrapped.Messages
		}
	}

	if c.history != nil {
		c.history.Set(sessionID, entries)
	}
	return entries, nil
}

// documentResponse carries the body under whichever key the backend version uses.
type documentResponse struct {
	ID          flexID    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Document    string    `json:"document"`
	HTMLContent string    `json:"html_content"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Author      string    `json:"author"`
}

func (r documentResponse) content() string {
	for _, s := range []string{r.Content, r.Document, r.HTMLContent, r.Body} {
		if s != "" {
			return s
		}
	}
	return ""
}

// flexID accepts an id sent either as a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// FetchDocument returns the current generated document of a project.
func (c *Client) FetchDocument(ctx context.Context, projectID string) (models.Document, error) {
	var resp documentResponse
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/document/", nil, &resp); err != nil {
		return models.Document{}, err
	}
	return models.Document{
		ID:        string(resp.ID),
		Title:     resp.Title,
		Content:   resp.content(),
		CreatedAt: resp.CreatedAt,
		UpdatedAt: resp.UpdatedAt,
		Author:    resp.Author,
	}, nil
}

// editRequestBody is the wire form of models.EditRequest.
type editRequestBody struct {
	SessionID         string `json:"session_id,omitempty"`
	OriginalText      string `json:"original_text"`
	NewText           string `json:"new_text"`
	SectionIdentifier string `json:"section_identifier,omitempty"`
	SectionID         string `json:"section_id,omitempty"`
	PreviewMode       bool   `json:"preview_mode"`
	ApplyToAll        bool   `json:"apply_to_all"`
}

// SubmitEdit previews or commits one text change on the project's document.
func (c *Client) SubmitEdit(ctx context.Context, req models.EditRequest) (models.EditResult, error) {
	body := editRequestBody{
		SessionID:         req.SessionID,
		OriginalText:      req.Change.OriginalText,
		NewText:           req.Change.NewText,
		SectionIdentifier: req.Change.SectionIdentifier,
		SectionID:         req.Change.SectionID,
		PreviewMode:       req.Preview,
		ApplyToAll:        req.ApplyToAll,
	}
	var result models.EditResult
	if err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(req.ProjectID)+"/document/edit/", body, &result); err != nil {
		return models.EditResult{}, err
	}
	return result, nil
}

// InvalidateHistory drops any cached history of a session.
func (c *Client) InvalidateHistory(sessionID string) {
	if c.history != nil {
		c.history.Invalidate(sessionID)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.masker.MaskError(fmt.Errorf("%s %s: %w", method, endpoint, err), c.currentToken())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Backend returned error status", "method", method, "url", endpoint, "status", resp.StatusCode)
		return &StatusError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       c.masker.Mask(string(snippet), c.currentToken()),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) currentToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

func (c *Client) setAuthHeader(req *http.Request) {
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
