package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Session mirrors the session descriptor returned by the management API.
type Session struct {
	ID                  string    `json:"id"`
	AttributeNames      []string  `json:"attributeNames"`
	CreationTime        time.Time `json:"creationTime"`
	LastAccessedTime    time.Time `json:"lastAccessedTime"`
	MaxInactiveInterval int64     `json:"maxInactiveInterval"`
	Expired             bool      `json:"expired"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ManagementClient calls a sessiond server with HTTP Basic credentials.
type ManagementClient struct {
	BaseURL  string
	Username string
	Password string

	client *http.Client
}

// NewManagementClient creates a client for the server at baseURL. The client
// keeps cookies, so repeated Touch calls reuse one session. A nil
// httpClient uses NewHTTPClient(nil).
func NewManagementClient(baseURL, username, password string, httpClient *http.Client) *ManagementClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(nil)
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		copied := *httpClient
		copied.Jar = jar
		httpClient = &copied
	}
	return &ManagementClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		Password: password,
		client:   httpClient,
	}
}

// Touch issues an authenticated GET / so the server creates (or reuses) a
// session. It returns the session uid from the response body.
func (m *ManagementClient) Touch(ctx context.Context) (string, error) {
	body, err := m.do(ctx, http.MethodGet, "/", http.StatusOK)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// ListSessions returns the sessions owned by username.
func (m *ManagementClient) ListSessions(ctx context.Context, username string) ([]Session, error) {
	body, err := m.do(ctx, http.MethodGet, "/actuator/sessions?username="+url.QueryEscape(username), http.StatusOK)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return resp.Sessions, nil
}

// GetSession returns one session by id.
func (m *ManagementClient) GetSession(ctx context.Context, id string) (*Session, error) {
	body, err := m.do(ctx, http.MethodGet, "/actuator/sessions/"+url.PathEscape(id), http.StatusOK)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes one session by id.
func (m *ManagementClient) DeleteSession(ctx context.Context, id string) error {
	_, err := m.do(ctx, http.MethodDelete, "/actuator/sessions/"+url.PathEscape(id), http.StatusNoContent)
	return err
}

func (m *ManagementClient) do(ctx context.Context, method, path string, want int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, m.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(m.Username, m.Password)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != want {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

func statusError(code int, body []byte) *StatusError {
	e := &StatusError{StatusCode: code, Message: http.StatusText(code)}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if t := parsed.Get("error.type"); t.Exists() {
			e.Type = t.String()
		}
		if msg := parsed.Get("error.message"); msg.Exists() {
			e.Message = msg.String()
		}
	}
	return e
}
