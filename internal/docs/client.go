// Package docs implements the client for the remote document feed: the
// small set of operations the uploader needs to list, create, upload
// and trash entries in a hierarchical namespace.
package docs

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
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided. Uploads of the largest allowed
	// documents fit comfortably within it.
	httpClientTimeout = 90 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxAPIResponseBytes = 1024 * 1024
)

// Error codes in the feed's error envelope.
const (
	codeInvalidEntry = "invalidEntry"
	codeAuthError    = "authError"
)

// Client talks to the document feed API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents the session token
// from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client for the given base URL. If httpClient
// is nil, a client with a 90-second timeout and same-host redirect
// policy is created.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// SetToken sets the session token used for subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current session token.
func (c *Client) Token() string { return c.token }

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// doJSON sends a request with an optional JSON body and decodes the
// response into result.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, endpoint, result)
}

// send executes a prepared request, classifies failures and decodes the
// response into result when non-nil.
func (c *Client) send(req *http.Request, endpoint string, result interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("sending request to %s: %w", endpoint, err)
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		return &TransientError{Err: wrapped}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if err := c.classify(endpoint, resp.StatusCode, respBody); err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
	}

	return nil
}

// classify turns a response into one of the error kinds, or nil for
// success. The feed reports most failures as an error envelope, which
// it may send with a 200 status; peek at it before deciding how to
// treat the body.
func (c *Client) classify(endpoint string, status int, body []byte) error {
	envelope := gjson.GetBytes(body, "error")
	if envelope.Exists() {
		code := envelope.Get("code").Str
		msg := envelope.Get("message").Str
		if msg == "" {
			msg = "unknown error"
		}

		switch {
		case code == codeInvalidEntry:
			return &InvalidEntryError{Reason: msg}
		case code == codeAuthError || status == http.StatusUnauthorized || status == http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthentication, msg)
		}

		err := fmt.Errorf("API %s (%d): %s", endpoint, status, msg)
		if isTransientStatus(status) || isTransientMessage(msg) {
			return &TransientError{Err: err}
		}

		return err
	}

	if status == http.StatusOK {
		return nil
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrAuthentication, status)
	}

	err := fmt.Errorf("API %s returned status %d: %s", endpoint, status, sanitizeResponseBody(body))
	if isTransientStatus(status) {
		return &TransientError{Err: err}
	}

	return err
}

// isTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// isTransientMessage checks whether an API error message suggests a
// temporary condition. The feed reports overload as an error envelope
// with a 200 status, so the code alone is not enough.
func isTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)

	return strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "try again") ||
		strings.Contains(lower, "temporarily unavailable")
}

// Signin authenticates with username and password and stores the
// returned session token on the client.
func (c *Client) Signin(ctx context.Context, username, password string) (*SigninResponse, error) {
	req := SigninRequest{
		Username: username,
		Password: password,
	}

	var resp SigninResponse
	if err := c.doJSON(ctx, http.MethodPost, "/accounts/signin", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}

	c.token = resp.Token

	return &resp, nil
}

// ValidateToken checks that the current session token is accepted by
// the service. Used to probe cached tokens before falling back to a
// fresh sign-in.
func (c *Client) ValidateToken(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodGet, "/feeds/account", nil, nil, nil); err != nil {
		return fmt.Errorf("validating token: %w", err)
	}

	return nil
}

// ListFolders returns the sub-folders of the given parent. An empty
// parentID lists the top-level folders of the account.
func (c *Client) ListFolders(ctx context.Context, parentID string) ([]Entry, error) {
	query := url.Values{}
	if parentID != "" {
		query.Set("parent", parentID)
	}

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/feeds/folders", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	folders := resp.Entries[:0]
	for _, e := range resp.Entries {
		if e.IsFolder() {
			folders = append(folders, e)
		}
	}

	return folders, nil
}

// ListDocuments returns the documents in the given folder, excluding
// folder-typed entries. An empty parentID lists documents at the root
// of the account.
func (c *Client) ListDocuments(ctx context.Context, parentID string) ([]Entry, error) {
	query := url.Values{}
	if parentID != "" {
		query.Set("parent", parentID)
	}

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/feeds/documents", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	documents := resp.Entries[:0]
	for _, e := range resp.Entries {
		if !e.IsFolder() {
			documents = append(documents, e)
		}
	}

	return documents, nil
}

// CreateFolder creates a folder under parent. An empty parentID creates
// a top-level folder. Failures are wrapped in a CreationError.
func (c *Client) CreateFolder(ctx context.Context, title, parentID string) (*Entry, error) {
	req := createFolderRequest{
		Title:  title,
		Parent: parentID,
	}

	var entry Entry
	if err := c.doJSON(ctx, http.MethodPost, "/feeds/folders", nil, req, &entry); err != nil {
		return nil, &CreationError{Name: title, Err: err}
	}

	return &entry, nil
}

// UploadFile uploads the file at localPath as a document titled title.
// An empty parentID uploads into the root of the account. The call
// blocks until the transfer completes.
func (c *Client) UploadFile(ctx context.Context, localPath, title, parentID string) (*Entry, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("title", title); err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	if parentID != "" {
		if err := mw.WriteField("parent", parentID); err != nil {
			return nil, fmt.Errorf("building upload request: %w", err)
		}
	}

	part, err := mw.CreateFormFile("content", filepath.Base(localPath))
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", localPath, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/feeds/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var entry Entry
	if err := c.send(req, "/feeds/upload", &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// TrashDocument moves the document with the given id to the trash.
func (c *Client) TrashDocument(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodPost, "/feeds/trash", nil, trashRequest{ID: id}, nil); err != nil {
		return fmt.Errorf("trashing document %s: %w", id, err)
	}

	return nil
}
