package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/canvas-todo/internal/source"
)

// genericErrorMessage is used when an error envelope cannot be decoded.
const genericErrorMessage = "canvas returned an error response that could not be read"

// Caller issues a GET against the Canvas API and returns the raw body.
type Caller interface {
	Call(ctx context.Context, path string) ([]byte, error)
}

// Client is a thin HTTP client for the Canvas LMS REST API v1.
// It authenticates with a static bearer token and performs no retries.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewClient creates a Canvas client. baseURL is the root of the Canvas
// instance (e.g., https://canvas.example.edu); requests go to
// <baseURL>/api/v1/<path>.
func NewClient(baseURL, token string) *Client {
	return &Client{
		apiURL: strings.TrimRight(baseURL, "/") + "/api/v1/",
		token:  token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Call performs a GET on path (relative to /api/v1/, query string allowed)
// and returns the response body.
func (c *Client) Call(ctx context.Context, path string) ([]byte, error) {
	url := c.apiURL + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &source.TransportError{
			Path: path,
			Err:  fmt.Errorf("reading response body: %w", err),
		}
	}

	if messages, ok := parseErrorEnvelope(body); ok {
		return nil, &source.APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Messages:   messages,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &source.APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Messages:   []string{http.StatusText(resp.StatusCode)},
		}
	}

	return body, nil
}

// Get calls path and unmarshals the JSON body into result. An empty body
// leaves result untouched.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return getJSON(ctx, c, path, result)
}

func getJSON(ctx context.Context, caller Caller, path string, result interface{}) error {
	body, err := caller.Call(ctx, path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s: %w", path, err)
	}
	return nil
}

// parseErrorEnvelope reports whether body is a JSON object carrying an
// "errors" member and, if so, returns its human-readable messages.
func parseErrorEnvelope(body []byte) ([]string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, false
	}
	raw, ok := top["errors"]
	if !ok {
		return nil, false
	}

	var resp ErrorResponse
	resp.Errors = raw
	return errorMessages(resp), true
}

// errorMessages flattens the errors member, which Canvas sends either as
// a list of {"message": ...} objects or a list of strings.
func errorMessages(resp ErrorResponse) []string {
	var objs []ErrorMessage
	if err := json.Unmarshal(resp.Errors, &objs); err == nil {
		var out []string
		for _, o := range objs {
			if o.Message != "" {
				out = append(out, o.Message)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	var strs []string
	if err := json.Unmarshal(resp.Errors, &strs); err == nil && len(strs) > 0 {
		return strs
	}

	return []string{genericErrorMessage}
}
