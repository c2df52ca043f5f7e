package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/students-dashboard/internal/stats"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// DefaultBaseURL is where the API listens in local development.
const DefaultBaseURL = "http://localhost:5000"

// APIError is a non-2xx answer from the API. Message is the server's
// "error" string when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// APIClient calls the students REST API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ API = (*APIClient)(nil)

// NewAPIClient returns a client for baseURL with a request timeout.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func studentPath(id string, parts ...string) string {
	p := "/api/students/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			apiErr.Message = env.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *APIClient) ListStudents(ctx context.Context) ([]types.Student, error) {
	var out []types.Student
	err := c.do(ctx, http.MethodGet, "/api/students", nil, &out)
	return out, err
}

func (c *APIClient) GetStudent(ctx context.Context, id string) (types.Student, error) {
	var out types.Student
	err := c.do(ctx, http.MethodGet, studentPath(id), nil, &out)
	return out, err
}

func (c *APIClient) CreateStudent(ctx context.Context, in types.StudentInput) (types.Student, error) {
	var out types.Student
	err := c.do(ctx, http.MethodPost, "/api/students", in, &out)
	return out, err
}

func (c *APIClient) UpdateStudent(ctx context.Context, id string, in types.StudentInput) (types.Student, error) {
	var out types.Student
	err := c.do(ctx, http.MethodPut, studentPath(id), in, &out)
	return out, err
}

func (c *APIClient) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, studentPath(id), nil, nil)
}

// Profile returns the student merged with live rating data.
func (c *APIClient) Profile(ctx context.Context, id string) (types.Profile, error) {
	var out types.Profile
	err := c.do(ctx, http.MethodGet, studentPath(id, "profile"), nil, &out)
	return out, err
}

func (c *APIClient) Contests(ctx context.Context, id string, days int) ([]stats.Contest, error) {
	var out []stats.Contest
	err := c.do(ctx, http.MethodGet, studentPath(id, "contests")+"?days="+strconv.Itoa(days), nil, &out)
	return out, err
}

func (c *APIClient) Problems(ctx context.Context, id string, days int) (stats.Problems, error) {
	var out stats.Problems
	err := c.do(ctx, http.MethodGet, studentPath(id, "problems")+"?days="+strconv.Itoa(days), nil, &out)
	return out, err
}

func (c *APIClient) UpdateSyncSettings(ctx context.Context, id string, in types.SyncSettingsInput) (types.Student, error) {
	var out types.Student
	err := c.do(ctx, http.MethodPut, studentPath(id, "sync-settings"), in, &out)
	return out, err
}

// Sync asks the server to refresh the student's ratings now.
func (c *APIClient) Sync(ctx context.Context, id string) (types.Student, error) {
	var out types.Student
	err := c.do(ctx, http.MethodPost, studentPath(id, "sync"), nil, &out)
	return out, err
}
