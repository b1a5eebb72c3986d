// Package remote is the HTTP client for the task API served by internal/server.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"taskboard/internal/board"
	"taskboard/internal/model"
)

const (
	apiPrefix       = "/api/v1"
	maxResponseSize = 4 << 20
	defaultTimeout  = 30 * time.Second
)

// Client talks to the task API. The zero HTTP field uses a client with a 30s
// timeout. A non-empty ProjectID scopes ListTasks to that project.
type Client struct {
	BaseURL   string
	Token     string
	ProjectID string
	HTTP      *http.Client
}

var _ board.Remote = (*Client)(nil)

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   strings.TrimSpace(token),
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

type tasksEnvelope struct {
	Tasks []model.Task `json:"tasks"`
}

type taskEnvelope struct {
	Task model.Task `json:"task"`
}

// CreateRequest is the payload for CreateTask.
type CreateRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      model.Bucket   `json:"status,omitempty"`
	Priority    model.Priority `json:"priority,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	AssigneeID  string         `json:"assigneeId,omitempty"`
	ProjectID   string         `json:"projectId,omitempty"`
}

type updateRequest struct {
	Status model.Bucket `json:"status"`
}

// ListTasks fetches every task on the board, or on the client's project.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	path := "/tasks"
	if p := strings.TrimSpace(c.ProjectID); p != "" {
		path += "?" + url.Values{"projectId": {p}}.Encode()
	}
	var out tasksEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range out.Tasks {
		normalizeIDs(&out.Tasks[i])
	}
	return out.Tasks, nil
}

// normalizeIDs trims ids as they enter the process; everything downstream
// compares them verbatim.
func normalizeIDs(t *model.Task) {
	t.ID = strings.TrimSpace(t.ID)
	t.ProjectID = strings.TrimSpace(t.ProjectID)
	t.AssigneeID = strings.TrimSpace(t.AssigneeID)
}

// UpdateTaskBucket moves a task and returns the canonical task.
func (c *Client) UpdateTaskBucket(ctx context.Context, id string, bucket model.Bucket) (model.Task, error) {
	var out taskEnvelope
	path := "/tasks/" + url.PathEscape(id) + "/update"
	if err := c.do(ctx, http.MethodPut, path, updateRequest{Status: bucket}, &out); err != nil {
		return model.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	normalizeIDs(&out.Task)
	return out.Task, nil
}

func (c *Client) CreateTask(ctx context.Context, req CreateRequest) (model.Task, error) {
	var out taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &out); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	normalizeIDs(&out.Task)
	return out.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := "/tasks/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("no api url configured")
	}
	var rd io.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+apiPrefix+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	lr := io.LimitReader(resp.Body, maxResponseSize)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(lr)
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(lr).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls "error" out of a JSON error body, falling back to the raw text.
func errorMessage(raw []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(raw, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
