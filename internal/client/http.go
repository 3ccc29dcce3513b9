package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// HTTPClient talks to the REST API under /v1.
type HTTPClient struct {
	base  string
	token string
	actor string
	hc    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// requestTimeout bounds a single API call.
const requestTimeout = 30 * time.Second

// NewHTTPClient returns a client for the server at baseURL, such as
// "http://localhost:8080". A non-empty token is sent as a bearer token and
// a non-empty actor as HeaderActor.
func NewHTTPClient(baseURL, token, actor string) *HTTPClient {
	return &HTTPClient{
		base:  strings.TrimSuffix(baseURL, "/"),
		token: token,
		actor: actor,
		hc:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPClient) Close() error { return nil }

// --- Projects ---

func (c *HTTPClient) CreateProject(ctx context.Context, req *CreateProjectRequest) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ListProjects(ctx context.Context, req *ListProjectsRequest) ([]*model.Project, error) {
	q := url.Values{}
	if req.OwnerID != "" {
		q.Set("owner", req.OwnerID)
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	setPage(q, req.Limit, req.Offset)

	var resp struct {
		Projects []*model.Project `json:"projects"`
	}
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/v1/projects", q), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

func (c *HTTPClient) UpdateProject(ctx context.Context, id string, req *UpdateProjectRequest) (*model.Project, error) {
	var p model.Project
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/projects/"+url.PathEscape(id), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(id), nil, nil)
}

// --- Tasks ---

func (c *HTTPClient) CreateTask(ctx context.Context, projectID string, req *CreateTaskRequest) (*model.Task, error) {
	var t model.Task
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(projectID)+"/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error) {
	q := url.Values{}
	if req.ParentID != "" {
		q.Set("parent", req.ParentID)
	}
	if len(req.Types) > 0 {
		q.Set("type", strings.Join(req.Types, ","))
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	setPage(q, req.Limit, req.Offset)

	var resp ListTasksResponse
	path := withQuery("/v1/projects/"+url.PathEscape(req.ProjectID)+"/tasks", q)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateTask(ctx context.Context, id string, patch *model.TaskPatch) (*model.Task, error) {
	var t model.Task
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/tasks/"+url.PathEscape(id), patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) SetDates(ctx context.Context, id string, req *DatesRequest) (*MoveResult, error) {
	var res MoveResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/dates", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) PreviewCascade(ctx context.Context, id string, req *DatesRequest) (*MoveResult, error) {
	var res MoveResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/cascade/preview", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Dependencies ---

func (c *HTTPClient) AddDependency(ctx context.Context, projectID string, req *AddDependencyRequest) (*model.Dependency, error) {
	var d model.Dependency
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(projectID)+"/dependencies", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) RemoveDependency(ctx context.Context, projectID, predecessorID, successorID string) error {
	q := url.Values{}
	q.Set("predecessor", predecessorID)
	q.Set("successor", successorID)
	path := withQuery("/v1/projects/"+url.PathEscape(projectID)+"/dependencies", q)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) ListDependencies(ctx context.Context, projectID string) ([]*model.Dependency, error) {
	var resp struct {
		Dependencies []*model.Dependency `json:"dependencies"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(projectID)+"/dependencies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Dependencies, nil
}

func (c *HTTPClient) Violations(ctx context.Context, projectID string) ([]dependency.Violation, error) {
	var resp struct {
		Violations []dependency.Violation `json:"violations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(projectID)+"/violations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Violations, nil
}

// --- Layout ---

func (c *HTTPClient) Rows(ctx context.Context, projectID string, collapsed []string) (*layout.Chart, error) {
	var chart layout.Chart
	if err := c.doJSON(ctx, http.MethodGet, layoutPath(projectID, "rows", collapsed), nil, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

func (c *HTTPClient) Connectors(ctx context.Context, projectID string, collapsed []string) (*ConnectorsResponse, error) {
	var resp ConnectorsResponse
	if err := c.doJSON(ctx, http.MethodGet, layoutPath(projectID, "connectors", collapsed), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Reorder(ctx context.Context, projectID string, req *ReorderRequest) (*ReorderResult, error) {
	var res ReorderResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(projectID)+"/reorder", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetView(ctx context.Context, projectID string) (*model.ViewState, error) {
	var v model.ViewState
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(projectID)+"/view", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) PutView(ctx context.Context, projectID string, v *model.ViewState) (*model.ViewState, error) {
	var out model.ViewState
	if err := c.doJSON(ctx, http.MethodPut, "/v1/projects/"+url.PathEscape(projectID)+"/view", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// layoutPath builds a rows or connectors path. A nil collapsed list omits
// the parameter so the server applies the saved view.
func layoutPath(projectID, what string, collapsed []string) string {
	path := "/v1/projects/" + url.PathEscape(projectID) + "/" + what
	if collapsed == nil {
		return path
	}
	q := url.Values{}
	q.Set("collapsed", strings.Join(collapsed, ","))
	return withQuery(path, q)
}

// --- Todos ---

func (c *HTTPClient) ListTodos(ctx context.Context, taskID string) ([]*model.TodoItem, error) {
	var resp struct {
		Todos []*model.TodoItem `json:"todos"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(taskID)+"/todos", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Todos, nil
}

func (c *HTTPClient) AddTodo(ctx context.Context, taskID, content string) (*model.TodoItem, error) {
	var td model.TodoItem
	body := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(taskID)+"/todos", body, &td); err != nil {
		return nil, err
	}
	return &td, nil
}

func (c *HTTPClient) UpdateTodo(ctx context.Context, id string, req *UpdateTodoRequest) (*model.TodoItem, error) {
	var td model.TodoItem
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/todos/"+url.PathEscape(id), req, &td); err != nil {
		return nil, err
	}
	return &td, nil
}

func (c *HTTPClient) DeleteTodo(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/todos/"+url.PathEscape(id), nil, nil)
}

// --- Events ---

func (c *HTTPClient) GetEvents(ctx context.Context, taskID string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(taskID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError is a non-2xx response. Message is the server's "error" field,
// or the raw body when there is none.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func setPage(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// doJSON sends body, if any, as JSON and decodes a successful response into
// out, if non-nil.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set(HeaderActor, c.actor)
	}
	return req, nil
}

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var wire struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &wire) == nil && wire.Error != "" {
		msg = wire.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
