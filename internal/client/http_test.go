package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string // URL-encoded path (for testing PathEscape)
	query       string
	body        string
	contentType string
	auth        string
	actor       string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	h.actor = r.Header.Get(HeaderActor)
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, "", "")
	return c, srv
}

func TestHTTPClient_CreateProject(t *testing.T) {
	h := &testHandler{
		statusCode: http.StatusCreated,
		responseBody: `{
			"id": "prj-abc",
			"name": "Tower A",
			"status": "planning",
			"created_at": "2024-01-01T09:00:00Z",
			"updated_at": "2024-01-01T09:00:00Z"
		}`,
	}
	srv := httptest.NewServer(h)
	defer srv.Close()
	c := NewHTTPClient(srv.URL+"/", "secret", "alice")

	p, err := c.CreateProject(context.Background(), &CreateProjectRequest{Name: "Tower A", StartDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if h.method != http.MethodPost || h.path != "/v1/projects" {
		t.Errorf("request = %s %s, want POST /v1/projects", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", h.contentType)
	}
	if h.auth != "Bearer secret" {
		t.Errorf("authorization = %q, want 'Bearer secret'", h.auth)
	}
	if h.actor != "alice" {
		t.Errorf("actor = %q, want alice", h.actor)
	}

	var reqBody map[string]any
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["name"] != "Tower A" || reqBody["start_date"] != "2024-01-01" {
		t.Errorf("request body = %v", reqBody)
	}
	if _, ok := reqBody["status"]; ok {
		t.Errorf("empty status should be omitted: %v", reqBody)
	}

	if p.ID != "prj-abc" || p.Status != model.ProjectPlanning {
		t.Errorf("project = %+v", p)
	}
}

func TestHTTPClient_Requests(t *testing.T) {
	start := "2024-01-03"
	done := true
	for _, tc := range []struct {
		name     string
		call     func(c *HTTPClient) error
		response string
		method   string
		path     string
		query    string
		wantBody string
	}{
		{
			name:     "ListProjects",
			response: `{"projects":[]}`,
			method:   "GET",
			path:     "/v1/projects",
			query:    "limit=5&status=active",
			call:     func(c *HTTPClient) error {
				_, err := c.ListProjects(context.Background(), &ListProjectsRequest{Status: "active", Limit: 5})
				return err
			},
		},
		{
			name:     "ListTasks",
			response: `{"tasks":[],"total":0}`,
			method:   "GET",
			path:     "/v1/projects/prj-1/tasks",
			query:    "search=slab&type=summary%2Ctask",
			call:     func(c *HTTPClient) error {
				_, err := c.ListTasks(context.Background(), &ListTasksRequest{ProjectID: "prj-1", Types: []string{"summary", "task"}, Search: "slab"})
				return err
			},
		},
		{
			name:     "SetDates",
			response: `{"task":{"id":"tsk-1"},"adjustments":[],"cascaded":[]}`,
			method:   "POST",
			path:     "/v1/tasks/tsk-1/dates",
			wantBody: `{"start_date":"2024-01-03"}`,
			call:     func(c *HTTPClient) error {
				_, err := c.SetDates(context.Background(), "tsk-1", &DatesRequest{StartDate: &start})
				return err
			},
		},
		{
			name:     "PreviewCascade",
			response: `{"task":{"id":"tsk-1"},"adjustments":[],"cascaded":[]}`,
			method:   "POST",
			path:     "/v1/tasks/tsk-1/cascade/preview",
			wantBody: `{"shift_days":-2}`,
			call:     func(c *HTTPClient) error {
				_, err := c.PreviewCascade(context.Background(), "tsk-1", &DatesRequest{ShiftDays: -2})
				return err
			},
		},
		{
			name:     "AddDependency",
			response: `{"id":"dep-1"}`,
			method:   "POST",
			path:     "/v1/projects/prj-1/dependencies",
			wantBody: `{"predecessor_task_id":"a","successor_task_id":"b"}`,
			call:     func(c *HTTPClient) error {
				_, err := c.AddDependency(context.Background(), "prj-1", &AddDependencyRequest{PredecessorID: "a", SuccessorID: "b"})
				return err
			},
		},
		{
			name:   "RemoveDependency",
			method: "DELETE",
			path:   "/v1/projects/prj-1/dependencies",
			query:  "predecessor=a&successor=b",
			call:   func(c *HTTPClient) error {
				return c.RemoveDependency(context.Background(), "prj-1", "a", "b")
			},
		},
		{
			name:     "RowsSavedView",
			response: `{"rows":[]}`,
			method:   "GET",
			path:     "/v1/projects/prj-1/rows",
			call:     func(c *HTTPClient) error {
				_, err := c.Rows(context.Background(), "prj-1", nil)
				return err
			},
		},
		{
			name:     "RowsExplicit",
			response: `{"rows":[]}`,
			method:   "GET",
			path:     "/v1/projects/prj-1/rows",
			query:    "collapsed=a%2Cb",
			call:     func(c *HTTPClient) error {
				_, err := c.Rows(context.Background(), "prj-1", []string{"a", "b"})
				return err
			},
		},
		{
			name:     "ConnectorsExpanded",
			response: `{"connectors":[]}`,
			method:   "GET",
			path:     "/v1/projects/prj-1/connectors",
			query:    "collapsed=",
			call:     func(c *HTTPClient) error {
				_, err := c.Connectors(context.Background(), "prj-1", []string{})
				return err
			},
		},
		{
			name:     "Reorder",
			response: `{"index":0,"changed":true}`,
			method:   "POST",
			path:     "/v1/projects/prj-1/reorder",
			wantBody: `{"task_id":"c","to_index":0}`,
			call:     func(c *HTTPClient) error {
				_, err := c.Reorder(context.Background(), "prj-1", &ReorderRequest{TaskID: "c", To: 0})
				return err
			},
		},
		{
			name:     "UpdateTodo",
			response: `{"id":"todo-1"}`,
			method:   "PATCH",
			path:     "/v1/todos/todo-1",
			wantBody: `{"completed":true}`,
			call:     func(c *HTTPClient) error {
				_, err := c.UpdateTodo(context.Background(), "todo-1", &UpdateTodoRequest{Completed: &done})
				return err
			},
		},
		{
			name:   "DeleteTask",
			method: "DELETE",
			path:   "/v1/tasks/tsk-1",
			call:   func(c *HTTPClient) error {
				return c.DeleteTask(context.Background(), "tsk-1")
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{responseBody: tc.response}
			if tc.response == "" {
				h.statusCode = http.StatusNoContent
			}
			c, srv := newTestClient(h)
			defer srv.Close()

			if err := tc.call(c); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if h.method != tc.method || h.path != tc.path {
				t.Errorf("request = %s %s, want %s %s", h.method, h.path, tc.method, tc.path)
			}
			if h.query != tc.query {
				t.Errorf("query = %q, want %q", h.query, tc.query)
			}
			if tc.wantBody != "" && h.body != tc.wantBody {
				t.Errorf("body = %s, want %s", h.body, tc.wantBody)
			}
		})
	}
}

func TestHTTPClient_GetTask_URLEscaping(t *testing.T) {
	h := &testHandler{responseBody: `{"id":"tsk/odd"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.GetTask(context.Background(), "tsk/odd"); err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if h.rawPath != "/v1/tasks/tsk%2Fodd" {
		t.Errorf("raw path = %q, want /v1/tasks/tsk%%2Fodd", h.rawPath)
	}
}

func TestHTTPClient_SetDates_DecodesResult(t *testing.T) {
	h := &testHandler{responseBody: `{
		"task": {"id": "tsk-a", "start_date": "2024-01-03", "end_date": "2024-01-07"},
		"adjustments": [{"task_id": "tsk-b", "new_start_date": "2024-01-08"}],
		"cascaded": [{"id": "tsk-b", "start_date": "2024-01-08", "end_date": "2024-01-10"}]
	}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	res, err := c.SetDates(context.Background(), "tsk-a", &DatesRequest{ShiftDays: 2})
	if err != nil {
		t.Fatalf("SetDates() error = %v", err)
	}
	if res.Task.EndDate != "2024-01-07" {
		t.Errorf("task end = %q", res.Task.EndDate)
	}
	if len(res.Adjustments) != 1 || res.Adjustments[0].TaskID != "tsk-b" || res.Adjustments[0].NewStartDate != "2024-01-08" {
		t.Errorf("adjustments = %+v", res.Adjustments)
	}
	if len(res.Cascaded) != 1 || res.Cascaded[0].StartDate != "2024-01-08" {
		t.Errorf("cascaded = %+v", res.Cascaded)
	}
}

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status != "ok" || h.path != "/v1/health" {
		t.Errorf("status = %q path = %q", status, h.path)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		status      int
		body        string
		contentType string
		wantMessage string
	}{
		{"JSON400", http.StatusBadRequest, `{"error":"start_date: must be YYYY-MM-DD"}`, "application/json", "start_date: must be YYYY-MM-DD"},
		{"JSON404", http.StatusNotFound, `{"error":"task not found"}`, "application/json", "task not found"},
		{"PlainText500", http.StatusInternalServerError, "internal server error", "text/plain", "internal server error"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			c := NewHTTPClient(srv.URL, "", "")

			_, err := c.GetTask(context.Background(), "tsk-1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Message != tc.wantMessage {
				t.Errorf("error = %d %q, want %d %q", apiErr.StatusCode, apiErr.Message, tc.status, tc.wantMessage)
			}
			if IsNotFound(err) != (tc.status == http.StatusNotFound) {
				t.Errorf("IsNotFound(%v) = %v", err, IsNotFound(err))
			}
		})
	}
}
