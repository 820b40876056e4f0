// Package store speaks to the remote relational store over its REST API.
// It classifies failures into the taxonomy in errors.go and nothing more:
// no caching, no retries, no recovery.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"sitetrack/internal/config"
	"sitetrack/internal/model"
)

// TokenSource supplies the bearer token for the current session. It must
// fail (with an unauthenticated *Error) when no session is live, so that
// calls are refused before any network I/O happens.
type TokenSource interface {
	AccessToken() (string, error)
}

// Client executes typed reads and writes against the projects, tasks and
// work_categories resources.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  TokenSource
}

// New builds a client for the configured endpoint. All calls authenticate
// through tokens.
func New(cfg config.Config, tokens TokenSource) *Client {
	return &Client{
		baseURL: cfg.StoreURL,
		apiKey:  cfg.StoreKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		tokens:  tokens,
	}
}

// pgError is the error body the store returns alongside non-2xx statuses.
type pgError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

const acceptObject = "application/vnd.pgrst.object+json"

// do runs one request. When single is true the call asks for exactly one
// object; zero matching rows then classify as not found.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, single bool) error {
	token, err := c.tokens.AccessToken()
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "encode request", cause: err}
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &Error{Kind: KindTransport, cause: err}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if single {
		req.Header.Set("Accept", acceptObject)
	}
	if method == http.MethodPost || method == http.MethodPatch || method == http.MethodDelete {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "request failed", cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "read response", cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: KindTransport, Message: "decode response", cause: err}
		}
	}
	return nil
}

// classify maps an error response onto the taxonomy. Postgres codes in the
// body take precedence over the HTTP status.
func classify(status int, raw []byte) *Error {
	var pe pgError
	_ = json.Unmarshal(raw, &pe)

	switch pe.Code {
	case "23503", "23505":
		return &Error{Kind: KindConstraint, Code: pe.Code, Message: pe.Message}
	case "PGRST116":
		return &Error{Kind: KindNotFound, Code: pe.Code, Message: pe.Message}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindUnauthenticated, Code: pe.Code, Message: pe.Message}
	case status == http.StatusNotFound || status == http.StatusNotAcceptable:
		return &Error{Kind: KindNotFound, Code: pe.Code, Message: pe.Message}
	case status == http.StatusConflict:
		return &Error{Kind: KindConstraint, Code: pe.Code, Message: pe.Message}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidation, Code: pe.Code, Message: pe.Message}
	default:
		return &Error{Kind: KindTransport, Code: pe.Code, Message: fmt.Sprintf("status %d: %s", status, pe.Message)}
	}
}

func eq(id string) string {
	return "eq." + id
}

// ProjectInsert is the payload for creating a project. Optional fields are
// sent as explicit nulls when unset.
type ProjectInsert struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	Budget      *float64 `json:"budget"`
	UserID      string   `json:"user_id"`
}

// ProjectUpdate is the full-row payload for editing a project. UpdatedAt is
// set by the caller; the owner is immutable and never part of an update.
type ProjectUpdate struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	Budget      *float64 `json:"budget"`
	UpdatedAt   string   `json:"updated_at"`
}

// TaskInsert is the payload for creating a task. Project and category must
// resolve to existing rows; the store surfaces dangling references as a
// constraint error.
type TaskInsert struct {
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      model.Status `json:"status,omitempty"`
	ProjectID   string       `json:"project_id"`
	CategoryID  string       `json:"category_id"`
	DueDate     *string      `json:"due_date"`
}

// TaskUpdate is the full-row payload for editing a task. The project
// reference is immutable and never part of an update.
type TaskUpdate struct {
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      model.Status `json:"status"`
	CategoryID  string       `json:"category_id"`
	DueDate     *string      `json:"due_date"`
	UpdatedAt   string       `json:"updated_at"`
}

// ListProjects returns the caller's projects, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, "/rest/v1/projects", q, nil, &out, false); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// FetchProject returns one project by id.
func (c *Client) FetchProject(ctx context.Context, id string) (model.Project, error) {
	q := url.Values{"select": {"*"}, "id": {eq(id)}}
	var out model.Project
	if err := c.do(ctx, http.MethodGet, "/rest/v1/projects", q, nil, &out, true); err != nil {
		return model.Project{}, fmt.Errorf("fetch project: %w", err)
	}
	return out, nil
}

// CreateProject inserts a project and returns the stored row.
func (c *Client) CreateProject(ctx context.Context, ins ProjectInsert) (model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodPost, "/rest/v1/projects", nil, ins, &out, true); err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	return out, nil
}

// UpdateProject overwrites a project's editable fields and returns the
// stored row. Last write wins.
func (c *Client) UpdateProject(ctx context.Context, id string, upd ProjectUpdate) (model.Project, error) {
	q := url.Values{"id": {eq(id)}}
	var out model.Project
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/projects", q, upd, &out, true); err != nil {
		return model.Project{}, fmt.Errorf("update project: %w", err)
	}
	return out, nil
}

// DeleteProject removes a project by id.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	q := url.Values{"id": {eq(id)}}
	var out model.Project
	if err := c.do(ctx, http.MethodDelete, "/rest/v1/projects", q, nil, &out, true); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// taskRow is the wire shape of a category-joined task read.
type taskRow struct {
	model.Task
	Category *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"work_categories"`
}

func (r taskRow) withCategory() model.TaskWithCategory {
	name := model.UncategorizedLabel
	if r.Category != nil && r.Category.Name != "" {
		name = r.Category.Name
	}
	return model.TaskWithCategory{Task: r.Task, CategoryName: name}
}

const taskSelect = "*,work_categories(id,name)"

// FetchTasks returns a project's tasks joined with their category, ordered
// by creation time descending. Tasks whose category row is gone still
// surface, labeled as uncategorized.
func (c *Client) FetchTasks(ctx context.Context, projectID string) ([]model.TaskWithCategory, error) {
	q := url.Values{
		"select":     {taskSelect},
		"project_id": {eq(projectID)},
		"order":      {"created_at.desc"},
	}
	var rows []taskRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/tasks", q, nil, &rows, false); err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	out := make([]model.TaskWithCategory, len(rows))
	for i, r := range rows {
		out[i] = r.withCategory()
	}
	return out, nil
}

// FetchTask returns one category-joined task by id.
func (c *Client) FetchTask(ctx context.Context, id string) (model.TaskWithCategory, error) {
	q := url.Values{"select": {taskSelect}, "id": {eq(id)}}
	var row taskRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/tasks", q, nil, &row, true); err != nil {
		return model.TaskWithCategory{}, fmt.Errorf("fetch task: %w", err)
	}
	return row.withCategory(), nil
}

// CreateTask inserts a task and returns the stored row.
func (c *Client) CreateTask(ctx context.Context, ins TaskInsert) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodPost, "/rest/v1/tasks", nil, ins, &out, true); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return out, nil
}

// UpdateTask overwrites a task's editable fields and returns the stored row.
func (c *Client) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (model.Task, error) {
	q := url.Values{"id": {eq(id)}}
	var out model.Task
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/tasks", q, upd, &out, true); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	return out, nil
}

// DeleteTask removes a task by id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	q := url.Values{"id": {eq(id)}}
	var out model.Task
	if err := c.do(ctx, http.MethodDelete, "/rest/v1/tasks", q, nil, &out, true); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListCategories returns all work categories, alphabetically. Categories
// are reference data; the client never writes them.
func (c *Client) ListCategories(ctx context.Context) ([]model.WorkCategory, error) {
	q := url.Values{"select": {"*"}, "order": {"name.asc"}}
	var out []model.WorkCategory
	if err := c.do(ctx, http.MethodGet, "/rest/v1/work_categories", q, nil, &out, false); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
