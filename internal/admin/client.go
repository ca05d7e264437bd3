// Package admin is the HTTP client for the administrative API: employee and
// invitation management, questionnaire editing, prompt versioning, budget,
// and runtime settings. It rides on the same transport, error envelope
// handling, and tracing as the widget client; only the routes differ.
package admin

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nmikhaylov/go-interview-widget/internal/api"
	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

// EmployeesPage is one page of the employees list.
type EmployeesPage struct {
	Items   []domain.EmployeeListItem `json:"items"`
	Total   int                       `json:"total"`
	Page    int                       `json:"page"`
	PerPage int                       `json:"per_page"`
}

// Client talks to the admin endpoints. Errors carry the same classification
// as the widget client: api.KindOf and api.UserMessage work unchanged.
type Client struct {
	c   *api.Client
	log zerolog.Logger
}

// New constructs an admin client sharing the widget client's base URL and
// transport conventions.
func New(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	return &Client{c: api.New(baseURL, httpClient, log), log: log}
}

// ---- employees ----

// Employees lists employees, newest first, with session status rollups.
func (c *Client) Employees(ctx context.Context, page, perPage int) (*EmployeesPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	var out EmployeesPage
	if err := c.c.Do(ctx, http.MethodGet, "/admin/employees?"+q.Encode(), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEmployee registers a new employee.
func (c *Client) CreateEmployee(ctx context.Context, req domain.EmployeeCreate) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.c.Do(ctx, http.MethodPost, "/admin/employees", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Employee fetches one employee with their active invite, if any.
func (c *Client) Employee(ctx context.Context, id string) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.c.Do(ctx, http.MethodGet, "/admin/employees/"+id, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEmployee applies a partial update; nil fields are left unchanged.
func (c *Client) UpdateEmployee(ctx context.Context, id string, req domain.EmployeeUpdate) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.c.Do(ctx, http.MethodPatch, "/admin/employees/"+id, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEmployee removes an employee and everything hanging off them.
func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.c.Do(ctx, http.MethodDelete, "/admin/employees/"+id, nil, nil, http.StatusNoContent)
}

// ---- invites ----

// Invite issues a fresh invitation for an employee. Any previous invite is
// revoked server-side; the new token starts a NOT_STARTED session.
func (c *Client) Invite(ctx context.Context, employeeID string) (*domain.InviteResponse, error) {
	var out domain.InviteResponse
	if err := c.c.Do(ctx, http.MethodPost, "/admin/employees/"+employeeID+"/invite", nil, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeInvite invalidates an invitation token; the widget sees 410 afterwards.
func (c *Client) RevokeInvite(ctx context.Context, inviteID string) error {
	return c.c.Do(ctx, http.MethodDelete, "/admin/invites/"+inviteID, nil, nil, http.StatusNoContent)
}

// ---- sessions ----

// EmployeeSessions lists all sessions for one employee, newest first.
func (c *Client) EmployeeSessions(ctx context.Context, employeeID string) ([]domain.AdminSessionDetail, error) {
	var out []domain.AdminSessionDetail
	if err := c.c.Do(ctx, http.MethodGet, "/admin/employees/"+employeeID+"/sessions", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// Session fetches the full administrative view of one session: transcript,
// snapshots, extraction output, summary.
func (c *Client) Session(ctx context.Context, id string) (*domain.AdminSessionDetail, error) {
	var out domain.AdminSessionDetail
	if err := c.c.Do(ctx, http.MethodGet, "/admin/sessions/"+id, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- questions ----

// Questions lists all questionnaire items, active and inactive, in sort order.
func (c *Client) Questions(ctx context.Context) ([]domain.Question, error) {
	var out []domain.Question
	if err := c.c.Do(ctx, http.MethodGet, "/admin/questions", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateQuestion appends a questionnaire item; the set version is bumped.
func (c *Client) CreateQuestion(ctx context.Context, req domain.QuestionCreate) (*domain.Question, error) {
	var out domain.Question
	if err := c.c.Do(ctx, http.MethodPost, "/admin/questions", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQuestion applies a partial update to one questionnaire item.
func (c *Client) UpdateQuestion(ctx context.Context, id string, req domain.QuestionUpdate) (*domain.Question, error) {
	var out domain.Question
	if err := c.c.Do(ctx, http.MethodPatch, "/admin/questions/"+id, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteQuestion retires a questionnaire item.
func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	return c.c.Do(ctx, http.MethodDelete, "/admin/questions/"+id, nil, nil, http.StatusNoContent)
}

// ---- prompts ----

// Prompts lists prompt versions, optionally filtered by kind (chat,
// extractor, summary). Empty kind returns all.
func (c *Client) Prompts(ctx context.Context, kind string) ([]domain.Prompt, error) {
	path := "/admin/prompts"
	if kind != "" {
		path += "?type=" + url.QueryEscape(kind)
	}
	var out []domain.Prompt
	if err := c.c.Do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePrompt stores a new, inactive prompt version. The version number is
// assigned server-side.
func (c *Client) CreatePrompt(ctx context.Context, req domain.PromptCreate) (*domain.Prompt, error) {
	var out domain.Prompt
	if err := c.c.Do(ctx, http.MethodPost, "/admin/prompts", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivatePrompt makes one version active; its siblings of the same kind are
// deactivated atomically.
func (c *Client) ActivatePrompt(ctx context.Context, id string) (*domain.Prompt, error) {
	var out domain.Prompt
	if err := c.c.Do(ctx, http.MethodPost, "/admin/prompts/"+id+"/activate", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- budget & settings ----

// Budget returns today's LLM spend snapshot.
func (c *Client) Budget(ctx context.Context) (*domain.BudgetStatus, error) {
	var out domain.BudgetStatus
	if err := c.c.Do(ctx, http.MethodGet, "/admin/budget", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings returns the effective settings map with per-key value sources.
func (c *Client) Settings(ctx context.Context) (*domain.SettingsResponse, error) {
	var out domain.SettingsResponse
	if err := c.c.Do(ctx, http.MethodGet, "/admin/settings", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings overrides a subset of settings at the database layer and
// returns the resulting effective map.
func (c *Client) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (*domain.SettingsResponse, error) {
	var out domain.SettingsResponse
	if err := c.c.Do(ctx, http.MethodPut, "/admin/settings", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetSetting drops one database override so the env/default value applies.
func (c *Client) ResetSetting(ctx context.Context, key string) error {
	return c.c.Do(ctx, http.MethodDelete, "/admin/settings/"+url.PathEscape(key), nil, nil, http.StatusNoContent)
}
