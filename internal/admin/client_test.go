package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nmikhaylov/go-interview-widget/internal/api"
	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), zerolog.Nop())
}

func TestEmployees_PaginationQuery(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/employees" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(EmployeesPage{
			Items:   []domain.EmployeeListItem{{ID: "e1", Name: "Ada"}},
			Total:   1,
			Page:    2,
			PerPage: 5,
		})
	}))

	page, err := c.Employees(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("Employees: %v", err)
	}
	if gotQuery != "page=2&per_page=5" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Ada" {
		t.Fatalf("page = %+v", page)
	}
}

func TestCreateEmployee_PostsPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/admin/employees" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req domain.EmployeeCreate
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "Grace" || req.Email != "grace@corp.test" {
			t.Errorf("payload = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Employee{ID: "e2", Name: req.Name, Email: req.Email})
	}))

	emp, err := c.CreateEmployee(context.Background(), domain.EmployeeCreate{Name: "Grace", Email: "grace@corp.test"})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	if emp.ID != "e2" {
		t.Fatalf("employee = %+v", emp)
	}
}

func TestInviteAndRevoke_Routes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /admin/employees/e1/invite":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(domain.InviteResponse{ID: "i1", Token: "tok", SessionID: "s1"})
		case "DELETE /admin/invites/i1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	inv, err := c.Invite(context.Background(), "e1")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if inv.Token != "tok" || inv.SessionID != "s1" {
		t.Fatalf("invite = %+v", inv)
	}
	if err := c.RevokeInvite(context.Background(), "i1"); err != nil {
		t.Fatalf("RevokeInvite: %v", err)
	}
}

func TestPrompts_KindFilter(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != domain.PromptSummary {
			t.Errorf("type filter = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]domain.Prompt{{ID: "p1", Type: domain.PromptSummary, Version: 3, IsActive: true}})
	}))

	prompts, err := c.Prompts(context.Background(), domain.PromptSummary)
	if err != nil {
		t.Fatalf("Prompts: %v", err)
	}
	if len(prompts) != 1 || prompts[0].Version != 3 {
		t.Fatalf("prompts = %+v", prompts)
	}
}

func TestUpdateSettings_RoundTrip(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/admin/settings" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req domain.SettingsUpdateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := domain.SettingsResponse{Settings: map[string]domain.SettingValue{}}
		for k, v := range req.Settings {
			resp.Settings[k] = domain.SettingValue{Value: v, Source: domain.SettingSourceDatabase}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))

	resp, err := c.UpdateSettings(context.Background(), domain.SettingsUpdateRequest{
		Settings: map[string]any{"daily_budget_usd": 25.0},
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	sv, ok := resp.Settings["daily_budget_usd"]
	if !ok || sv.Source != domain.SettingSourceDatabase {
		t.Fatalf("settings = %+v", resp.Settings)
	}
}

func TestErrors_SameClassificationAsWidgetClient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "not_found", "message": "no such employee"})
	}))

	_, err := c.Employee(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if api.KindOf(err) != api.KindInvitation {
		t.Fatalf("kind = %v", api.KindOf(err))
	}
}
