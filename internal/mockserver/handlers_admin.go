// HTTP handlers for the admin console API.
package mockserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
	"github.com/nmikhaylov/go-interview-widget/internal/utils"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// employeesPage matches the admin client's list shape.
type employeesPage struct {
	Items   []domain.EmployeeListItem `json:"items"`
	Total   int                       `json:"total"`
	Page    int                       `json:"page"`
	PerPage int                       `json:"per_page"`
}

// ListEmployees answers GET /api/admin/employees with pagination.
func (h *Handlers) ListEmployees(c *gin.Context) {
	page, perPage := utils.PageParams(c.Query("page"), c.Query("per_page"), defaultPerPage, maxPerPage)
	items, total, err := h.store.ListEmployees(c.Request.Context(), (page-1)*perPage, perPage)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, employeesPage{
		Items:   items,
		Total:   int(total),
		Page:    page,
		PerPage: perPage,
	})
}

// CreateEmployee answers POST /api/admin/employees.
func (h *Handlers) CreateEmployee(c *gin.Context) {
	var req domain.EmployeeCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	emp, err := h.store.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

// GetEmployee answers GET /api/admin/employees/:id.
func (h *Handlers) GetEmployee(c *gin.Context) {
	emp, err := h.store.Employee(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// UpdateEmployee answers PATCH /api/admin/employees/:id.
func (h *Handlers) UpdateEmployee(c *gin.Context) {
	var req domain.EmployeeUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	emp, err := h.store.UpdateEmployee(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// DeleteEmployee answers DELETE /api/admin/employees/:id.
func (h *Handlers) DeleteEmployee(c *gin.Context) {
	if err := h.store.DeleteEmployee(c.Request.Context(), c.Param("id")); err != nil {
		failStore(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateInvite answers POST /api/admin/employees/:id/invite.
func (h *Handlers) CreateInvite(c *gin.Context) {
	inv, err := h.store.CreateInvite(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// RevokeInvite answers DELETE /api/admin/invites/:id.
func (h *Handlers) RevokeInvite(c *gin.Context) {
	if err := h.store.RevokeInvite(c.Request.Context(), c.Param("id")); err != nil {
		failStore(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEmployeeSessions answers GET /api/admin/employees/:id/sessions.
func (h *Handlers) ListEmployeeSessions(c *gin.Context) {
	sessions, err := h.store.EmployeeSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetAdminSession answers GET /api/admin/sessions/:id.
func (h *Handlers) GetAdminSession(c *gin.Context) {
	detail, err := h.store.AdminSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListQuestions answers GET /api/admin/questions.
func (h *Handlers) ListQuestions(c *gin.Context) {
	qs, err := h.store.Questions(c.Request.Context())
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

// CreateQuestion answers POST /api/admin/questions.
func (h *Handlers) CreateQuestion(c *gin.Context) {
	var req domain.QuestionCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	q, err := h.store.CreateQuestion(c.Request.Context(), req)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// UpdateQuestion answers PATCH /api/admin/questions/:id.
func (h *Handlers) UpdateQuestion(c *gin.Context) {
	var req domain.QuestionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	q, err := h.store.UpdateQuestion(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// DeleteQuestion answers DELETE /api/admin/questions/:id.
func (h *Handlers) DeleteQuestion(c *gin.Context) {
	if err := h.store.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		failStore(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPrompts answers GET /api/admin/prompts with an optional ?type= filter.
func (h *Handlers) ListPrompts(c *gin.Context) {
	ps, err := h.store.Prompts(c.Request.Context(), c.Query("type"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// CreatePrompt answers POST /api/admin/prompts.
func (h *Handlers) CreatePrompt(c *gin.Context) {
	var req domain.PromptCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.store.CreatePrompt(c.Request.Context(), req)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ActivatePrompt answers POST /api/admin/prompts/:id/activate.
func (h *Handlers) ActivatePrompt(c *gin.Context) {
	p, err := h.store.ActivatePrompt(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetBudget answers GET /api/admin/budget.
func (h *Handlers) GetBudget(c *gin.Context) {
	b, err := h.store.Budget(c.Request.Context())
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetSettings answers GET /api/admin/settings.
func (h *Handlers) GetSettings(c *gin.Context) {
	s, err := h.store.Settings(c.Request.Context())
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSettings answers PUT /api/admin/settings.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req domain.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	s, err := h.store.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ResetSetting answers DELETE /api/admin/settings/:key.
func (h *Handlers) ResetSetting(c *gin.Context) {
	if err := h.store.ResetSetting(c.Request.Context(), c.Param("key")); err != nil {
		failStore(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
