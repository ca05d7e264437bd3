// HTTP handlers for the public widget contract.
//
// All error responses use the standard envelope {request_id, code, message}
// with a stable machine-readable code; the widget's error classifier branches
// on the status, the admin console may branch on the code.
package mockserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
	"github.com/nmikhaylov/go-interview-widget/internal/mockserver/middleware"
)

// Stable error codes.
const (
	codeBadRequest  = "bad_request"
	codeNotFound    = "not_found"
	codeGone        = "invite_revoked"
	codeConflict    = "conflict"
	codeInternal    = "internal_error"
	codeNoRoute     = "not_found"
	codeNoMethod    = "method_not_allowed"
	codeRateLimited = "rate_limited"
)

// errorResponse is the standard error envelope returned by all endpoints.
type errorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail aborts the request with a structured error; 5xx are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, errorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failStore maps store sentinel errors to wire responses.
func failStore(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, ErrInviteRevoked):
		fail(c, http.StatusGone, codeGone, "this invitation has been revoked")
	case errors.Is(err, ErrSessionClosed):
		fail(c, http.StatusConflict, codeConflict, "the questionnaire has already been finalized")
	case errors.Is(err, ErrSessionBusy):
		fail(c, http.StatusConflict, codeConflict, "the session is being processed")
	case errors.Is(err, ErrValidation):
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid request")
	default:
		fail(c, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

// Handlers bundles the endpoints over one Store.
type Handlers struct {
	store *Store
}

// NewHandlers constructs the endpoint set.
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// GetSessionByToken answers GET /api/i/:token. Unknown tokens are 404,
// revoked ones 410; the widget treats both as a dead invitation link.
func (h *Handlers) GetSessionByToken(c *gin.Context) {
	sess, err := h.store.SessionByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetSession answers GET /api/sessions/:id, the widget's poll endpoint.
func (h *Handlers) GetSession(c *gin.Context) {
	sess, err := h.store.SessionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failStore(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// PostMessage answers POST /api/sessions/:id/message with 201 and the
// persisted pair. Duplicate idempotency keys replay the original response.
func (h *Handlers) PostMessage(c *gin.Context) {
	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.store.AppendMessage(c.Request.Context(), c.Param("id"), req.Content, req.IdempotencyKey)
	if err != nil {
		failStore(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("session_id", c.Param("id")).
		Bool("is_complete", resp.IsComplete).
		Msg("message accepted")
	c.JSON(http.StatusCreated, resp)
}
