// Package api implements the HTTP client consumed by the interview widget:
// session fetching, message submission, and the error taxonomy the engine
// uses to turn transport failures into displayable, classified messages.
//
// This file defines the taxonomy. Every failure an api.Client returns maps to
// exactly one Kind; UserMessage renders a stable, user-safe string for it.
// HTTP error responses and transport-level failures are kept distinguishable:
// a request that never reached the server is KindNetwork, never KindServer.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Kind classifies a failed fetch or send into the widget's error taxonomy.
type Kind int

const (
	// KindUnknown is any non-classified failure. The engine treats it as
	// recoverable: input is re-enabled and the draft restored.
	KindUnknown Kind = iota
	// KindInvitation covers 404/410: the invitation token (or session id) is
	// unknown, expired, or revoked. Terminal, not retryable.
	KindInvitation
	// KindConflict covers 409: the session is already finalized.
	KindConflict
	// KindRateLimited covers 429: the user may retry manually after a pause.
	KindRateLimited
	// KindUnavailable covers 503 specifically.
	KindUnavailable
	// KindServer covers any other 5xx response.
	KindServer
	// KindNetwork covers transport failures where no HTTP response exists.
	KindNetwork
)

// APIError is a non-2xx HTTP response from the backend. Code and Detail carry
// the backend's error envelope when one was decodable.
type APIError struct {
	Status int
	Code   string
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// KindOf maps err to its taxonomy Kind. A nil error maps to KindUnknown;
// callers are expected to classify only non-nil errors.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusGone:
			return KindInvitation
		case apiErr.Status == http.StatusConflict:
			return KindConflict
		case apiErr.Status == http.StatusTooManyRequests:
			return KindRateLimited
		case apiErr.Status == http.StatusServiceUnavailable:
			return KindUnavailable
		case apiErr.Status >= http.StatusInternalServerError:
			return KindServer
		}
		return KindUnknown
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	return KindUnknown
}

// UserMessage renders a user-safe display string for a failed operation.
// Unknown API errors fall back to the backend-provided detail when present.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindInvitation:
		return "This link is no longer valid. Please contact HR."
	case KindConflict:
		return "The questionnaire has already been finalized."
	case KindRateLimited:
		return "Too many messages. Please wait a moment and try again."
	case KindUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	case KindServer:
		return "Server error. Please try again later."
	case KindNetwork:
		return "Could not send your message. Check your connection."
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return "Something went wrong. Please try again."
}
