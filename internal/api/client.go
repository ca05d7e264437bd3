// HTTP client for the interview backend.
//
// Client is transport-thin: it performs one network call per method call,
// decodes JSON, and converts non-2xx responses into *APIError. It never
// retries — a failed one-shot fetch is terminal for the caller, and send
// retries are user-initiated with a fresh idempotency key.
//
// Observability: every request runs inside an OpenTelemetry span carrying the
// method, path, and response status.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

// errorEnvelope is the backend's error body: {request_id, code, message}.
// Some deployments use "detail" instead of "message"; accept both.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Client talks to the interview backend over HTTP.
//
// The zero value is not usable; construct with New. Client is safe for
// concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
	log     zerolog.Logger
}

// New constructs a Client for the given base URL (e.g. "http://host/api").
// A nil httpClient falls back to a client with a 15s total timeout.
func New(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      httpClient,
		log:     log,
	}
}

// SessionByToken fetches a session through its invitation token. It is used
// once, at widget start; callers must not retry on failure (404/410 means an
// invalid or expired invitation).
func (c *Client) SessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodGet, "/i/"+token, nil, &s, http.StatusOK); err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionByID fetches a session by its identifier. The engine calls this on
// every poll tick while the session is in a processing status.
func (c *Client) SessionByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &s, http.StatusOK); err != nil {
		return nil, err
	}
	return &s, nil
}

// SendMessage submits one user message. Exactly one network call is made per
// invocation; the idempotency key inside req makes duplicate delivery safe on
// the server side. The backend answers 201 with the persisted pair.
func (c *Client) SendMessage(ctx context.Context, sessionID string, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	var resp domain.SendMessageResponse
	path := "/sessions/" + sessionID + "/message"
	if err := c.do(ctx, http.MethodPost, path, req, &resp, http.StatusCreated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs one JSON request/response round trip. Non-2xx responses decode
// the error envelope (best effort) and come back as *APIError. Transport
// failures are returned unwrapped so KindOf can recognize *url.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any, wantStatus int) error {
	tr := otel.Tracer("api/Client")
	ctx, span := tr.Start(ctx, method+" "+path,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return err
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if res.StatusCode != wantStatus && (res.StatusCode < 200 || res.StatusCode > 299) {
		var env errorEnvelope
		_ = json.NewDecoder(io.LimitReader(res.Body, 8<<10)).Decode(&env)
		detail := env.Message
		if detail == "" {
			detail = env.Detail
		}
		apiErr := &APIError{Status: res.StatusCode, Code: env.Code, Detail: detail}
		c.log.Debug().Int("status", res.StatusCode).Str("path", path).Str("code", env.Code).Msg("api error")
		return apiErr
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do exposes the round-trip helper for sibling clients (the admin console
// client reuses the same transport, envelope handling, and tracing).
func (c *Client) Do(ctx context.Context, method, path string, body, out any, wantStatus int) error {
	return c.do(ctx, method, path, body, out, wantStatus)
}
