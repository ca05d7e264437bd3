// Package engine implements the session interaction engine behind the chat
// widget. It reconciles the server-owned session lifecycle with local
// optimistic UI: it decides when to accept input, when to poll for backend
// post-processing, when to give up waiting, and when the session is over.
//
// The engine is an explicit finite-state object. All lifecycle knowledge
// lives in one place — the current state, the session snapshot, at most one
// optimistic (unconfirmed) message, a nullable processing deadline, and a
// single owned, cancellable polling task — rather than in ad hoc flags spread
// across callbacks.
//
// Concurrency: the engine's own timers fire on background goroutines, so all
// mutation is serialized by an internal mutex. A generation counter guards
// against late in-flight poll results: once the engine leaves Processing, any
// poll that was already in the air is discarded on arrival. Terminal states
// are never overwritten.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nmikhaylov/go-interview-widget/internal/api"
	"github.com/nmikhaylov/go-interview-widget/internal/domain"
	"github.com/nmikhaylov/go-interview-widget/internal/draft"
)

// State is the engine's perceived lifecycle position, derived from the
// session status plus the engine-local processing/timeout flags.
type State int

const (
	// StateAcceptingInput: the conversation is live and the user may type.
	StateAcceptingInput State = iota
	// StateProcessing: the backend is running post-processing; the engine
	// polls the session and the input is disabled.
	StateProcessing
	// StateTimedOut: processing exceeded the deadline without a terminal
	// result. Polling has stopped; the user is told to come back later.
	// Input stays disabled — timed out is not accepting input.
	StateTimedOut
	// StateTerminal: FINALIZED or ERROR (or a dead invitation link). No
	// further fetch, submit, or poll ever happens.
	StateTerminal
)

// String implements fmt.Stringer for logs and test failure messages.
func (s State) String() string {
	switch s {
	case StateAcceptingInput:
		return "accepting_input"
	case StateProcessing:
		return "processing"
	case StateTimedOut:
		return "timed_out"
	case StateTerminal:
		return "terminal"
	}
	return "unknown"
}

// Sentinel errors returned by Send for calls the state machine forbids.
var (
	// ErrNotAccepting: the engine is not in StateAcceptingInput.
	ErrNotAccepting = errors.New("engine: input is disabled in the current state")
	// ErrSendInFlight: a previous Send has not resolved yet.
	ErrSendInFlight = errors.New("engine: a send is already in flight")
	// ErrEmptyContent: the message text is empty after trimming.
	ErrEmptyContent = errors.New("engine: message content is empty")
	// ErrNotStarted: Start has not completed successfully.
	ErrNotStarted = errors.New("engine: session not loaded")
)

// SessionFetcher retrieves session state. One-shot fetch by token at startup;
// fetch by id on every poll tick.
type SessionFetcher interface {
	SessionByToken(ctx context.Context, token string) (*domain.Session, error)
	SessionByID(ctx context.Context, id string) (*domain.Session, error)
}

// MessageSubmitter sends one composed message with its idempotency key.
type MessageSubmitter interface {
	SendMessage(ctx context.Context, sessionID string, req domain.SendMessageRequest) (*domain.SendMessageResponse, error)
}

// Options tunes engine timing and test seams. The zero value yields
// production defaults.
type Options struct {
	// PollInterval between session fetches while Processing. Default 2s.
	PollInterval time.Duration
	// DeadlineCheck is the granularity of timeout detection. The deadline
	// checker never fetches data. Default 1s.
	DeadlineCheck time.Duration
	// ProcessingDeadline is how long Processing may last before the engine
	// resolves to TimedOut. Default 60s.
	ProcessingDeadline time.Duration
	// Now is the clock; defaults to time.Now. Injected by tests.
	Now func() time.Time
	// NewKey mints idempotency keys; defaults to uuid.NewString. One fresh
	// key per logical send attempt, never reused across user retries.
	NewKey func() string
	// Notify, when set, is called (without locks held) after every state
	// mutation. The presentation layer re-renders from Snapshot on it.
	Notify func()
	// Logger for engine diagnostics. Defaults to a disabled logger.
	Logger zerolog.Logger
}

// Snapshot is the engine state the presentation adapter renders from. It is
// a value copy; mutating it does not affect the engine.
type Snapshot struct {
	State        State
	Status       domain.SessionStatus
	Messages     []domain.Message
	Summary      string
	ErrorMessage string
	// Sending is true while a submit is in flight (typing indicator).
	Sending bool
}

// Engine drives one interview session identified by its invitation token.
type Engine struct {
	token     string
	fetcher   SessionFetcher
	submitter MessageSubmitter
	drafts    draft.Store // may be nil: draft handling degrades to no-op

	pollInterval  time.Duration
	deadlineCheck time.Duration
	deadline      time.Duration
	now           func() time.Time
	newKey        func() string
	notify        func()
	log           zerolog.Logger

	mu         sync.Mutex
	state      State
	session    *domain.Session
	optimistic *domain.Message
	sending    bool
	errMsg     string

	processingSince time.Time // zero unless Processing
	pollGen         uint64    // bumps whenever in-flight polls become stale
	pollCancel      context.CancelFunc
	baseCtx         context.Context
}

// New constructs an Engine for token. fetcher and submitter are required;
// drafts may be nil.
func New(token string, fetcher SessionFetcher, submitter MessageSubmitter, drafts draft.Store, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.DeadlineCheck <= 0 {
		opts.DeadlineCheck = time.Second
	}
	if opts.ProcessingDeadline <= 0 {
		opts.ProcessingDeadline = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewKey == nil {
		opts.NewKey = uuid.NewString
	}
	return &Engine{
		token:         token,
		fetcher:       fetcher,
		submitter:     submitter,
		drafts:        drafts,
		pollInterval:  opts.PollInterval,
		deadlineCheck: opts.DeadlineCheck,
		deadline:      opts.ProcessingDeadline,
		now:           opts.Now,
		newKey:        opts.NewKey,
		notify:        opts.Notify,
		log:           opts.Logger,
	}
}

// Start performs the one-shot fetch by invitation token and seeds the state
// machine. The fetch is never retried: a failure is terminal (invalid or
// expired invitation, or an unreachable backend at load time).
//
// ctx also bounds the lifetime of all polling started later; cancel it (or
// call Close) to tear the engine down.
func (e *Engine) Start(ctx context.Context) error {
	s, err := e.fetcher.SessionByToken(ctx, e.token)

	e.mu.Lock()
	e.baseCtx = ctx
	if err != nil {
		e.state = StateTerminal
		e.errMsg = api.UserMessage(err)
		e.log.Warn().Err(err).Msg("initial session fetch failed; widget is terminal")
		e.unlockAndNotify()
		return err
	}

	e.session = s
	switch {
	case s.Status.IsTerminal():
		e.state = StateTerminal
	case s.Status.IsProcessing():
		// Reloading mid-processing: resume the deadline clock and polling
		// as if the submit had just completed.
		e.state = StateProcessing
		e.processingSince = e.now()
		e.startPollingLocked()
	default:
		e.state = StateAcceptingInput
	}
	e.log.Info().Str("session_id", s.ID).Str("status", string(s.Status)).Stringer("state", e.state).Msg("session loaded")
	e.unlockAndNotify()
	return nil
}

// Draft returns the persisted draft for this token, if any. Store failures
// degrade to "no draft"; they are never surfaced.
func (e *Engine) Draft(ctx context.Context) string {
	if e.drafts == nil {
		return ""
	}
	text, ok, err := e.drafts.Load(ctx, e.token)
	if err != nil {
		e.log.Debug().Err(err).Msg("draft load failed")
		return ""
	}
	if !ok {
		return ""
	}
	return text
}

// Send submits one user message. It appends an optimistic message and clears
// the draft before the network call resolves; on success the confirmed pair
// from the response supersedes the optimistic one, and on any failure the
// optimistic message is discarded and the draft restored verbatim — no
// partial state is left behind.
//
// Exactly one network call is made; a user-initiated retry is a new Send and
// mints a new idempotency key.
func (e *Engine) Send(ctx context.Context, content string) error {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNotStarted
	}
	if e.state != StateAcceptingInput {
		e.mu.Unlock()
		return ErrNotAccepting
	}
	if e.sending {
		e.mu.Unlock()
		return ErrSendInFlight
	}
	if content == "" {
		e.mu.Unlock()
		return ErrEmptyContent
	}

	sessionID := e.session.ID
	key := e.newKey()
	e.sending = true
	e.errMsg = ""
	e.optimistic = &domain.Message{
		ID:        "pending-" + key,
		Role:      domain.RoleUser,
		Content:   content,
		Sequence:  e.session.MaxSequence() + 1,
		CreatedAt: e.now(),
	}
	e.unlockAndNotify()

	// Optimistic draft clear; restored below if the send fails.
	e.clearDraft(ctx)

	resp, err := e.submitter.SendMessage(ctx, sessionID, domain.SendMessageRequest{
		Content:        content,
		IdempotencyKey: key,
	})

	e.mu.Lock()
	e.sending = false
	e.optimistic = nil
	if err != nil {
		e.errMsg = api.UserMessage(err)
		e.log.Warn().Err(err).Msg("send failed; draft restored")
		e.unlockAndNotify()
		e.restoreDraft(ctx, content)
		return err
	}

	e.appendConfirmedLocked(resp.UserMessage)
	e.appendConfirmedLocked(resp.AssistantMessage)
	if resp.IsComplete && e.state == StateAcceptingInput {
		e.enterProcessingLocked()
	}
	e.unlockAndNotify()
	return nil
}

// Snapshot returns a render-ready copy of the current engine state. Messages
// are ordered by ascending sequence; the optimistic message, when present,
// is included at its provisional position.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:        e.state,
		ErrorMessage: e.errMsg,
		Sending:      e.sending,
	}
	if e.session != nil {
		snap.Status = e.session.Status
		snap.Summary = e.session.Summary
		msgs := make([]domain.Message, 0, len(e.session.Messages)+1)
		msgs = append(msgs, e.session.Messages...)
		if e.optimistic != nil {
			msgs = append(msgs, *e.optimistic)
		}
		domain.SortMessages(msgs)
		snap.Messages = msgs
	}
	return snap
}

// Close tears down the polling task and deadline timer. Safe to call in any
// state and more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	e.stopPollingLocked()
	e.mu.Unlock()
}

// appendConfirmedLocked adds a backend-confirmed message to the working
// snapshot unless a poll already delivered it. Confirmed data is
// authoritative; the optimistic placeholder never merges into it.
func (e *Engine) appendConfirmedLocked(m domain.Message) {
	for _, existing := range e.session.Messages {
		if existing.ID == m.ID {
			return
		}
	}
	e.session.Messages = append(e.session.Messages, m)
}

// clearDraft removes the persisted draft, best-effort.
func (e *Engine) clearDraft(ctx context.Context) {
	if e.drafts == nil {
		return
	}
	if err := e.drafts.Clear(ctx, e.token); err != nil {
		e.log.Debug().Err(err).Msg("draft clear failed")
	}
}

// restoreDraft re-persists the original content after a failed send so the
// user's text is exactly what they tried to submit.
func (e *Engine) restoreDraft(ctx context.Context, content string) {
	if e.drafts == nil {
		return
	}
	if err := e.drafts.Save(ctx, e.token, content); err != nil {
		e.log.Debug().Err(err).Msg("draft restore failed")
	}
}

// unlockAndNotify releases the state lock, then fires the change callback.
// The callback runs unlocked so it can call Snapshot safely.
func (e *Engine) unlockAndNotify() {
	n := e.notify
	e.mu.Unlock()
	if n != nil {
		n()
	}
}
