// Package domain defines the wire-level types exchanged with the interview
// backend, plus the GORM-mapped records used by the local draft store and the
// development mock server. The JSON shapes here are the backend contract:
// field names and status strings must not change without a backend migration.
package domain

import (
	"sort"
	"time"
)

// SessionStatus is the server-owned lifecycle status of an interview session.
//
// The conversation portion runs in NOT_STARTED/IN_PROGRESS. Once the
// questionnaire is complete the backend performs asynchronous post-processing
// (COMPLETED → EXTRACTING → SUMMARIZING) before settling in FINALIZED, or
// ERROR when any stage fails. Transitions are monotonic; the client never
// observes a backward move except through an administrative re-run.
type SessionStatus string

const (
	StatusNotStarted  SessionStatus = "NOT_STARTED"
	StatusInProgress  SessionStatus = "IN_PROGRESS"
	StatusCompleted   SessionStatus = "COMPLETED"
	StatusExtracting  SessionStatus = "EXTRACTING"
	StatusSummarizing SessionStatus = "SUMMARIZING"
	StatusFinalized   SessionStatus = "FINALIZED"
	StatusError       SessionStatus = "ERROR"
)

// IsProcessing reports whether the backend is performing asynchronous
// post-processing for this status. While processing, the client polls the
// session and keeps the input disabled.
func (s SessionStatus) IsProcessing() bool {
	switch s {
	case StatusCompleted, StatusExtracting, StatusSummarizing:
		return true
	}
	return false
}

// IsTerminal reports whether the session reached a final status. Terminal
// statuses are absorbing: no further fetch, submit, or poll is meaningful.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusFinalized || s == StatusError
}

// Message roles as sent on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in the interview conversation.
//
// Sequence is assigned by the backend, strictly increasing and unique within
// a session. Display order is defined by Sequence, never by arrival order:
// concurrent fetches can deliver messages out of order.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one employee's interview instance as returned by the backend.
// Summary is non-empty only once the session is FINALIZED.
type Session struct {
	ID       string        `json:"id"`
	Status   SessionStatus `json:"status"`
	Messages []Message     `json:"messages"`
	Summary  string        `json:"summary,omitempty"`
}

// MaxSequence returns the highest message sequence number in the session,
// or 0 when the session has no messages.
func (s *Session) MaxSequence() int {
	max := 0
	for _, m := range s.Messages {
		if m.Sequence > max {
			max = m.Sequence
		}
	}
	return max
}

// SortMessages orders msgs in place by ascending sequence number. The sort is
// stable so equal sequences (which the backend should never produce) keep
// their relative order instead of flapping between renders.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Sequence < msgs[j].Sequence
	})
}

// SendMessageRequest is the payload of POST /sessions/{id}/message.
//
// IdempotencyKey is a client-generated nonce, minted once per logical send
// attempt (not per network retry). The backend collapses duplicate deliveries
// of the same key into a single logical message pair.
type SendMessageRequest struct {
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SendMessageResponse is the backend's reply to a successful send: the
// persisted user/assistant pair and a flag indicating the questionnaire is
// complete and post-processing has begun.
type SendMessageResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
	IsComplete       bool    `json:"is_complete"`
}
