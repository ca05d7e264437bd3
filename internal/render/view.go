// Package render is the presentation adapter for the chat widget: a pure
// mapping from an engine snapshot to a render model. It holds the display
// strings and visibility rules and nothing else — no timers, no requests,
// no state.
package render

import (
	"github.com/nmikhaylov/go-interview-widget/internal/domain"
	"github.com/nmikhaylov/go-interview-widget/internal/engine"
)

// Display strings shown by the widget chrome.
const (
	processingNotice = "Preparing your summary..."
	timeoutNotice    = "Processing is taking longer than expected. You can come back later."
	finalHeading     = "Thank you! Your questionnaire is complete."
	errorHeading     = "Something went wrong while processing your questionnaire. HR has been notified."
)

// MessageRow is one rendered conversation turn.
type MessageRow struct {
	ID       string
	FromUser bool
	Content  string
	// Pending marks the optimistic, not-yet-confirmed message.
	Pending bool
}

// FinalScreen replaces the conversation once the session is terminal.
type FinalScreen struct {
	Heading string
	// Summary is present only for successfully finalized sessions.
	Summary string
}

// View is everything the widget needs to draw one frame.
type View struct {
	Messages []MessageRow
	// Typing shows the assistant typing indicator while a send is in flight.
	Typing bool
	// Notice is the processing / timeout banner, empty when neither applies.
	Notice string
	// Error is the current classified failure message, empty when none.
	Error string
	// InputEnabled gates the composer. Disabled while processing, timed out,
	// terminal, or while a send is in flight.
	InputEnabled bool
	// Final is non-nil once the session reached a terminal status.
	Final *FinalScreen
}

// Compose builds the render model for a snapshot.
func Compose(snap engine.Snapshot) View {
	v := View{
		Typing: snap.Sending,
		Error:  snap.ErrorMessage,
	}

	if snap.State == engine.StateTerminal {
		v.Final = &FinalScreen{}
		if snap.Status == domain.StatusFinalized {
			v.Final.Heading = finalHeading
			v.Final.Summary = snap.Summary
		} else {
			v.Final.Heading = errorHeading
			if snap.ErrorMessage != "" {
				// Dead invitation link and the like: the classified message
				// is the whole screen.
				v.Final.Heading = snap.ErrorMessage
				v.Error = ""
			}
		}
		return v
	}

	v.Messages = make([]MessageRow, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		v.Messages = append(v.Messages, MessageRow{
			ID:       m.ID,
			FromUser: m.Role == domain.RoleUser,
			Content:  m.Content,
			Pending:  snap.Sending && m.Role == domain.RoleUser && isPendingID(m.ID),
		})
	}

	switch snap.State {
	case engine.StateProcessing:
		v.Notice = processingNotice
	case engine.StateTimedOut:
		v.Notice = timeoutNotice
	case engine.StateAcceptingInput:
		v.InputEnabled = !snap.Sending
	}
	return v
}

// isPendingID recognizes the engine's provisional message ids.
func isPendingID(id string) bool {
	return len(id) > 8 && id[:8] == "pending-"
}
