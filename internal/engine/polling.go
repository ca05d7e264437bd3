// Polling and deadline management.
//
// Entering Processing acquires exactly one timer/task pair: a poll loop that
// re-fetches the session, and a deadline checker that only watches the clock.
// Every transition that exits Processing releases both, whichever transition
// caused the exit. The pairing is explicit (enterProcessingLocked /
// stopPollingLocked) so a leaked ticker is a bug you can see in one file.
package engine

import (
	"context"
	"time"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

// enterProcessingLocked transitions to StateProcessing, starts the deadline
// clock, and launches the polling task. Caller holds e.mu.
func (e *Engine) enterProcessingLocked() {
	e.state = StateProcessing
	e.processingSince = e.now()
	e.startPollingLocked()
	e.log.Info().Msg("entered processing; polling started")
}

// startPollingLocked launches the poll loop goroutine. Caller holds e.mu.
// The loop is bound both to the engine's base context and to a cancel func
// owned by the engine, so disabling polling stops ticks immediately.
func (e *Engine) startPollingLocked() {
	if e.pollCancel != nil {
		return // already polling
	}
	base := e.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	e.pollCancel = cancel
	gen := e.pollGen
	sessionID := e.session.ID
	go e.pollLoop(ctx, gen, sessionID)
}

// stopPollingLocked cancels the polling task and invalidates any in-flight
// poll by bumping the generation counter. Caller holds e.mu.
func (e *Engine) stopPollingLocked() {
	e.pollGen++
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
	e.processingSince = time.Time{}
}

// pollLoop runs two independent periodic tasks on one goroutine: the session
// poll (pollInterval) and the deadline check (deadlineCheck). The deadline
// check never fetches; it exists only to detect timeout at a granularity
// finer than the poll interval.
func (e *Engine) pollLoop(ctx context.Context, gen uint64, sessionID string) {
	poll := time.NewTicker(e.pollInterval)
	defer poll.Stop()
	deadline := time.NewTicker(e.deadlineCheck)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			if e.checkDeadline(gen) {
				return
			}
		case <-poll.C:
			// Fetch outside the lock; application is gated on the generation
			// so a result that raced a transition is dropped.
			s, err := e.fetcher.SessionByID(ctx, sessionID)
			if err != nil {
				// Poll failures are transient by definition: the next tick
				// retries, and the deadline bounds the overall wait.
				e.log.Debug().Err(err).Msg("poll fetch failed")
				continue
			}
			if e.applyPoll(gen, s) {
				return
			}
		}
	}
}

// checkDeadline resolves Processing to TimedOut when the deadline elapsed.
// Returns true when the poll loop should exit. The transition fires at most
// once: stopPollingLocked bumps the generation, so a second checker can
// never re-enter.
func (e *Engine) checkDeadline(gen uint64) bool {
	e.mu.Lock()
	if gen != e.pollGen || e.state != StateProcessing {
		e.mu.Unlock()
		return true
	}
	if e.now().Sub(e.processingSince) <= e.deadline {
		e.mu.Unlock()
		return false
	}
	e.state = StateTimedOut
	e.stopPollingLocked()
	e.log.Info().Dur("deadline", e.deadline).Msg("processing deadline exceeded; polling stopped")
	e.unlockAndNotify()
	return true
}

// applyPoll installs a fetched session snapshot unless it is stale. Returns
// true when the poll loop should exit (terminal reached or result stale).
//
// Staleness: the engine may have moved to TimedOut or Terminal while this
// fetch was in flight. Last-state-wins would resurrect a dead session, so
// the generation check discards the response instead.
func (e *Engine) applyPoll(gen uint64, s *domain.Session) bool {
	e.mu.Lock()
	if gen != e.pollGen || e.state != StateProcessing {
		e.mu.Unlock()
		e.log.Debug().Msg("late poll result discarded")
		return true
	}

	e.session = s
	if s.Status.IsTerminal() {
		e.state = StateTerminal
		e.stopPollingLocked()
		e.log.Info().Str("status", string(s.Status)).Msg("session reached terminal status")
		e.unlockAndNotify()
		return true
	}
	// Still processing (COMPLETED/EXTRACTING/SUMMARIZING): keep the snapshot
	// fresh and keep waiting. The deadline clock is not reset by stage moves.
	e.unlockAndNotify()
	return false
}
