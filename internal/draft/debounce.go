// Debounced draft writer.
//
// Every keystroke calls Set, but persistence only happens after the input has
// been quiescent for the configured interval, so the store sees one write per
// pause in typing rather than one per key. Concurrent Set calls serialize on
// the debounce window; last write wins.
package draft

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultQuiet is the quiescence interval before a draft is persisted.
const DefaultQuiet = 2 * time.Second

// Debouncer coalesces rapid Set calls into a single deferred Store write.
type Debouncer struct {
	store Store
	token string
	quiet time.Duration
	log   zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	dirty   bool
	stopped bool
}

// NewDebouncer wraps store for one invitation token. A quiet duration <= 0
// falls back to DefaultQuiet.
func NewDebouncer(store Store, token string, quiet time.Duration, log zerolog.Logger) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{store: store, token: token, quiet: quiet, log: log}
}

// Set records the latest draft text and (re)arms the quiescence timer. The
// write happens only if no further Set arrives within the quiet interval.
func (d *Debouncer) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = text
	d.dirty = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.flush)
}

// Flush persists any pending draft immediately, bypassing the quiet interval.
// Used on teardown so an in-flight draft survives navigation.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.flush()
}

// Stop cancels any pending write without persisting it. After Stop the
// debouncer ignores further Set calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.dirty = false
}

// flush writes the pending value. Store failures are logged and swallowed:
// draft persistence is best-effort by contract.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if !d.dirty || d.stopped {
		d.mu.Unlock()
		return
	}
	text := d.pending
	d.dirty = false
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var err error
	if text == "" {
		err = d.store.Clear(ctx, d.token)
	} else {
		err = d.store.Save(ctx, d.token, text)
	}
	if err != nil {
		d.log.Debug().Err(err).Msg("draft persistence failed; continuing without")
	}
}
