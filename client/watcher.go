package client

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-tiltguard/auth"
)

// DefaultPollInterval matches the extension alarm period
const DefaultPollInterval = time.Minute

// StatusSource is what the watcher polls
type StatusSource interface {
	BlockingStatus(ctx context.Context) (BlockingStatus, error)
}

// tokenClearer is implemented by sources that hold a token
type tokenClearer interface {
	ClearToken()
}

// State is the effective block state seen by the watcher
type State struct {
	Blocked bool
	Until   *time.Time
}

// Watcher polls the blocking status and reports when the effective state
// flips
type Watcher struct {
	source   StatusSource
	interval time.Duration
	onChange func(State)
	logger   auth.Logger
	now      func() time.Time

	current State
}

// NewWatcher creates a watcher polling source every interval
func NewWatcher(source StatusSource, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		source:   source,
		interval: interval,
		onChange: func(State) {},
		logger:   auth.NoopLogger{},
		now:      time.Now,
	}
}

func (w *Watcher) WithOnChange(fn func(State)) *Watcher {
	if fn != nil {
		w.onChange = fn
	}
	return w
}

func (w *Watcher) WithLogger(logger auth.Logger) *Watcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

func (w *Watcher) WithClock(now func() time.Time) *Watcher {
	if now != nil {
		w.now = now
	}
	return w
}

// State returns the last effective state
func (w *Watcher) State() State {
	return w.current
}

// Run polls immediately and then on every tick until ctx is done or the
// API rejects the token. A rejected token is cleared and ErrUnauthorized
// returned. Other errors are logged and the next tick retried.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil {
			if IsUnauthorized(err) {
				if c, ok := w.source.(tokenClearer); ok {
					c.ClearToken()
				}
				w.logger.Warn("token rejected, watcher stopped")
				return ErrUnauthorized
			}
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("status poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the status once and fires OnChange if the state flipped
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	status, err := w.source.BlockingStatus(ctx)
	if err != nil {
		return false, err
	}

	next := State{}
	if status.Active(w.now()) {
		next = State{Blocked: true, Until: status.BlockUntil}
	}

	if next.Blocked == w.current.Blocked {
		w.current.Until = next.Until
		return false, nil
	}

	w.current = next
	w.logger.Info("block state changed", "blocked", next.Blocked, "until", next.Until)
	w.onChange(next)
	return true, nil
}

// IsUnauthorized reports whether err came from a rejected or missing token
func IsUnauthorized(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeUnauthorized
	}
	return false
}
