// Package typing provides the typing-indicator heartbeat shown while a reply
// is being generated.
package typing

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the delay between typing signal refreshes. Platforms
// expire a typing indicator after a few seconds, so it is re-sent on a loop.
const DefaultInterval = time.Second

// SendFunc emits one typing signal to the channel. Failures are best-effort:
// a failed signal never aborts the surrounding work.
type SendFunc func() error

// Indicator emits a typing signal immediately on Start and then once per
// interval until Stop. Stop is idempotent and blocks until the refresh loop
// has exited, so a caller can rely on no further signals after it returns.
//
// An Indicator is single-use: one Start/Stop cycle per instance. Callers
// create one per generation call and release it with defer.
type Indicator struct {
	send     SendFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
}

// NewIndicator creates an Indicator. A non-positive interval falls back to
// DefaultInterval; a nil logger falls back to slog.Default.
func NewIndicator(send SendFunc, interval time.Duration, logger *slog.Logger) *Indicator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indicator{
		send:     send,
		interval: interval,
		logger:   logger,
	}
}

// Start emits one typing signal and launches the refresh loop. Calling Start
// on an already-started Indicator is a no-op.
func (i *Indicator) Start() {
	i.mu.Lock()
	if i.stopCh != nil {
		i.mu.Unlock()
		return
	}
	i.stopCh = make(chan struct{})
	i.doneCh = make(chan struct{})
	i.mu.Unlock()

	i.emit()
	go i.run()
}

// Stop ends the refresh loop and waits for it to exit. Safe to call multiple
// times and before Start, in which case it does nothing.
func (i *Indicator) Stop() {
	i.mu.Lock()
	if i.stopCh == nil || i.stopped {
		i.mu.Unlock()
		return
	}
	i.stopped = true
	close(i.stopCh)
	done := i.doneCh
	i.mu.Unlock()

	<-done
}

// Active reports whether the refresh loop is running.
func (i *Indicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopCh != nil && !i.stopped
}

func (i *Indicator) run() {
	defer close(i.doneCh)

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stopCh:
			return
		case <-ticker.C:
			i.emit()
		}
	}
}

func (i *Indicator) emit() {
	if i.send == nil {
		return
	}
	if err := i.send(); err != nil {
		i.logger.Debug("typing signal failed", "error", err)
	}
}
