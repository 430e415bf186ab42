package identity

import (
	"context"
	"time"
)

// refreshTimer is the handle of a running refresh loop.
type refreshTimer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// maybeStartTimer starts the refresh loop unless it is already running or
// no refresh period is configured. It reports false, starting nothing, when
// f has been superseded. SignOut advances the generation before taking
// timerMu, so a loop started by a stale flow is always stopped.
func (o *Orchestrator) maybeStartTimer(f flow) bool {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if o.store.Generation() != f.gen {
		return false
	}
	if o.timer != nil || o.refreshPeriod <= 0 {
		return true
	}
	ctx, cancel := context.WithCancel(o.ctx)
	t := &refreshTimer{cancel: cancel, done: make(chan struct{})}
	o.timer = t
	go o.runTimer(ctx, t, o.refreshPeriod)
	return true
}

func (o *Orchestrator) runTimer(ctx context.Context, t *refreshTimer, period time.Duration) {
	defer close(t.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.metrics.tick()
			o.RestoreSession(o.ctx, ShouldEnforceRoute(o.currentPath(), o.cfg.Routing))
		}
	}
}

// StopTimer cancels the refresh loop. It is safe to call when none is running.
func (o *Orchestrator) StopTimer() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if o.timer != nil {
		o.timer.cancel()
		o.timer = nil
	}
}

// TimerRunning reports whether the refresh loop is active.
func (o *Orchestrator) TimerRunning() bool {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	return o.timer != nil
}
