package control

import (
	"time"

	"cueloop.dev/cueloop/internal/log"
)

// Watchdog blacks all outputs out once after the daemon has been idle for
// the configured window, so an aborted session never leaves fixtures lit.
type Watchdog struct {
	ctrl     *Controller
	window   time.Duration
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewWatchdog creates the idle watchdog. A window of 0 disables it.
func NewWatchdog(ctrl *Controller, window time.Duration) *Watchdog {
	return &Watchdog{
		ctrl:     ctrl,
		window:   window,
		interval: 500 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the watchdog loop. No-op when disabled.
func (w *Watchdog) Start() {
	if w.window <= 0 {
		close(w.done)
		return
	}
	go w.run()
}

// Stop terminates the loop.
func (w *Watchdog) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

func (w *Watchdog) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var idleSince time.Time
	fired := false
	for {
		select {
		case <-w.stop:
			return
		case now := <-ticker.C:
			if !w.ctrl.Idle() {
				idleSince = time.Time{}
				fired = false
				continue
			}
			if idleSince.IsZero() {
				idleSince = now
				continue
			}
			if !fired && now.Sub(idleSince) >= w.window {
				log.GetLogger().Infof("idle for %s, blacking out outputs", w.window)
				w.ctrl.Blackout()
				fired = true
			}
		}
	}
}
