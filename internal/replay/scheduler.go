package replay

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/log"
)

// Scheduler walks a frame sequence in a loop, transmitting each frame to
// every matching sender and sleeping the residual of the recorded delay.
// Because every sleep target comes from the original recorded delay rather
// than a running clock, scheduling error stays bounded by one frame's
// transmit cost instead of accumulating over the session.
type Scheduler struct {
	senders []artnet.Sender

	mu      sync.Mutex
	session *Session

	sendFailures atomic.Int64

	// sleep is swapped out in tests for a recording fake.
	sleep func(d time.Duration, quit <-chan struct{})
}

// NewScheduler creates a scheduler transmitting through the given senders.
func NewScheduler(senders []artnet.Sender) *Scheduler {
	return &Scheduler{
		senders: senders,
		sleep:   sleepInterruptible,
	}
}

func sleepInterruptible(d time.Duration, quit <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-quit:
	}
}

// Start begins looping playback of the frame sequence. A session already
// playing is cancelled first and all outputs are blacked out before the new
// session transmits, so two sessions never interleave.
func (s *Scheduler) Start(name string, frames []core.Frame, delays []time.Duration) error {
	if len(frames) == 0 {
		return core.ErrEmptyRecording
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.cancel()
		<-s.session.done
		s.session = nil
		s.Blackout()
	}

	sess := newSession(name, frames, delays)
	s.session = sess
	go s.run(sess)

	log.GetLogger().WithFields(map[string]interface{}{
		"recording": name,
		"frames":    len(frames),
	}).Info("playback started")
	return nil
}

// Stop cancels the active session and waits for the loop to exit. The loop
// polls the flag once per frame, so no transmit happens more than one
// frame interval after Stop returns control.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()
	if sess == nil {
		return
	}
	sess.cancel()
	<-sess.done
	log.GetLogger().WithField("recording", sess.Name).Info("playback stopped")
}

// Playing reports whether a session is currently active.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.playing.IsSet()
}

// SendFailures reports the count of per-output transmit errors so far.
func (s *Scheduler) SendFailures() int64 {
	return s.sendFailures.Load()
}

func (s *Scheduler) run(sess *Session) {
	defer close(sess.done)
	i := 0
	for sess.playing.IsSet() {
		start := time.Now()
		s.transmit(sess.Frames[i])
		processing := time.Since(start)
		if residual := sess.Delays[i] - processing; residual > 0 {
			s.sleep(residual, sess.quit)
		}
		i = (i + 1) % len(sess.Frames)
	}
}

// transmit fans one frame out to every sender carrying its addresses. A
// failed send affects only that output; the rest of the frame continues.
func (s *Scheduler) transmit(frame core.Frame) {
	for _, p := range frame.Packets {
		for _, sender := range s.senders {
			if !sender.Handles(p.Address) {
				continue
			}
			if err := sender.Send(p.Address, p.Data); err != nil {
				s.sendFailures.Inc()
				log.GetLogger().WithError(err).WithFields(map[string]interface{}{
					"output":  sender.Name(),
					"address": p.Address.String(),
				}).Warn("transmit failed")
			}
		}
	}
}

// Blackout sends a full-channel zero payload to every address of every
// output once, leaving no fixture lit. Callers must not invoke it while a
// session is transmitting; the daemon's state machine guarantees that.
func (s *Scheduler) Blackout() {
	zero := make([]byte, core.DMXChannels)
	for _, sender := range s.senders {
		for _, addr := range sender.Addresses() {
			if err := sender.Send(addr, zero); err != nil {
				s.sendFailures.Inc()
				log.GetLogger().WithError(err).WithField("output", sender.Name()).Warn("blackout send failed")
			}
		}
	}
}
