// Package control exposes the operator-facing operations of the daemon:
// record, play, passthrough, rate, blackout, highlight and listing. All
// operations are serialized; exactly one of playback or passthrough drives a
// given output at a time, enforced by the Playing state rather than by
// locking in the transmit path.
package control

import (
	"fmt"
	"sync"
	"time"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/log"
	"cueloop.dev/cueloop/internal/recorder"
	"cueloop.dev/cueloop/internal/recording"
	"cueloop.dev/cueloop/internal/replay"
	"cueloop.dev/cueloop/internal/router"
)

// Controller wires the recorder, scheduler and passthrough router behind the
// command surface.
type Controller struct {
	recordingsDir string
	senders       []artnet.Sender

	recorder    *recorder.Recorder
	scheduler   *replay.Scheduler
	passthrough *router.Passthrough

	mu         sync.Mutex
	fps        int
	fadeWindow int // 0 derives one second of frames from fps

	started time.Time

	// sleep is swapped out in tests for the highlight blink steps.
	sleep func(time.Duration)
}

// New creates a controller. fadeWindow of 0 derives the window from fps.
func New(recordingsDir string, senders []artnet.Sender, rec *recorder.Recorder,
	sched *replay.Scheduler, pass *router.Passthrough, fps, fadeWindow int) *Controller {
	return &Controller{
		recordingsDir: recordingsDir,
		senders:       senders,
		recorder:      rec,
		scheduler:     sched,
		passthrough:   pass,
		fps:           fps,
		fadeWindow:    fadeWindow,
		started:       time.Now(),
		sleep:         time.Sleep,
	}
}

// StartRecording opens a new capture. name may be empty for a timestamped
// one.
func (c *Controller) StartRecording(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler.Playing() {
		return "", core.ErrPlaybackActive
	}
	return c.recorder.Start(name)
}

// StopRecording finalizes the capture and reports path and packet count.
func (c *Controller) StopRecording() (string, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recorder.Stop()
}

// Play loads a recording, rebuilds its frames, smooths the loop boundary and
// starts the scheduler. A failed load leaves any running session untouched;
// the caller gets the error plus the available recordings to report back.
func (c *Controller) Play(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := recording.Resolve(c.recordingsDir, name)
	rec, report, err := recording.Load(path)
	if err != nil {
		return err
	}
	if report.Dropped > 0 {
		log.GetLogger().WithFields(map[string]interface{}{
			"path": path, "dropped": report.Dropped,
		}).Warn("recording contained malformed packets")
	}

	frames, delays := replay.BuildFrames(rec.Packets)
	if len(frames) == 0 {
		return core.ErrEmptyRecording
	}
	frames = replay.Splice(frames, c.currentFadeWindow())

	return c.scheduler.Start(name, frames, delays)
}

// StopPlayback cancels the active session, if any.
func (c *Controller) StopPlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler.Stop()
}

// TogglePassthrough flips live forwarding and returns the new state.
func (c *Controller) TogglePassthrough() bool {
	return c.passthrough.Toggle()
}

// SetRate sets the nominal playback rate. It resizes the default fade window
// for subsequent plays; a running session keeps its recorded pacing.
func (c *Controller) SetRate(fps int) error {
	if fps < 1 || fps > 100 {
		return fmt.Errorf("%w: %d", core.ErrRateOutOfRange, fps)
	}
	c.mu.Lock()
	c.fps = fps
	c.fadeWindow = 0 // re-derive from the new rate
	c.mu.Unlock()
	return nil
}

// Rate returns the configured playback rate.
func (c *Controller) Rate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Blackout zeroes every output once. A running playback session is stopped
// first; blackout is the operator's way out of a stuck look.
func (c *Controller) Blackout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler.Stop()
	c.scheduler.Blackout()
}

// Highlight blinks one channel of one universe full-on/off so a technician
// can locate the fixture. Refused while playback owns the outputs.
func (c *Controller) Highlight(universe, channel, times int) error {
	if channel < 0 || channel >= core.DMXChannels {
		return fmt.Errorf("channel %d outside 0..%d", channel, core.DMXChannels-1)
	}
	if times < 1 {
		times = 3
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler.Playing() {
		return core.ErrPlaybackActive
	}

	addr := core.AddressForUniverse(universe)
	data := make([]byte, core.DMXChannels)
	for i := 0; i < times; i++ {
		data[channel] = 0xff
		c.sendAll(addr, data)
		c.sleep(250 * time.Millisecond)
		data[channel] = 0
		c.sendAll(addr, data)
		c.sleep(250 * time.Millisecond)
	}
	return nil
}

// List returns the recordings available for playback.
func (c *Controller) List() ([]recording.Info, error) {
	return recording.List(c.recordingsDir)
}

// Status is a point-in-time snapshot for the operator.
type Status struct {
	State           string `json:"state" yaml:"state"`
	Recording       bool   `json:"recording" yaml:"recording"`
	Playing         bool   `json:"playing" yaml:"playing"`
	Passthrough     bool   `json:"passthrough" yaml:"passthrough"`
	Rate            int    `json:"rate" yaml:"rate"`
	UptimeSeconds   int64  `json:"uptime_seconds" yaml:"uptime_seconds"`
	RecorderDrops   int64  `json:"recorder_drops" yaml:"recorder_drops"`
	SendFailures    int64  `json:"send_failures" yaml:"send_failures"`
	Forwarded       int64  `json:"forwarded" yaml:"forwarded"`
	ForwardFailures int64  `json:"forward_failures" yaml:"forward_failures"`
}

// Status snapshots the daemon state.
func (c *Controller) Status() Status {
	playing := c.scheduler.Playing()
	rec := c.recorder.Active()
	state := "idle"
	switch {
	case playing:
		state = "playing"
	case rec:
		state = "recording"
	}
	return Status{
		State:           state,
		Recording:       rec,
		Playing:         playing,
		Passthrough:     c.passthrough.Enabled(),
		Rate:            c.Rate(),
		UptimeSeconds:   int64(time.Since(c.started).Seconds()),
		RecorderDrops:   c.recorder.Dropped(),
		SendFailures:    c.scheduler.SendFailures(),
		Forwarded:       c.passthrough.Forwarded(),
		ForwardFailures: c.passthrough.Failures(),
	}
}

// Idle reports whether neither recording nor playback is active.
func (c *Controller) Idle() bool {
	return !c.scheduler.Playing() && !c.recorder.Active()
}

func (c *Controller) currentFadeWindow() int {
	if c.fadeWindow > 0 {
		return c.fadeWindow
	}
	return c.fps // one second of frames at the configured rate
}

func (c *Controller) sendAll(addr core.Address, data []byte) {
	for _, s := range c.senders {
		if !s.Handles(addr) {
			continue
		}
		if err := s.Send(addr, data); err != nil {
			log.GetLogger().WithError(err).WithField("output", s.Name()).Warn("highlight send failed")
		}
	}
}
