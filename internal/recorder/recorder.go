// Package recorder captures inbound DMX traffic into a recording file.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/eventbus"
	"cueloop.dev/cueloop/internal/log"
	"cueloop.dev/cueloop/internal/recording"
)

const queueDepth = 1024

// Recorder owns the write side of at most one recording at a time. Inbound
// packets are handed off through a buffered queue so the capture path never
// waits on file I/O; a full queue drops the packet and counts it.
type Recorder struct {
	dir       string
	universes map[core.Address]struct{}
	order     []int

	mu     sync.Mutex
	writer *recording.Writer
	queue  chan core.Packet
	done   chan struct{}

	dropped atomic.Int64
}

// New creates a recorder capturing the given universes into dir.
func New(dir string, universes []int) *Recorder {
	r := &Recorder{
		dir:       dir,
		universes: make(map[core.Address]struct{}, len(universes)),
		order:     append([]int(nil), universes...),
	}
	for _, u := range universes {
		r.universes[core.AddressForUniverse(u)] = struct{}{}
	}
	return r
}

// Start opens a new recording. name may be empty; a timestamped name is
// generated. Returns the file path being written.
func (r *Recorder) Start(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer != nil {
		return "", core.ErrRecorderActive
	}

	if name == "" {
		name = "rec-" + time.Now().Format("20060102-150405")
	}
	path := recording.Resolve(r.dir, name)
	w, err := recording.Create(path, core.RecordingMetadata{Universes: r.order})
	if err != nil {
		return "", fmt.Errorf("start recording: %w", err)
	}

	r.writer = w
	r.queue = make(chan core.Packet, queueDepth)
	r.done = make(chan struct{})
	go r.drain(w, r.queue, r.done)

	log.GetLogger().WithField("path", path).Info("recording started")
	return path, nil
}

// Stop finalizes the active recording and reports the path and packet count.
func (r *Recorder) Stop() (string, int, error) {
	r.mu.Lock()
	w, queue, done := r.writer, r.queue, r.done
	r.writer, r.queue, r.done = nil, nil, nil
	r.mu.Unlock()
	if w == nil {
		return "", 0, core.ErrRecorderIdle
	}

	close(queue)
	<-done
	path, count := w.Path(), w.PacketCount()
	if err := w.Close(); err != nil {
		return path, count, fmt.Errorf("stop recording: %w", err)
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"path": path, "packets": count,
	}).Info("recording stopped")
	return path, count, nil
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer != nil
}

// Dropped reports how many packets were discarded (malformed, unconfigured
// queue overflow, or write failure).
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// HandleEvent is the event bus subscription. It stamps the packet with its
// arrival time and enqueues it without blocking.
func (r *Recorder) HandleEvent(ev *eventbus.Event) {
	if _, ok := r.universes[ev.Packet.Address]; !ok {
		return
	}

	// The enqueue stays under the lock so Stop cannot close the queue out
	// from under an in-flight send.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue == nil {
		return
	}
	if len(ev.Packet.Data) == 0 || len(ev.Packet.Data) > core.DMXChannels {
		r.dropped.Inc()
		return
	}

	p := core.Packet{
		Timestamp: ev.Packet.ArrivedAt,
		Address:   ev.Packet.Address,
		Data:      ev.Packet.Data,
	}
	select {
	case r.queue <- p:
	default:
		r.dropped.Inc()
	}
}

func (r *Recorder) drain(w *recording.Writer, queue <-chan core.Packet, done chan<- struct{}) {
	defer close(done)
	for p := range queue {
		if err := w.AppendPacket(p); err != nil {
			r.dropped.Inc()
			log.GetLogger().WithError(err).Warn("packet write failed")
		}
	}
}
