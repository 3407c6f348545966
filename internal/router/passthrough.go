// Package router forwards live inbound packets straight to the configured
// outputs while nothing is playing.
package router

import (
	"github.com/tevino/abool"
	"go.uber.org/atomic"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/eventbus"
	"cueloop.dev/cueloop/internal/log"
)

// Passthrough mirrors inbound channel data to every matching output. It runs
// synchronously inside the inbound-packet delivery and touches no disk, so
// live latency is bounded by transmit cost alone. While a playback session
// is active the gate suppresses forwarding to avoid feeding outputs from two
// sources at once.
type Passthrough struct {
	senders []artnet.Sender
	playing func() bool
	enabled *abool.AtomicBool

	forwarded atomic.Int64
	failures  atomic.Int64
}

// New creates a passthrough router. playing reports whether a playback
// session currently owns the outputs.
func New(senders []artnet.Sender, playing func() bool, enabled bool) *Passthrough {
	return &Passthrough{
		senders: senders,
		playing: playing,
		enabled: abool.NewBool(enabled),
	}
}

// Enabled reports whether passthrough is switched on.
func (p *Passthrough) Enabled() bool { return p.enabled.IsSet() }

// SetEnabled switches passthrough on or off.
func (p *Passthrough) SetEnabled(on bool) { p.enabled.SetTo(on) }

// Toggle flips the switch and returns the new state.
func (p *Passthrough) Toggle() bool {
	for {
		cur := p.enabled.IsSet()
		if p.enabled.SetToIf(cur, !cur) {
			return !cur
		}
	}
}

// Forwarded reports how many packets were mirrored to outputs.
func (p *Passthrough) Forwarded() int64 { return p.forwarded.Load() }

// Failures reports per-output send errors.
func (p *Passthrough) Failures() int64 { return p.failures.Load() }

// HandleEvent is the event bus subscription.
func (p *Passthrough) HandleEvent(ev *eventbus.Event) {
	if !p.enabled.IsSet() || p.playing() {
		return
	}
	sent := false
	for _, sender := range p.senders {
		if !sender.Handles(ev.Packet.Address) {
			continue
		}
		if err := sender.Send(ev.Packet.Address, ev.Packet.Data); err != nil {
			p.failures.Inc()
			log.GetLogger().WithError(err).WithField("output", sender.Name()).Warn("passthrough send failed")
			continue
		}
		sent = true
	}
	if sent {
		p.forwarded.Inc()
	}
}
