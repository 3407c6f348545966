// Package metrics exports pipeline counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sources supplies the live counters the exporter reads from. All funcs must
// be safe for concurrent use; they are called on scrape.
type Sources struct {
	BusPublished  func() int64
	BusProcessed  func() int64
	BusDropped    func() int64
	ReceiverDrops func() int64
	RecorderDrops func() int64
	SendFailures  func() int64
	Forwarded     func() int64
	Playing       func() bool
	Recording     func() bool
}

// Register attaches the cueloop collectors to the default registry.
func Register(src Sources) {
	counter := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name, Help: help,
		}, func() float64 { return float64(fn()) })
	}
	boolGauge := func(name, help string, fn func() bool) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name, Help: help,
		}, func() float64 {
			if fn() {
				return 1
			}
			return 0
		})
	}

	prometheus.MustRegister(
		counter("cueloop_bus_published_total", "Inbound packets published onto the event bus", src.BusPublished),
		counter("cueloop_bus_processed_total", "Events delivered to all subscribers", src.BusProcessed),
		counter("cueloop_bus_dropped_total", "Events dropped on a full bus partition", src.BusDropped),
		counter("cueloop_receiver_dropped_total", "Malformed or overflowed inbound packets discarded", src.ReceiverDrops),
		counter("cueloop_recorder_dropped_total", "Packets the recorder could not persist", src.RecorderDrops),
		counter("cueloop_send_failures_total", "Playback transmit failures across all outputs", src.SendFailures),
		counter("cueloop_forwarded_total", "Packets forwarded by the passthrough router", src.Forwarded),
		boolGauge("cueloop_playing", "Whether a playback session is running", src.Playing),
		boolGauge("cueloop_recording", "Whether a capture is running", src.Recording),
	)
}
