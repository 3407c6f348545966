// Package replay reconstructs playable frames from a loaded recording and
// drives their transmission with the original cadence.
package replay

import (
	"time"

	"cueloop.dev/cueloop/internal/core"
)

// BuildFrames groups a timestamp-sorted packet sequence into frames and
// derives the inter-frame delays.
//
// The grouping slices the sequence into consecutive chunks of size k, where
// k is the number of distinct addresses across the whole recording. This
// leans on a hard assumption inherited from live capture: the console
// multiplexes all active universes at a roughly uniform round-robin rate.
// It is not a general demultiplexer — an address emitting at a different
// rate than the others will smear across frames.
//
// delays[0] is zero; delays[i] is the wall-clock gap between the first
// packet of chunk i and the first packet of chunk i-1, clamped at >= 0.
func BuildFrames(packets []core.Packet) ([]core.Frame, []time.Duration) {
	if len(packets) == 0 {
		return nil, nil
	}

	distinct := make(map[core.Address]struct{})
	for _, p := range packets {
		distinct[p.Address] = struct{}{}
	}
	k := len(distinct)

	frameCount := (len(packets) + k - 1) / k
	frames := make([]core.Frame, 0, frameCount)
	delays := make([]time.Duration, 0, frameCount)

	for start := 0; start < len(packets); start += k {
		end := start + k
		if end > len(packets) {
			end = len(packets) // final chunk may be short
		}
		chunk := make([]core.Packet, end-start)
		copy(chunk, packets[start:end])

		var delay time.Duration
		if len(frames) > 0 {
			prev := frames[len(frames)-1].Packets[0].Timestamp
			delay = chunk[0].Timestamp.Sub(prev)
			if delay < 0 {
				delay = 0
			}
		}
		frames = append(frames, core.Frame{Packets: chunk})
		delays = append(delays, delay)
	}
	return frames, delays
}
