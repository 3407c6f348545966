package replay

import (
	"math"

	"cueloop.dev/cueloop/internal/core"
)

// Splice cross-fades the recording's tail into its head so repeated
// playback has no visible jump at the wrap point.
//
// With w = fadeWindow/2, the last w frames ("tail") are interpolated toward
// the first w frames ("head"): at step i each channel moves linearly from
// its tail value (i=0) to its head value (i=w-1). The first half of that
// interpolated run replaces the last w/2 frames and the second half replaces
// the first w/2 frames, so the fade plays out continuously across the loop
// boundary. Addresses present in the tail but absent from the head pass
// through unchanged.
//
// fadeWindow is clamped so w never exceeds half the recording; w = 0 leaves
// the frames untouched.
func Splice(frames []core.Frame, fadeWindow int) []core.Frame {
	w := fadeWindow / 2
	if w > len(frames)/2 {
		w = len(frames) / 2
	}
	if w <= 0 {
		return frames
	}

	n := len(frames)
	faded := make([]core.Frame, w)
	for i := 0; i < w; i++ {
		tail := frames[n-w+i]
		head := frames[i]
		faded[i] = fadeFrame(tail, head, i, w)
	}

	// First half of the fade lands on the end of the sequence, second half
	// on the start; the wrap falls in the middle of the run.
	half := w / 2
	for j := 0; j < half; j++ {
		frames[n-half+j] = faded[j]
	}
	for j := half; j < w; j++ {
		frames[j-half] = faded[j]
	}
	return frames
}

// fadeFrame interpolates one tail frame toward the matching head frame.
func fadeFrame(tail, head core.Frame, step, w int) core.Frame {
	byAddr := make(map[core.Address][]byte, len(head.Packets))
	for _, p := range head.Packets {
		byAddr[p.Address] = p.Data
	}

	out := core.Frame{Packets: make([]core.Packet, len(tail.Packets))}
	for i, p := range tail.Packets {
		headData, ok := byAddr[p.Address]
		if !ok {
			out.Packets[i] = p
			continue
		}
		data := make([]byte, len(p.Data))
		copy(data, p.Data)
		for c := range data {
			if c >= len(headData) {
				break
			}
			from := float64(p.Data[c])
			to := float64(headData[c])
			data[c] = byte(math.Round(from + (to-from)*float64(step)/float64(w)))
		}
		out.Packets[i] = core.Packet{Timestamp: p.Timestamp, Address: p.Address, Data: data}
	}
	return out
}
