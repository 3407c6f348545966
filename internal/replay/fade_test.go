package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop.dev/cueloop/internal/core"
)

// flatFrames builds n single-address frames whose channels all hold value.
func flatFrames(n int, universe int, value byte) []core.Frame {
	base := time.Unix(1700000000, 0)
	frames := make([]core.Frame, n)
	for i := range frames {
		data := make([]byte, 8)
		for c := range data {
			data[c] = value
		}
		frames[i] = core.Frame{Packets: []core.Packet{
			packetAt(base.Add(time.Duration(i)*25*time.Millisecond), universe, data...),
		}}
	}
	return frames
}

func TestSplice_FadesAcrossLoopBoundary(t *testing.T) {
	// Head at 100, tail at 200. fadeWindow 8 → w=4; interpolated run is
	// 200, 175, 150, 125, split across the wrap point.
	frames := flatFrames(20, 1, 100)
	for i := 10; i < 20; i++ {
		for c := range frames[i].Packets[0].Data {
			frames[i].Packets[0].Data[c] = 200
		}
	}

	out := Splice(frames, 8)

	assert.EqualValues(t, 200, out[18].Packets[0].Data[0]) // step 0 == tail value
	assert.EqualValues(t, 175, out[19].Packets[0].Data[0])
	assert.EqualValues(t, 150, out[0].Packets[0].Data[0])
	assert.EqualValues(t, 125, out[1].Packets[0].Data[0]) // step w-1 approaches head
	assert.EqualValues(t, 100, out[2].Packets[0].Data[0]) // untouched head frame
	assert.EqualValues(t, 200, out[17].Packets[0].Data[0])
}

func TestSplice_ZeroWindowIsNoOp(t *testing.T) {
	frames := flatFrames(6, 1, 42)
	once := Splice(frames, 0)
	twice := Splice(once, 0)
	require.Len(t, twice, 6)
	for i := range twice {
		assert.EqualValues(t, 42, twice[i].Packets[0].Data[0], "frame %d", i)
	}
}

func TestSplice_ClampsShortRecording(t *testing.T) {
	frames := flatFrames(3, 1, 10)
	out := Splice(frames, 100) // w clamps to 1
	require.Len(t, out, 3)
}

func TestSplice_PassesThroughUnmatchedAddress(t *testing.T) {
	base := time.Unix(1700000000, 0)
	// Universe 9 appears only in the tail; universe 1 in both.
	frames := []core.Frame{
		{Packets: []core.Packet{packetAt(base, 1, 100)}},
		{Packets: []core.Packet{packetAt(base.Add(25*time.Millisecond), 1, 100)}},
		{Packets: []core.Packet{
			packetAt(base.Add(50*time.Millisecond), 1, 200),
			packetAt(base.Add(51*time.Millisecond), 9, 77),
		}},
		{Packets: []core.Packet{
			packetAt(base.Add(75*time.Millisecond), 1, 200),
			packetAt(base.Add(76*time.Millisecond), 9, 77),
		}},
	}

	out := Splice(frames, 4) // w=2, half=1

	for _, frame := range out {
		for _, p := range frame.Packets {
			if p.Address.Universe() == 9 {
				assert.EqualValues(t, 77, p.Data[0])
			}
		}
	}
}
