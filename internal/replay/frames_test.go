package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop.dev/cueloop/internal/core"
)

func packetAt(t time.Time, universe int, data ...byte) core.Packet {
	return core.Packet{Timestamp: t, Address: core.AddressForUniverse(universe), Data: data}
}

func TestBuildFrames_TwoUniverses(t *testing.T) {
	base := time.Unix(1700000000, 0)
	// Three packets over universes {1,2}: k=2, chunk boundaries at 0 and 2.
	packets := []core.Packet{
		packetAt(base, 1, 10),
		packetAt(base.Add(20*time.Millisecond), 2, 20),
		packetAt(base.Add(50*time.Millisecond), 1, 30),
	}

	frames, delays := BuildFrames(packets)

	require.Len(t, frames, 2)
	require.Len(t, delays, 2)
	assert.Len(t, frames[0].Packets, 2)
	assert.Len(t, frames[1].Packets, 1) // final chunk may be short
	assert.Equal(t, time.Duration(0), delays[0])
	assert.Equal(t, 50*time.Millisecond, delays[1])
}

func TestBuildFrames_SingleAddress(t *testing.T) {
	base := time.Unix(1700000000, 0)
	packets := []core.Packet{
		packetAt(base, 7, 1),
		packetAt(base.Add(30*time.Millisecond), 7, 2),
		packetAt(base.Add(45*time.Millisecond), 7, 3),
	}

	frames, delays := BuildFrames(packets)

	// k=1 degrades to strict per-packet timing.
	require.Len(t, frames, 3)
	assert.Equal(t, []time.Duration{0, 30 * time.Millisecond, 15 * time.Millisecond}, delays)
}

func TestBuildFrames_DelaysNonNegative(t *testing.T) {
	base := time.Unix(1700000000, 0)
	// Capture jitter can produce identical chunk-leading timestamps.
	packets := []core.Packet{
		packetAt(base, 1, 1),
		packetAt(base, 2, 2),
		packetAt(base, 1, 3),
		packetAt(base, 2, 4),
	}

	_, delays := BuildFrames(packets)

	require.NotEmpty(t, delays)
	assert.Equal(t, time.Duration(0), delays[0])
	for i, d := range delays {
		assert.GreaterOrEqual(t, d, time.Duration(0), "delay %d", i)
	}
}

func TestBuildFrames_Empty(t *testing.T) {
	frames, delays := BuildFrames(nil)
	assert.Nil(t, frames)
	assert.Nil(t, delays)
}
