package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/eventbus"
	"cueloop.dev/cueloop/internal/recording"
)

func inbound(universe int, at time.Time, data []byte) *eventbus.Event {
	addr := core.AddressForUniverse(universe)
	return &eventbus.Event{
		Key:    addr.String(),
		Packet: artnet.InboundPacket{Address: addr, Data: data, ArrivedAt: at},
	}
}

func TestRecorder_CaptureRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, []int{1, 2})

	path, err := r.Start("unit")
	require.NoError(t, err)
	assert.True(t, r.Active())

	base := time.Unix(1700000000, 0).UTC()
	r.HandleEvent(inbound(1, base, []byte{10}))
	r.HandleEvent(inbound(2, base.Add(50*time.Millisecond), []byte{20}))
	r.HandleEvent(inbound(9, base.Add(60*time.Millisecond), []byte{30}))  // unconfigured universe
	r.HandleEvent(inbound(1, base.Add(70*time.Millisecond), nil))         // malformed, dropped
	r.HandleEvent(inbound(1, base.Add(120*time.Millisecond), []byte{40}))

	gotPath, count, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(1), r.Dropped())
	assert.False(t, r.Active())

	rec, report, err := recording.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rec.Meta.Universes)
	require.Len(t, rec.Packets, 3)
	assert.Equal(t, 3, report.Packets)
	assert.Equal(t, []byte{10}, rec.Packets[0].Data)
	assert.Equal(t, []byte{40}, rec.Packets[2].Data)
}

func TestRecorder_StartWhileActive(t *testing.T) {
	r := New(t.TempDir(), []int{1})
	_, err := r.Start("first")
	require.NoError(t, err)

	_, err = r.Start("second")
	assert.ErrorIs(t, err, core.ErrRecorderActive)

	_, _, err = r.Stop()
	require.NoError(t, err)
}

func TestRecorder_StopWhileIdle(t *testing.T) {
	r := New(t.TempDir(), []int{1})
	_, _, err := r.Stop()
	assert.ErrorIs(t, err, core.ErrRecorderIdle)
}

func TestRecorder_IgnoresTrafficWhileIdle(t *testing.T) {
	r := New(t.TempDir(), []int{1})
	r.HandleEvent(inbound(1, time.Now(), []byte{1}))
	assert.Zero(t, r.Dropped())
}
