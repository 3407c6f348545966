package control

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/recorder"
	"cueloop.dev/cueloop/internal/recording"
	"cueloop.dev/cueloop/internal/replay"
	"cueloop.dev/cueloop/internal/router"
)

type memSender struct {
	name string
	uni  []int

	mu   sync.Mutex
	sent [][]byte
}

func (s *memSender) Name() string { return s.name }
func (s *memSender) Handles(a core.Address) bool {
	for _, u := range s.uni {
		if a == core.AddressForUniverse(u) {
			return true
		}
	}
	return false
}
func (s *memSender) Addresses() []core.Address {
	addrs := make([]core.Address, len(s.uni))
	for i, u := range s.uni {
		addrs[i] = core.AddressForUniverse(u)
	}
	return addrs
}
func (s *memSender) Close() error { return nil }
func (s *memSender) Send(a core.Address, data []byte) error {
	payload := make([]byte, len(data))
	copy(payload, data)
	s.mu.Lock()
	s.sent = append(s.sent, payload)
	s.mu.Unlock()
	return nil
}
func (s *memSender) payloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestController(t *testing.T, dir string, senders ...artnet.Sender) *Controller {
	t.Helper()
	sched := replay.NewScheduler(senders)
	rec := recorder.New(dir, []int{1, 2})
	pass := router.New(senders, sched.Playing, true)
	c := New(dir, senders, rec, sched, pass, 40, 0)
	c.sleep = func(time.Duration) {}
	t.Cleanup(c.StopPlayback)
	return c
}

func writeRecording(t *testing.T, dir, name string, packetCount int) string {
	t.Helper()
	path := filepath.Join(dir, name+recording.Ext)
	w, err := recording.Create(path, core.RecordingMetadata{Universes: []int{1}})
	require.NoError(t, err)
	base := time.Unix(1700000000, 0)
	for i := 0; i < packetCount; i++ {
		require.NoError(t, w.AppendPacket(core.Packet{
			Timestamp: base.Add(time.Duration(i) * 10 * time.Millisecond),
			Address:   core.AddressForUniverse(1),
			Data:      []byte{byte(i + 1)},
		}))
	}
	require.NoError(t, w.Close())
	return path
}

func TestPlay_MissingRecordingKeepsIdle(t *testing.T) {
	dir := t.TempDir()
	out := &memSender{name: "out", uni: []int{1}}
	c := newTestController(t, dir, out)
	writeRecording(t, dir, "existing", 4)

	err := c.Play("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, "idle", c.Status().State)

	// The available recordings are still reported to the operator.
	infos, err := c.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "existing"+recording.Ext, infos[0].Name)
}

func TestPlay_EmptyRecording(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(t, dir, &memSender{name: "out", uni: []int{1}})
	writeRecording(t, dir, "empty", 0)

	err := c.Play("empty")
	assert.ErrorIs(t, err, core.ErrEmptyRecording)
	assert.Equal(t, "idle", c.Status().State)
}

func TestPlay_TransmitsAndStops(t *testing.T) {
	dir := t.TempDir()
	out := &memSender{name: "out", uni: []int{1}}
	c := newTestController(t, dir, out)
	writeRecording(t, dir, "show", 4)

	require.NoError(t, c.Play("show"))
	assert.Equal(t, "playing", c.Status().State)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(out.payloads()) == 0 {
		time.Sleep(time.Millisecond)
	}
	assert.NotEmpty(t, out.payloads())

	c.StopPlayback()
	assert.Equal(t, "idle", c.Status().State)
}

func TestRecordingRefusedWhilePlaying(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(t, dir, &memSender{name: "out", uni: []int{1}})
	writeRecording(t, dir, "show", 4)
	require.NoError(t, c.Play("show"))

	_, err := c.StartRecording("live")
	assert.ErrorIs(t, err, core.ErrPlaybackActive)
}

func TestSetRate(t *testing.T) {
	c := newTestController(t, t.TempDir(), &memSender{name: "out", uni: []int{1}})

	require.NoError(t, c.SetRate(25))
	assert.Equal(t, 25, c.Rate())
	assert.Equal(t, 25, c.currentFadeWindow())

	assert.ErrorIs(t, c.SetRate(0), core.ErrRateOutOfRange)
	assert.ErrorIs(t, c.SetRate(101), core.ErrRateOutOfRange)
}

func TestBlackoutZeroesOutputs(t *testing.T) {
	out := &memSender{name: "out", uni: []int{1, 2}}
	c := newTestController(t, t.TempDir(), out)

	c.Blackout()

	payloads := out.payloads()
	require.Len(t, payloads, 2) // one zero frame per configured universe
	for _, p := range payloads {
		assert.Len(t, p, core.DMXChannels)
		for _, v := range p {
			assert.Zero(t, v)
		}
	}
}

func TestHighlight(t *testing.T) {
	out := &memSender{name: "out", uni: []int{1}}
	c := newTestController(t, t.TempDir(), out)

	require.NoError(t, c.Highlight(1, 4, 2))

	payloads := out.payloads()
	require.Len(t, payloads, 4) // on/off per blink
	assert.EqualValues(t, 0xff, payloads[0][4])
	assert.EqualValues(t, 0, payloads[1][4])

	assert.Error(t, c.Highlight(1, core.DMXChannels, 1))
}

func TestHighlight_RefusedWhilePlaying(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(t, dir, &memSender{name: "out", uni: []int{1}})
	writeRecording(t, dir, "show", 4)
	require.NoError(t, c.Play("show"))

	err := c.Highlight(1, 0, 1)
	assert.ErrorIs(t, err, core.ErrPlaybackActive)
}

func TestWatchdog_FiresOnceWhenIdle(t *testing.T) {
	out := &memSender{name: "out", uni: []int{1}}
	c := newTestController(t, t.TempDir(), out)

	w := NewWatchdog(c, 50*time.Millisecond)
	w.interval = 10 * time.Millisecond
	w.Start()
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(out.payloads()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, out.payloads())

	// One blackout, not a stream of them.
	count := len(out.payloads())
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, count, len(out.payloads()))
}

func TestStatusCounters(t *testing.T) {
	c := newTestController(t, t.TempDir(), &memSender{name: "out", uni: []int{1}})
	st := c.Status()
	assert.Equal(t, "idle", st.State)
	assert.True(t, st.Passthrough)
	assert.Equal(t, 40, st.Rate)
	assert.Zero(t, st.SendFailures)
}
