package recording

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop.dev/cueloop/internal/core"
)

func writeSample(t *testing.T, path string, packets []core.Packet) core.RecordingMetadata {
	t.Helper()
	meta := core.RecordingMetadata{Universes: []int{1, 2}}
	w, err := Create(path, meta)
	require.NoError(t, err)
	for _, p := range packets {
		require.NoError(t, w.AppendPacket(p))
	}
	require.NoError(t, w.Close())
	return meta
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show"+Ext)
	base := time.Unix(1700000000, 0).UTC()
	packets := []core.Packet{
		{Timestamp: base, Address: core.AddressForUniverse(1), Data: []byte{10, 20, 30}},
		{Timestamp: base.Add(50 * time.Millisecond), Address: core.AddressForUniverse(2), Data: []byte{40}},
		{Timestamp: base.Add(120 * time.Millisecond), Address: core.AddressForUniverse(1), Data: []byte{50}},
	}
	writeSample(t, path, packets)

	rec, report, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Packets)
	assert.Zero(t, report.Dropped)
	assert.False(t, report.Truncated)
	assert.NotEmpty(t, rec.Meta.ID)
	assert.Equal(t, []int{1, 2}, rec.Meta.Universes)
	require.Len(t, rec.Packets, 3)
	for i, p := range packets {
		assert.True(t, rec.Packets[i].Timestamp.Equal(p.Timestamp))
		assert.Equal(t, p.Address, rec.Packets[i].Address)
		assert.Equal(t, p.Data, rec.Packets[i].Data)
	}
}

func TestLoad_SortsByTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unsorted"+Ext)
	base := time.Unix(1700000000, 0).UTC()
	// On-disk order is not timestamp order.
	writeSample(t, path, []core.Packet{
		{Timestamp: base.Add(100 * time.Millisecond), Address: core.AddressForUniverse(1), Data: []byte{1}},
		{Timestamp: base, Address: core.AddressForUniverse(2), Data: []byte{2}},
		{Timestamp: base.Add(40 * time.Millisecond), Address: core.AddressForUniverse(3), Data: []byte{3}},
	})

	rec, _, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rec.Packets, 3)
	assert.Equal(t, 2, rec.Packets[0].Address.Universe())
	assert.Equal(t, 3, rec.Packets[1].Address.Universe())
	assert.Equal(t, 1, rec.Packets[2].Address.Universe())
}

func TestLoad_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn"+Ext)
	base := time.Unix(1700000000, 0).UTC()
	var packets []core.Packet
	for i := 0; i < 20; i++ {
		packets = append(packets, core.Packet{
			Timestamp: base.Add(time.Duration(i) * 25 * time.Millisecond),
			Address:   core.AddressForUniverse(i % 2),
			Data:      []byte{byte(i)},
		})
	}
	writeSample(t, path, packets)

	// Chop the tail off, as if the recorder was killed mid-write.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-40], 0o644))

	rec, report, err := Load(path)
	require.NoError(t, err)
	assert.True(t, report.Truncated)
	assert.Greater(t, len(rec.Packets), 0)
	assert.Less(t, len(rec.Packets), 20)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("not found", func(t *testing.T) {
		_, _, err := Load(filepath.Join(dir, "missing"+Ext))
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("wrong extension", func(t *testing.T) {
		_, _, err := Load(filepath.Join(dir, "show.json"))
		assert.ErrorIs(t, err, core.ErrInvalidFormat)
	})

	t.Run("bad magic", func(t *testing.T) {
		path := filepath.Join(dir, "fake"+Ext)
		require.NoError(t, os.WriteFile(path, []byte("NOTCUE00garbage"), 0o644))
		_, _, err := Load(path)
		assert.ErrorIs(t, err, core.ErrInvalidFormat)
	})

	t.Run("corrupt stream", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt"+Ext)
		require.NoError(t, os.WriteFile(path, append([]byte(Magic), []byte("not gzip at all")...), 0o644))
		_, _, err := Load(path)
		assert.ErrorIs(t, err, core.ErrCorruptRecording)
	})
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, filepath.Join(dir, "a"+Ext), nil)
	writeSample(t, filepath.Join(dir, "b"+Ext), nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	infos, err := List(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.Contains(t, []string{"a" + Ext, "b" + Ext}, info.Name)
		assert.Greater(t, info.Size, int64(0))
	}

	empty, err := List(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "/var/lib/cueloop/show"+Ext, Resolve("/var/lib/cueloop", "show"))
	assert.Equal(t, "/var/lib/cueloop/show"+Ext, Resolve("/var/lib/cueloop", "show"+Ext))
	assert.Equal(t, "/tmp/abs"+Ext, Resolve("/var/lib/cueloop", "/tmp/abs"+Ext))
}
