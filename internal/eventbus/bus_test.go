package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/core"
)

func event(universe int, value byte) *Event {
	addr := core.AddressForUniverse(universe)
	return &Event{
		Key: addr.String(),
		Packet: artnet.InboundPacket{
			Address:   addr,
			Data:      []byte{value},
			ArrivedAt: time.Now(),
		},
	}
}

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	b := New(4, 16)

	var mu sync.Mutex
	got := map[string]int{}
	for _, name := range []string{"recorder", "passthrough"} {
		name := name
		b.Subscribe(name, func(ev *Event) {
			mu.Lock()
			got[name]++
			mu.Unlock()
		})
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(event(i%3, byte(i))))
	}
	require.NoError(t, b.Close())

	assert.Equal(t, 10, got["recorder"])
	assert.Equal(t, 10, got["passthrough"])

	stats := b.GetStats()
	assert.Equal(t, int64(10), stats.Published)
	assert.Equal(t, int64(10), stats.Processed)
	assert.Zero(t, stats.Dropped)
}

func TestBus_PerKeyOrdering(t *testing.T) {
	b := New(4, 64)

	var mu sync.Mutex
	seen := []byte{}
	b.Subscribe("order", func(ev *Event) {
		if ev.Packet.Address.Universe() != 5 {
			return
		}
		mu.Lock()
		seen = append(seen, ev.Packet.Data[0])
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		require.NoError(t, b.Publish(event(5, byte(i))))
	}
	require.NoError(t, b.Close())

	require.Len(t, seen, 20)
	for i, v := range seen {
		assert.Equal(t, byte(i), v)
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New(1, 1)
	block := make(chan struct{})
	b.Subscribe("slow", func(ev *Event) { <-block })

	// First event occupies the handler, second fills the queue, the rest drop.
	var errs int
	for i := 0; i < 10; i++ {
		if err := b.Publish(event(1, byte(i))); err != nil {
			errs++
		}
	}
	close(block)
	require.NoError(t, b.Close())

	assert.Greater(t, errs, 0)
	assert.Equal(t, int64(errs), b.GetStats().Dropped)
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New(1, 4)
	require.NoError(t, b.Close())
	assert.Error(t, b.Publish(event(1, 1)))
}
