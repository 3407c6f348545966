package router

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/eventbus"
)

type stubSender struct {
	name string
	uni  int
	fail bool

	mu   sync.Mutex
	sent int
}

func (s *stubSender) Name() string                { return s.name }
func (s *stubSender) Handles(a core.Address) bool { return a == core.AddressForUniverse(s.uni) }
func (s *stubSender) Addresses() []core.Address   { return []core.Address{core.AddressForUniverse(s.uni)} }
func (s *stubSender) Close() error                { return nil }

func (s *stubSender) Send(a core.Address, data []byte) error {
	if s.fail {
		return errors.New("down")
	}
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func inbound(universe int) *eventbus.Event {
	addr := core.AddressForUniverse(universe)
	return &eventbus.Event{
		Key:    addr.String(),
		Packet: artnet.InboundPacket{Address: addr, Data: []byte{1, 2, 3}, ArrivedAt: time.Now()},
	}
}

func TestPassthrough_ForwardsToMatchingOutputs(t *testing.T) {
	a := &stubSender{name: "a", uni: 5}
	b := &stubSender{name: "b", uni: 5}
	c := &stubSender{name: "c", uni: 6}
	p := New([]artnet.Sender{a, b, c}, func() bool { return false }, true)

	p.HandleEvent(inbound(5))

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 0, c.count())
	assert.Equal(t, int64(1), p.Forwarded())
}

func TestPassthrough_SuppressedWhilePlaying(t *testing.T) {
	out := &stubSender{name: "out", uni: 1}
	p := New([]artnet.Sender{out}, func() bool { return true }, true)

	p.HandleEvent(inbound(1))

	assert.Equal(t, 0, out.count())
}

func TestPassthrough_DisabledByToggle(t *testing.T) {
	out := &stubSender{name: "out", uni: 1}
	p := New([]artnet.Sender{out}, func() bool { return false }, true)

	assert.False(t, p.Toggle())
	p.HandleEvent(inbound(1))
	assert.Equal(t, 0, out.count())

	assert.True(t, p.Toggle())
	p.HandleEvent(inbound(1))
	assert.Equal(t, 1, out.count())
}

func TestPassthrough_FailedOutputDoesNotBlockOthers(t *testing.T) {
	bad := &stubSender{name: "bad", uni: 1, fail: true}
	good := &stubSender{name: "good", uni: 1}
	p := New([]artnet.Sender{bad, good}, func() bool { return false }, true)

	p.HandleEvent(inbound(1))

	assert.Equal(t, 1, good.count())
	assert.Equal(t, int64(1), p.Failures())
	assert.Equal(t, int64(1), p.Forwarded())
}
