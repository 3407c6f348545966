// Package eventbus fans inbound DMX packets out to their subscribers (the
// recorder and the passthrough router). Events are partitioned by address
// via a consistent hash ring, so packets for one address are always handled
// in arrival order while distinct addresses may proceed in parallel.
package eventbus

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/serialx/hashring"
	"go.uber.org/atomic"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/log"
)

// Event is one inbound packet on its way through the bus.
type Event struct {
	Key    string // partition key, the packet's address
	Packet artnet.InboundPacket
}

// Handler consumes events. Handlers run on the partition goroutine and must
// not block on I/O beyond transmit cost.
type Handler func(*Event)

// Stats is a point-in-time snapshot of bus counters.
type Stats struct {
	Published int64
	Processed int64
	Dropped   int64
	Queued    []int
}

// Bus is the in-memory partitioned event bus.
type Bus struct {
	partitions []*partition
	nodes      []string
	ring       *hashring.HashRing
	queueSize  int

	mu       sync.RWMutex
	handlers []Handler
	closed   atomic.Bool

	published atomic.Int64
	processed atomic.Int64
	dropped   atomic.Int64
}

type partition struct {
	id    int
	queue chan *Event
	done  chan struct{}
}

// New creates a bus with the given partition count and per-partition queue
// depth.
func New(partitions, queueSize int) *Bus {
	if partitions < 1 {
		partitions = 1
	}
	if queueSize < 1 {
		queueSize = 256
	}
	b := &Bus{
		partitions: make([]*partition, partitions),
		nodes:      make([]string, partitions),
		queueSize:  queueSize,
	}
	for i := 0; i < partitions; i++ {
		b.nodes[i] = "partition-" + strconv.Itoa(i)
	}
	b.ring = hashring.New(b.nodes)
	for i := 0; i < partitions; i++ {
		b.partitions[i] = &partition{
			id:    i,
			queue: make(chan *Event, queueSize),
			done:  make(chan struct{}),
		}
		go b.run(b.partitions[i])
	}
	return b
}

// Subscribe registers a handler for every published event. Subscribers are
// expected to be wired up before traffic starts.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
	log.GetLogger().WithField("subscriber", name).Debug("event bus subscriber attached")
}

// Publish enqueues an event on its partition. The queue never blocks the
// caller: a full partition drops the event and counts it.
func (b *Bus) Publish(ev *Event) error {
	if b.closed.Load() {
		return fmt.Errorf("eventbus: closed")
	}
	p := b.partitions[b.partitionFor(ev.Key)]
	select {
	case p.queue <- ev:
		b.published.Inc()
		return nil
	default:
		b.dropped.Inc()
		return fmt.Errorf("eventbus: partition %d queue full", p.id)
	}
}

func (b *Bus) run(p *partition) {
	defer close(p.done)
	for ev := range p.queue {
		b.mu.RLock()
		handlers := b.handlers
		b.mu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
		b.processed.Inc()
	}
}

func (b *Bus) partitionFor(key string) int {
	node, ok := b.ring.GetNode(key)
	if !ok {
		return 0
	}
	for i, n := range b.nodes {
		if n == node {
			return i
		}
	}
	return 0
}

// GetStats snapshots the bus counters.
func (b *Bus) GetStats() *Stats {
	s := &Stats{
		Published: b.published.Load(),
		Processed: b.processed.Load(),
		Dropped:   b.dropped.Load(),
		Queued:    make([]int, len(b.partitions)),
	}
	for i, p := range b.partitions {
		s.Queued[i] = len(p.queue)
	}
	return s
}

// Close stops the partitions after draining their queues.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, p := range b.partitions {
		close(p.queue)
	}
	for _, p := range b.partitions {
		<-p.done
	}
	return nil
}
