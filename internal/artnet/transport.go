package artnet

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/net/ipv4"

	"cueloop.dev/cueloop/internal/core"
	"cueloop.dev/cueloop/internal/log"
)

var errNotDmx = errors.New("artnet: not an ArtDmx packet")

// Sender transmits channel data toward one physical output node.
type Sender interface {
	// Name identifies the output in logs and status reports.
	Name() string
	// Handles reports whether this output is configured for the address.
	Handles(addr core.Address) bool
	// Addresses lists every port address the output carries.
	Addresses() []core.Address
	// Send encodes and transmits one payload. A failure affects only this
	// sender; callers continue with the remaining outputs.
	Send(addr core.Address, data []byte) error
	Close() error
}

// InboundPacket is one DMX payload received from the network.
type InboundPacket struct {
	Address   core.Address
	Data      []byte
	ArrivedAt time.Time
}

// UDPSender sends ArtDmx packets to a single destination node over UDP.
type UDPSender struct {
	name      string
	conn      *net.UDPConn
	universes map[core.Address]struct{}

	mu  sync.Mutex
	seq map[core.Address]uint8
}

// NewUDPSender dials the destination and registers the universes this output
// carries. dest may omit the port; the Art-Net port is assumed.
func NewUDPSender(name, dest string, universes []int) (*UDPSender, error) {
	if _, _, err := net.SplitHostPort(dest); err != nil {
		dest = net.JoinHostPort(dest, fmt.Sprint(Port))
	}
	raddr, err := net.ResolveUDPAddr("udp4", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve output %s: %w", name, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial output %s: %w", name, err)
	}
	s := &UDPSender{
		name:      name,
		conn:      conn,
		universes: make(map[core.Address]struct{}, len(universes)),
		seq:       make(map[core.Address]uint8),
	}
	for _, u := range universes {
		s.universes[core.AddressForUniverse(u)] = struct{}{}
	}
	return s, nil
}

func (s *UDPSender) Name() string { return s.name }

func (s *UDPSender) Handles(addr core.Address) bool {
	_, ok := s.universes[addr]
	return ok
}

func (s *UDPSender) Addresses() []core.Address {
	addrs := make([]core.Address, 0, len(s.universes))
	for a := range s.universes {
		addrs = append(addrs, a)
	}
	return addrs
}

func (s *UDPSender) Send(addr core.Address, data []byte) error {
	s.mu.Lock()
	seq := s.seq[addr] + 1
	if seq == 0 {
		seq = 1 // sequence 0 means "disabled", skip it when wrapping
	}
	s.seq[addr] = seq
	s.mu.Unlock()

	buf, err := EncodeDmx(addr, seq, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrTransport, s.name, err)
	}
	if _, err := s.conn.Write(buf); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrTransport, s.name, err)
	}
	return nil
}

func (s *UDPSender) Close() error { return s.conn.Close() }

// Receiver listens for inbound ArtDmx traffic and delivers it on a channel.
type Receiver struct {
	conn    *net.UDPConn
	packets chan InboundPacket
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewReceiver binds the inbound socket. When bind names a multicast group
// the socket joins it on the given interface (consoles that emit to
// sACN-style multicast groups), otherwise it listens on the address as-is.
func NewReceiver(bind string, ifaceName string) (*Receiver, error) {
	if bind == "" {
		bind = fmt.Sprintf(":%d", Port)
	}
	if _, _, err := net.SplitHostPort(bind); err != nil {
		bind = net.JoinHostPort(bind, fmt.Sprint(Port))
	}
	laddr, err := net.ResolveUDPAddr("udp4", bind)
	if err != nil {
		return nil, fmt.Errorf("resolve bind %s: %w", bind, err)
	}

	var conn *net.UDPConn
	if laddr.IP != nil && laddr.IP.IsMulticast() {
		group := laddr.IP
		conn, err = net.ListenUDP("udp4", &net.UDPAddr{Port: laddr.Port})
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", bind, err)
		}
		var iface *net.Interface
		if ifaceName != "" {
			if iface, err = net.InterfaceByName(ifaceName); err != nil {
				conn.Close()
				return nil, fmt.Errorf("interface %s: %w", ifaceName, err)
			}
		}
		if err := ipv4.NewPacketConn(conn).JoinGroup(iface, &net.UDPAddr{IP: group}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("join group %s: %w", group, err)
		}
	} else {
		conn, err = net.ListenUDP("udp4", laddr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", bind, err)
		}
	}

	r := &Receiver{
		conn:    conn,
		packets: make(chan InboundPacket, 256),
		done:    make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// Packets yields inbound DMX payloads. The channel closes when the receiver
// shuts down.
func (r *Receiver) Packets() <-chan InboundPacket { return r.packets }

// Dropped reports how many malformed or overflowed packets were discarded.
func (r *Receiver) Dropped() int64 { return r.dropped.Load() }

func (r *Receiver) readLoop() {
	defer close(r.packets)
	buf := make([]byte, 1024)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
			default:
				log.GetLogger().WithError(err).Error("artnet receiver read failed")
			}
			return
		}
		arrived := time.Now()
		addr, _, data, err := DecodeDmx(buf[:n])
		if err != nil {
			if !errors.Is(err, errNotDmx) {
				r.dropped.Inc()
			}
			continue
		}
		payload := make([]byte, len(data))
		copy(payload, data)
		select {
		case r.packets <- InboundPacket{Address: addr, Data: payload, ArrivedAt: arrived}:
		default:
			r.dropped.Inc()
		}
	}
}

func (r *Receiver) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.conn.Close()
	})
	return err
}
