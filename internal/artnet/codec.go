// Package artnet implements the thin Art-Net transport adapter: an ArtDmx
// codec and UDP senders/receivers. Only the single opcode the recorder needs
// is implemented; full protocol conformance is out of scope.
package artnet

import (
	"encoding/binary"
	"fmt"

	"cueloop.dev/cueloop/internal/core"
)

const (
	// Port is the well-known Art-Net UDP port.
	Port = 6454

	// OpDmx is the ArtDmx opcode (little-endian on the wire).
	OpDmx = 0x5000

	// ProtocolVersion is the Art-Net 4 protocol revision.
	ProtocolVersion = 14

	headerLen = 18
)

// artNetID is the 8-byte packet magic including the trailing NUL.
var artNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

// EncodeDmx builds an ArtDmx packet for one address. data is the channel
// payload, at most core.DMXChannels bytes. seq cycles 1..255 per sender; 0
// disables sequence tracking on the receiver side.
func EncodeDmx(addr core.Address, seq uint8, data []byte) ([]byte, error) {
	if len(data) > core.DMXChannels {
		return nil, fmt.Errorf("artnet: payload %d exceeds %d channels", len(data), core.DMXChannels)
	}
	buf := make([]byte, headerLen+len(data))
	copy(buf, artNetID)
	binary.LittleEndian.PutUint16(buf[8:10], OpDmx)
	binary.BigEndian.PutUint16(buf[10:12], ProtocolVersion)
	buf[12] = seq
	buf[13] = 0 // physical input port, unused
	buf[14] = addr.SubNet<<4 | addr.SubUni&0x0f
	buf[15] = addr.Net
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(data)))
	copy(buf[headerLen:], data)
	return buf, nil
}

// DecodeDmx parses an ArtDmx packet. Non-DMX Art-Net opcodes (poll, reply,
// sync) return errNotDmx so the receiver can skip them silently; anything
// else malformed is an error the caller counts as a drop.
func DecodeDmx(buf []byte) (core.Address, uint8, []byte, error) {
	if len(buf) < headerLen {
		return core.Address{}, 0, nil, fmt.Errorf("artnet: packet too short (%d bytes)", len(buf))
	}
	if string(buf[:8]) != string(artNetID) {
		return core.Address{}, 0, nil, fmt.Errorf("artnet: bad packet id")
	}
	if op := binary.LittleEndian.Uint16(buf[8:10]); op != OpDmx {
		return core.Address{}, 0, nil, errNotDmx
	}
	addr := core.Address{
		Net:    buf[15],
		SubNet: buf[14] >> 4,
		SubUni: buf[14] & 0x0f,
	}
	length := int(binary.BigEndian.Uint16(buf[16:18]))
	if length > core.DMXChannels || headerLen+length > len(buf) {
		return core.Address{}, 0, nil, fmt.Errorf("artnet: declared length %d exceeds packet", length)
	}
	return addr, buf[12], buf[headerLen : headerLen+length], nil
}
