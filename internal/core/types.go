// Package core defines core data structures with zero external dependencies.
package core

import (
	"sort"
	"strconv"
	"time"
)

// DMXChannels is the channel count of one full universe payload.
const DMXChannels = 512

// Address identifies an Art-Net port address as the (net, sub-net, universe)
// triple carried on the wire.
type Address struct {
	Net    uint8 `json:"net"`
	SubNet uint8 `json:"subnet"`
	SubUni uint8 `json:"universe"`
}

// AddressForUniverse maps a logical universe number to its port address.
// Sixteen universes share one sub-net; the net stays fixed at 0, which caps
// the addressable range at 256 logical universes.
func AddressForUniverse(u int) Address {
	return Address{
		Net:    0,
		SubNet: uint8(u / 16),
		SubUni: uint8(u % 16),
	}
}

// Universe returns the logical universe number of the address.
func (a Address) Universe() int {
	return int(a.SubNet)*16 + int(a.SubUni)
}

// String renders the address as net:subnet:universe, used as log field and
// partition key.
func (a Address) String() string {
	return strconv.Itoa(int(a.Net)) + ":" + strconv.Itoa(int(a.SubNet)) + ":" + strconv.Itoa(int(a.SubUni))
}

// Packet is one captured DMX payload for a single address. Immutable once
// captured; Data holds at most DMXChannels bytes.
type Packet struct {
	Timestamp time.Time `json:"ts"`
	Address   Address   `json:"addr"`
	Data      []byte    `json:"data"`
}

// RecordingMetadata is written once, ahead of all packets.
type RecordingMetadata struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Universes []int     `json:"universes"`
}

// Recording is a fully loaded capture: metadata plus the packet sequence.
// After load the packets are sorted non-decreasing by timestamp regardless
// of on-disk order.
type Recording struct {
	Meta    RecordingMetadata
	Packets []Packet
}

// SortPackets orders the packet slice by timestamp. The sort is stable so
// packets sharing a timestamp keep their original arrival order.
func SortPackets(packets []Packet) {
	sort.SliceStable(packets, func(i, j int) bool {
		return packets[i].Timestamp.Before(packets[j].Timestamp)
	})
}

// Frame is one playback tick's worth of packets, one per distinct address
// active in the recording.
type Frame struct {
	Packets []Packet
}
