package state

import (
	"fmt"
	"net/netip"

	"github.com/google/uuid"
)

type Packet struct {
	Id      uuid.UUID
	Src     netip.Addr
	Dst     netip.Addr
	Payload []byte
	// TTL is decremented once per router hop and never goes below zero.
	TTL uint8
}

// NewPacket builds a packet with a fresh id. ttl is clamped to MaxTTL.
func NewPacket(src, dst netip.Addr, payload []byte, ttl uint8) *Packet {
	return &Packet{
		Id:      uuid.New(),
		Src:     src,
		Dst:     dst,
		Payload: payload,
		TTL:     min(ttl, MaxTTL),
	}
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s -> %s ttl %d len %d", p.Src, p.Dst, p.TTL, len(p.Payload))
}
