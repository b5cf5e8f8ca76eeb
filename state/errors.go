package state

import (
	"errors"
	"fmt"
)

// Reasons a packet is dropped. Callers match them with errors.Is.
var (
	ErrTTLExpired           = errors.New("ttl expired")
	ErrNoRouteFound         = errors.New("no route found")
	ErrHostUnreachable      = errors.New("host unreachable")
	ErrNextHopUnreachable   = errors.New("next hop not directly connected")
	ErrNextHopCannotForward = errors.New("next hop cannot forward packets")
	ErrNoDefaultGateway     = errors.New("no default gateway configured")
	ErrGatewayUnreachable   = errors.New("gateway not found")
	ErrGatewayCannotForward = errors.New("gateway cannot forward packets")
)

// ErrStaleLSA is returned by the link-state database for an advertisement that is not newer than
// the stored one. It never reaches packet senders.
var ErrStaleLSA = errors.New("stale lsa")

// DropError reports where and why a packet was discarded.
type DropError struct {
	Reason error
	At     NodeId
	Packet *Packet
}

func (e *DropError) Error() string {
	if e.Packet == nil {
		return fmt.Sprintf("dropped at %s: %s", e.At, e.Reason)
	}
	return fmt.Sprintf("dropped at %s: %s (%s -> %s, ttl %d)", e.At, e.Reason, e.Packet.Src, e.Packet.Dst, e.Packet.TTL)
}

func (e *DropError) Unwrap() error {
	return e.Reason
}

func Drop(at NodeId, pkt *Packet, reason error) error {
	return &DropError{
		Reason: reason,
		At:     at,
		Packet: pkt,
	}
}
