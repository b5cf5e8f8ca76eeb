package core

import (
	"fmt"
	"strings"

	"github.com/encodeous/netsim/state"
)

// Hop is one router visited by a packet.
type Hop struct {
	Node state.NodeId
	// TTL after the router decremented it
	TTL   uint8
	Route string
}

// Trace records the path of a packet. A nil Trace records nothing.
type Trace struct {
	Packet      *state.Packet
	Hops        []Hop
	DeliveredTo state.NodeId
}

func NewTrace(pkt *state.Packet) *Trace {
	return &Trace{Packet: pkt, Hops: make([]Hop, 0)}
}

func (t *Trace) visit(node state.NodeId, ttl uint8) {
	if t == nil {
		return
	}
	t.Hops = append(t.Hops, Hop{Node: node, TTL: ttl})
}

func (t *Trace) via(route *state.RouteEntry) {
	if t == nil || len(t.Hops) == 0 {
		return
	}
	t.Hops[len(t.Hops)-1].Route = route.String()
}

func (t *Trace) deliver(node state.NodeId) {
	if t == nil {
		return
	}
	t.DeliveredTo = node
}

// Path returns the routers the packet went through, in order.
func (t *Trace) Path() []state.NodeId {
	res := make([]state.NodeId, 0, len(t.Hops))
	for _, h := range t.Hops {
		res = append(res, h.Node)
	}
	return res
}

func (t *Trace) Delivered() bool {
	return t.DeliveredTo != ""
}

func (t *Trace) String() string {
	parts := make([]string, 0, len(t.Hops)+1)
	for _, h := range t.Hops {
		parts = append(parts, fmt.Sprintf("%s (ttl %d)", h.Node, h.TTL))
	}
	if t.Delivered() {
		parts = append(parts, string(t.DeliveredTo))
	} else {
		parts = append(parts, "*")
	}
	return strings.Join(parts, " -> ")
}

// Forward runs one forwarding step on the router and recurses into the next hop. The TTL bounds
// the recursion. Drops are returned as *state.DropError.
func (r *Router) Forward(pkt *state.Packet, trace *Trace) error {
	if pkt.TTL == 0 {
		return state.Drop(r.Id, pkt, state.ErrTTLExpired)
	}
	pkt.TTL--
	trace.visit(r.Id, pkt.TTL)

	if r.Receive(pkt) {
		trace.deliver(r.Id)
		r.Log(PacketDelivered, pkt.String())
		return nil
	}

	route := r.Table.Lookup(pkt.Dst)
	if route == nil {
		return state.Drop(r.Id, pkt, state.ErrNoRouteFound)
	}
	trace.via(route)

	if route.IsConnected() {
		segment := r.Attached(route.Interface)
		if _, ok := r.ARP.Resolve(pkt.Dst, segment); ok {
			if dev, ok := Locate(segment, pkt.Dst); ok {
				if recv, ok := dev.(Receiver); ok && recv.Receive(pkt) {
					trace.deliver(dev.Name())
					r.Log(PacketDelivered, pkt.String(), "to", dev.Name())
					return nil
				}
			}
		}
		return state.Drop(r.Id, pkt, state.ErrHostUnreachable)
	}

	next, itf := r.neighbour(route.NextHop, route.Interface)
	if next == nil {
		return state.Drop(r.Id, pkt, state.ErrNextHopUnreachable)
	}
	fwd, ok := next.(Forwardable)
	if !ok {
		return state.Drop(r.Id, pkt, state.ErrNextHopCannotForward)
	}
	r.Log(PacketForwarded, pkt.String(), "next_hop", next.Name(), "dev", itf)
	return fwd.Forward(pkt, trace)
}
