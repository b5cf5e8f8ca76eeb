package core

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"slices"

	"github.com/encodeous/netsim/state"
)

// Host is an end device: one address, an optional default gateway and no routing table.
type Host struct {
	Id      state.NodeId
	HwAddr  net.HardwareAddr
	Addr    netip.Prefix
	Gateway netip.Addr
	ARP     *AddressResolver

	inbox []*state.Packet
	log   *slog.Logger
}

func NewHost(id state.NodeId, hw net.HardwareAddr, addr netip.Prefix, gateway netip.Addr, arp *AddressResolver, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	if arp == nil {
		arp = NewAddressResolver(0)
	}
	return &Host{
		Id:      id,
		HwAddr:  hw,
		Addr:    addr,
		Gateway: gateway,
		ARP:     arp,
		log:     log.With("host", id),
	}
}

func (h *Host) Name() state.NodeId {
	return h.Id
}

func (h *Host) String() string {
	return fmt.Sprintf("%s %s %s", h.Id, h.Addr, h.HwAddr)
}

func (h *Host) HwAddrOf(addr netip.Addr) (net.HardwareAddr, bool) {
	if h.Addr.Addr() == addr {
		return h.HwAddr, true
	}
	return nil, false
}

// Receive accepts packets addressed to the host and discards everything else.
func (h *Host) Receive(pkt *state.Packet) bool {
	if pkt.Dst != h.Addr.Addr() {
		h.log.Debug("discarding packet not addressed to me", "packet", pkt)
		return false
	}
	h.log.Debug("received packet", "packet", pkt, "payload", string(pkt.Payload))
	h.inbox = append(h.inbox, pkt)
	return true
}

func (h *Host) Inbox() []*state.Packet {
	return slices.Clone(h.inbox)
}

// Send builds a packet with the default TTL and sends it.
func (h *Host) Send(dst netip.Addr, payload []byte, reg Registry) (*Trace, error) {
	return h.SendPacket(state.NewPacket(h.Addr.Addr(), dst, payload, state.DefaultTTL), reg)
}

// SendPacket delivers pkt on the local subnet, or hands it to the default gateway.
func (h *Host) SendPacket(pkt *state.Packet, reg Registry) (*Trace, error) {
	trace := NewTrace(pkt)
	if state.SameSubnet(h.Addr, pkt.Dst) {
		if _, ok := h.ARP.Resolve(pkt.Dst, reg); ok {
			if dev, ok := Locate(reg, pkt.Dst); ok {
				if recv, ok := dev.(Receiver); ok && recv.Receive(pkt) {
					trace.deliver(dev.Name())
					return trace, nil
				}
			}
		}
		return trace, state.Drop(h.Id, pkt, state.ErrHostUnreachable)
	}

	if !h.Gateway.IsValid() {
		return trace, state.Drop(h.Id, pkt, state.ErrNoDefaultGateway)
	}
	gw, ok := Locate(reg, h.Gateway)
	if !ok {
		return trace, state.Drop(h.Id, pkt, state.ErrGatewayUnreachable)
	}
	fwd, ok := gw.(Forwardable)
	if !ok {
		return trace, state.Drop(h.Id, pkt, state.ErrGatewayCannotForward)
	}
	hw, _ := h.ARP.Resolve(h.Gateway, reg)
	h.log.Debug("sending packet to gateway", "gateway", h.Gateway, "hw", hw, "packet", pkt)
	return trace, fwd.Forward(pkt, trace)
}
