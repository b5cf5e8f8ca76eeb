package core

import (
	"net"
	"net/netip"

	"github.com/encodeous/netsim/state"
)

// Device is anything that can be placed in the topology.
type Device interface {
	Name() state.NodeId
}

// Addressable devices own one or more addresses and answer link-address queries for them.
type Addressable interface {
	Device
	HwAddrOf(addr netip.Addr) (net.HardwareAddr, bool)
}

// Forwardable devices route packets onwards.
type Forwardable interface {
	Device
	Forward(pkt *state.Packet, trace *Trace) error
}

// Receiver devices consume packets addressed to them.
type Receiver interface {
	Device
	Receive(pkt *state.Packet) bool
}

// LinkStateCapable devices take part in link-state flooding when enabled is true.
type LinkStateCapable interface {
	Device
	LinkStateId() (id state.RouterId, enabled bool)
}

// Registry enumerates every device currently registered.
type Registry interface {
	Devices() []Device
}

// Devices is a fixed set of devices, e.g. the ones attached to one interface.
type Devices []Device

func (d Devices) Devices() []Device {
	return d
}

// Locate returns the device of reg owning addr.
func Locate(reg Registry, addr netip.Addr) (Addressable, bool) {
	for _, dev := range reg.Devices() {
		if a, ok := dev.(Addressable); ok {
			if _, owned := a.HwAddrOf(addr); owned {
				return a, true
			}
		}
	}
	return nil, false
}

// findDevice returns the device of reg with the given name.
func findDevice(reg Registry, name state.NodeId) Device {
	for _, dev := range reg.Devices() {
		if dev.Name() == name {
			return dev
		}
	}
	return nil
}
