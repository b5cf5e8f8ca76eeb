package state

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/cespare/xxhash/v2"
	"go4.org/netipx"
)

// NodeId is the name of a device in the topology.
type NodeId string

// RouterId is the protocol-level identity of a router.
type RouterId uint32

func (id RouterId) String() string {
	return netip.AddrFrom4([4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}).String()
}

// MakeRouterId derives a RouterId from a device name: the low 32 bits of xxhash64(name).
// The result only depends on the bytes of the name.
func MakeRouterId(name NodeId) RouterId {
	return RouterId(uint32(xxhash.Sum64String(string(name))))
}

// Interface is a router port with its local address.
type Interface struct {
	Name   string
	Addr   netip.Prefix // local address with the subnet length, e.g. 10.0.0.1/24
	HwAddr net.HardwareAddr
}

// Network returns the subnet the interface is attached to.
func (i Interface) Network() netip.Prefix {
	return i.Addr.Masked()
}

func (i Interface) String() string {
	return fmt.Sprintf("%s %s %s", i.Name, i.Addr, i.HwAddr)
}

func AddrToPrefix(addr netip.Addr) netip.Prefix {
	res, err := addr.Prefix(addr.BitLen())
	if err != nil {
		panic(err)
	}
	return res
}

// Netmask renders the dotted mask of a prefix, e.g. 255.255.255.0 for a /24.
func Netmask(p netip.Prefix) string {
	ipn := netipx.PrefixIPNet(p.Masked())
	if ipn == nil {
		return ""
	}
	return net.IP(ipn.Mask).String()
}

// SameSubnet reports whether b lies in the subnet of a.
func SameSubnet(a netip.Prefix, b netip.Addr) bool {
	return a.Masked().Contains(b)
}

// ParseHwAddr parses a link address, failing on anything but 48-bit MACs.
func ParseHwAddr(s string) (net.HardwareAddr, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil, err
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("%s is not a 48-bit link address", s)
	}
	return hw, nil
}

func MustParseHwAddr(s string) net.HardwareAddr {
	hw, err := ParseHwAddr(s)
	if err != nil {
		panic(err)
	}
	return hw
}
