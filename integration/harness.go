//go:build integration

package integration

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"testing"

	"github.com/encodeous/netsim/core"
	"github.com/encodeous/netsim/state"
	"github.com/stretchr/testify/require"
)

// TopologyBuilder generates large topologies: every router gets a host LAN, and every link gets
// its own /24.
type TopologyBuilder struct {
	Protocol state.Protocol
	Cfg      state.TopologyCfg
	links    int
}

func NewTopologyBuilder(proto state.Protocol) *TopologyBuilder {
	return &TopologyBuilder{Protocol: proto}
}

func hwAddr(kind, a, b byte) string {
	return fmt.Sprintf("02:%02x:00:00:%02x:%02x", kind, a, b)
}

func RouterName(idx int) state.NodeId {
	return state.NodeId(fmt.Sprintf("r%d", idx))
}

func HostName(idx int) state.NodeId {
	return state.NodeId(fmt.Sprintf("h%d", idx))
}

// HostAddr is the address of the host on the LAN of router idx.
func HostAddr(idx int) netip.Addr {
	return netip.AddrFrom4([4]byte{10, 100, byte(idx), 10})
}

// AddRouters adds count routers, each with a LAN holding one host.
func (b *TopologyBuilder) AddRouters(count int) {
	for idx := range count {
		b.Cfg.Routers = append(b.Cfg.Routers, state.RouterCfg{
			Id:       RouterName(idx),
			RouterId: uint32(idx + 1),
			Protocol: b.Protocol,
			Interfaces: []state.InterfaceCfg{{
				Name: "lan",
				Addr: netip.PrefixFrom(netip.AddrFrom4([4]byte{10, 100, byte(idx), 1}), 24),
				Hw:   hwAddr(1, byte(idx), 0),
			}},
		})
		b.Cfg.Hosts = append(b.Cfg.Hosts, state.HostCfg{
			Id:      HostName(idx),
			Hw:      hwAddr(2, byte(idx), 0),
			Addr:    netip.PrefixFrom(HostAddr(idx), 24),
			Gateway: netip.AddrFrom4([4]byte{10, 100, byte(idx), 1}),
		})
		b.Cfg.Segments = append(b.Cfg.Segments, fmt.Sprintf("%s:lan, %s", RouterName(idx), HostName(idx)))
	}
}

// Link joins routers x and y with a point-to-point segment.
func (b *TopologyBuilder) Link(x, y int) {
	l := b.links
	b.links++
	itf := fmt.Sprintf("l%d", l)
	for i, r := range []int{x, y} {
		b.Cfg.Routers[r].Interfaces = append(b.Cfg.Routers[r].Interfaces, state.InterfaceCfg{
			Name: itf,
			Addr: netip.PrefixFrom(netip.AddrFrom4([4]byte{172, 16 + byte(l/256), byte(l), byte(i + 1)}), 24),
			Hw:   hwAddr(3, byte(l), byte(i)),
		})
	}
	b.Cfg.Segments = append(b.Cfg.Segments, fmt.Sprintf("%s:%s, %s:%s", RouterName(x), itf, RouterName(y), itf))
}

// Grid builds a w by h grid; router (x, y) has index y*w+x.
func Grid(proto state.Protocol, w, h int) *state.TopologyCfg {
	b := NewTopologyBuilder(proto)
	b.AddRouters(w * h)
	for y := range h {
		for x := range w {
			if x+1 < w {
				b.Link(y*w+x, y*w+x+1)
			}
			if y+1 < h {
				b.Link(y*w+x, (y+1)*w+x)
			}
		}
	}
	state.ExpandTopology(&b.Cfg)
	return &b.Cfg
}

// Ring builds n routers connected in a cycle.
func Ring(proto state.Protocol, n int) *state.TopologyCfg {
	b := NewTopologyBuilder(proto)
	b.AddRouters(n)
	for i := range n {
		b.Link(i, (i+1)%n)
	}
	state.ExpandTopology(&b.Cfg)
	return &b.Cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// RequireFullReachability checks that every router has a route to every subnet.
func RequireFullReachability(t *testing.T, n *core.Network) {
	t.Helper()
	for _, r := range n.Routers() {
		require.Empty(t, core.Unreachable(n, r), "router %s", r.Id)
	}
}

// RouteSet returns the routing table of r without insertion ranks.
func RouteSet(r *core.Router) []string {
	return strings.Split(r.StringRoutes(), "\n")
}
