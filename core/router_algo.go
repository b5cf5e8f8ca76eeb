package core

import (
	"fmt"
	"net/netip"

	"github.com/encodeous/netsim/state"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteImproved
	RouteRefreshed
	RouteMetricChanged
	RouteAged
	RouteExpired
	LSAOriginated
	LSAAccepted
	LSAStale
	RoutesComputed
	PacketForwarded
	PacketDelivered
)

// warn events

const (
	UnknownNeighbour RouterEvent = iota + 1000
	NeighbourNotOnPath
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "ROUTE_ADDED"
	case RouteImproved:
		return "ROUTE_IMPROVED"
	case RouteRefreshed:
		return "ROUTE_REFRESHED"
	case RouteMetricChanged:
		return "ROUTE_METRIC_CHANGED"
	case RouteAged:
		return "ROUTE_AGED"
	case RouteExpired:
		return "ROUTE_EXPIRED"
	case LSAOriginated:
		return "LSA_ORIGINATED"
	case LSAAccepted:
		return "LSA_ACCEPTED"
	case LSAStale:
		return "LSA_STALE"
	case RoutesComputed:
		return "ROUTES_COMPUTED"
	case PacketForwarded:
		return "PACKET_FORWARDED"
	case PacketDelivered:
		return "PACKET_DELIVERED"
	case UnknownNeighbour:
		return "UNKNOWN_NEIGHBOUR"
	case NeighbourNotOnPath:
		return "NEIGHBOUR_NOT_ON_PATH"
	}
	return fmt.Sprintf("EVENT(%d)", int(e))
}

// RIPUpdate advertises one table entry to a neighbour.
type RIPUpdate struct {
	Prefix netip.Prefix
	Metric uint32
}

// RouterIO is everything the routing protocols do outside of their own state. Routers implement it
// by posting messages to the network; tests use a harness that records the calls.
type RouterIO interface {
	SendUpdate(neigh state.NodeId, update RIPUpdate)
	SendLSA(neigh state.NodeId, lsa *state.LSA)
	Log(event RouterEvent, desc string, args ...any)
}

// Neighbour is a directly attached router as seen by a routing protocol.
type Neighbour struct {
	Id        state.NodeId
	RouterId  state.RouterId
	Interface string
	Cost      uint32
}

func (n Neighbour) String() string {
	return fmt.Sprintf("%s(%s) dev %s cost %d", n.Id, n.RouterId, n.Interface, n.Cost)
}
