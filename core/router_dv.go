package core

import (
	"net/netip"
	"time"

	"github.com/encodeous/netsim/perf"
	"github.com/encodeous/netsim/state"
)

// RIP is the distance-vector instance of one router. It only touches its own routing table;
// everything else goes through RouterIO.
type RIP struct {
	Params state.RIPParams
	table  *state.RoutingTable
	io     RouterIO
	clock  state.Clock
	// neighbours lists the attached router-capable devices
	neighbours func() []Neighbour
	up         func(itf string) bool
}

func NewRIP(params state.RIPParams, table *state.RoutingTable, io RouterIO, clock state.Clock, neighbours func() []Neighbour, up func(itf string) bool) *RIP {
	return &RIP{
		Params:     params.WithDefaults(),
		table:      table,
		io:         io,
		clock:      clock,
		neighbours: neighbours,
		up:         up,
	}
}

// Advertise sends every table entry to every neighbour. Entries learned through a neighbour are
// sent back to it with an infinite metric, as are entries that timed out. Subnets of interfaces
// that are down are not advertised at all.
func (p *RIP) Advertise() {
	inf := p.Params.Infinity
	for _, neigh := range p.neighbours() {
		for _, e := range p.table.Entries() {
			if e.IsConnected() && !p.up(e.Interface) {
				continue
			}
			metric := e.Metric
			if e.NextHop == neigh.Id || e.Unreachable {
				metric = inf
			}
			p.io.SendUpdate(neigh.Id, RIPUpdate{Prefix: e.Prefix, Metric: min(metric, inf)})
			perf.RIPUpdates.Add(1)
		}
	}
}

func (p *RIP) neighbour(id state.NodeId) (Neighbour, bool) {
	for _, neigh := range p.neighbours() {
		if neigh.Id == id {
			return neigh, true
		}
	}
	return Neighbour{}, false
}

// HandleUpdate processes an advertisement of prefix at metric from a neighbour.
func (p *RIP) HandleUpdate(from state.NodeId, prefix netip.Prefix, metric uint32) {
	inf := p.Params.Infinity
	if metric >= inf {
		return
	}
	neigh, ok := p.neighbour(from)
	if !ok {
		p.io.Log(UnknownNeighbour, "ignoring update from a device that is not attached", "from", from, "prefix", prefix)
		return
	}
	candidate := AddMetric(metric, 1, inf)
	now := p.clock.Now()
	learned := state.RouteEntry{
		Prefix:    prefix,
		NextHop:   from,
		Interface: neigh.Interface,
		Metric:    candidate,
		Origin:    state.OriginRIP,
		Updated:   now,
		// metric inf-1 plus the hop to the neighbour
		Unreachable: candidate >= inf,
	}

	existing, ok := p.table.Get(prefix)
	switch {
	case !ok:
		e := p.table.AddOrReplace(learned)
		p.io.Log(RouteAdded, e.String())
	case candidate < existing.Metric:
		e := p.table.AddOrReplace(learned)
		p.io.Log(RouteImproved, e.String(), "old", existing.Metric)
	case existing.Origin == state.OriginRIP && existing.NextHop == from:
		// the current next hop is authoritative for the route, even when it got worse
		existing.Updated = now
		if candidate != existing.Metric {
			old := existing.Metric
			existing.Metric = candidate
			existing.Unreachable = candidate >= inf
			p.io.Log(RouteMetricChanged, existing.String(), "old", old)
		} else {
			p.io.Log(RouteRefreshed, existing.String())
		}
	}
}

// Age marks routes learned by RIP that were not refreshed for RouteTimeout as unreachable, and
// removes them after a further GarbageCollect. Connected and static routes never age.
func (p *RIP) Age(now time.Time) {
	for _, e := range p.table.Entries() {
		if e.Origin != state.OriginRIP {
			continue
		}
		elapsed := now.Sub(e.Updated)
		if elapsed >= p.Params.RouteTimeout+p.Params.GarbageCollect {
			p.table.Remove(e.Prefix)
			p.io.Log(RouteExpired, e.String(), "elapsed", elapsed)
		} else if elapsed >= p.Params.RouteTimeout && !e.Unreachable {
			e.Unreachable = true
			e.Metric = p.Params.Infinity
			p.io.Log(RouteAged, e.String(), "elapsed", elapsed)
		}
	}
}
