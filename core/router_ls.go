package core

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/encodeous/netsim/perf"
	"github.com/encodeous/netsim/state"
	"github.com/jellydator/ttlcache/v3"
)

// OSPF is the link-state instance of one router.
type OSPF struct {
	Params state.OSPFParams
	Id     state.RouterId
	Node   state.NodeId
	LSDB   *state.LSDB

	table *state.RoutingTable
	io    RouterIO
	// seen holds every (origin, seq) handled, so duplicates stop before the database is consulted
	seen       *ttlcache.Cache[state.LSAKey, struct{}]
	seq        uint32
	neighbours []Neighbour
	discover   func() []Neighbour
	networks   func() []netip.Prefix
	spf        *SPFResult
}

func NewOSPF(params state.OSPFParams, id state.RouterId, node state.NodeId, table *state.RoutingTable, io RouterIO, discover func() []Neighbour, networks func() []netip.Prefix) *OSPF {
	params = params.WithDefaults()
	return &OSPF{
		Params: params,
		Id:     id,
		Node:   node,
		LSDB:   state.NewLSDB(),
		table:  table,
		io:     io,
		seen: ttlcache.New[state.LSAKey, struct{}](
			ttlcache.WithTTL[state.LSAKey, struct{}](params.SeenTTL),
			ttlcache.WithDisableTouchOnHit[state.LSAKey, struct{}](),
		),
		discover: discover,
		networks: networks,
	}
}

// DiscoverNeighbours refreshes the set of attached link-state routers.
func (p *OSPF) DiscoverNeighbours() []Neighbour {
	p.neighbours = p.discover()
	return slices.Clone(p.neighbours)
}

func (p *OSPF) Neighbours() []Neighbour {
	return slices.Clone(p.neighbours)
}

// Originate builds a new advertisement of our networks and neighbours, installs it, floods it to
// every neighbour and recomputes routes.
func (p *OSPF) Originate() *state.LSA {
	p.seq++
	if old, ok := p.LSDB.Get(p.Id); ok && old.Seq >= p.seq {
		p.seq = old.Seq + 1
	}
	lsa := &state.LSA{
		Origin:     p.Id,
		OriginNode: p.Node,
		Seq:        p.seq,
		Links:      make([]state.LSALink, 0),
	}
	for _, network := range p.networks() {
		lsa.Links = append(lsa.Links, state.LSALink{
			Kind:    state.LinkNetwork,
			Network: network,
			Cost:    p.Params.InterfaceCost,
		})
	}
	for _, neigh := range p.neighbours {
		lsa.Links = append(lsa.Links, state.LSALink{
			Kind:     state.LinkRouter,
			Neighbor: neigh.RouterId,
			Cost:     neigh.Cost,
		})
	}
	_ = p.LSDB.Install(lsa)
	p.seen.Set(lsa.Key(), struct{}{}, ttlcache.DefaultTTL)
	p.io.Log(LSAOriginated, lsa.String())
	p.flood(lsa, "")
	p.ComputeRoutes()
	return lsa
}

func (p *OSPF) flood(lsa *state.LSA, except state.NodeId) {
	for _, neigh := range p.neighbours {
		if neigh.Id == except {
			continue
		}
		p.io.SendLSA(neigh.Id, lsa)
		perf.LSAsFlooded.Add(1)
	}
}

// HandleLSA processes an advertisement received from a neighbour. Advertisements that were already
// seen, or that are not newer than the stored one, return an error wrapping state.ErrStaleLSA and
// cause neither flooding nor recomputation.
func (p *OSPF) HandleLSA(lsa *state.LSA, from state.NodeId) error {
	key := lsa.Key()
	if p.seen.Has(key) {
		return fmt.Errorf("%w: %s seq %d already seen", state.ErrStaleLSA, lsa.Origin, lsa.Seq)
	}
	p.seen.Set(key, struct{}{}, ttlcache.DefaultTTL)
	if err := p.LSDB.Install(lsa); err != nil {
		return err
	}
	p.io.Log(LSAAccepted, lsa.String(), "from", from)
	p.flood(lsa, from)
	p.ComputeRoutes()
	return nil
}

// ComputeRoutes rebuilds every remote route from the current database. For each reachable
// originator, every network it advertises that is not directly connected here becomes a route
// through the first-hop neighbour, with the path cost to the originator as its metric. A network
// advertised by several originators goes to the closest, then to the lowest originator id.
func (p *OSPF) ComputeRoutes() {
	perf.SPFRuns.Add(1)
	lsas := p.LSDB.All()
	p.spf = shortestPaths(buildGraph(lsas), p.Id)

	type candidate struct {
		entry  state.RouteEntry
		origin state.RouterId
	}
	best := make(map[netip.Prefix]int)
	candidates := make([]candidate, 0)
	for _, lsa := range lsas {
		if lsa.Origin == p.Id {
			continue
		}
		dist, ok := p.spf.Cost(lsa.Origin)
		if !ok {
			continue
		}
		fh := p.spf.FirstHop[lsa.Origin]
		idx := slices.IndexFunc(p.neighbours, func(n Neighbour) bool {
			return n.RouterId == fh
		})
		if idx == -1 {
			p.io.Log(NeighbourNotOnPath, "first hop is not a neighbour", "origin", lsa.Origin, "first_hop", fh)
			continue
		}
		neigh := p.neighbours[idx]
		for _, link := range lsa.Networks() {
			prefix := link.Network.Masked()
			if e, ok := p.table.Get(prefix); ok && e.IsConnected() {
				continue
			}
			c := candidate{
				entry: state.RouteEntry{
					Prefix:    prefix,
					NextHop:   neigh.Id,
					Interface: neigh.Interface,
					Metric:    dist,
					Origin:    state.OriginOSPF,
				},
				origin: lsa.Origin,
			}
			if i, ok := best[prefix]; ok {
				cur := candidates[i]
				if c.entry.Metric < cur.entry.Metric ||
					(c.entry.Metric == cur.entry.Metric && c.origin < cur.origin) {
					candidates[i] = c
				}
				continue
			}
			best[prefix] = len(candidates)
			candidates = append(candidates, c)
		}
	}

	entries := make([]state.RouteEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, c.entry)
	}
	p.table.ReplaceRemote(entries)
	p.io.Log(RoutesComputed, fmt.Sprintf("%d remote routes", len(entries)), "lsdb", len(lsas))
}

// SPF returns the shortest path tree of the last computation.
func (p *OSPF) SPF() *SPFResult {
	return p.spf
}
