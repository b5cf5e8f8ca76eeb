package core

import (
	"container/heap"
	"math"
	"net/netip"
	"slices"

	"github.com/encodeous/netsim/state"
)

// lsGraph is an undirected cost graph over router ids.
type lsGraph map[state.RouterId]map[state.RouterId]uint32

// setEdge records a bidirectional edge, keeping the cheapest cost seen.
func (g lsGraph) setEdge(a, b state.RouterId, cost uint32) {
	if a == b {
		return
	}
	for _, p := range [][2]state.RouterId{{a, b}, {b, a}} {
		adj, ok := g[p[0]]
		if !ok {
			adj = make(map[state.RouterId]uint32)
			g[p[0]] = adj
		}
		if old, ok := adj[p[1]]; !ok || cost < old {
			adj[p[1]] = cost
		}
	}
}

// buildGraph derives the cost graph from a set of advertisements. Router links are taken as
// advertised. Two routers advertising the same network are joined by an edge costing the sum of
// their two network link costs. When several links join the same pair the cheapest one wins.
func buildGraph(lsas []*state.LSA) lsGraph {
	g := make(lsGraph)
	type member struct {
		origin state.RouterId
		cost   uint32
	}
	networks := make(map[netip.Prefix][]member)
	prefixes := make([]netip.Prefix, 0)
	for _, lsa := range lsas {
		if _, ok := g[lsa.Origin]; !ok {
			g[lsa.Origin] = make(map[state.RouterId]uint32)
		}
		for _, link := range lsa.Links {
			switch link.Kind {
			case state.LinkRouter:
				g.setEdge(lsa.Origin, link.Neighbor, link.Cost)
			case state.LinkNetwork:
				p := link.Network.Masked()
				if _, ok := networks[p]; !ok {
					prefixes = append(prefixes, p)
				}
				networks[p] = append(networks[p], member{lsa.Origin, link.Cost})
			}
		}
	}
	for _, p := range prefixes {
		members := networks[p]
		for i := range members {
			for j := i + 1; j < len(members); j++ {
				g.setEdge(members[i].origin, members[j].origin, AddMetric(members[i].cost, members[j].cost, math.MaxUint32))
			}
		}
	}
	return g
}

type spfItem struct {
	id   state.RouterId
	dist uint32
}

// spfQueue orders the frontier by distance, then by the lowest router id.
type spfQueue []spfItem

func (q spfQueue) Len() int { return len(q) }
func (q spfQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}
func (q spfQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *spfQueue) Push(x any)   { *q = append(*q, x.(spfItem)) }
func (q *spfQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// SPFResult is the shortest path tree rooted at Source.
type SPFResult struct {
	Source state.RouterId
	Dist   map[state.RouterId]uint32
	Prev   map[state.RouterId]state.RouterId
	// FirstHop is the neighbour of Source on the path to each reachable router
	FirstHop map[state.RouterId]state.RouterId
	// Order lists the routers in the order they were settled
	Order []state.RouterId
}

// shortestPaths runs Dijkstra from src. Among frontier routers at equal distance the lowest id is
// settled first, and a relaxation that only ties the known distance keeps the existing
// predecessor, so the tree is fully determined by the graph.
func shortestPaths(g lsGraph, src state.RouterId) *SPFResult {
	res := &SPFResult{
		Source:   src,
		Dist:     map[state.RouterId]uint32{src: 0},
		Prev:     make(map[state.RouterId]state.RouterId),
		FirstHop: make(map[state.RouterId]state.RouterId),
		Order:    make([]state.RouterId, 0, len(g)),
	}
	done := make(map[state.RouterId]struct{})
	q := &spfQueue{{id: src, dist: 0}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(spfItem)
		if _, ok := done[cur.id]; ok {
			continue
		}
		done[cur.id] = struct{}{}
		res.Order = append(res.Order, cur.id)
		if prev, ok := res.Prev[cur.id]; ok {
			if prev == src {
				res.FirstHop[cur.id] = cur.id
			} else {
				res.FirstHop[cur.id] = res.FirstHop[prev]
			}
		}

		neighs := make([]state.RouterId, 0, len(g[cur.id]))
		for n := range g[cur.id] {
			neighs = append(neighs, n)
		}
		slices.Sort(neighs)
		for _, n := range neighs {
			if _, ok := done[n]; ok {
				continue
			}
			alt := AddMetric(cur.dist, g[cur.id][n], math.MaxUint32)
			if old, ok := res.Dist[n]; !ok || alt < old {
				res.Dist[n] = alt
				res.Prev[n] = cur.id
				heap.Push(q, spfItem{id: n, dist: alt})
			}
		}
	}
	return res
}

// Cost returns the path cost to id.
func (r *SPFResult) Cost(id state.RouterId) (uint32, bool) {
	d, ok := r.Dist[id]
	return d, ok
}

// Path returns the routers from Source to id, both included, or nil if id is unreachable.
func (r *SPFResult) Path(id state.RouterId) []state.RouterId {
	if _, ok := r.Dist[id]; !ok {
		return nil
	}
	path := []state.RouterId{id}
	for id != r.Source {
		id = r.Prev[id]
		path = append(path, id)
	}
	slices.Reverse(path)
	return path
}
