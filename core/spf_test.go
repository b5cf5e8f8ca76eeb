package core

import (
	"fmt"
	"testing"

	"github.com/encodeous/netsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routerLink(neigh state.RouterId, cost uint32) state.LSALink {
	return state.LSALink{Kind: state.LinkRouter, Neighbor: neigh, Cost: cost}
}

func networkLink(prefix string, cost uint32) state.LSALink {
	return state.LSALink{Kind: state.LinkNetwork, Network: pfx(prefix), Cost: cost}
}

func mkLSA(origin state.RouterId, seq uint32, links ...state.LSALink) *state.LSA {
	return &state.LSA{
		Origin:     origin,
		OriginNode: state.NodeId(fmt.Sprintf("r%d", origin)),
		Seq:        seq,
		Links:      links,
	}
}

// ringLSAs describes
//
//	1 --- 2
//	|     |
//	3 --- 4
func ringLSAs() []*state.LSA {
	return []*state.LSA{
		mkLSA(1, 1, routerLink(2, 1), routerLink(3, 1), networkLink("10.1.1.0/24", 1)),
		mkLSA(2, 1, routerLink(1, 1), routerLink(4, 1), networkLink("10.1.2.0/24", 1)),
		mkLSA(3, 1, routerLink(1, 1), routerLink(4, 1), networkLink("10.1.3.0/24", 1)),
		mkLSA(4, 1, routerLink(2, 1), routerLink(3, 1), networkLink("10.1.4.0/24", 1)),
	}
}

func TestShortestPathsRing(t *testing.T) {
	res := shortestPaths(buildGraph(ringLSAs()), 1)

	cost, ok := res.Cost(4)
	require.True(t, ok)
	assert.Equal(t, uint32(2), cost)
	// both first hops cost the same, the lower id is settled first and keeps the tie
	assert.Equal(t, state.RouterId(2), res.FirstHop[4])
	assert.Equal(t, []state.RouterId{1, 2, 4}, res.Path(4))
	assert.Equal(t, []state.RouterId{1, 2, 3, 4}, res.Order)
	assert.Equal(t, state.RouterId(3), res.FirstHop[3])
	assert.Equal(t, []state.RouterId{1}, res.Path(1))
}

func TestShortestPathsLowestIdFirst(t *testing.T) {
	g := make(lsGraph)
	g.setEdge(10, 30, 1)
	g.setEdge(10, 20, 1)
	g.setEdge(30, 40, 1)
	g.setEdge(20, 40, 1)

	res := shortestPaths(g, 10)
	assert.Equal(t, []state.RouterId{10, 20, 30, 40}, res.Order)
	assert.Equal(t, state.RouterId(20), res.Prev[40])
	assert.Equal(t, state.RouterId(20), res.FirstHop[40])
}

func TestShortestPathsPrefersCheaper(t *testing.T) {
	g := make(lsGraph)
	g.setEdge(1, 2, 1)
	g.setEdge(2, 3, 1)
	g.setEdge(1, 3, 5)

	res := shortestPaths(g, 1)
	cost, _ := res.Cost(3)
	assert.Equal(t, uint32(2), cost)
	assert.Equal(t, state.RouterId(2), res.FirstHop[3])
}

func TestShortestPathsUnreachable(t *testing.T) {
	g := make(lsGraph)
	g.setEdge(1, 2, 1)
	g.setEdge(3, 4, 1)

	res := shortestPaths(g, 1)
	_, ok := res.Cost(3)
	assert.False(t, ok)
	assert.Nil(t, res.Path(4))
	assert.NotContains(t, res.FirstHop, state.RouterId(3))
}

func TestBuildGraphSharedNetwork(t *testing.T) {
	g := buildGraph([]*state.LSA{
		mkLSA(1, 1, networkLink("10.0.0.0/24", 3)),
		mkLSA(2, 1, networkLink("10.0.0.0/24", 4)),
	})
	assert.Equal(t, uint32(7), g[1][2])
	assert.Equal(t, uint32(7), g[2][1])
}

func TestBuildGraphCheapestEdgeWins(t *testing.T) {
	g := buildGraph([]*state.LSA{
		mkLSA(1, 1, routerLink(2, 10), networkLink("10.0.0.0/24", 3)),
		mkLSA(2, 1, networkLink("10.0.0.0/24", 4)),
	})
	assert.Equal(t, uint32(7), g[1][2])

	g = buildGraph([]*state.LSA{
		mkLSA(1, 1, routerLink(2, 5), networkLink("10.0.0.0/24", 3)),
		mkLSA(2, 1, networkLink("10.0.0.0/24", 4)),
	})
	assert.Equal(t, uint32(5), g[1][2])
	assert.Equal(t, uint32(5), g[2][1])
}

func TestBuildGraphIsolatedRouter(t *testing.T) {
	g := buildGraph([]*state.LSA{
		mkLSA(1, 1, networkLink("10.0.0.0/24", 1)),
	})
	require.Contains(t, g, state.RouterId(1))
	assert.Empty(t, g[1])
	assert.Equal(t, []state.RouterId{1}, shortestPaths(g, 1).Order)
}
