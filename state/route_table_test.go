package state

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRoute(prefix string, nh NodeId, itf string, metric uint32) RouteEntry {
	return RouteEntry{
		Prefix:    netip.MustParsePrefix(prefix),
		NextHop:   nh,
		Interface: itf,
		Metric:    metric,
		Origin:    OriginStatic,
		Updated:   Epoch,
	}
}

func TestLookupLongestPrefix(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.0.0/16", "r2", "eth1", 1))
	tbl.AddOrReplace(mkRoute("10.0.0.0/24", "r3", "eth2", 5))
	tbl.AddOrReplace(mkRoute("0.0.0.0/0", "r4", "eth3", 1))

	best := tbl.Lookup(netip.MustParseAddr("10.0.0.5"))
	require.NotNil(t, best)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/24"), best.Prefix)

	best = tbl.Lookup(netip.MustParseAddr("10.0.7.5"))
	require.NotNil(t, best)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/16"), best.Prefix)

	best = tbl.Lookup(netip.MustParseAddr("8.8.8.8"))
	require.NotNil(t, best)
	assert.Equal(t, NodeId("r4"), best.NextHop)
}

func TestLookupNoRoute(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.0.0/24", "", "eth0", 0))
	assert.Nil(t, tbl.Lookup(netip.MustParseAddr("10.0.1.1")))
}

func TestMatchesOrdering(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.0.0/8", "r1", "eth0", 1))
	tbl.AddOrReplace(mkRoute("10.0.0.0/24", "r2", "eth0", 3))
	tbl.AddOrReplace(mkRoute("10.0.0.0/16", "r3", "eth0", 2))

	matches := tbl.Matches(netip.MustParseAddr("10.0.0.1"))
	require.Len(t, matches, 3)
	assert.Equal(t, 24, matches[0].Prefix.Bits())
	assert.Equal(t, 16, matches[1].Prefix.Bits())
	assert.Equal(t, 8, matches[2].Prefix.Bits())
	assert.Same(t, matches[0], tbl.Lookup(netip.MustParseAddr("10.0.0.1")))
}

func TestRouteTieBreak(t *testing.T) {
	// equal prefix length: lower metric first, then the earlier insertion
	a := &RouteEntry{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Metric: 3, rank: 0}
	b := &RouteEntry{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Metric: 2, rank: 1}
	c := &RouteEntry{Prefix: netip.MustParsePrefix("10.0.0.0/24"), Metric: 2, rank: 2}
	d := &RouteEntry{Prefix: netip.MustParsePrefix("10.0.0.0/25"), Metric: 9, rank: 3}

	assert.Negative(t, routeLess(b, a))
	assert.Negative(t, routeLess(b, c))
	assert.Positive(t, routeLess(c, b))
	assert.Negative(t, routeLess(d, b))
	assert.Zero(t, routeLess(a, a))
}

func TestAddOrReplaceKeepsRank(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.1.0/24", "r1", "eth0", 1))
	tbl.AddOrReplace(mkRoute("10.0.2.0/24", "r1", "eth0", 1))
	tbl.AddOrReplace(mkRoute("10.0.1.0/24", "r2", "eth1", 4))

	entries := tbl.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, netip.MustParsePrefix("10.0.1.0/24"), entries[0].Prefix)
	assert.Equal(t, NodeId("r2"), entries[0].NextHop)
	assert.Equal(t, uint32(4), entries[0].Metric)
}

func TestAddOrReplaceMasksPrefix(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.1.7/24", "", "eth0", 0))
	_, ok := tbl.Get(netip.MustParsePrefix("10.0.1.0/24"))
	assert.True(t, ok)
	assert.Equal(t, 1, tbl.Len())
}

func TestRemove(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.1.0/24", "r1", "eth0", 1))
	assert.True(t, tbl.Remove(netip.MustParsePrefix("10.0.1.0/24")))
	assert.False(t, tbl.Remove(netip.MustParsePrefix("10.0.1.0/24")))
	assert.Nil(t, tbl.Lookup(netip.MustParseAddr("10.0.1.1")))
	assert.Zero(t, tbl.Len())
}

func TestLookupSkipsUnreachable(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(mkRoute("10.0.0.0/16", "r1", "eth0", 2))
	e := tbl.AddOrReplace(mkRoute("10.0.0.0/24", "r2", "eth1", 3))
	e.Unreachable = true

	best := tbl.Lookup(netip.MustParseAddr("10.0.0.1"))
	require.NotNil(t, best)
	assert.Equal(t, NodeId("r1"), best.NextHop)
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/16")}, tbl.Prefixes())
}

func TestReplaceRemote(t *testing.T) {
	tbl := NewRoutingTable()
	tbl.AddOrReplace(RouteEntry{Prefix: netip.MustParsePrefix("10.0.1.0/24"), Interface: "eth0", Origin: OriginConnected})
	tbl.AddOrReplace(mkRoute("10.0.2.0/24", "r2", "eth1", 2))
	tbl.AddOrReplace(mkRoute("10.0.3.0/24", "r2", "eth1", 3))
	tbl.AddOrReplace(RouteEntry{Prefix: netip.MustParsePrefix("10.0.4.0/24"), Interface: "eth2", Origin: OriginConnected})

	tbl.ReplaceRemote([]RouteEntry{
		mkRoute("10.0.3.0/24", "r3", "eth2", 1),
		mkRoute("10.0.5.0/24", "r3", "eth2", 2),
		mkRoute("10.0.5.0/24", "r2", "eth1", 1),  // duplicate, dropped
		mkRoute("10.0.1.0/24", "r2", "eth1", 1),  // connected network, dropped
	})

	entries := tbl.Entries()
	got := make([]string, 0)
	for _, e := range entries {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{
		"10.0.1.0/24 direct dev eth0 metric 0 (connected)",
		"10.0.3.0/24 via r3 dev eth2 metric 1 (static)",
		"10.0.4.0/24 direct dev eth2 metric 0 (connected)",
		"10.0.5.0/24 via r3 dev eth2 metric 2 (static)",
	}, got)

	assert.Nil(t, tbl.Lookup(netip.MustParseAddr("10.0.2.1")))
	best := tbl.Lookup(netip.MustParseAddr("10.0.5.1"))
	require.NotNil(t, best)
	assert.Equal(t, NodeId("r3"), best.NextHop)
	best = tbl.Lookup(netip.MustParseAddr("10.0.1.1"))
	require.NotNil(t, best)
	assert.True(t, best.IsConnected())
}

func TestCoalesceAndSubtract(t *testing.T) {
	merged := CoalescePrefix([]netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/25"),
		netip.MustParsePrefix("10.0.0.128/25"),
	})
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/24")}, merged)

	rest := SubtractPrefix(
		[]netip.Prefix{netip.MustParsePrefix("10.0.0.0/24")},
		[]netip.Prefix{netip.MustParsePrefix("10.0.0.0/25")})
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.128/25")}, rest)
}

func TestNetmask(t *testing.T) {
	assert.Equal(t, "255.255.255.0", Netmask(netip.MustParsePrefix("10.0.0.0/24")))
	assert.Equal(t, "255.255.0.0", Netmask(netip.MustParsePrefix("10.1.2.3/16")))
	assert.Equal(t, "0.0.0.0", Netmask(netip.MustParsePrefix("0.0.0.0/0")))
}
