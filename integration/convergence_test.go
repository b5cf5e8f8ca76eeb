//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/encodeous/netsim/core"
	"github.com/encodeous/netsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func manhattan(w, a, b int) int {
	return abs(a%w-b%w) + abs(a/w-b/w)
}

func TestGridOSPFConverges(t *testing.T) {
	defer goleak.VerifyNone(t)
	const w, h = 6, 6
	n, err := core.SimulateConcurrent(context.Background(), Grid(state.ProtocolOSPF, w, h), discardLogger())
	require.NoError(t, err)
	RequireFullReachability(t, n)

	trace, err := n.Send(HostName(0), HostAddr(w*h-1), []byte("corner"), state.DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, HostName(w*h-1), trace.DeliveredTo)
	assert.Len(t, trace.Path(), w+h-1)
}

func TestGridMetrics(t *testing.T) {
	const w, h = 4, 4
	rip, err := core.Simulate(Grid(state.ProtocolRIP, w, h), discardLogger())
	require.NoError(t, err)
	ospf, err := core.Simulate(Grid(state.ProtocolOSPF, w, h), discardLogger())
	require.NoError(t, err)

	for i := range w * h {
		rr, _ := rip.Router(RouterName(i))
		or, _ := ospf.Router(RouterName(i))
		for j := range w * h {
			if i == j {
				continue
			}
			dst := HostAddr(j)
			re := rr.Table.Lookup(dst)
			oe := or.Table.Lookup(dst)
			require.NotNil(t, re, "%s -> %s", rr.Id, dst)
			require.NotNil(t, oe, "%s -> %s", or.Id, dst)
			hops := uint32(manhattan(w, i, j))
			assert.Equal(t, hops, re.Metric, "rip %s -> %s", rr.Id, dst)
			assert.Equal(t, hops, oe.Metric, "ospf %s -> %s", or.Id, dst)
		}
	}
}

func TestOSPFDeterministic(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := Grid(state.ProtocolOSPF, 5, 5)
	a, err := core.SimulateConcurrent(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	b, err := core.Simulate(cfg, discardLogger())
	require.NoError(t, err)

	for _, r := range a.Routers() {
		other, ok := b.Router(r.Id)
		require.True(t, ok)
		assert.ElementsMatch(t, RouteSet(other), RouteSet(r), "router %s", r.Id)
	}
}

func TestRingRIPRecovers(t *testing.T) {
	const size = 8
	n, err := core.Simulate(Ring(state.ProtocolRIP, size), discardLogger())
	require.NoError(t, err)
	RequireFullReachability(t, n)

	require.NoError(t, n.Disconnect(RouterName(0), RouterName(1)))
	require.NoError(t, n.Advance(30*time.Minute))

	// the long way round
	trace, err := n.Send(HostName(0), HostAddr(1), nil, state.DefaultTTL)
	require.NoError(t, err)
	assert.Len(t, trace.Path(), size)

	r0, _ := n.Router(RouterName(0))
	e := r0.Table.Lookup(HostAddr(1))
	require.NotNil(t, e)
	assert.Equal(t, RouterName(size-1), e.NextHop)
	assert.Equal(t, uint32(size-1), e.Metric)
}

func TestRingOSPFRecovers(t *testing.T) {
	defer goleak.VerifyNone(t)
	const size = 10
	n, err := core.Simulate(Ring(state.ProtocolOSPF, size), discardLogger())
	require.NoError(t, err)

	require.NoError(t, n.Disconnect(RouterName(0), RouterName(1)))
	rt := core.Start(context.Background(), n)
	require.NoError(t, n.StartOSPF())
	require.NoError(t, rt.Stop())

	trace, err := n.Send(HostName(0), HostAddr(1), nil, state.DefaultTTL)
	require.NoError(t, err)
	assert.Len(t, trace.Path(), size)
}
