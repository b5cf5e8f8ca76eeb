package core

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/netsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records what a protocol instance asks of its router.
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) SendUpdate(neigh state.NodeId, update RIPUpdate) {
	h.actions = append(h.actions, MakeEvent("UPDATE", neigh, update.Prefix, update.Metric))
}

func (h *RouterHarness) SendLSA(neigh state.NodeId, lsa *state.LSA) {
	h.actions = append(h.actions, MakeEvent("LSA", neigh, lsa.Origin, lsa.Seq))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears the recorded actions. Log events are kept for GetLogs.
func (h *RouterHarness) GetActions() HarnessEvents {
	return h.take(func(e HarnessEvent) bool { return e.Message != "LOG" })
}

// GetLogs returns and clears the recorded log events.
func (h *RouterHarness) GetLogs() HarnessEvents {
	return h.take(func(e HarnessEvent) bool { return e.Message == "LOG" })
}

func (h *RouterHarness) take(match func(HarnessEvent) bool) HarnessEvents {
	x := make([]HarnessEvent, 0)
	rest := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if match(action) {
			x = append(x, action)
		} else {
			rest = append(rest, action)
		}
	}
	h.actions = rest
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg, cmpopts.EquateComparable(netip.Prefix{})) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// ManualClock is a clock moved by hand.
type ManualClock struct {
	now time.Time
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func MakeNeighbours(itf string, ids ...state.NodeId) []Neighbour {
	neighs := make([]Neighbour, 0, len(ids))
	for _, id := range ids {
		neighs = append(neighs, Neighbour{
			Id:        id,
			Interface: itf,
			Cost:      1,
		})
	}
	return neighs
}

func staticNeighbours(neighs []Neighbour) func() []Neighbour {
	return func() []Neighbour {
		return neighs
	}
}

func connected(t *state.RoutingTable, prefix string, itf string) {
	t.AddOrReplace(state.RouteEntry{
		Prefix:    netip.MustParsePrefix(prefix),
		Interface: itf,
		Origin:    state.OriginConnected,
		Updated:   state.Epoch,
	})
}

func pfx(s string) netip.Prefix {
	return netip.MustParsePrefix(s)
}

func addr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}
