package state

import (
	"fmt"
	"net/netip"
	"slices"
	"time"

	"github.com/gaissmai/bart"
)

type RouteOrigin uint8

const (
	OriginConnected RouteOrigin = iota
	OriginStatic
	OriginRIP
	OriginOSPF
)

func (o RouteOrigin) String() string {
	switch o {
	case OriginConnected:
		return "connected"
	case OriginStatic:
		return "static"
	case OriginRIP:
		return "rip"
	case OriginOSPF:
		return "ospf"
	}
	return fmt.Sprintf("origin(%d)", uint8(o))
}

type RouteEntry struct {
	Prefix netip.Prefix
	// NextHop is the neighbouring router to hand packets to, empty for connected networks.
	NextHop   NodeId
	Interface string
	// Metric is 0 for connected networks.
	Metric  uint32
	Origin  RouteOrigin
	Updated time.Time
	// Unreachable is set when a learned route timed out but is kept until garbage collection.
	Unreachable bool

	rank uint64
}

func (e *RouteEntry) IsConnected() bool {
	return e.Metric == 0
}

func (e *RouteEntry) String() string {
	via := "direct"
	if e.NextHop != "" {
		via = "via " + string(e.NextHop)
	}
	return fmt.Sprintf("%s %s dev %s metric %d (%s)", e.Prefix, via, e.Interface, e.Metric, e.Origin)
}

// RoutingTable holds at most one entry per prefix. Entries keep the rank they were first inserted
// with; Entries returns them in that order.
//
// Lookup order: longest prefix, then lowest metric, then lowest rank. Two distinct entries with
// equal prefix length that both contain an address share the same masked prefix, so in practice
// the longest-prefix match alone decides; Matches exposes the full ordering.
type RoutingTable struct {
	entries  []*RouteEntry
	idx      *bart.Table[*RouteEntry]
	nextRank uint64
}

func NewRoutingTable() *RoutingTable {
	return &RoutingTable{
		entries: make([]*RouteEntry, 0),
		idx:     new(bart.Table[*RouteEntry]),
	}
}

// routeLess is the deterministic preference between two candidate routes for one destination.
func routeLess(a, b *RouteEntry) int {
	if a.Prefix.Bits() != b.Prefix.Bits() {
		return b.Prefix.Bits() - a.Prefix.Bits()
	}
	if a.Metric != b.Metric {
		if a.Metric < b.Metric {
			return -1
		}
		return 1
	}
	if a.rank < b.rank {
		return -1
	} else if a.rank > b.rank {
		return 1
	}
	return 0
}

// AddOrReplace installs entry. An existing entry for the same prefix is overwritten in place and
// keeps its rank. The stored copy is returned.
func (t *RoutingTable) AddOrReplace(entry RouteEntry) *RouteEntry {
	entry.Prefix = entry.Prefix.Masked()
	if old, ok := t.idx.Get(entry.Prefix); ok {
		rank := old.rank
		*old = entry
		old.rank = rank
		return old
	}
	e := &entry
	e.rank = t.nextRank
	t.nextRank++
	t.entries = append(t.entries, e)
	t.idx.Insert(e.Prefix, e)
	return e
}

func (t *RoutingTable) Get(prefix netip.Prefix) (*RouteEntry, bool) {
	return t.idx.Get(prefix.Masked())
}

func (t *RoutingTable) Remove(prefix netip.Prefix) bool {
	prefix = prefix.Masked()
	if _, ok := t.idx.Get(prefix); !ok {
		return false
	}
	t.idx.Delete(prefix)
	t.entries = slices.DeleteFunc(t.entries, func(e *RouteEntry) bool {
		return e.Prefix == prefix
	})
	return true
}

// Lookup returns the best usable route for dst, or nil.
func (t *RoutingTable) Lookup(dst netip.Addr) *RouteEntry {
	if best, ok := t.idx.Lookup(dst); ok && !best.Unreachable {
		return best
	}
	// the most specific match is unreachable, fall back to the next usable one
	for _, e := range t.Matches(dst) {
		if !e.Unreachable {
			return e
		}
	}
	return nil
}

// Matches returns every entry containing dst, best first.
func (t *RoutingTable) Matches(dst netip.Addr) []*RouteEntry {
	res := make([]*RouteEntry, 0)
	for _, e := range t.entries {
		if e.Prefix.Contains(dst) {
			res = append(res, e)
		}
	}
	slices.SortStableFunc(res, routeLess)
	return res
}

// ReplaceRemote swaps every non-connected entry for the given set in one step. Connected entries
// are left untouched, as are ranks of prefixes present before and after. Duplicate prefixes in
// entries are dropped after the first.
func (t *RoutingTable) ReplaceRemote(entries []RouteEntry) {
	keep := make(map[netip.Prefix]*RouteEntry)
	for _, e := range t.entries {
		keep[e.Prefix] = e
	}
	next := make([]*RouteEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.IsConnected() {
			next = append(next, e)
		}
	}
	seen := make(map[netip.Prefix]struct{})
	for _, e := range next {
		seen[e.Prefix] = struct{}{}
	}
	added := make([]*RouteEntry, 0, len(entries))
	for _, entry := range entries {
		entry.Prefix = entry.Prefix.Masked()
		if _, dup := seen[entry.Prefix]; dup {
			continue
		}
		seen[entry.Prefix] = struct{}{}
		e := &entry
		if old, ok := keep[entry.Prefix]; ok {
			e.rank = old.rank
		} else {
			e.rank = t.nextRank
			t.nextRank++
		}
		added = append(added, e)
	}
	next = append(next, added...)
	slices.SortFunc(next, func(a, b *RouteEntry) int {
		if a.rank < b.rank {
			return -1
		} else if a.rank > b.rank {
			return 1
		}
		return 0
	})

	idx := new(bart.Table[*RouteEntry])
	for _, e := range next {
		idx.Insert(e.Prefix, e)
	}
	t.entries = next
	t.idx = idx
}

// Entries returns the entries in insertion order. The slice is a copy, the entries are not.
func (t *RoutingTable) Entries() []*RouteEntry {
	return slices.Clone(t.entries)
}

func (t *RoutingTable) Len() int {
	return len(t.entries)
}

// Prefixes returns the destinations with a usable route.
func (t *RoutingTable) Prefixes() []netip.Prefix {
	res := make([]netip.Prefix, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.Unreachable {
			res = append(res, e.Prefix)
		}
	}
	return res
}
