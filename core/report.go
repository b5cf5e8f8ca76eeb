package core

import (
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/encodeous/netsim/state"
)

// Table wraps text/tabwriter with column-aligned output. The header and a dash divider are
// written before the first row, so empty tables produce no output.
type Table struct {
	w       *tabwriter.Writer
	headers []string
	written bool
}

func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		w:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: headers,
	}
}

func (t *Table) Row(values ...string) {
	if !t.written {
		t.written = true
		fmt.Fprintln(t.w, strings.Join(t.headers, "\t"))
		dividers := make([]string, len(t.headers))
		for i, h := range t.headers {
			dividers[i] = strings.Repeat("-", len(h))
		}
		fmt.Fprintln(t.w, strings.Join(dividers, "\t"))
	}
	fmt.Fprintln(t.w, strings.Join(values, "\t"))
}

func (t *Table) Flush() error {
	if !t.written {
		return nil
	}
	return t.w.Flush()
}

// DumpTable writes the routing table of r in insertion order.
func DumpTable(r *Router, w io.Writer) error {
	t := NewTable(w, "Destination", "Netmask", "Next Hop", "Interface", "Metric")
	for _, e := range r.Table.Entries() {
		nh := "Direct"
		if e.NextHop != "" {
			nh = string(e.NextHop)
		}
		metric := strconv.FormatUint(uint64(e.Metric), 10)
		if e.Unreachable {
			metric += " (unreachable)"
		}
		t.Row(e.Prefix.Addr().String(), state.Netmask(e.Prefix), nh, e.Interface, metric)
	}
	return t.Flush()
}

// DumpLSDB writes the link-state database of r, one link per row.
func DumpLSDB(r *Router, w io.Writer) error {
	p := r.OSPF()
	if p == nil {
		return fmt.Errorf("router %s does not run ospf", r.Id)
	}
	t := NewTable(w, "Origin", "Router Id", "Seq", "Link", "Cost")
	for _, lsa := range p.LSDB.All() {
		for _, link := range lsa.Links {
			target := link.Network.String()
			if link.Kind == state.LinkRouter {
				target = "router " + link.Neighbor.String()
			}
			t.Row(string(lsa.OriginNode), lsa.Origin.String(), strconv.FormatUint(uint64(lsa.Seq), 10), target, strconv.FormatUint(uint64(link.Cost), 10))
		}
	}
	return t.Flush()
}

// DumpGraph writes the devices of n followed by the adjacency list.
func DumpGraph(n *Network, w io.Writer) error {
	t := NewTable(w, "Device", "Kind", "Addresses")
	for _, dev := range n.Devices() {
		switch d := dev.(type) {
		case *Router:
			addrs := make([]string, 0)
			for _, itf := range d.Interfaces() {
				addrs = append(addrs, itf.Name+"="+itf.Addr.String())
			}
			t.Row(string(d.Id), "router", strings.Join(addrs, " "))
		case *Host:
			t.Row(string(d.Id), "host", d.Addr.String())
		}
	}
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, link := range n.Adjacency() {
		if _, err := fmt.Fprintf(w, "%s -- %s\n", link.V1, link.V2); err != nil {
			return err
		}
	}
	return nil
}

// Reachable summarises the destinations r has a usable route to.
func Reachable(r *Router) []netip.Prefix {
	return state.CoalescePrefix(r.Table.Prefixes())
}

// Unreachable returns the parts of the network's subnets that r has no usable route to.
func Unreachable(n *Network, r *Router) []netip.Prefix {
	return state.SubtractPrefix(n.Networks(), Reachable(r))
}
