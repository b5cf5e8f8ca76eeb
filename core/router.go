package core

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"slices"
	"strings"

	"github.com/encodeous/netsim/state"
)

// Router owns its interfaces, routing table and protocol instances. Only the router itself
// mutates them; other routers reach it through messages.
type Router struct {
	Id       state.NodeId
	RouterId state.RouterId
	Table    *state.RoutingTable
	ARP      *AddressResolver

	interfaces []state.Interface
	attached   map[string][]Device
	down       map[string]bool
	rip        *RIP
	ospf       *OSPF
	inbox      []*state.Packet
	post       func(msg Message)
	log        *slog.Logger
}

func NewRouter(id state.NodeId, rid state.RouterId, arp *AddressResolver, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	if arp == nil {
		arp = NewAddressResolver(0)
	}
	return &Router{
		Id:       id,
		RouterId: rid,
		Table:    state.NewRoutingTable(),
		ARP:      arp,
		attached: make(map[string][]Device),
		down:     make(map[string]bool),
		post:     func(Message) {},
		log:      log.With("router", id),
	}
}

func (r *Router) Name() state.NodeId {
	return r.Id
}

func (r *Router) String() string {
	return fmt.Sprintf("%s(%s)", r.Id, r.RouterId)
}

func (r *Router) Log(event RouterEvent, desc string, args ...any) {
	r.log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// AddInterface adds a port and the connected route for its network.
func (r *Router) AddInterface(name string, addr netip.Prefix, hw net.HardwareAddr) error {
	if r.GetInterface(name) != nil {
		return fmt.Errorf("router %s already has interface %s", r.Id, name)
	}
	itf := state.Interface{Name: name, Addr: addr, HwAddr: hw}
	r.interfaces = append(r.interfaces, itf)
	r.Table.AddOrReplace(state.RouteEntry{
		Prefix:    itf.Network(),
		Interface: name,
		Metric:    0,
		Origin:    state.OriginConnected,
		Updated:   state.Epoch,
	})
	return nil
}

// AddRoute installs a static route. Routes with a next hop have a metric of at least 1.
func (r *Router) AddRoute(prefix netip.Prefix, nextHop state.NodeId, itf string, metric uint32) error {
	if r.GetInterface(itf) == nil {
		return fmt.Errorf("router %s has no interface %s", r.Id, itf)
	}
	if nextHop != "" && metric == 0 {
		metric = 1
	}
	e := r.Table.AddOrReplace(state.RouteEntry{
		Prefix:    prefix,
		NextHop:   nextHop,
		Interface: itf,
		Metric:    metric,
		Origin:    state.OriginStatic,
		Updated:   state.Epoch,
	})
	r.Log(RouteAdded, e.String())
	return nil
}

func (r *Router) GetInterface(name string) *state.Interface {
	idx := slices.IndexFunc(r.interfaces, func(i state.Interface) bool {
		return i.Name == name
	})
	if idx == -1 {
		return nil
	}
	return &r.interfaces[idx]
}

func (r *Router) Interfaces() []state.Interface {
	return slices.Clone(r.interfaces)
}

// Networks returns the subnets of every interface, in interface order.
func (r *Router) Networks() []netip.Prefix {
	res := make([]netip.Prefix, 0, len(r.interfaces))
	for _, itf := range r.interfaces {
		if !slices.Contains(res, itf.Network()) {
			res = append(res, itf.Network())
		}
	}
	return res
}

// Attach connects dev to the interface itf. Attaching twice is a no-op.
func (r *Router) Attach(itf string, dev Device) error {
	if r.GetInterface(itf) == nil {
		return fmt.Errorf("router %s has no interface %s", r.Id, itf)
	}
	if dev.Name() == r.Id {
		return fmt.Errorf("router %s cannot be attached to itself", r.Id)
	}
	if slices.ContainsFunc(r.attached[itf], func(d Device) bool {
		return d.Name() == dev.Name()
	}) {
		return nil
	}
	r.attached[itf] = append(r.attached[itf], dev)
	delete(r.down, itf)
	return nil
}

// Detach removes dev from every interface. An interface left without devices goes down and its
// subnet is no longer advertised by either routing protocol.
func (r *Router) Detach(dev state.NodeId) bool {
	found := false
	for _, itf := range r.interfaces {
		devs := r.attached[itf.Name]
		idx := slices.IndexFunc(devs, func(d Device) bool {
			return d.Name() == dev
		})
		if idx == -1 {
			continue
		}
		found = true
		r.attached[itf.Name] = slices.Delete(devs, idx, idx+1)
		if len(r.attached[itf.Name]) == 0 {
			r.down[itf.Name] = true
		}
	}
	if found {
		r.ARP.Flush()
		r.log.Debug("detached device", "dev", dev)
	}
	return found
}

// Up reports whether itf exists and has not been taken down by Detach.
func (r *Router) Up(itf string) bool {
	return r.GetInterface(itf) != nil && !r.down[itf]
}

// advertised returns the subnets of the interfaces that are up.
func (r *Router) advertised() []netip.Prefix {
	res := make([]netip.Prefix, 0, len(r.interfaces))
	for _, itf := range r.interfaces {
		if r.down[itf.Name] || slices.Contains(res, itf.Network()) {
			continue
		}
		res = append(res, itf.Network())
	}
	return res
}

// Attached returns the devices connected to itf.
func (r *Router) Attached(itf string) Devices {
	return slices.Clone(r.attached[itf])
}

// neighbour finds an attached device by name, looking at itf first.
func (r *Router) neighbour(name state.NodeId, itf string) (Device, string) {
	if dev := findDevice(Devices(r.attached[itf]), name); dev != nil {
		return dev, itf
	}
	for _, i := range r.interfaces {
		if dev := findDevice(Devices(r.attached[i.Name]), name); dev != nil {
			return dev, i.Name
		}
	}
	return nil, ""
}

func (r *Router) HwAddrOf(addr netip.Addr) (net.HardwareAddr, bool) {
	for _, itf := range r.interfaces {
		if itf.Addr.Addr() == addr {
			return itf.HwAddr, true
		}
	}
	return nil, false
}

// Receive accepts packets addressed to one of the router's interfaces.
func (r *Router) Receive(pkt *state.Packet) bool {
	if _, ok := r.HwAddrOf(pkt.Dst); !ok {
		return false
	}
	r.inbox = append(r.inbox, pkt)
	return true
}

func (r *Router) Inbox() []*state.Packet {
	return slices.Clone(r.inbox)
}

// EnableRIP starts a distance-vector instance on the router. Timers are driven by the caller.
func (r *Router) EnableRIP(params state.RIPParams, clock state.Clock) *RIP {
	r.rip = NewRIP(params, r.Table, r, clock, r.ripNeighbours, r.Up)
	return r.rip
}

// EnableOSPF starts a link-state instance on the router.
func (r *Router) EnableOSPF(params state.OSPFParams) *OSPF {
	r.ospf = NewOSPF(params, r.RouterId, r.Id, r.Table, r, r.lsNeighbours, r.advertised)
	return r.ospf
}

func (r *Router) RIP() *RIP {
	return r.rip
}

func (r *Router) OSPF() *OSPF {
	return r.ospf
}

func (r *Router) LinkStateId() (state.RouterId, bool) {
	return r.RouterId, r.ospf != nil
}

// ripNeighbours lists attached router-capable devices; the first interface a device is seen on wins.
func (r *Router) ripNeighbours() []Neighbour {
	res := make([]Neighbour, 0)
	for _, itf := range r.interfaces {
		for _, dev := range r.attached[itf.Name] {
			if _, ok := dev.(Forwardable); !ok {
				continue
			}
			if slices.ContainsFunc(res, func(n Neighbour) bool { return n.Id == dev.Name() }) {
				continue
			}
			res = append(res, Neighbour{Id: dev.Name(), Interface: itf.Name, Cost: 1})
		}
	}
	return res
}

// lsNeighbours lists attached devices running link-state routing.
func (r *Router) lsNeighbours() []Neighbour {
	cost := state.DefaultOSPFParams.InterfaceCost
	if r.ospf != nil {
		cost = r.ospf.Params.InterfaceCost
	}
	res := make([]Neighbour, 0)
	for _, itf := range r.interfaces {
		for _, dev := range r.attached[itf.Name] {
			ls, ok := dev.(LinkStateCapable)
			if !ok {
				continue
			}
			rid, enabled := ls.LinkStateId()
			if !enabled || slices.ContainsFunc(res, func(n Neighbour) bool { return n.Id == dev.Name() }) {
				continue
			}
			res = append(res, Neighbour{Id: dev.Name(), RouterId: rid, Interface: itf.Name, Cost: cost})
		}
	}
	return res
}

// StringRoutes renders the routing table, one entry per line.
func (r *Router) StringRoutes() string {
	lines := make([]string, 0, r.Table.Len())
	for _, e := range r.Table.Entries() {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}
