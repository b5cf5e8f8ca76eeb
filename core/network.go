package core

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"time"

	"github.com/encodeous/netsim/perf"
	"github.com/encodeous/netsim/state"
)

// Network is the device registry, the topology and the control-plane transport of a simulation.
// Messages are queued and handled in FIFO order by Run; timers run on a virtual clock that only
// moves in Advance.
type Network struct {
	Log *slog.Logger

	devices []Device
	routers map[state.NodeId]*Router
	hosts   map[state.NodeId]*Host
	links   []state.Pair[state.NodeId, state.NodeId]
	queue   []Message
	sched   *state.Scheduler

	// transport and settle are replaced by the concurrent runtime
	transport func(msg Message)
	settle    func() error
}

func NewNetwork(log *slog.Logger) *Network {
	if log == nil {
		log = slog.Default()
	}
	n := &Network{
		Log:     log,
		routers: make(map[state.NodeId]*Router),
		hosts:   make(map[state.NodeId]*Host),
		sched:   state.NewScheduler(state.Epoch),
	}
	n.transport = n.enqueue
	n.settle = func() error {
		n.Run()
		return nil
	}
	return n
}

func (n *Network) register(dev Device) error {
	if n.Device(dev.Name()) != nil {
		return fmt.Errorf("device %s already exists", dev.Name())
	}
	n.devices = append(n.devices, dev)
	return nil
}

func (n *Network) AddRouter(r *Router) error {
	if err := n.register(r); err != nil {
		return err
	}
	n.routers[r.Id] = r
	r.post = n.Post
	return nil
}

func (n *Network) AddHost(h *Host) error {
	if err := n.register(h); err != nil {
		return err
	}
	n.hosts[h.Id] = h
	return nil
}

func (n *Network) Device(id state.NodeId) Device {
	return findDevice(n, id)
}

func (n *Network) Router(id state.NodeId) (*Router, bool) {
	r, ok := n.routers[id]
	return r, ok
}

func (n *Network) Host(id state.NodeId) (*Host, bool) {
	h, ok := n.hosts[id]
	return h, ok
}

// Devices returns every device in registration order.
func (n *Network) Devices() []Device {
	res := make([]Device, len(n.devices))
	copy(res, n.devices)
	return res
}

// Routers returns every router in registration order.
func (n *Network) Routers() []*Router {
	res := make([]*Router, 0, len(n.routers))
	for _, dev := range n.devices {
		if r, ok := dev.(*Router); ok {
			res = append(res, r)
		}
	}
	return res
}

func (n *Network) link(a, b state.NodeId) {
	p := state.MakeSortedPair(a, b)
	for _, l := range n.links {
		if l == p {
			return
		}
	}
	n.links = append(n.links, p)
}

// Attach connects dev to the interface itf of router. The connection is one-way: the router
// forwards to dev, dev does not learn about the router.
func (n *Network) Attach(router state.NodeId, itf string, dev state.NodeId) error {
	r, ok := n.routers[router]
	if !ok {
		return fmt.Errorf("%s is not a router", router)
	}
	d := n.Device(dev)
	if d == nil {
		return fmt.Errorf("device %s does not exist", dev)
	}
	if err := r.Attach(itf, d); err != nil {
		return err
	}
	n.link(router, dev)
	return nil
}

// Connect joins every endpoint of a segment to every other. Routers attach the other endpoints on
// the interface named by their endpoint.
func (n *Network) Connect(seg state.Segment) error {
	for _, a := range seg.Endpoints {
		if n.Device(a.Node) == nil {
			return fmt.Errorf("device %s does not exist", a.Node)
		}
		for _, b := range seg.Endpoints {
			if a.Node == b.Node {
				continue
			}
			if _, isRouter := n.routers[a.Node]; isRouter {
				if err := n.Attach(a.Node, a.Interface, b.Node); err != nil {
					return err
				}
			} else {
				n.link(a.Node, b.Node)
			}
		}
	}
	return nil
}

// Disconnect removes the link between a and b. Routers forget the other device on every
// interface; protocols notice on their next update or, for link-state routing, once StartOSPF is
// called again. The network must be idle.
func (n *Network) Disconnect(a, b state.NodeId) error {
	idx := slices.Index(n.links, state.MakeSortedPair(a, b))
	if idx == -1 {
		return fmt.Errorf("%s and %s are not connected", a, b)
	}
	n.links = slices.Delete(n.links, idx, idx+1)
	if r, ok := n.routers[a]; ok {
		r.Detach(b)
	}
	if r, ok := n.routers[b]; ok {
		r.Detach(a)
	}
	n.Log.Info("disconnected", "a", a, "b", b)
	return nil
}

// Adjacency returns each connected pair of devices once, sorted.
func (n *Network) Adjacency() []state.Pair[state.NodeId, state.NodeId] {
	res := make([]state.Pair[state.NodeId, state.NodeId], len(n.links))
	copy(res, n.links)
	state.SortPairs(res)
	return res
}

// Networks returns every subnet configured on a router interface.
func (n *Network) Networks() []netip.Prefix {
	res := make([]netip.Prefix, 0)
	seen := make(map[netip.Prefix]struct{})
	for _, r := range n.Routers() {
		for _, p := range r.Networks() {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				res = append(res, p)
			}
		}
	}
	return res
}

// Post hands a message to the transport. It is safe to call from a message handler.
func (n *Network) Post(msg Message) {
	n.transport(msg)
}

func (n *Network) enqueue(msg Message) {
	n.queue = append(n.queue, msg)
}

// Run handles queued messages until the queue is empty, including the messages posted while
// handling. It returns the number of messages handled.
func (n *Network) Run() int {
	handled := 0
	for len(n.queue) > 0 {
		msg := n.queue[0]
		n.queue = n.queue[1:]
		n.dispatch(msg)
		handled++
	}
	return handled
}

func (n *Network) dispatch(msg Message) {
	r, ok := n.routers[msg.To]
	if !ok {
		n.Log.Warn("message for unknown router", "msg", msg)
		return
	}
	start := time.Now()
	if err := r.Handle(msg); err != nil {
		n.Log.Error("error handling message", "msg", msg, "error", err)
	}
	perf.MessagesPerSec.Add(1)
	perf.DispatchLatency.Add(float64(time.Since(start).Microseconds()))
}

func (n *Network) Now() time.Time {
	return n.sched.Now()
}

// Advance moves the virtual clock forward, firing protocol timers on the way.
func (n *Network) Advance(d time.Duration) error {
	return n.sched.Advance(d)
}

// on runs fun on router r through the transport, so it never overlaps the router's message
// handling.
func (n *Network) on(r *Router, fun func()) {
	n.Post(Message{From: r.Id, To: r.Id, Call: fun})
}

// every runs fun on router r at every tick of the virtual clock and lets the network settle after
// each run.
func (n *Network) every(r *Router, fun func(now time.Time), d time.Duration) {
	n.sched.RepeatTask(func(now time.Time) error {
		n.on(r, func() { fun(now) })
		return n.settle()
	}, d)
}

// StartRIP sends the first advertisement of every RIP router and schedules its update and aging
// timers.
func (n *Network) StartRIP() error {
	for _, r := range n.Routers() {
		p := r.RIP()
		if p == nil {
			continue
		}
		n.Log.Debug("starting rip", "router", r.Id)
		n.on(r, p.Advertise)
		n.every(r, func(time.Time) { p.Advertise() }, p.Params.UpdateInterval)
		n.every(r, p.Age, p.Params.AgeInterval)
	}
	return n.settle()
}

// StartOSPF discovers neighbours on every link-state router, then floods fresh advertisements and
// lets them propagate. Calling it again after a topology change reconverges the link-state routers.
func (n *Network) StartOSPF() error {
	routers := make([]*Router, 0)
	for _, r := range n.Routers() {
		if r.OSPF() == nil {
			continue
		}
		routers = append(routers, r)
		n.on(r, func() {
			neighs := r.OSPF().DiscoverNeighbours()
			n.Log.Debug("discovered ospf neighbours", "router", r.Id, "id", r.RouterId, "neighbours", len(neighs))
		})
	}
	for _, r := range routers {
		n.on(r, func() { r.OSPF().Originate() })
	}
	return n.settle()
}

func (n *Network) Start() error {
	if err := n.StartRIP(); err != nil {
		return err
	}
	return n.StartOSPF()
}

// Converge runs RIP for enough update rounds to cover the longest possible path. Link-state
// routers converge as soon as StartOSPF returns.
func (n *Network) Converge() error {
	var interval time.Duration
	for _, r := range n.Routers() {
		if p := r.RIP(); p != nil {
			interval = max(interval, p.Params.UpdateInterval)
		}
	}
	if interval == 0 {
		return nil
	}
	return n.Advance(interval * time.Duration(len(n.routers)+1))
}

// Send sends a packet with the given ttl from a host, logging and counting the outcome. Forwarding
// reads routing tables directly, so the network must be idle.
func (n *Network) Send(from state.NodeId, dst netip.Addr, payload []byte, ttl uint8) (*Trace, error) {
	h, ok := n.hosts[from]
	if !ok {
		return nil, fmt.Errorf("%s is not a host", from)
	}
	pkt := state.NewPacket(h.Addr.Addr(), dst, payload, ttl)
	trace, err := h.SendPacket(pkt, n)
	var drop *state.DropError
	if errors.As(err, &drop) {
		perf.PacketsDropped.Add(1)
		n.Log.Info("packet dropped", "at", drop.At, "reason", drop.Reason, "packet", pkt)
		return trace, err
	}
	if err != nil {
		return trace, err
	}
	perf.PacketsDelivered.Add(1)
	n.Log.Info("packet delivered", "to", trace.DeliveredTo, "path", trace.String())
	return trace, nil
}
