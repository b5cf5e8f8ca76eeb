package state

import (
	"fmt"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func AddrValidator(p netip.Prefix) error {
	if !p.IsValid() {
		return fmt.Errorf("invalid address %s", p)
	}
	if !p.Addr().Is4() {
		return fmt.Errorf("%s is not an IPv4 address", p)
	}
	if p.Bits() == 0 {
		return fmt.Errorf("%s must have a non-zero prefix length", p)
	}
	return nil
}

func RouterConfigValidator(r *RouterCfg) error {
	if err := NameValidator(string(r.Id)); err != nil {
		return err
	}
	switch r.Protocol {
	case ProtocolStatic, ProtocolRIP, ProtocolOSPF:
	default:
		return fmt.Errorf("router %s: unknown protocol %q", r.Id, r.Protocol)
	}
	if len(r.Interfaces) == 0 {
		return fmt.Errorf("router %s has no interfaces", r.Id)
	}
	names := make([]string, 0)
	for _, itf := range r.Interfaces {
		if err := NameValidator(itf.Name); err != nil {
			return fmt.Errorf("router %s: %w", r.Id, err)
		}
		if slices.Contains(names, itf.Name) {
			return fmt.Errorf("router %s: duplicate interface %s", r.Id, itf.Name)
		}
		names = append(names, itf.Name)
		if err := AddrValidator(itf.Addr); err != nil {
			return fmt.Errorf("router %s interface %s: %w", r.Id, itf.Name, err)
		}
		if _, err := ParseHwAddr(itf.Hw); err != nil {
			return fmt.Errorf("router %s interface %s: %w", r.Id, itf.Name, err)
		}
	}
	if r.Protocol == ProtocolOSPF && len(r.Routes) > 0 {
		return fmt.Errorf("router %s: link-state routers recompute every remote route and cannot carry static routes", r.Id)
	}
	for _, route := range r.Routes {
		if !route.Prefix.IsValid() || !route.Prefix.Addr().Is4() {
			return fmt.Errorf("router %s: invalid static route prefix %s", r.Id, route.Prefix)
		}
		if r.GetInterface(route.Interface) == nil {
			return fmt.Errorf("router %s: static route %s uses unknown interface %s", r.Id, route.Prefix, route.Interface)
		}
	}
	return nil
}

func HostConfigValidator(h *HostCfg) error {
	if err := NameValidator(string(h.Id)); err != nil {
		return err
	}
	if err := AddrValidator(h.Addr); err != nil {
		return fmt.Errorf("host %s: %w", h.Id, err)
	}
	if _, err := ParseHwAddr(h.Hw); err != nil {
		return fmt.Errorf("host %s: %w", h.Id, err)
	}
	if h.Gateway.IsValid() && !SameSubnet(h.Addr, h.Gateway) {
		return fmt.Errorf("host %s: gateway %s is outside %s", h.Id, h.Gateway, h.Addr.Masked())
	}
	return nil
}

// TopologyValidator checks a whole topology: names, addresses, and that every segment endpoint
// refers to an existing device (and interface, for routers).
func TopologyValidator(cfg *TopologyCfg) error {
	names := make([]string, 0)
	addrs := make(map[netip.Addr]NodeId)
	claim := func(node NodeId, addr netip.Addr) error {
		if other, ok := addrs[addr]; ok {
			return fmt.Errorf("address %s is used by both %s and %s", addr, other, node)
		}
		addrs[addr] = node
		return nil
	}
	for i := range cfg.Routers {
		r := &cfg.Routers[i]
		if err := RouterConfigValidator(r); err != nil {
			return err
		}
		if slices.Contains(names, string(r.Id)) {
			return fmt.Errorf("duplicate node %s", r.Id)
		}
		names = append(names, string(r.Id))
		for _, itf := range r.Interfaces {
			if err := claim(r.Id, itf.Addr.Addr()); err != nil {
				return err
			}
		}
	}
	rids := make(map[RouterId]NodeId)
	for i := range cfg.Routers {
		rid := cfg.Routers[i].Rid()
		if other, ok := rids[rid]; ok {
			return fmt.Errorf("router id %s is used by both %s and %s", rid, other, cfg.Routers[i].Id)
		}
		rids[rid] = cfg.Routers[i].Id
	}
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if err := HostConfigValidator(h); err != nil {
			return err
		}
		if slices.Contains(names, string(h.Id)) {
			return fmt.Errorf("duplicate node %s", h.Id)
		}
		names = append(names, string(h.Id))
		if err := claim(h.Id, h.Addr.Addr()); err != nil {
			return err
		}
	}

	segments, err := cfg.GetSegments()
	if err != nil {
		return err
	}
	for _, seg := range segments {
		for _, ep := range seg.Endpoints {
			if r := cfg.TryGetRouter(ep.Node); r != nil {
				if ep.Interface == "" {
					return fmt.Errorf("router %s must be attached with an interface, e.g. %s:eth0", ep.Node, ep.Node)
				}
				if r.GetInterface(ep.Interface) == nil {
					return fmt.Errorf("router %s has no interface %s", ep.Node, ep.Interface)
				}
			} else if ep.Interface != "" {
				return fmt.Errorf("host %s cannot be attached with an interface", ep.Node)
			}
		}
	}
	for _, pkt := range cfg.Packets {
		if cfg.TryGetHost(pkt.From) == nil {
			return fmt.Errorf("packet source %s is not a host", pkt.From)
		}
		if !pkt.To.IsValid() {
			return fmt.Errorf("packet from %s has no destination", pkt.From)
		}
	}
	return nil
}
