package state

import (
	"fmt"
	"net/netip"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
)

type Protocol string

const (
	ProtocolStatic Protocol = "static"
	ProtocolRIP    Protocol = "rip"
	ProtocolOSPF   Protocol = "ospf"
)

type InterfaceCfg struct {
	Name string
	Addr netip.Prefix
	Hw   string
}

type StaticRouteCfg struct {
	Prefix    netip.Prefix
	NextHop   NodeId `yaml:"next_hop,omitempty"` // empty for a directly reachable network
	Interface string
	Metric    uint32 `yaml:",omitempty"`
}

// RouterCfg describes one router of the topology
type RouterCfg struct {
	Id         NodeId
	RouterId   uint32           `yaml:"router_id,omitempty"` // derived from Id when zero
	Protocol   Protocol         `yaml:",omitempty"`
	Interfaces []InterfaceCfg
	Routes     []StaticRouteCfg `yaml:",omitempty"`
}

type HostCfg struct {
	Id      NodeId
	Hw      string
	Addr    netip.Prefix
	Gateway netip.Addr `yaml:",omitempty"`
}

// PacketCfg is a packet the simulator sends once the network has converged.
type PacketCfg struct {
	From    NodeId
	To      netip.Addr
	Payload string `yaml:",omitempty"`
	TTL     uint8  `yaml:",omitempty"`
}

// TopologyCfg is the complete description of a simulated network.
type TopologyCfg struct {
	Routers  []RouterCfg
	Hosts    []HostCfg   `yaml:",omitempty"`
	Segments []string    `yaml:",omitempty"`
	Packets  []PacketCfg `yaml:",omitempty"`
	RIP      RIPParams   `yaml:"rip,omitempty"`
	OSPF     OSPFParams  `yaml:"ospf,omitempty"`
	// ArpTTL bounds the lifetime of resolver cache entries, zero keeps them forever.
	ArpTTL time.Duration `yaml:"arp_ttl,omitempty"`
}

func ReadTopology(path string) (*TopologyCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTopology(file)
}

func ParseTopology(data []byte) (*TopologyCfg, error) {
	var cfg TopologyCfg
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	ExpandTopology(&cfg)
	return &cfg, nil
}

// ExpandTopology fills defaults: routers without a protocol run static routing.
func ExpandTopology(cfg *TopologyCfg) {
	for idx, r := range cfg.Routers {
		if r.Protocol == "" {
			r.Protocol = ProtocolStatic
		}
		cfg.Routers[idx] = r
	}
	cfg.RIP = cfg.RIP.WithDefaults()
	cfg.OSPF = cfg.OSPF.WithDefaults()
}

func (c *TopologyCfg) NodeNames() []string {
	names := make([]string, 0, len(c.Routers)+len(c.Hosts))
	for _, r := range c.Routers {
		names = append(names, string(r.Id))
	}
	for _, h := range c.Hosts {
		names = append(names, string(h.Id))
	}
	return names
}

func (c *TopologyCfg) IsRouter(node NodeId) bool {
	return slices.ContainsFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == node
	})
}

func (c *TopologyCfg) IsHost(node NodeId) bool {
	return slices.ContainsFunc(c.Hosts, func(cfg HostCfg) bool {
		return cfg.Id == node
	})
}

func (c *TopologyCfg) TryGetRouter(node NodeId) *RouterCfg {
	idx := slices.IndexFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == node
	})
	if idx == -1 {
		return nil
	}
	return &c.Routers[idx]
}

func (c *TopologyCfg) TryGetHost(node NodeId) *HostCfg {
	idx := slices.IndexFunc(c.Hosts, func(cfg HostCfg) bool {
		return cfg.Id == node
	})
	if idx == -1 {
		return nil
	}
	return &c.Hosts[idx]
}

func (c *TopologyCfg) GetSegments() ([]Segment, error) {
	return ParseSegments(c.Segments, c.NodeNames())
}

// Networks returns every subnet configured on a router interface.
func (c *TopologyCfg) Networks() []netip.Prefix {
	res := make([]netip.Prefix, 0)
	for _, r := range c.Routers {
		for _, itf := range r.Interfaces {
			p := itf.Addr.Masked()
			if !slices.Contains(res, p) {
				res = append(res, p)
			}
		}
	}
	return res
}

func (r *RouterCfg) GetInterface(name string) *InterfaceCfg {
	idx := slices.IndexFunc(r.Interfaces, func(cfg InterfaceCfg) bool {
		return cfg.Name == name
	})
	if idx == -1 {
		return nil
	}
	return &r.Interfaces[idx]
}

// Rid returns the configured router id or the one derived from the name.
func (r *RouterCfg) Rid() RouterId {
	if r.RouterId != 0 {
		return RouterId(r.RouterId)
	}
	return MakeRouterId(r.Id)
}
