package state

import "time"

const (
	// DefaultTTL is the hop budget given to packets built by hosts.
	DefaultTTL = 64
	// MaxTTL is the largest TTL a packet may start with.
	MaxTTL = 64
)

// RIPParams are the distance-vector timers. They belong to a protocol instance, so two routers in
// the same network may run with different values.
type RIPParams struct {
	UpdateInterval time.Duration `yaml:"update_interval,omitempty"`
	RouteTimeout   time.Duration `yaml:"route_timeout,omitempty"`
	GarbageCollect time.Duration `yaml:"garbage_collect,omitempty"`
	AgeInterval    time.Duration `yaml:"age_interval,omitempty"`
	// Infinity is the metric treated as unreachable (max hops + 1).
	Infinity uint32 `yaml:"infinity,omitempty"`
}

// OSPFParams configure the link-state instance.
type OSPFParams struct {
	// InterfaceCost is the cost advertised for neighbours and connected networks.
	InterfaceCost uint32        `yaml:"interface_cost,omitempty"`
	SeenTTL       time.Duration `yaml:"seen_ttl,omitempty"`
}

var (
	DefaultRIPParams = RIPParams{
		UpdateInterval: 30 * time.Second,
		RouteTimeout:   180 * time.Second,
		GarbageCollect: 120 * time.Second,
		AgeInterval:    time.Second,
		Infinity:       16,
	}
	DefaultOSPFParams = OSPFParams{
		InterfaceCost: 1,
		SeenTTL:       time.Hour,
	}

	// Epoch is where every virtual clock starts.
	Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// WithDefaults fills zero fields from DefaultRIPParams.
func (p RIPParams) WithDefaults() RIPParams {
	if p.UpdateInterval == 0 {
		p.UpdateInterval = DefaultRIPParams.UpdateInterval
	}
	if p.RouteTimeout == 0 {
		p.RouteTimeout = DefaultRIPParams.RouteTimeout
	}
	if p.GarbageCollect == 0 {
		p.GarbageCollect = DefaultRIPParams.GarbageCollect
	}
	if p.AgeInterval == 0 {
		p.AgeInterval = DefaultRIPParams.AgeInterval
	}
	if p.Infinity == 0 {
		p.Infinity = DefaultRIPParams.Infinity
	}
	return p
}

func (p OSPFParams) WithDefaults() OSPFParams {
	if p.InterfaceCost == 0 {
		p.InterfaceCost = DefaultOSPFParams.InterfaceCost
	}
	if p.SeenTTL == 0 {
		p.SeenTTL = DefaultOSPFParams.SeenTTL
	}
	return p
}
