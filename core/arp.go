package core

import (
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// AddressResolver caches address to link address mappings. Misses scan a registry; failed lookups
// are never cached.
type AddressResolver struct {
	cache *ttlcache.Cache[netip.Addr, net.HardwareAddr]
}

// NewAddressResolver creates a resolver whose entries expire after ttl, or never if ttl is zero.
func NewAddressResolver(ttl time.Duration) *AddressResolver {
	return &AddressResolver{
		cache: ttlcache.New[netip.Addr, net.HardwareAddr](
			ttlcache.WithTTL[netip.Addr, net.HardwareAddr](ttl),
			ttlcache.WithDisableTouchOnHit[netip.Addr, net.HardwareAddr](),
		),
	}
}

// Resolve returns the link address of addr. Only successful scans of reg are cached.
func (a *AddressResolver) Resolve(addr netip.Addr, reg Registry) (net.HardwareAddr, bool) {
	if item := a.cache.Get(addr); item != nil {
		return item.Value(), true
	}
	dev, ok := Locate(reg, addr)
	if !ok {
		return nil, false
	}
	hw, _ := dev.HwAddrOf(addr)
	a.cache.Set(addr, hw, ttlcache.DefaultTTL)
	return hw, true
}

// Cached reports whether addr currently has a cache entry.
func (a *AddressResolver) Cached(addr netip.Addr) bool {
	return a.cache.Has(addr)
}

func (a *AddressResolver) Flush() {
	a.cache.DeleteAll()
}

// ArpEntry is a single resolved mapping.
type ArpEntry struct {
	Addr   netip.Addr
	HwAddr net.HardwareAddr
}

// Entries returns the live cache content ordered by address.
func (a *AddressResolver) Entries() []ArpEntry {
	res := make([]ArpEntry, 0, a.cache.Len())
	for addr, item := range a.cache.Items() {
		if item.IsExpired() {
			continue
		}
		res = append(res, ArpEntry{Addr: addr, HwAddr: item.Value()})
	}
	slices.SortFunc(res, func(x, y ArpEntry) int {
		return x.Addr.Compare(y.Addr)
	})
	return res
}
