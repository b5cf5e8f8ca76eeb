package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddressResolver(t *testing.T) {
	h1 := NewHost("h1", hw(1), pfx("10.0.1.10/24"), addr("10.0.1.1"), nil, nil)
	h2 := NewHost("h2", hw(2), pfx("10.0.1.11/24"), addr("10.0.1.1"), nil, nil)
	reg := Devices{h2, h1}
	a := NewAddressResolver(0)

	got, ok := a.Resolve(addr("10.0.1.11"), reg)
	assert.True(t, ok)
	assert.Equal(t, hw(2), got)
	assert.True(t, a.Cached(addr("10.0.1.11")))

	// failures are not cached
	_, ok = a.Resolve(addr("10.0.1.99"), reg)
	assert.False(t, ok)
	assert.False(t, a.Cached(addr("10.0.1.99")))

	// hits are served from the cache, even once the device is gone
	_, ok = a.Resolve(addr("10.0.1.10"), reg)
	assert.True(t, ok)
	got, ok = a.Resolve(addr("10.0.1.10"), Devices{})
	assert.True(t, ok)
	assert.Equal(t, hw(1), got)

	assert.Equal(t, []ArpEntry{
		{Addr: addr("10.0.1.10"), HwAddr: hw(1)},
		{Addr: addr("10.0.1.11"), HwAddr: hw(2)},
	}, a.Entries())

	a.Flush()
	assert.Empty(t, a.Entries())
	_, ok = a.Resolve(addr("10.0.1.10"), Devices{})
	assert.False(t, ok)
}

func TestAddressResolverExpiry(t *testing.T) {
	a := NewAddressResolver(20 * time.Millisecond)
	reg := Devices{NewHost("h1", hw(1), pfx("10.0.1.10/24"), addr("10.0.1.1"), nil, nil)}
	_, ok := a.Resolve(addr("10.0.1.10"), reg)
	assert.True(t, ok)
	assert.Eventually(t, func() bool {
		return !a.Cached(addr("10.0.1.10"))
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, a.Entries())
}

func TestLocateRouter(t *testing.T) {
	r := NewRouter("r1", 1, nil, nil)
	assert.NoError(t, r.AddInterface("eth0", pfx("10.0.1.1/24"), hw(0x10)))
	dev, ok := Locate(Devices{r}, addr("10.0.1.1"))
	assert.True(t, ok)
	assert.Equal(t, r, dev)
	_, ok = Locate(Devices{r}, addr("10.0.1.2"))
	assert.False(t, ok)
}
