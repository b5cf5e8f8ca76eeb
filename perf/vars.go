package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency  = metric.NewHistogram("1m1s")
	MessagesPerSec   = metric.NewCounter("10s1s")
	PacketsDelivered = metric.NewCounter("10s1s")
	PacketsDropped   = metric.NewCounter("10s1s")
	RIPUpdates       = metric.NewCounter("10s1s")
	LSAsFlooded      = metric.NewCounter("10s1s")
	LSAsStale        = metric.NewCounter("10s1s")
	SPFRuns          = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("netsim:Messages/s", MessagesPerSec)
	expvar.Publish("netsim:PacketsDelivered", PacketsDelivered)
	expvar.Publish("netsim:PacketsDropped", PacketsDropped)
	expvar.Publish("netsim:RIPUpdates", RIPUpdates)
	expvar.Publish("netsim:LSAsFlooded", LSAsFlooded)
	expvar.Publish("netsim:LSAsStale", LSAsStale)
	expvar.Publish("netsim:SPFRuns", SPFRuns)
	expvar.Publish("netsim:DispatchLatency (µs)", DispatchLatency)
}
