// Package metrics exposes Prometheus collectors for the cheatcode
// executor. Observation here is side-channel only: nothing in this
// package is reachable from inside the EVM, so registering or scraping
// these collectors never changes interposer semantics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheatcodeInvocations counts successful and reverted cheatcode calls,
// labeled by cheatcode name.
var CheatcodeInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "foundryevm",
	Name:      "cheatcode_invocations_total",
	Help:      "Number of times each cheatcode was invoked.",
}, []string{"cheatcode"})

// CallGasUsed observes gas consumed by a top-level Executor call.
var CallGasUsed = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "foundryevm",
	Name:      "call_gas_used",
	Help:      "Gas consumed by a single top-level interposed call.",
	Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
})

// CallDepth observes the EVM call depth at the point a top-level
// Executor call returns (not the deepest depth reached during it).
var CallDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "foundryevm",
	Name:      "call_depth",
	Help:      "EVM call depth when a top-level interposed call returns.",
	Buckets:   prometheus.LinearBuckets(0, 1, 16),
})

// Registry is a private Prometheus registry so embedding this package
// never collides with a host process's own default registry.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(CheatcodeInvocations, CallGasUsed, CallDepth)
}
