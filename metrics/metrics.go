// Package metrics defines the counters and latency observations the library
// records around build, wait and validate operations.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Metric names recorded by the library.
const (
	MetricBuild    = "build"
	MetricWait     = "wait"
	MetricValidate = "validate"
)
