// File: control/probes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import "github.com/momentics/hioload-aio/core/dispatch"

// AttachService wires the service's dispatch counters into the metrics
// registry and registers a live probe for state dumps.
func AttachService(svc *dispatch.Service, mr *MetricsRegistry, dp *DebugProbes) {
	mr.SetAll(svc.Stats())
	dp.Register("dispatch", func() any { return svc.Stats() })
}
