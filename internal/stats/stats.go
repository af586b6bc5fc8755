// Package stats collects per-engine oracle-call and generalization
// counters as prometheus metrics, rendered as a one-shot text summary
// at process exit rather than scraped, since this is a one-shot CLI
// tool and not a long-running server.
package stats

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Counters is the set of engine-wide counters a winning-region engine
// updates as it runs. Every field is a prometheus metric so a caller
// that does want to expose a scrape endpoint can register them.
type Counters struct {
	SATCalls          prometheus.Counter
	QBFCalls          prometheus.Counter
	Generalizations    prometheus.Counter
	BlockedClauses     prometheus.Counter
	Restarts          prometheus.Counter
	Iterations        prometheus.Counter
	MaintenancePasses prometheus.Counter

	FrameCount      prometheus.Gauge
	WinningRegionSize prometheus.Gauge
}

// New returns a fresh, unregistered Counters set, namespaced by engine
// (e.g. "learn_sat", "ic3", "parallel") so multiple engines' counters
// don't collide if registered in the same process.
func New(engine string) *Counters {
	ns := "rsynth_" + engine
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: ns + "_" + name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: ns + "_" + name, Help: help})
	}
	return &Counters{
		SATCalls:          counter("sat_calls_total", "Number of SAT oracle invocations"),
		QBFCalls:          counter("qbf_calls_total", "Number of QBF oracle invocations"),
		Generalizations:    counter("generalizations_total", "Number of counterexample generalization steps"),
		BlockedClauses:     counter("blocked_clauses_total", "Number of clauses added to the winning region"),
		Restarts:          counter("restarts_total", "Number of two-solver restarts"),
		Iterations:        counter("iterations_total", "Number of outer learning-loop iterations"),
		MaintenancePasses: counter("maintenance_passes_total", "Number of periodic maintenance passes"),
		FrameCount:        gauge("frame_count", "Current number of IC3-style frames"),
		WinningRegionSize:  gauge("winning_region_clauses", "Current clause count of the winning region"),
	}
}

// Register registers every counter with prometheus's default registry.
// Safe to skip entirely for callers that only want the text Report.
func (c *Counters) Register() {
	prometheus.MustRegister(
		c.SATCalls, c.QBFCalls, c.Generalizations, c.BlockedClauses,
		c.Restarts, c.Iterations, c.MaintenancePasses,
		c.FrameCount, c.WinningRegionSize,
	)
}

// snapshot extracts the current value of a prometheus.Counter/Gauge via
// its Write method, since client_golang exposes no direct getter.
func snapshot(m prometheus.Metric) float64 {
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	if pb.Gauge != nil {
		return pb.Gauge.GetValue()
	}
	return 0
}

// Report renders a human-readable summary of c for the --stats dump
// written to stderr on exit.
func Report(engine string, c *Counters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "rsynth stats (%s engine):\n", engine)
	fmt.Fprintf(&b, "  iterations:          %d\n", int(snapshot(c.Iterations)))
	fmt.Fprintf(&b, "  sat calls:           %d\n", int(snapshot(c.SATCalls)))
	fmt.Fprintf(&b, "  qbf calls:           %d\n", int(snapshot(c.QBFCalls)))
	fmt.Fprintf(&b, "  generalizations:     %d\n", int(snapshot(c.Generalizations)))
	fmt.Fprintf(&b, "  blocked clauses:     %d\n", int(snapshot(c.BlockedClauses)))
	fmt.Fprintf(&b, "  restarts:            %d\n", int(snapshot(c.Restarts)))
	fmt.Fprintf(&b, "  maintenance passes:  %d\n", int(snapshot(c.MaintenancePasses)))
	fmt.Fprintf(&b, "  frames:              %d\n", int(snapshot(c.FrameCount)))
	fmt.Fprintf(&b, "  winning region size: %d\n", int(snapshot(c.WinningRegionSize)))
	return b.String()
}
