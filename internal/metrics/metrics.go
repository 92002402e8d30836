// Package metrics exports regression report counts as Prometheus metrics.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/standardbeagle/shotcheck/internal/report"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// Label values of the scope label. Batch-wide series carry
// scope="batch" and scenario=AllScenarios, so a scenario that is itself
// named "all" keeps its own scope="scenario" series.
const (
	ScopeBatch    = "batch"
	ScopeScenario = "scenario"
	AllScenarios  = "all"
)

// Metrics holds the regression gauges on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	success *prometheus.GaugeVec
	failure *prometheus.GaugeVec
	review  *prometheus.GaugeVec
	drift   *prometheus.GaugeVec
	diffs   *prometheus.HistogramVec
}

// New creates the metric set.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"scope", "scenario"}

	return &Metrics{
		registry: reg,
		success: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shotcheck_screenshot_success_count",
			Help: "Screenshots within the pass threshold in the last batch",
		}, labels),
		failure: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shotcheck_screenshot_failure_count",
			Help: "Screenshots that failed or could not be compared in the last batch",
		}, labels),
		review: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shotcheck_screenshot_review_count",
			Help: "Screenshots needing review in the last batch",
		}, labels),
		drift: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shotcheck_screenshot_drift_detected",
			Help: "1 when any screenshot in the last batch needs review or failed",
		}, labels),
		diffs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shotcheck_screenshot_diff_ratio",
			Help:    "Fraction of differing pixels per compared screenshot in the last batch",
			Buckets: []float64{0.01, 0.05, snapshot.ReviewThreshold, snapshot.FailThreshold, 0.25, 0.5, 1},
		}, []string{"scenario"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Publish replaces every series with the values of r: gauges hold its
// counts and the histogram holds only its diffs, so publishing twice does
// not accumulate.
func (m *Metrics) Publish(r *report.Report) {
	for _, g := range []*prometheus.GaugeVec{m.success, m.failure, m.review, m.drift} {
		g.Reset()
	}
	m.diffs.Reset()

	m.set(ScopeBatch, AllScenarios, r.Summary)

	byScenario := map[string][]report.Result{}
	var order []string
	for _, res := range r.Results {
		name := scenarioOf(res.ScreenshotPath)
		if _, ok := byScenario[name]; !ok {
			order = append(order, name)
		}
		byScenario[name] = append(byScenario[name], res)

		switch res.Outcome.(type) {
		case report.Errored, report.MissingBaseline:
		default:
			m.diffs.WithLabelValues(name).Observe(res.Outcome.Percentage())
		}
	}
	for _, name := range order {
		m.set(ScopeScenario, name, report.Summarize(byScenario[name]))
	}
}

// WriteTextfile writes the registry in node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) set(scope, scenario string, s report.Summary) {
	m.success.WithLabelValues(scope, scenario).Set(float64(s.Passed))
	m.failure.WithLabelValues(scope, scenario).Set(float64(s.Failed))
	m.review.WithLabelValues(scope, scenario).Set(float64(s.Review))

	drift := 0.0
	if s.Review > 0 || s.Failed > 0 {
		drift = 1
	}
	m.drift.WithLabelValues(scope, scenario).Set(drift)
}

// scenarioOf extracts <scenario> from current/<scenario>/<file>.
func scenarioOf(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 3 && parts[0] == snapshot.CurrentDir {
		return parts[1]
	}
	return "unknown"
}
