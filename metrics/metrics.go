package metrics

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-testreport/types"
)

const Namespace = "op_testreport"

// Finalization results
const (
	ResultFinalized = "finalized"
	ResultIgnored   = "ignored"
	ResultFailed    = "failed"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

// Metrics holds the collectors of one reporter process
type Metrics struct {
	registry *prometheus.Registry
	log      log.Logger

	finalizationsTotal *prometheus.CounterVec
	artifactsTotal     *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	reportTests        *prometheus.GaugeVec
	passPercent        prometheus.Gauge
}

// New registers the collectors on registry; a nil registry gets a fresh one
func New(registry *prometheus.Registry, logger log.Logger) *Metrics {
	if registry == nil {
		registry = opmetrics.NewRegistry()
	}
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	factory := opmetrics.With(registry)

	return &Metrics{
		registry: registry,
		log:      logger,
		finalizationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "finalizations_total",
			Help:      "Count of run-completed signals by how they were handled",
		}, []string{"result"}),
		artifactsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "artifacts_total",
			Help:      "Count of written report artifacts",
		}, []string{"kind"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Count of errors",
		}, []string{"error"}),
		reportTests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "report_tests",
			Help:      "Tests in the last finalized report by state",
		}, []string{"state"}),
		passPercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pass_percent",
			Help:      "Pass percentage of the last finalized report",
		}),
	}
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordFinalization(result string) {
	m.log.Debug("metric inc", "m", "finalizations_total", "result", result)
	m.finalizationsTotal.WithLabelValues(result).Inc()
}

// FinalizationsTotal returns the counter of one finalization result
func (m *Metrics) FinalizationsTotal(result string) prometheus.Counter {
	return m.finalizationsTotal.WithLabelValues(result)
}

func (m *Metrics) RecordArtifact(kind string) {
	m.artifactsTotal.WithLabelValues(kind).Inc()
}

// RecordReport publishes the totals of a finalized report. An undefined
// pass percentage leaves the gauge untouched.
func (m *Metrics) RecordReport(stats types.RunStats) {
	m.reportTests.WithLabelValues("registered").Set(float64(stats.TestsRegistered))
	m.reportTests.WithLabelValues("passed").Set(float64(stats.Passes))
	m.reportTests.WithLabelValues("failed").Set(float64(stats.Failures))
	m.reportTests.WithLabelValues("pending").Set(float64(stats.Pending))
	m.reportTests.WithLabelValues("skipped").Set(float64(stats.Skipped))
	if stats.PassPercent.IsFinite() {
		m.passPercent.Set(float64(stats.PassPercent))
	}
}

func (m *Metrics) RecordError(label string) {
	m.log.Debug("metric inc", "m", "errors_total", "error", label)
	m.errorsTotal.WithLabelValues(label).Inc()
}

// RecordErrorDetails appends a cleaned form of err to the label
func (m *Metrics) RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	m.RecordError(label + "." + errToLabel(err))
}

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}
