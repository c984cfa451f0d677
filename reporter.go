package testreport

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/exitcodes"
	"github.com/ethereum-optimism/infra/op-testreport/generator"
	"github.com/ethereum-optimism/infra/op-testreport/metrics"
	"github.com/ethereum-optimism/infra/op-testreport/normalize"
	"github.com/ethereum-optimism/infra/op-testreport/stats"
	"github.com/ethereum-optimism/infra/op-testreport/types"
)

// ReportGenerator persists a finalized report
type ReportGenerator interface {
	Create(ctx context.Context, report *types.ReportObject, opts generator.Options) (generator.Artifacts, error)
}

// TreeBuilder normalizes the runtime graph rooted at a suite
type TreeBuilder func(root *engine.Suite, counters *normalize.RunCounters, cfg normalize.Config) *types.SuiteNode

// ReporterConfig configures a Reporter
type ReporterConfig struct {
	Options    Options
	WorkingDir string
	Slow       time.Duration
	Log        log.Logger       // optional
	Metrics    *metrics.Metrics // optional
	// BuildTree replaces normalize.Suites; used by tests
	BuildTree TreeBuilder
}

// Reporter tags runnables as they register and turns the completed run
// into a report exactly once, however often the run-completed event fires
type Reporter struct {
	log       log.Logger
	opts      Options
	normalize normalize.Config
	generator ReportGenerator
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	runner    *engine.Runner
	collector *stats.Collector
	buildTree TreeBuilder
	now       func() time.Time

	finalized atomic.Bool
	report    atomic.Pointer[types.ReportObject]
}

// NewReporter subscribes a reporter to runner
func NewReporter(runner *engine.Runner, gen ReportGenerator, cfg ReporterConfig) *Reporter {
	logger := cfg.Log
	if logger == nil || cfg.Options.Quiet {
		logger = log.NewLogger(log.DiscardHandler())
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil, logger)
	}
	buildTree := cfg.BuildTree
	if buildTree == nil {
		buildTree = normalize.Suites
	}

	r := &Reporter{
		log:  logger,
		opts: cfg.Options,
		normalize: normalize.Config{
			UseInlineDiffs: cfg.Options.UseInlineDiffs,
			WorkingDir:     cfg.WorkingDir,
		},
		generator: gen,
		metrics:   m,
		tracer:    otel.Tracer("test reporter"),
		runner:    runner,
		collector: stats.NewCollector(cfg.Slow),
		buildTree: buildTree,
		now:       time.Now,
	}
	r.attach()
	return r
}

func (r *Reporter) attach() {
	// run accounting must see every event before finalization reads it
	r.collector.Attach(r.runner)

	r.runner.On(engine.EventSuite, func(ev engine.Event) {
		if ev.Suite != nil && ev.Suite.UUID == "" {
			ev.Suite.UUID = uuid.NewString()
		}
	})
	for _, kind := range []engine.EventKind{engine.EventTest, engine.EventHook, engine.EventPending} {
		r.runner.On(kind, func(ev engine.Event) {
			if ev.Runnable != nil && ev.Runnable.UUID == "" {
				ev.Runnable.UUID = uuid.NewString()
			}
		})
	}
	r.runner.On(engine.EventEnd, func(engine.Event) {
		r.finalize()
	})
}

func (r *Reporter) finalize() {
	if !r.finalized.CompareAndSwap(false, true) {
		r.log.Debug("Ignoring repeated end of run")
		r.metrics.RecordFinalization(metrics.ResultIgnored)
		return
	}

	_, span := r.tracer.Start(context.Background(), "finalize report")
	defer span.End()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%v", p)
			r.log.Error("Failed to finalize report", "err", err, "stack", string(debug.Stack()))
			span.RecordError(err)
			span.SetStatus(codes.Error, "finalization failed")
			r.metrics.RecordFinalization(metrics.ResultFailed)
		}
	}()

	counters := &normalize.RunCounters{}
	tree := r.buildTree(r.runner.Suite(), counters, r.normalize)
	runStats := stats.Aggregate(r.collector.Counters(), counters.Total)

	r.report.Store(&types.ReportObject{
		Stats:         runStats,
		Suites:        tree,
		CopyrightYear: r.now().Year(),
	})
	span.SetAttributes(
		attribute.Int("tests.registered", runStats.TestsRegistered),
		attribute.Int("tests.failures", runStats.Failures),
	)
	r.metrics.RecordReport(runStats)
	r.metrics.RecordFinalization(metrics.ResultFinalized)
	r.log.Debug("Report finalized", "tests", runStats.TestsRegistered, "passes", runStats.Passes, "failures", runStats.Failures)
}

// Report returns the finalized report, nil before the run ended or when
// finalization failed
func (r *Reporter) Report() *types.ReportObject {
	return r.report.Load()
}

// Failures is the run-wide failure count, hooks included
func (r *Reporter) Failures() int {
	return r.collector.Counters().Failures
}

// Done hands the report to the generator, logs what was written and then
// calls exit with 1 when failures is non-zero, else 0. Generation errors
// are logged and never change the exit code.
func (r *Reporter) Done(ctx context.Context, failures int, exit func(code int)) {
	defer func() {
		if exit != nil {
			exit(exitcodes.ForFailures(failures))
		}
	}()

	report := r.Report()
	if report == nil {
		r.log.Error("No report to generate", "err", errors.New("run was not finalized"))
		return
	}

	ctx, span := r.tracer.Start(ctx, "generate report")
	defer span.End()

	artifacts, err := r.generator.Create(ctx, report, r.opts.GeneratorOptions())
	if err != nil {
		r.log.Error("Failed to generate report", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		r.metrics.RecordErrorDetails("generate report", err)
		return
	}

	if artifacts.HTML == "" && artifacts.JSON == "" {
		r.log.Warn("No files were generated")
		return
	}
	if artifacts.JSON != "" {
		r.log.Info("Report JSON saved to " + artifacts.JSON)
		r.metrics.RecordArtifact("json")
	}
	if artifacts.HTML != "" {
		r.log.Info("Report HTML saved to " + artifacts.HTML)
		r.metrics.RecordArtifact("html")
	}
}
