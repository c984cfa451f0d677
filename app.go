package testreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-testreport/console"
	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/exitcodes"
	"github.com/ethereum-optimism/infra/op-testreport/generator"
	"github.com/ethereum-optimism/infra/op-testreport/gotest"
	"github.com/ethereum-optimism/infra/op-testreport/metrics"
	"github.com/ethereum-optimism/infra/op-testreport/source"
)

var _ cliapp.Lifecycle = (*App)(nil)

// App reports one recorded `go test -json` run and then asks to shut down
type App struct {
	config  *Config
	version string

	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	metricsServer *httputil.HTTPServer
	generator     ReportGenerator

	stdout io.Writer
	stdin  io.Reader

	running  atomic.Bool
	exitCode atomic.Int32

	shutdownCallback func(error)
}

// New creates the app; shutdownCallback is invoked once a passing run has
// been reported
func New(config *Config, version string, shutdownCallback func(error)) (*App, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	gen, err := generator.NewFileGenerator(config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create report generator: %w", err)
	}
	registry := opmetrics.NewRegistry()
	return &App{
		config:           config,
		version:          version,
		registry:         registry,
		metrics:          metrics.New(registry, config.Log),
		generator:        gen,
		stdout:           os.Stdout,
		stdin:            os.Stdin,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start implements the cliapp.Lifecycle interface
func (a *App) Start(ctx context.Context) error {
	a.running.Store(true)
	if err := a.startMetrics(); err != nil {
		return NewRuntimeError(err)
	}

	failures, err := a.Run(ctx)
	if err != nil {
		a.config.Log.Error("Runtime error reporting tests", "err", err)
		return NewRuntimeError(err)
	}
	if failures > 0 {
		a.config.Log.Warn("Reported run has failures, returning exit code 1", "failures", failures)
		return NewTestFailureError(failures)
	}

	if a.shutdownCallback != nil {
		go a.shutdownCallback(nil)
	}
	return nil
}

// Run reads the event stream, replays it through the console and the
// reporter and writes the report artifacts. It returns the failure count of
// the reported run.
func (a *App) Run(ctx context.Context) (int, error) {
	in, closeInput, err := a.openInput()
	if err != nil {
		return 0, err
	}
	defer closeInput()

	var locator gotest.FuncLocator
	if l, err := source.NewLocator(a.config.WorkDir); err == nil {
		locator = l
	} else {
		a.config.Log.Warn("Test sources unavailable", "workdir", a.config.WorkDir, "err", err)
	}

	result, err := gotest.Parse(in, gotest.Options{Locator: locator, Log: a.config.Log})
	if err != nil {
		return 0, err
	}
	a.config.Log.Info("Read test events", "events", result.Events, "skipped", result.Skipped)

	runner := engine.NewRunner(result.Root)
	reporter := NewReporter(runner, a.generator, ReporterConfig{
		Options:    a.config.Options,
		WorkingDir: a.config.WorkDir,
		Slow:       a.config.Slow,
		Log:        a.config.Log,
		Metrics:    a.metrics,
	})
	console.NewSpec(a.stdout, a.config.Color).Attach(runner)

	if err := engine.Replay(ctx, runner, result.Start, result.End); err != nil {
		return 0, fmt.Errorf("failed to replay test events: %w", err)
	}

	report := reporter.Report()
	if report == nil {
		return 0, errors.New("failed to finalize report")
	}
	WriteSummary(a.stdout, report)
	for _, line := range failureLines(report) {
		a.config.Log.Debug("Failed", "test", line)
	}

	failures := reporter.Failures()
	reporter.Done(ctx, failures, func(code int) {
		a.exitCode.Store(int32(code))
	})
	return failures, nil
}

// ExitCode is the exit code computed by the last run
func (a *App) ExitCode() int {
	return int(a.exitCode.Load())
}

func (a *App) openInput() (io.Reader, func(), error) {
	if a.config.Input == "-" {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(a.config.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func (a *App) startMetrics() error {
	cfg := a.config.MetricsConfig
	if !cfg.Enabled {
		return nil
	}
	a.config.Log.Info("Starting metrics server", "addr", cfg.ListenAddr, "port", cfg.ListenPort)
	server, err := opmetrics.StartServer(a.registry, cfg.ListenAddr, cfg.ListenPort)
	if err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	a.config.Log.Info("Started metrics server", "endpoint", server.Addr())
	a.metricsServer = server
	return nil
}

// Stop implements the cliapp.Lifecycle interface
func (a *App) Stop(ctx context.Context) error {
	if !a.running.Load() {
		return nil
	}
	a.running.Store(false)

	var result error
	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	a.config.Log.Info("op-testreport stopped")
	return result
}

// Stopped implements the cliapp.Lifecycle interface
func (a *App) Stopped() bool {
	return !a.running.Load()
}

// ExitCodeFor maps an error returned by the app to a process exit code
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err):
		return exitcodes.RuntimeErr
	default:
		return exitcodes.TestFailure
	}
}
