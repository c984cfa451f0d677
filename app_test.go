package testreport

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/exitcodes"
	"github.com/ethereum-optimism/infra/op-testreport/types"
)

const moduleTest = `package calc

import "testing"

func TestAdd(t *testing.T) {
	if 1+1 != 2 {
		t.Fatal("math is broken")
	}
}
`

func eventStream(failing bool) string {
	final := `{"Action":"pass","Package":"example.com/calc","Test":"TestSub","Elapsed":0.01}`
	pkgFinal := `{"Action":"pass","Package":"example.com/calc","Elapsed":0.2}`
	if failing {
		final = `{"Action":"output","Package":"example.com/calc","Test":"TestSub","Output":"    calc_test.go:12: want 1\n"}` + "\n" +
			`{"Action":"fail","Package":"example.com/calc","Test":"TestSub","Elapsed":0.01}`
		pkgFinal = `{"Action":"fail","Package":"example.com/calc","Elapsed":0.2}`
	}
	return strings.Join([]string{
		`{"Time":"2024-05-01T10:00:00Z","Action":"start","Package":"example.com/calc"}`,
		`{"Time":"2024-05-01T10:00:00.01Z","Action":"run","Package":"example.com/calc","Test":"TestAdd"}`,
		`{"Time":"2024-05-01T10:00:00.02Z","Action":"pass","Package":"example.com/calc","Test":"TestAdd","Elapsed":0.01}`,
		`{"Time":"2024-05-01T10:00:00.03Z","Action":"run","Package":"example.com/calc","Test":"TestSub"}`,
		final,
		`{"Time":"2024-05-01T10:00:00.25Z","Action":"output","Package":"example.com/calc","Output":"ok\n"}`,
		pkgFinal,
	}, "\n") + "\n"
}

func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer, string) {
	t.Helper()
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "go.mod"), []byte("module example.com/calc\n\ngo 1.22\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(work, "calc_test.go"), []byte(moduleTest), 0o644))

	opts := DefaultOptions()
	opts.ReportDir = filepath.Join(t.TempDir(), "report")
	cfg := &Config{
		Input:   "-",
		WorkDir: work,
		Options: opts,
		Slow:    engine.DefaultSlow,
		Log:     log.NewLogger(log.DiscardHandler()),
	}
	app, err := New(cfg, "test", nil)
	require.NoError(t, err)

	var out bytes.Buffer
	app.stdout = &out
	app.stdin = strings.NewReader(input)
	return app, &out, opts.ReportDir
}

func TestAppRunPassing(t *testing.T) {
	app, out, dir := newTestApp(t, eventStream(false))

	failures, err := app.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, failures)
	assert.Equal(t, exitcodes.Success, app.ExitCode())
	assert.Contains(t, out.String(), "2 passing")
	assert.Contains(t, out.String(), "Test Report")

	data, err := os.ReadFile(filepath.Join(dir, "testreport.json"))
	require.NoError(t, err)
	var report types.ReportObject
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Stats.Passes)
	require.Len(t, report.Suites.Suites, 1)
	pkg := report.Suites.Suites[0]
	assert.Equal(t, "example.com/calc", pkg.Title)
	require.Len(t, pkg.Tests, 2)
	assert.Contains(t, pkg.Tests[0].Code, `t.Fatal("math is broken")`)
	assert.FileExists(t, filepath.Join(dir, "testreport.html"))
}

func TestAppStartFailing(t *testing.T) {
	app, out, _ := newTestApp(t, eventStream(true))

	err := app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Equal(t, exitcodes.TestFailure, ExitCodeFor(err))
	assert.Equal(t, exitcodes.TestFailure, app.ExitCode())
	assert.Contains(t, out.String(), "1 failing")
	assert.False(t, app.Stopped())
	require.NoError(t, app.Stop(context.Background()))
	assert.True(t, app.Stopped())
}

func TestAppStartSignalsShutdown(t *testing.T) {
	app, _, _ := newTestApp(t, eventStream(false))
	done := make(chan error, 1)
	app.shutdownCallback = func(err error) { done <- err }

	require.NoError(t, app.Start(context.Background()))
	assert.NoError(t, <-done)
}

func TestAppRuntimeErrors(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	app.config.Input = filepath.Join(t.TempDir(), "missing.json")

	err := app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Equal(t, exitcodes.RuntimeErr, ExitCodeFor(err))
}

func TestAppReplayCancelled(t *testing.T) {
	app, _, _ := newTestApp(t, eventStream(false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := app.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, "test", nil)
	require.Error(t, err)
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitcodes.Success, ExitCodeFor(nil))
	assert.Equal(t, exitcodes.RuntimeErr, ExitCodeFor(NewRuntimeError(os.ErrNotExist)))
	assert.Equal(t, exitcodes.TestFailure, ExitCodeFor(NewTestFailureError(2)))
}
