package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testreport/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: "nil"},
		{name: "simple error", err: errors.New("test error"), want: "test_error"},
		{name: "error with special chars", err: errors.New("test@error#123"), want: "testerror"},
		{name: "error with multiple spaces", err: errors.New("test  error"), want: "test_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errToLabel(tt.err))
		})
	}
}

func TestRecordFinalization(t *testing.T) {
	m := New(nil, nil)
	m.RecordFinalization(ResultFinalized)
	m.RecordFinalization(ResultIgnored)
	m.RecordFinalization(ResultIgnored)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.finalizationsTotal.WithLabelValues(ResultFinalized)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.finalizationsTotal.WithLabelValues(ResultIgnored)))
}

func TestRecordReport(t *testing.T) {
	m := New(nil, nil)
	m.RecordReport(types.RunStats{TestsRegistered: 10, Passes: 6, Failures: 1, Pending: 1, Skipped: 2, PassPercent: 66.7})

	assert.Equal(t, float64(10), testutil.ToFloat64(m.reportTests.WithLabelValues("registered")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.reportTests.WithLabelValues("skipped")))
	assert.Equal(t, 66.7, testutil.ToFloat64(m.passPercent))

	m.RecordReport(types.RunStats{PassPercent: types.Percent(math.NaN())})
	assert.Equal(t, 66.7, testutil.ToFloat64(m.passPercent))
}

func TestRecordErrorDetails(t *testing.T) {
	m := New(nil, nil)
	m.RecordErrorDetails("generate", errors.New("disk full"))
	m.RecordErrorDetails("generate", nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorsTotal.WithLabelValues("generate.disk_full")))
	count, err := testutil.GatherAndCount(m.Registry(), Namespace+"_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestArtifactsOnSharedRegistry(t *testing.T) {
	m := New(nil, nil)
	m.RecordArtifact("html")
	m.RecordArtifact("json")
	assert.Equal(t, 2, testutil.CollectAndCount(m.artifactsTotal))
}
