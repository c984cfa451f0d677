package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testreport.json"), []byte(`{"stats":{}}`), 0o644))
	return dir
}

func TestHandler(t *testing.T) {
	s := New(nil, reportDir(t), "", nil)
	h := s.Handler()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "healthz", path: "/healthz", wantCode: http.StatusOK, wantBody: "OK"},
		{name: "report file", path: "/testreport.json", wantCode: http.StatusOK, wantBody: `{"stats":{}}`},
		{name: "missing file", path: "/nope.html", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Origin", "http://example.com")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	s := New(nil, reportDir(t), "127.0.0.1:0", nil)
	assert.True(t, s.Stopped())
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Stopped())

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, s.Stopped())
	require.NoError(t, s.Stop(context.Background()), "stopping twice is a no-op")
}

func TestStartRequiresDirectory(t *testing.T) {
	missing := New(nil, filepath.Join(t.TempDir(), "missing"), "127.0.0.1:0", nil)
	require.ErrorContains(t, missing.Start(context.Background()), "report directory")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.ErrorContains(t, New(nil, file, "127.0.0.1:0", nil).Start(context.Background()), "not a directory")
}
