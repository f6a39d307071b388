package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/gridkit/internal/cli"
	"github.com/specialistvlad/gridkit/internal/testutil"
	"github.com/specialistvlad/gridkit/modules/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRun_ServesBuiltinFeatures(t *testing.T) {
	addr := freeAddress(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.hcl"), []byte(`
logging {
  level = "debug"
}

metrics {
  namespace = "e2e"
}
`), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	out := &testutil.SafeBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, out, []string{"serve", "--address", addr, "-c", dir})
	}()

	base := "http://" + addr
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 5*time.Second, 20*time.Millisecond, "health endpoint never came up")

	var report health.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	resp.Body.Close()
	assert.Equal(t, "ok", report.Status)
	assert.Contains(t, report.Services, "*web.Application")
	assert.Contains(t, report.Services, "*realtime.Server")

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `e2e_http_requests_total{method="GET",route="/health",status="200"} 1`)

	resp, err = http.Get(base + "/socket.io/?EIO=4&transport=polling")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.Contains(t, out.String(), "Application stopped.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for --help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_StartupFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte("web {\n  address = \n"), 0600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"serve", path})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Message, "failed to load configuration")
}
