// Package testutil holds helpers shared by tests that run a whole app.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/gridkit/internal/app"
	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/hcl"
	"github.com/specialistvlad/gridkit/internal/web"
	"github.com/specialistvlad/gridkit/internal/yamlconfig"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcome of starting an app under test.
type HarnessResult struct {
	Logs *SafeBuffer
	Err  error
	App  *app.App
}

// WriteFiles writes files, keyed by path relative to a fresh temporary
// directory, and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// StartApp starts an app with the given configuration files and features
// using a background context.
func StartApp(t *testing.T, files map[string]string, features ...feature.Feature) *HarnessResult {
	t.Helper()
	return StartAppWithContext(context.Background(), t, files, features...)
}

// StartAppWithContext writes files to a temporary directory, creates an app
// reading them, and starts it. The web application, if any, listens on a
// random loopback port. A started app is stopped when the test ends.
func StartAppWithContext(ctx context.Context, t *testing.T, files map[string]string, features ...feature.Feature) *HarnessResult {
	t.Helper()

	cfg := &app.Config{LogLevel: "debug", LogFormat: "text"}
	if len(files) > 0 {
		cfg.ConfigPaths = []string{WriteFiles(t, files)}
	}
	loader := config.NewMulti().
		Register(hcl.NewLoader(), ".hcl").
		Register(yamlconfig.NewLoader(), ".yaml", ".yml")

	logs := &SafeBuffer{}
	a, err := app.New(logs, cfg, loader, features...)
	require.NoError(t, err)
	a.Override(web.Section, func(target any) error {
		target.(*web.Settings).Address = "127.0.0.1:0"
		return nil
	})

	if os.Getenv("GRIDKIT_TEST_LOGS") == "true" {
		t.Cleanup(func() { t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String()) })
	}

	err = a.Start(ctx)
	if err == nil {
		t.Cleanup(func() {
			if stopErr := a.Stop(context.Background()); stopErr != nil {
				t.Errorf("stop app: %v", stopErr)
			}
		})
	}
	return &HarnessResult{Logs: logs, Err: err, App: a}
}

// URL returns the address of the running web application joined with path.
func (r *HarnessResult) URL(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, r.Err, "app did not start")
	webApp, err := di.Get[*web.Application](context.Background(), r.App.Environment())
	require.NoError(t, err)
	require.NotEmpty(t, webApp.Addr(), "web application is not listening")
	return fmt.Sprintf("http://%s%s", webApp.Addr(), path)
}
