package yamlconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webSettings struct {
	Address         string `yaml:"address"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("top-level keys become sections", func(t *testing.T) {
		p := writeFile(t, "app.yaml", "web:\n  address: \":9090\"\nhealth:\n  path: /healthz\nmetrics:\n")
		root, err := NewLoader().Load(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []string{"web", "health", "metrics"}, root.Names())

		web := webSettings{ShutdownTimeout: "10s"}
		require.NoError(t, root.Section(ctx, "web", &web))
		assert.Equal(t, webSettings{Address: ":9090", ShutdownTimeout: "10s"}, web)

		metrics := webSettings{Address: "kept"}
		require.NoError(t, root.Section(ctx, "metrics", &metrics))
		assert.Equal(t, "kept", metrics.Address)
	})

	t.Run("unknown keys fail on decode", func(t *testing.T) {
		p := writeFile(t, "app.yaml", "web:\n  adress: x\n")
		root, err := NewLoader().Load(ctx, p)
		require.NoError(t, err)
		assert.ErrorContains(t, root.Section(ctx, "web", &webSettings{}), "adress")
	})

	t.Run("empty file", func(t *testing.T) {
		p := writeFile(t, "empty.yml", "")
		root, err := NewLoader().Load(ctx, p)
		require.NoError(t, err)
		assert.Empty(t, root.Names())
	})

	t.Run("root must be a mapping", func(t *testing.T) {
		p := writeFile(t, "list.yaml", "- a\n- b\n")
		_, err := NewLoader().Load(ctx, p)
		assert.ErrorContains(t, err, "must be a mapping")
	})

	t.Run("duplicate sections", func(t *testing.T) {
		p := writeFile(t, "dup.yaml", "web: {}\nweb: {}\n")
		_, err := NewLoader().Load(ctx, p)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read YAML file")
	})
}
