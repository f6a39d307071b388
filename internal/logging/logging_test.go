package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/yamlconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLogging(t *testing.T) {
	t.Run("json output honours the root level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("info", "json", &buf)
		require.NoError(t, err)

		l.Logger().Debug("hidden")
		l.Logger().Info("shown", "key", "value")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "shown", rec["msg"])
		assert.Equal(t, "value", rec["key"])
	})

	t.Run("named loggers follow root until overridden", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("warn", "text", &buf)
		require.NoError(t, err)
		db := l.For("db")

		db.Info("first")
		assert.Empty(t, buf.String())

		require.NoError(t, l.Apply(Settings{Loggers: map[string]string{"db": "debug"}}))
		db.Debug("second")
		assert.Contains(t, buf.String(), "second")
		assert.Contains(t, buf.String(), "logger=db")

		buf.Reset()
		l.Logger().Info("root still at warn")
		assert.Empty(t, buf.String())
	})

	t.Run("apply validates", func(t *testing.T) {
		l, err := New("info", "", &bytes.Buffer{})
		require.NoError(t, err)

		assert.Error(t, l.Apply(Settings{Level: "nope"}))
		assert.Error(t, l.Apply(Settings{Loggers: map[string]string{"x": "nope"}}))
		assert.Error(t, l.Apply(Settings{Format: "json"}))
		assert.NoError(t, l.Apply(Settings{Format: "TEXT", Level: "error"}))
		assert.Equal(t, slog.LevelError, l.Level())
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := New("info", "xml", &bytes.Buffer{})
		assert.ErrorContains(t, err, "unknown log format")
	})
}

func TestFeature(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	l, err := New("info", "text", &buf)
	require.NoError(t, err)

	f := NewFeature(l)
	env := di.New()
	require.NoError(t, f.Install(env))

	type component struct{ logger *slog.Logger }
	require.NoError(t, di.Provide(env, func(ctx context.Context, s *di.Scope) (*component, error) {
		logger, err := LoggerFor(ctx, s)
		return &component{logger: logger}, err
	}))
	require.NoError(t, env.Build(ctx))

	p := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(p, []byte("logging:\n  level: debug\n"), 0o644))
	root, err := yamlconfig.NewLoader().Load(ctx, p)
	require.NoError(t, err)
	require.NoError(t, f.OnConfigurationLoaded(ctx, root))
	assert.Equal(t, slog.LevelDebug, l.Level())

	c := di.MustGet[*component](ctx, env)
	c.logger.Debug("from component")
	assert.Contains(t, buf.String(), "from component")
	assert.Contains(t, buf.String(), "logging.component")

	require.NoError(t, f.OnConfigurationLoaded(ctx, config.NewRoot()))
	assert.Same(t, l, di.MustGet[*Logging](ctx, env))
	assert.NotNil(t, di.MustGet[*slog.Logger](ctx, env))
}
