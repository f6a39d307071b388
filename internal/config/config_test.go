package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Address string
	Port    int
}

// mapSection decodes from a fixed map into *settings.
type mapSection struct {
	source string
	values map[string]any
	err    error
}

func (s *mapSection) Decode(_ context.Context, target any) error {
	if s.err != nil {
		return s.err
	}
	t := target.(*settings)
	if v, ok := s.values["address"]; ok {
		t.Address = v.(string)
	}
	if v, ok := s.values["port"]; ok {
		t.Port = v.(int)
	}
	return nil
}

func (s *mapSection) Source() string { return s.source }

func TestRootSection(t *testing.T) {
	ctx := context.Background()

	t.Run("missing section keeps defaults", func(t *testing.T) {
		root := NewRoot()
		got := settings{Address: ":8080", Port: 1}
		require.NoError(t, root.Section(ctx, "web", &got))
		assert.Equal(t, settings{Address: ":8080", Port: 1}, got)
		assert.False(t, root.Has("web"))
	})

	t.Run("decodes only mentioned fields", func(t *testing.T) {
		root := NewRoot()
		root.Add("web", &mapSection{source: "a.hcl", values: map[string]any{"port": 9000}})

		got := settings{Address: ":8080"}
		require.NoError(t, root.Section(ctx, "web", &got))
		assert.Equal(t, settings{Address: ":8080", Port: 9000}, got)
	})

	t.Run("decode errors name the section and source", func(t *testing.T) {
		root := NewRoot()
		boom := errors.New("boom")
		root.Add("web", &mapSection{source: "app.yaml", err: boom})

		err := root.Section(ctx, "web", &settings{})
		require.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "section 'web' from app.yaml")
	})

	t.Run("overlays run after decoding", func(t *testing.T) {
		root := NewRoot()
		root.Add("web", &mapSection{values: map[string]any{"address": ":1", "port": 1}})
		root.Overlay("web", func(target any) error {
			target.(*settings).Address = ":2"
			return nil
		})
		root.Overlay("health", func(target any) error {
			target.(*settings).Port = 7
			return nil
		})

		var web settings
		require.NoError(t, root.Section(ctx, "web", &web))
		assert.Equal(t, settings{Address: ":2", Port: 1}, web)

		var health settings
		require.NoError(t, root.Section(ctx, "health", &health))
		assert.Equal(t, 7, health.Port)

		boom := errors.New("boom")
		root.Overlay("web", func(any) error { return boom })
		assert.ErrorIs(t, root.Section(ctx, "web", &web), boom)
	})

	t.Run("later sections override earlier ones", func(t *testing.T) {
		first := NewRoot()
		first.Add("web", &mapSection{values: map[string]any{"port": 1}})
		first.Add("logging", &mapSection{})
		second := NewRoot()
		second.Add("web", &mapSection{values: map[string]any{"port": 2}})
		second.Add("metrics", &mapSection{})

		root := NewRoot()
		root.Merge(first)
		root.Merge(second)
		root.Merge(nil)

		var got settings
		require.NoError(t, root.Section(ctx, "web", &got))
		assert.Equal(t, 2, got.Port)
		assert.Equal(t, []string{"web", "logging", "metrics"}, root.Names())
	})
}

// lineLoader turns every line "name=port" of a file into a section.
type lineLoader struct{ calls []string }

func (l *lineLoader) Load(_ context.Context, paths ...string) (*Root, error) {
	root := NewRoot()
	for _, p := range paths {
		l.calls = append(l.calls, filepath.Base(p))
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Fields(string(data)) {
			name, _, _ := strings.Cut(line, "=")
			root.Add(name, &mapSection{source: p, values: map[string]any{"address": line}})
		}
	}
	return root, nil
}

func TestMultiLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	t.Run("dispatches by extension", func(t *testing.T) {
		a := write("a.one", "web=a")
		b := write("b.two", "web=b health=b")

		one, two := &lineLoader{}, &lineLoader{}
		m := NewMulti().Register(one, ".one").Register(two, ".two")
		root, err := m.Load(ctx, a, b)
		require.NoError(t, err)

		assert.Equal(t, []string{"a.one"}, one.calls)
		assert.Equal(t, []string{"b.two"}, two.calls)

		var got settings
		require.NoError(t, root.Section(ctx, "web", &got))
		assert.Equal(t, "web=b", got.Address)
		assert.True(t, root.Has("health"))
	})

	t.Run("unknown extension is an error", func(t *testing.T) {
		p := write("app.toml", "")
		_, err := NewMulti().Register(&lineLoader{}, ".one").Load(ctx, p)
		assert.ErrorContains(t, err, "no configuration loader")
	})

	t.Run("missing paths are skipped", func(t *testing.T) {
		root, err := NewMulti().Register(&lineLoader{}, ".one").Load(ctx, filepath.Join(dir, "nope.one"))
		require.NoError(t, err)
		assert.Empty(t, root.Names())
	})

	t.Run("extensions are sorted", func(t *testing.T) {
		m := NewMulti().Register(&lineLoader{}, ".yml", ".hcl", ".yaml")
		assert.Equal(t, []string{".hcl", ".yaml", ".yml"}, m.Extensions())
	})
}
