package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/di"
	"github.com/specialistvlad/gridkit/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFeature struct {
	id         string
	installErr error
	hookErr    error
	sections   []string
	calls      *[]string
}

func (f *testFeature) ID() string          { return f.id }
func (f *testFeature) Name() string        { return "Test " + f.id }
func (f *testFeature) Description() string { return "test feature" }

func (f *testFeature) Install(*di.Environment) error {
	*f.calls = append(*f.calls, "install "+f.id)
	return f.installErr
}

func (f *testFeature) ConfigSections() []string { return f.sections }

func (f *testFeature) OnConfigurationLoaded(context.Context, *config.Root) error {
	*f.calls = append(*f.calls, "configured "+f.id)
	return f.hookErr
}

func TestSet(t *testing.T) {
	t.Run("installs and configures in order", func(t *testing.T) {
		var calls []string
		s := NewSet()
		require.NoError(t, s.Add(&testFeature{id: "b", calls: &calls, sections: []string{"web"}}))
		require.NoError(t, s.Add(&testFeature{id: "a", calls: &calls, sections: []string{"logging"}}))

		require.NoError(t, s.InstallAll(di.New()))
		require.NoError(t, s.ConfigurationLoaded(context.Background(), config.NewRoot()))

		assert.Equal(t, []string{"install b", "install a", "configured b", "configured a"}, calls)
		assert.Equal(t, []string{"web", "logging"}, s.Sections())
		assert.True(t, s.Has("a"))
		assert.Len(t, s.All(), 2)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		var calls []string
		s := NewSet()
		require.NoError(t, s.Add(&testFeature{id: "a", calls: &calls}))

		var dup *registry.DuplicateError
		assert.ErrorAs(t, s.Add(&testFeature{id: "a", calls: &calls}), &dup)
	})

	t.Run("errors name the feature", func(t *testing.T) {
		var calls []string
		boom := errors.New("boom")
		s := NewSet()
		require.NoError(t, s.Add(&testFeature{id: "broken", calls: &calls, installErr: boom}))
		require.NoError(t, s.Add(&testFeature{id: "never", calls: &calls}))

		err := s.InstallAll(di.New())
		var installErr *InstallError
		require.ErrorAs(t, err, &installErr)
		assert.Equal(t, "broken", installErr.Feature)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"install broken"}, calls)
	})
}
