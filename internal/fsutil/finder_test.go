package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "conf", "b.yaml"))
	touch(t, filepath.Join(dir, "conf", "a.hcl"))
	touch(t, filepath.Join(dir, "conf", "nested", "c.hcl"))
	touch(t, filepath.Join(dir, "conf", "notes.txt"))
	single := filepath.Join(dir, "single.yml")
	touch(t, single)

	files, err := Collect([]string{
		single,
		filepath.Join(dir, "conf"),
		filepath.Join(dir, "missing"),
		single,
	}, ".hcl", ".yaml", ".yml")
	require.NoError(t, err)

	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "conf", "a.hcl"),
		filepath.Join(dir, "conf", "b.yaml"),
		filepath.Join(dir, "conf", "nested", "c.hcl"),
	}, files)
}

func TestCollectPatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "base.hcl"))
	touch(t, filepath.Join(dir, "env", "prod", "web.hcl"))
	touch(t, filepath.Join(dir, "env", "prod", "web.yaml"))
	touch(t, filepath.Join(dir, "env", "dev", "web.hcl"))

	files, err := Collect([]string{
		filepath.Join(dir, "base.hcl"),
		filepath.Join(dir, "env", "**", "*.hcl"),
	}, ".hcl", ".yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "base.hcl"),
		filepath.Join(dir, "env", "dev", "web.hcl"),
		filepath.Join(dir, "env", "prod", "web.hcl"),
	}, files)
}

func TestIsPattern(t *testing.T) {
	assert.True(t, IsPattern("conf/**/*.hcl"))
	assert.True(t, IsPattern("conf/{a,b}.yaml"))
	assert.False(t, IsPattern("conf/app.hcl"))
}

func TestFindFilesByExtensionPanicsOnEmptyExtension(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}
