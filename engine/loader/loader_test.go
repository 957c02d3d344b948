package loader

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedShader(t *testing.T) {
	l := NewLoader()
	src, err := l.LoadString(DefaultShaderPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultShader(), src)
	assert.Contains(t, src, "fn vs_main")
	assert.Contains(t, src, "fn fs_main")
	assert.Contains(t, src, "//@oxy:group 1 0 storage_read spheres array<sphere>")
}

func TestLoadFromDiskCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	l := NewLoader()
	data, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	data, err = l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data, "cached bytes are returned")
	assert.Equal(t, []string{path}, l.Paths())

	l.Invalidate(path)
	data, err = l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestLoadWithoutCaching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	l := NewLoader(WithCaching(false))
	_, err := l.Load(path)
	require.NoError(t, err)
	_, ok := l.Get(path)
	assert.False(t, ok)
	assert.Empty(t, l.Paths())
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/custom.wgsl": {Data: []byte("fn fs_main() {}")},
	}
	l := NewLoader(WithFS(fsys))

	src, err := l.LoadString("shaders/custom.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "fn fs_main() {}", src)

	// embedded assets stay reachable
	_, err = l.Load(DefaultShaderPath)
	assert.NoError(t, err)

	_, err = l.Load("missing.wgsl")
	assert.Error(t, err)
	_, err = l.Load("../outside.wgsl")
	assert.Error(t, err)
}

func TestCachedBytesAreCopies(t *testing.T) {
	l := NewLoader()
	data, err := l.Load(DefaultShaderPath)
	require.NoError(t, err)
	data[0] = 'X'

	again, err := l.Load(DefaultShaderPath)
	require.NoError(t, err)
	assert.NotEqual(t, byte('X'), again[0])
}

func TestIsEmbedded(t *testing.T) {
	assert.True(t, IsEmbedded(DefaultShaderPath))
	assert.False(t, IsEmbedded("shaders/raytrace.wgsl"))
}
