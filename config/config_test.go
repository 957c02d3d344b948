package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, loader.DefaultShaderPath, cfg.Shader.Path)
	assert.Equal(t, renderer.PresentModeDefault, cfg.PresentMode())
	require.Len(t, cfg.Spheres, 1)
	assert.Equal(t, float32(0.5), cfg.Spheres[0].Radius)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
title = "spheres"
width = 1280

[renderer]
present_mode = "uncapped"
power_preference = "low_power"

[camera]
variant = "basis"
fov_degrees = 60.0
position = [0.0, 1.0, 2.0]
look_at = [0.0, 0.0, -1.0]

[[spheres]]
center = [0.0, 0.0, -1.0]
radius = 0.5

[[spheres]]
center = [0.0, -100.5, -1.0]
radius = 100.0
`))
	require.NoError(t, err)

	assert.Equal(t, "spheres", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height, "missing keys keep their default")
	assert.Equal(t, renderer.PresentModeUncapped, cfg.PresentMode())
	assert.Equal(t, "basis", cfg.Camera.Variant)
	require.NotNil(t, cfg.Camera.LookAt)
	assert.Equal(t, [3]float32{0, 0, -1}, *cfg.Camera.LookAt)
	require.Len(t, cfg.Spheres, 2)
	assert.Equal(t, float32(100), cfg.Spheres[1].Radius)
	assert.Len(t, cfg.BackendOptions(), 2)
}

func TestParseEmptyScene(t *testing.T) {
	cfg, err := Parse([]byte("spheres = []\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Spheres)

	s, err := scene.NewScene("cfg", cfg.SceneOptions()...)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[window]\ncolour = 3\n"))
	assert.Error(t, err)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("[window\nwidth = 3\n"))
	assert.ErrorContains(t, err, "failed to decode config")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Camera.Variant = "fisheye"
	cfg.Camera.FovDegrees = 180
	cfg.Renderer.PresentMode = "triple"
	cfg.Spheres = append(cfg.Spheres, Sphere{Radius: -1})

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"window size", "camera.variant", "camera.fov_degrees", "present_mode", "spheres[1].radius"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, os.WriteFile(path, []byte("[shader]\npath = \"shaders/custom.wgsl\"\nwatch = true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "shaders/custom.wgsl", cfg.Shader.Path)
	assert.True(t, cfg.Shader.Watch)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Default().Encode()
	require.NoError(t, err)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestCameraOptions(t *testing.T) {
	cfg := Default()
	cfg.Camera.Variant = "basis"
	cfg.Camera.FovDegrees = 90
	cfg.Camera.MaxDepth = 4

	cam := camera.NewCamera(cfg.CameraOptions()...)
	assert.Equal(t, camera.VariantBasis, cam.Variant())
	assert.InDelta(t, 1.5707963, cam.Fov(), 1e-5)
	assert.Equal(t, int32(4), cam.MaxDepth())
	assert.NotNil(t, cam.Controller())
	w, h := cam.ScreenDimensions()
	assert.Equal(t, float32(800), w)
	assert.Equal(t, float32(600), h)
}
