// Package config loads the TOML configuration of the ray tracer and turns it into the
// functional options of the window, renderer, camera and scene packages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("config: invalid value")

// Config is the root of the configuration file.
type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Shader   Shader   `toml:"shader"`
	Camera   Camera   `toml:"camera"`
	Spheres  []Sphere `toml:"spheres"`
	Profiler Profiler `toml:"profiler"`
}

// Window configures the native window.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Renderer configures adapter selection and presentation.
type Renderer struct {
	// PresentMode is "default", "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	// PowerPreference is "high_performance" (the default) or "low_power".
	PowerPreference      string `toml:"power_preference"`
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter"`
	// Validate compiles shaders with naga before handing them to the driver.
	Validate bool `toml:"validate"`
}

// Shader configures the ray tracing shader source.
type Shader struct {
	// Path is a file path or an "embedded:" path.
	Path string `toml:"path"`
	// Watch reloads the shader when the file changes. Ignored for embedded paths.
	Watch bool `toml:"watch"`
}

// Camera configures the camera uploaded at group 0.
type Camera struct {
	// Variant is "focal" or "basis".
	Variant        string      `toml:"variant"`
	Focal          float32     `toml:"focal"`
	ViewportHeight float32     `toml:"viewport_height"`
	FovDegrees     float32     `toml:"fov_degrees"`
	Position       [3]float32  `toml:"position"`
	LookAt         *[3]float32 `toml:"look_at,omitempty"`
	MaxDepth       int32       `toml:"max_depth"`
	Speed          float32     `toml:"speed"`
}

// Sphere is one entry of the scene.
type Sphere struct {
	Center [3]float32 `toml:"center"`
	Radius float32    `toml:"radius"`
}

// Profiler configures the frame statistics logger.
type Profiler struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the configuration used when no file is given: an 800x600 window showing
// the reference sphere through a focal camera with the embedded shader.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	spheres := scene.DefaultSpheres()
	cfgSpheres := make([]Sphere, len(spheres))
	for i, sp := range spheres {
		cfgSpheres[i] = Sphere{Center: sp.Center, Radius: sp.Radius}
	}
	return Config{
		Window: Window{Title: "oxy-rt", Width: 800, Height: 600},
		Renderer: Renderer{
			PresentMode: renderer.PresentModeDefault.String(),
		},
		Shader: Shader{Path: loader.DefaultShaderPath},
		Camera: Camera{
			Variant:        camera.VariantFocal.String(),
			Focal:          1,
			ViewportHeight: 2,
			FovDegrees:     90,
			MaxDepth:       10,
			Speed:          1,
		},
		Spheres:  cfgSpheres,
		Profiler: Profiler{Enabled: true},
	}
}

// Load reads a TOML file on top of Default. Keys missing from the file keep their default
// value; unknown keys are an error.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the validated configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes on top of Default and validates the result.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the validated configuration
//   - error: a decode error or an error wrapping ErrInvalid
func Parse(data []byte) (Config, error) {
	cfg := Default()
	// a [[spheres]] table replaces the default scene instead of appending to it
	cfg.Spheres = nil
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("failed to decode config at %d:%d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Spheres == nil {
		// "spheres = []" still decodes to an empty, non-nil scene
		cfg.Spheres = Default().Spheres
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes the configuration as TOML.
//
// Returns:
//   - []byte: the TOML document
//   - error: an encoding error
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every invalid value in the configuration.
//
// Returns:
//   - error: nil, or the joined errors each wrapping ErrInvalid
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		invalid("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if _, err := renderer.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		invalid("renderer.present_mode: %v", err)
	}
	if _, err := parsePowerPreference(c.Renderer.PowerPreference); err != nil {
		invalid("renderer.power_preference: %v", err)
	}
	if c.Shader.Path == "" {
		invalid("shader.path is empty")
	}
	if _, err := camera.ParseVariant(c.Camera.Variant); err != nil {
		invalid("camera.variant: %v", err)
	}
	if c.Camera.Focal <= 0 {
		invalid("camera.focal %v must be positive", c.Camera.Focal)
	}
	if c.Camera.ViewportHeight <= 0 {
		invalid("camera.viewport_height %v must be positive", c.Camera.ViewportHeight)
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		invalid("camera.fov_degrees %v must be in (0, 180)", c.Camera.FovDegrees)
	}
	if c.Camera.MaxDepth < 1 {
		invalid("camera.max_depth %d must be at least 1", c.Camera.MaxDepth)
	}
	if c.Camera.Speed < 0 {
		invalid("camera.speed %v must not be negative", c.Camera.Speed)
	}
	for i, sp := range c.Spheres {
		if sp.Radius < 0 || math.IsNaN(float64(sp.Radius)) {
			invalid("spheres[%d].radius %v must not be negative", i, sp.Radius)
		}
	}
	return errors.Join(errs...)
}

// CameraOptions returns the camera builder options described by the [camera] table.
//
// Returns:
//   - []camera.CameraBuilderOption: the options
func (c Config) CameraOptions() []camera.CameraBuilderOption {
	variant, _ := camera.ParseVariant(c.Camera.Variant)
	opts := []camera.CameraBuilderOption{
		camera.WithVariant(variant),
		camera.WithScreenDimensions(float32(c.Window.Width), float32(c.Window.Height)),
		camera.WithPosition(c.Camera.Position),
		camera.WithFocal(c.Camera.Focal),
		camera.WithViewportHeight(c.Camera.ViewportHeight),
		camera.WithFov(c.Camera.FovDegrees * math.Pi / 180),
		camera.WithMaxDepth(c.Camera.MaxDepth),
		camera.WithController(camera.NewController(camera.WithSpeed(c.Camera.Speed))),
	}
	if c.Camera.LookAt != nil {
		opts = append(opts, camera.WithLookAt(*c.Camera.LookAt))
	}
	return opts
}

// SceneOptions returns the scene builder options described by the [[spheres]] tables.
//
// Returns:
//   - []scene.SceneBuilderOption: the options
func (c Config) SceneOptions() []scene.SceneBuilderOption {
	spheres := make([]scene.GPUSphere, len(c.Spheres))
	for i, sp := range c.Spheres {
		spheres[i] = scene.GPUSphere{Center: sp.Center, Radius: sp.Radius}
	}
	return []scene.SceneBuilderOption{scene.WithSpheres(spheres...)}
}

// BackendOptions returns the WebGPU backend options described by the [renderer] table.
//
// Returns:
//   - []backend.WGPUOption: the options
func (c Config) BackendOptions() []backend.WGPUOption {
	opts := []backend.WGPUOption{backend.WithForceFallbackAdapter(c.Renderer.ForceFallbackAdapter)}
	if c.Renderer.PowerPreference != "" {
		pref, _ := parsePowerPreference(c.Renderer.PowerPreference)
		opts = append(opts, backend.WithPowerPreference(pref))
	}
	return opts
}

// PresentMode returns the parsed present mode.
//
// Returns:
//   - renderer.PresentMode: the mode, PresentModeDefault when invalid
func (c Config) PresentMode() renderer.PresentMode {
	mode, _ := renderer.ParsePresentMode(c.Renderer.PresentMode)
	return mode
}

func parsePowerPreference(s string) (wgpu.PowerPreference, error) {
	switch s {
	case "", "high_performance":
		return wgpu.PowerPreferenceHighPerformance, nil
	case "low_power":
		return wgpu.PowerPreferenceLowPower, nil
	default:
		return wgpu.PowerPreferenceHighPerformance, fmt.Errorf("unknown power preference %q", s)
	}
}
