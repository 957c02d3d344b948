package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

// ContextBuilderOption is a functional option applied to a context during construction via NewContext.
type ContextBuilderOption func(*graphicsContext)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (Default, VSync or Uncapped)
//
// Returns:
//   - ContextBuilderOption: a function that applies the present mode option to a context
func WithPresentMode(mode PresentMode) ContextBuilderOption {
	return func(c *graphicsContext) {
		c.presentMode = mode
	}
}

// WithCamera sets the camera uploaded at group 0. Its variant selects the Camera struct the
// shader is compiled against. Its screen dimensions are overwritten with the surface size.
// Defaults to a focal camera at the origin.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - ContextBuilderOption: a function that applies the camera option to a context
func WithCamera(cam camera.Camera) ContextBuilderOption {
	return func(c *graphicsContext) {
		c.camera = cam
	}
}

// WithScene sets the scene uploaded at group 1. Defaults to a scene holding scene.DefaultSpheres.
//
// Parameters:
//   - s: the scene
//
// Returns:
//   - ContextBuilderOption: a function that applies the scene option to a context
func WithScene(s scene.Scene) ContextBuilderOption {
	return func(c *graphicsContext) {
		c.scene = s
	}
}

// WithValidator compiles every shader with naga before the pipeline is created, so WGSL errors
// are reported with their diagnostic instead of a driver validation failure.
//
// Parameters:
//   - v: the validator
//
// Returns:
//   - ContextBuilderOption: a function that applies the validator option to a context
func WithValidator(v *shader.Validator) ContextBuilderOption {
	return func(c *graphicsContext) {
		c.validator = v
	}
}

// WithLogger sets the structured logger for surface and shader events. Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ContextBuilderOption: a function that applies the logger option to a context
func WithLogger(logger *slog.Logger) ContextBuilderOption {
	return func(c *graphicsContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// withOwnedBackend makes Release destroy the backend.
func withOwnedBackend() ContextBuilderOption {
	return func(c *graphicsContext) {
		c.ownsBackend = true
	}
}
