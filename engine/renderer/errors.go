package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
)

// Environment errors. They are fatal: the platform cannot run the renderer.
var (
	ErrNoAdapter = backend.ErrNoAdapter
	ErrNoDevice  = backend.ErrNoDevice

	// ErrNoSurfaceFormat is returned when the surface reports no usable texture format.
	ErrNoSurfaceFormat = errors.New("renderer: surface reports no texture formats")
)

// Presentation errors returned by Render. ErrSurfaceOutdated, ErrSurfaceLost and
// ErrSurfaceTimeout are recoverable with Reconfigure; ErrDeviceLost is fatal.
var (
	ErrSurfaceOutdated = backend.ErrSurfaceOutdated
	ErrSurfaceLost     = backend.ErrSurfaceLost
	ErrSurfaceTimeout  = backend.ErrSurfaceTimeout
	ErrDeviceLost      = backend.ErrDeviceLost
)

// ErrReleased is returned by operations on a released Context.
var ErrReleased = errors.New("renderer: context released")

// IsRecoverable reports whether err is a presentation error that Reconfigure fixes.
func IsRecoverable(err error) bool {
	return backend.IsRecoverable(err)
}
