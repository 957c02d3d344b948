package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is the window side of context creation: a native surface and its current
// framebuffer size.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// NewContextForWindow creates a WebGPU backend for the window's surface and builds a context
// on it. The backend is destroyed when the context is released.
//
// Parameters:
//   - win: the window providing the surface descriptor and initial size
//   - shaderSource: the ray tracing WGSL source
//   - backendOptions: options for adapter selection and logging
//   - options: a variadic list of ContextBuilderOption functions to configure the context
//
// Returns:
//   - Context: the ready context
//   - error: ErrNoAdapter, ErrNoDevice, ErrNoSurfaceFormat, a *shader.CompileError, or a backend error
func NewContextForWindow(win SurfaceSource, shaderSource string, backendOptions []backend.WGPUOption, options ...ContextBuilderOption) (Context, error) {
	b, err := backend.NewWGPU(win.SurfaceDescriptor(), backendOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GPU: %w", err)
	}
	width, height := max(win.Width(), 0), max(win.Height(), 0)
	return NewContext(b, uint32(width), uint32(height), shaderSource, append(options, withOwnedBackend())...)
}
