package backend

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUOption is a functional option applied to the WebGPU backend during construction via NewWGPU.
type WGPUOption func(*wgpuBackend)

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUOption: a function that applies the fallback adapter option
func WithForceFallbackAdapter(force bool) WGPUOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = force
	}
}

// WithPowerPreference sets the power preference used when requesting an adapter.
// Defaults to wgpu.PowerPreferenceHighPerformance.
//
// Parameters:
//   - pref: the adapter power preference
//
// Returns:
//   - WGPUOption: a function that applies the power preference option
func WithPowerPreference(pref wgpu.PowerPreference) WGPUOption {
	return func(b *wgpuBackend) {
		b.powerPreference = pref
	}
}

// WithLogger sets the structured logger used by the backend. Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger to use; nil keeps the default
//
// Returns:
//   - WGPUOption: a function that applies the logger option
func WithLogger(logger *slog.Logger) WGPUOption {
	return func(b *wgpuBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}
