package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables per-second frame statistics.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithWindow attaches the window whose events drive the loop. Without a window the engine
// runs headless until Quit or the frame budget of WithMaxFrames.
//
// Parameters:
//   - w: the window the context presents to
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrames stops Run after n presented frames. 0 runs until Quit or the window closes.
//
// Parameters:
//   - n: the frame budget
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithShader names the shader file reloaded by ReloadShader and the R key.
//
// Parameters:
//   - l: the loader reading the file; nil uses a default disk loader
//   - path: a file path or an "embedded:" path
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShader(l loader.Loader, path string) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
		e.shaderPath = path
	}
}

// WithShaderWatch reloads the shader whenever the file named by WithShader changes on disk.
//
// Parameters:
//   - watch: true to watch the shader file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShaderWatch(watch bool) EngineBuilderOption {
	return func(e *engine) {
		e.watchShader = watch
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
