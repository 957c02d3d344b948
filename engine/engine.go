package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// engine implements the Engine interface.
// Everything runs on the thread that created the window: input callbacks, resizes, camera
// updates, shader reloads and rendering.
type engine struct {
	context renderer.Context
	window  window.Window
	logger  *slog.Logger

	loader      loader.Loader
	shaderPath  string
	watchShader bool
	watcher     *shader.Watcher

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickCallback     func(deltaTime float32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // 0 = until quit

	lastFrame time.Time
	running   bool
	err       error
}

// Engine drives a renderer.Context: it forwards window resizes and keys, moves the camera,
// reloads the shader when asked and renders one frame per loop iteration. Recoverable
// surface errors are handled by reconfiguring; anything else stops the loop.
type Engine interface {
	// Context returns the graphics context being driven.
	//
	// Returns:
	//   - renderer.Context: the context
	Context() renderer.Context

	// Window returns the window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables per-second frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// SetTickCallback registers a function called before each frame is rendered.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// ReloadShader reads the shader source again and rebuilds the pipeline. On failure the
	// current pipeline stays active.
	//
	// Returns:
	//   - error: a load error or a *shader.CompileError
	ReloadShader() error

	// Step runs one iteration of the loop: pending shader changes, the tick callback, the
	// camera controller, then Render with surface recovery.
	//
	// Parameters:
	//   - dt: the time since the previous step in seconds
	//
	// Returns:
	//   - error: a fatal error; recoverable surface errors are handled here
	Step(dt float32) error

	// Run starts the loop and blocks until the window closes, the frame budget is spent,
	// Quit is called or a fatal error occurs.
	//
	// Returns:
	//   - error: the fatal error that stopped the loop, or nil
	Run() error

	// Quit stops the loop after the current iteration. Safe to call multiple times.
	Quit()

	// Close stops the shader watcher and releases the context. The window is left to the caller.
	Close()
}

// NewEngine creates a new Engine around an initialized context.
// Options are applied directly to the engine struct via the option-builder pattern, then the
// window callbacks and the shader watcher are wired up.
//
// Parameters:
//   - ctx: the graphics context to drive
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the shader watcher cannot be started
func NewEngine(ctx renderer.Context, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		context: ctx,
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.loader == nil {
		e.loader = loader.NewLoader(loader.WithLogger(e.logger))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.watchShader && e.shaderPath != "" {
		if err := e.startWatcher(); err != nil {
			return nil, err
		}
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.onResize)
		e.window.SetKeyDownCallback(e.onKeyDown)
		e.window.SetKeyUpCallback(e.onKeyUp)
	}
	return e, nil
}

func (e *engine) startWatcher() error {
	if loader.IsEmbedded(e.shaderPath) {
		e.logger.Warn("embedded shaders cannot be watched", "path", e.shaderPath)
		return nil
	}
	w, err := shader.NewWatcher(e.shaderPath, e.logger)
	if err != nil {
		return fmt.Errorf("failed to watch shader: %w", err)
	}
	e.watcher = w
	e.logger.Info("watching shader", "path", w.Path())
	return nil
}

func (e *engine) Context() renderer.Context {
	return e.context
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) EnableProfiler() {
	e.profiler.Reset()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) ReloadShader() error {
	if e.shaderPath == "" {
		return errors.New("engine: no shader path configured")
	}
	e.loader.Invalidate(e.shaderPath)
	src, err := e.loader.LoadString(e.shaderPath)
	if err != nil {
		e.logger.Error("shader reload failed", "path", e.shaderPath, "err", err)
		return err
	}
	return e.context.ReloadShader(src)
}

func (e *engine) Step(dt float32) error {
	e.pollWatcher()

	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
	e.context.Camera().Update(dt)

	err := e.context.Render()
	switch {
	case err == nil:
		if e.profilingEnabled && e.profiler.Tick() && e.window != nil {
			e.window.SetTitle(fmt.Sprintf("%s | %.0f fps", e.window.Title(), e.profiler.Last().FPS))
		}
		return nil
	case errors.Is(err, renderer.ErrSurfaceTimeout):
		// the frame is dropped; the next acquire usually succeeds
		return nil
	case renderer.IsRecoverable(err):
		if rerr := e.context.Reconfigure(); rerr != nil {
			return fmt.Errorf("failed to recover surface: %w", errors.Join(err, rerr))
		}
		return nil
	default:
		return err
	}
}

// pollWatcher reloads the shader when the watcher reported a change since the last frame.
func (e *engine) pollWatcher() {
	if e.watcher == nil {
		return
	}
	select {
	case <-e.watcher.Changes():
		if err := e.ReloadShader(); err != nil {
			if cerr, ok := shader.AsCompileError(err); ok {
				e.logger.Error("shader does not compile", "stage", cerr.Stage, "diagnostic", cerr.Diagnostic)
			}
		}
	case err := <-e.watcher.Errors():
		e.logger.Warn("shader watcher error", "err", err)
	default:
	}
}

func (e *engine) Run() error {
	e.running = true
	e.lastFrame = time.Now()
	if e.profilingEnabled {
		e.profiler.Reset()
	}

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			if !e.frame() {
				_ = e.window.Close()
			}
		})
		e.window.ProcessMessages()
	} else {
		for e.frame() {
		}
	}
	e.running = false
	return e.err
}

// frame runs one loop iteration and reports whether the loop should continue.
func (e *engine) frame() bool {
	if !e.running {
		return false
	}
	now := time.Now()
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	if err := e.Step(dt); err != nil {
		e.logger.Error("render loop stopped", "err", err)
		e.err = err
		e.running = false
		return false
	}
	if e.maxFrames > 0 && e.context.Frames() >= e.maxFrames {
		e.running = false
		return false
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return true
}

func (e *engine) Quit() {
	e.running = false
}

func (e *engine) Close() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			e.logger.Warn("failed to close shader watcher", "err", err)
		}
		e.watcher = nil
	}
	e.context.Release()
}

func (e *engine) onResize(width, height int) {
	if err := e.context.Resize(uint32(max(width, 0)), uint32(max(height, 0))); err != nil {
		e.logger.Error("resize failed", "width", width, "height", height, "err", err)
	}
}

func (e *engine) onKeyDown(keyCode uint32) {
	switch keyCode {
	case common.KeyR:
		_ = e.ReloadShader()
		return
	case common.KeyP:
		if e.profilingEnabled {
			e.DisableProfiler()
		} else {
			e.EnableProfiler()
		}
		return
	}
	if ctrl := e.context.Camera().Controller(); ctrl != nil {
		ctrl.KeyDown(int(keyCode))
	}
}

func (e *engine) onKeyUp(keyCode uint32) {
	if ctrl := e.context.Camera().Controller(); ctrl != nil {
		ctrl.KeyUp(int(keyCode))
	}
}
