// Command oxy-rt renders a sphere scene with a full-screen ray tracing fragment shader.
//
// Usage:
//
//	oxy-rt [-config oxy.toml] [-shader path.wgsl] [-watch] [-headless -frames N] [-cpuprofile dir]
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/pkg/profile"
)

type flags struct {
	config     string
	shader     string
	watch      bool
	headless   bool
	frames     uint64
	cpuprofile string
	verbose    bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	var f flags
	flag.StringVar(&f.config, "config", "", "TOML configuration file")
	flag.StringVar(&f.shader, "shader", "", "WGSL shader path, overrides shader.path")
	flag.BoolVar(&f.watch, "watch", false, "reload the shader when the file changes")
	flag.BoolVar(&f.headless, "headless", false, "render without a window or GPU")
	flag.Uint64Var(&f.frames, "frames", 0, "stop after this many frames (headless defaults to 1)")
	flag.StringVar(&f.cpuprofile, "cpuprofile", "", "write a CPU profile into this directory")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{AddSource: f.verbose, Level: level})
	slog.SetDefault(slog.New(handler))

	if f.cpuprofile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(f.cpuprofile), profile.Quiet).Stop()
	}

	if err := run(f); err != nil {
		if cerr, ok := shader.AsCompileError(err); ok {
			slog.Error("shader compilation failed", "shader", cerr.Label, "stage", cerr.Stage, "diagnostic", cerr.Diagnostic)
		} else {
			slog.Error("oxy-rt failed", "err", err)
		}
		return exitCode(err)
	}
	return 0
}

func run(f flags) error {
	cfg := config.Default()
	if f.config != "" {
		loaded, err := config.Load(f.config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Shader.Path = common.Coalesce(f.shader, cfg.Shader.Path)
	if f.watch {
		cfg.Shader.Watch = true
	}
	if f.headless && f.frames == 0 {
		f.frames = 1
	}

	l := loader.NewLoader()
	src, err := l.LoadString(cfg.Shader.Path)
	if err != nil {
		return err
	}

	s, err := scene.NewScene("main", cfg.SceneOptions()...)
	if err != nil {
		return err
	}
	ctxOpts := []renderer.ContextBuilderOption{
		renderer.WithPresentMode(cfg.PresentMode()),
		renderer.WithCamera(camera.NewCamera(cfg.CameraOptions()...)),
		renderer.WithScene(s),
	}
	if cfg.Renderer.Validate {
		v, err := shader.NewValidator()
		if err != nil {
			return err
		}
		ctxOpts = append(ctxOpts, renderer.WithValidator(v))
	}

	engOpts := []engine.EngineBuilderOption{
		engine.WithShader(l, cfg.Shader.Path),
		engine.WithShaderWatch(cfg.Shader.Watch),
		engine.WithProfiling(cfg.Profiler.Enabled),
		engine.WithMaxFrames(f.frames),
	}

	var ctx renderer.Context
	if f.headless {
		ctx, err = renderer.NewContext(backend.NewHeadless(), uint32(cfg.Window.Width), uint32(cfg.Window.Height), src, ctxOpts...)
		if err != nil {
			return err
		}
	} else {
		win := window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		defer func() { _ = win.Close() }()

		ctx, err = renderer.NewContextForWindow(win, src, cfg.BackendOptions(), ctxOpts...)
		if err != nil {
			return err
		}
		engOpts = append(engOpts, engine.WithWindow(win))
	}

	eng, err := engine.NewEngine(ctx, engOpts...)
	if err != nil {
		ctx.Release()
		return err
	}
	defer eng.Close()

	if err := eng.Run(); err != nil {
		return err
	}
	slog.Info("done", "frames", ctx.Frames())
	return nil
}

// exitCode separates configuration mistakes from environment and shader failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid):
		return 2
	case errors.Is(err, renderer.ErrNoAdapter), errors.Is(err, renderer.ErrNoDevice), errors.Is(err, renderer.ErrNoSurfaceFormat):
		return 3
	default:
		if _, ok := shader.AsCompileError(err); ok {
			return 4
		}
		return 1
	}
}
