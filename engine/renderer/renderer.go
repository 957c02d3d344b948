package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// Group indices of the shader binding contract.
	cameraGroup = 0
	sceneGroup  = 1

	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// graphicsContext is the implementation of the Context interface.
type graphicsContext struct {
	backend     backend.Backend
	ownsBackend bool
	logger      *slog.Logger

	presentMode PresentMode
	config      backend.SurfaceConfig
	state       State

	// surfaceReady is set once the surface has been configured with a non-zero size.
	surfaceReady bool

	vertexBuffer backend.BufferID
	indexBuffer  backend.BufferID

	camera       camera.Camera
	scene        scene.Scene
	sceneVersion uint64
	cameraRes    *bind_group_provider.Resource[camera.Uniform]
	sceneRes     *bind_group_provider.Resource[scene.Spheres]

	preProcessor shader.PreProcessor
	validator    *shader.Validator
	pipeline     pipeline.Pipeline

	frames   uint64
	released bool
}

// Context is the graphics context of the ray tracer. It owns the surface configuration, the
// full-screen quad, the camera and scene resources and the render pipeline. Every frame is one
// encoder, one render pass and one indexed draw of the quad; the fragment shader does the rest.
//
// A Context is not safe for concurrent use. Resize and Render are called from the thread
// driving the window event loop.
type Context interface {
	// Resize reconfigures the surface for a new framebuffer size and updates the camera's screen
	// dimensions. A zero width or height is ignored and moves the context to StateUnconfigured.
	//
	// Parameters:
	//   - width: the new framebuffer width in pixels
	//   - height: the new framebuffer height in pixels
	//
	// Returns:
	//   - error: an error if the backend rejects the configuration
	Resize(width, height uint32) error

	// Render draws one frame: it uploads the camera, re-uploads the scene if it changed,
	// acquires the surface texture, records one render pass with one draw and presents it.
	//
	// Returns:
	//   - error: a recoverable presentation error (check with IsRecoverable and call Reconfigure),
	//     ErrDeviceLost, or an upload error
	Render() error

	// Reconfigure re-applies the current surface configuration. It is the recovery action for
	// ErrSurfaceOutdated and ErrSurfaceLost.
	//
	// Returns:
	//   - error: an error if the backend rejects the configuration
	Reconfigure() error

	// ReloadShader rebuilds the pipeline from new WGSL source against the same bind group
	// layouts. On failure the current pipeline stays active.
	//
	// Parameters:
	//   - source: the raw WGSL source, possibly holding @oxy annotations
	//
	// Returns:
	//   - error: a *shader.CompileError describing the failure
	ReloadShader(source string) error

	// SurfaceConfig returns the surface configuration last applied or stored.
	//
	// Returns:
	//   - backend.SurfaceConfig: the configuration
	SurfaceConfig() backend.SurfaceConfig

	// State returns whether the surface matches the last requested size.
	//
	// Returns:
	//   - State: StateConfigured or StateUnconfigured
	State() State

	// Camera returns the camera uploaded at group 0.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Scene returns the scene uploaded at group 1. Mutations are picked up by the next Render.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Pipeline returns the active render pipeline.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	Pipeline() pipeline.Pipeline

	// Frames returns the number of frames presented.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Release releases every GPU object in reverse creation order. The backend is destroyed too
	// when the context created it. Calling Release twice is a no-op.
	Release()
}

var _ Context = &graphicsContext{}

// NewContext builds a graphics context on an existing backend. Construction order is surface
// configuration, quad buffers, camera and scene resources, then the pipeline. Anything
// created before a failure is released again.
//
// Parameters:
//   - b: the backend owning the device and surface
//   - width: the initial framebuffer width in pixels
//   - height: the initial framebuffer height in pixels
//   - shaderSource: the ray tracing WGSL source
//   - options: a variadic list of ContextBuilderOption functions to configure the context
//
// Returns:
//   - Context: the ready context
//   - error: ErrNoSurfaceFormat, a *shader.CompileError, or a backend error
func NewContext(b backend.Backend, width, height uint32, shaderSource string, options ...ContextBuilderOption) (Context, error) {
	c := &graphicsContext{
		backend:     b,
		logger:      slog.Default(),
		presentMode: PresentModeDefault,
	}
	for _, opt := range options {
		opt(c)
	}

	if err := c.init(width, height, shaderSource); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

func (c *graphicsContext) init(width, height uint32, shaderSource string) error {
	if err := c.configureSurface(width, height); err != nil {
		return err
	}
	if err := c.createQuad(); err != nil {
		return err
	}
	if err := c.createResources(); err != nil {
		return err
	}

	c.preProcessor = shader.NewPreProcessor(c.camera.Variant())
	p, err := c.buildPipeline(shaderSource)
	if err != nil {
		return err
	}
	c.pipeline = p
	return nil
}

func (c *graphicsContext) configureSurface(width, height uint32) error {
	caps := c.backend.SurfaceCapabilities()
	format, ok := pickSurfaceFormat(caps.Formats)
	if !ok {
		return ErrNoSurfaceFormat
	}
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}

	c.config = backend.SurfaceConfig{
		Format:      format,
		Width:       width,
		Height:      height,
		PresentMode: c.presentMode.resolve(caps.PresentModes),
		AlphaMode:   alpha,
	}
	if width == 0 || height == 0 {
		// the first Resize with a real size configures the surface
		c.state = StateUnconfigured
		c.logger.Warn("surface created with zero size", "width", width, "height", height)
		return nil
	}
	if err := c.backend.ConfigureSurface(c.config); err != nil {
		return fmt.Errorf("failed to configure surface: %w", err)
	}
	c.state = StateConfigured
	c.surfaceReady = true
	c.logger.Info("surface configured",
		"format", c.config.Format,
		"present_mode", c.config.PresentMode,
		"alpha_mode", c.config.AlphaMode,
		"width", width,
		"height", height)
	return nil
}

func (c *graphicsContext) createQuad() error {
	vb, err := c.backend.CreateBufferInit(wgpu.BufferInitDescriptor{
		Label:    "Quad Vertex Buffer",
		Contents: common.MarshalVertices(QuadVertices[:]),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("failed to create vertex buffer: %w", err)
	}
	c.vertexBuffer = vb

	ib, err := c.backend.CreateBufferInit(wgpu.BufferInitDescriptor{
		Label:    "Quad Index Buffer",
		Contents: common.MarshalIndices16(QuadIndices[:]),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		return fmt.Errorf("failed to create index buffer: %w", err)
	}
	c.indexBuffer = ib
	return nil
}

func (c *graphicsContext) createResources() error {
	if c.camera == nil {
		c.camera = camera.NewCamera()
	}
	c.camera.SetScreenDimensions(float32(c.config.Width), float32(c.config.Height))

	if c.scene == nil {
		s, err := scene.NewScene("default")
		if err != nil {
			return err
		}
		c.scene = s
	}

	camRes, err := bind_group_provider.Create(c.backend, "Camera", bind_group_provider.KindUniform, c.camera.Uniform(),
		bind_group_provider.WithMinBindingSize(uint64(camera.UniformSize(c.camera.Variant()))))
	if err != nil {
		return fmt.Errorf("failed to create camera resource: %w", err)
	}
	c.cameraRes = camRes

	c.sceneVersion = c.scene.Version()
	sceneRes, err := bind_group_provider.Create(c.backend, "Scene", bind_group_provider.KindReadOnlyStorage, c.scene.Spheres(),
		bind_group_provider.WithMinBindingSize(uint64(scene.GPUSphereSize)))
	if err != nil {
		return fmt.Errorf("failed to create scene resource: %w", err)
	}
	c.sceneRes = sceneRes
	return nil
}

func (c *graphicsContext) expectation() shader.Expectation {
	return shader.Expectation{
		VertexEntryPoint:   vertexEntryPoint,
		FragmentEntryPoint: fragmentEntryPoint,
		Groups: []shader.ExpectedGroup{
			cameraGroup: {Type: wgpu.BufferBindingTypeUniform, Size: uint64(camera.UniformSize(c.camera.Variant()))},
			sceneGroup:  {Type: wgpu.BufferBindingTypeReadOnlyStorage, Size: uint64(scene.GPUSphereSize), RuntimeArray: true},
		},
		VertexStride: uint64(common.VertexSize),
	}
}

func (c *graphicsContext) buildPipeline(source string) (pipeline.Pipeline, error) {
	opts := []shader.ShaderOption{
		shader.WithPreProcessor(c.preProcessor),
		shader.WithExpectation(c.expectation()),
		shader.WithLogger(c.logger),
	}
	if c.validator != nil {
		opts = append(opts, shader.WithValidator(c.validator))
	}
	s, err := shader.NewShader("Ray Trace", source, opts...)
	if err != nil {
		return nil, err
	}

	layouts := make([]backend.LayoutID, 2)
	layouts[cameraGroup] = c.cameraRes.Layout()
	layouts[sceneGroup] = c.sceneRes.Layout()
	return pipeline.Build(c.backend, s, layouts, pipeline.WithTargetFormat(c.config.Format))
}

func (c *graphicsContext) Resize(width, height uint32) error {
	if c.released {
		return ErrReleased
	}
	if width == 0 || height == 0 {
		c.state = StateUnconfigured
		c.logger.Debug("ignoring zero-size resize", "width", width, "height", height)
		return nil
	}
	cfg := c.config
	cfg.Width, cfg.Height = width, height
	if err := c.backend.ConfigureSurface(cfg); err != nil {
		return fmt.Errorf("failed to resize surface to %dx%d: %w", width, height, err)
	}
	c.config = cfg
	c.camera.SetScreenDimensions(float32(width), float32(height))
	c.state = StateConfigured
	c.surfaceReady = true
	c.logger.Debug("surface resized", "width", width, "height", height)
	return nil
}

func (c *graphicsContext) Reconfigure() error {
	if c.released {
		return ErrReleased
	}
	if err := c.Resize(c.config.Width, c.config.Height); err != nil {
		return err
	}
	c.logger.Info("surface reconfigured", "width", c.config.Width, "height", c.config.Height)
	return nil
}

func (c *graphicsContext) Render() error {
	if c.released {
		return ErrReleased
	}
	if !c.surfaceReady {
		// nothing to present to until the window reports a real size
		return nil
	}

	if err := c.cameraRes.Write(c.camera.Uniform()); err != nil {
		return fmt.Errorf("failed to upload camera: %w", err)
	}
	if v := c.scene.Version(); v != c.sceneVersion {
		if err := c.sceneRes.Replace(c.scene.Spheres()); err != nil {
			return fmt.Errorf("failed to upload scene: %w", err)
		}
		c.sceneVersion = v
	}

	if err := c.backend.BeginFrame(); err != nil {
		if IsRecoverable(err) {
			c.logger.Warn("surface texture unavailable", "err", err)
		}
		return err
	}

	bindGroups := make([]backend.BindGroupID, 2)
	bindGroups[cameraGroup] = c.cameraRes.BindGroup()
	bindGroups[sceneGroup] = c.sceneRes.BindGroup()
	drawErr := c.backend.DrawCall(backend.DrawCommand{
		Pipeline:      c.pipeline.ID(),
		BindGroups:    bindGroups,
		VertexBuffer:  c.vertexBuffer,
		IndexBuffer:   c.indexBuffer,
		IndexFormat:   wgpu.IndexFormatUint16,
		IndexCount:    QuadIndexCount,
		InstanceCount: 1,
	})

	// the pass is closed and the texture presented even when the draw failed
	if err := c.backend.EndFrame(); err != nil {
		return errors.Join(drawErr, fmt.Errorf("failed to submit frame: %w", err))
	}
	if err := c.backend.Present(); err != nil {
		return errors.Join(drawErr, fmt.Errorf("failed to present frame: %w", err))
	}
	if drawErr != nil {
		return fmt.Errorf("failed to record draw: %w", drawErr)
	}
	c.frames++
	return nil
}

func (c *graphicsContext) ReloadShader(source string) error {
	if c.released {
		return ErrReleased
	}
	p, err := c.buildPipeline(source)
	if err != nil {
		c.logger.Error("shader reload failed, keeping the current pipeline", "err", err)
		return err
	}
	old := c.pipeline
	c.pipeline = p
	if old != nil {
		old.Release()
	}
	c.logger.Info("shader reloaded", "label", p.Label())
	return nil
}

func (c *graphicsContext) SurfaceConfig() backend.SurfaceConfig {
	return c.config
}

func (c *graphicsContext) State() State {
	return c.state
}

func (c *graphicsContext) Camera() camera.Camera {
	return c.camera
}

func (c *graphicsContext) Scene() scene.Scene {
	return c.scene
}

func (c *graphicsContext) Pipeline() pipeline.Pipeline {
	return c.pipeline
}

func (c *graphicsContext) Frames() uint64 {
	return c.frames
}

func (c *graphicsContext) Release() {
	if c.released {
		return
	}
	c.released = true

	if c.pipeline != nil {
		c.pipeline.Release()
	}
	if c.sceneRes != nil {
		c.sceneRes.Release()
	}
	if c.cameraRes != nil {
		c.cameraRes.Release()
	}
	if c.indexBuffer != 0 {
		c.backend.ReleaseBuffer(c.indexBuffer)
	}
	if c.vertexBuffer != 0 {
		c.backend.ReleaseBuffer(c.vertexBuffer)
	}
	if c.ownsBackend {
		c.backend.Destroy()
	}
}
