package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer pairs a GPU buffer with the size it was created with.
type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// wgpuPipeline holds a render pipeline together with the objects it was built from.
type wgpuPipeline struct {
	module   *wgpu.ShaderModule
	layout   *wgpu.PipelineLayout
	pipeline *wgpu.RenderPipeline
}

// wgpuBackend is the WebGPU implementation of Backend.
type wgpuBackend struct {
	mu *sync.Mutex

	logger *slog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference

	configured bool

	nextID     uint32
	layouts    map[LayoutID]*wgpu.BindGroupLayout
	buffers    map[BufferID]*wgpuBuffer
	bindGroups map[BindGroupID]*wgpu.BindGroup
	pipelines  map[PipelineID]*wgpuPipeline

	// Frame state between BeginFrame and Present
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ Backend = &wgpuBackend{}

// NewWGPU creates a WebGPU backend presenting to the surface described by surfaceDescriptor.
// It requests an adapter compatible with that surface, then a device with default limits.
// The calling goroutine is locked to its OS thread, as required by the native surface.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor obtained from the window
//   - options: functional options for adapter selection and logging
//
// Returns:
//   - Backend: the ready-to-use backend
//   - error: ErrNoAdapter or ErrNoDevice wrapped with the native message
func NewWGPU(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUOption) (Backend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("backend: nil surface descriptor")
	}
	runtime.LockOSThread()

	b := &wgpuBackend{
		mu:              &sync.Mutex{},
		logger:          slog.Default(),
		powerPreference: wgpu.PowerPreferenceHighPerformance,
		layouts:         make(map[LayoutID]*wgpu.BindGroupLayout),
		buffers:         make(map[BufferID]*wgpuBuffer),
		bindGroups:      make(map[BindGroupID]*wgpu.BindGroup),
		pipelines:       make(map[PipelineID]*wgpuPipeline),
	}
	for _, opt := range options {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
		PowerPreference:      b.powerPreference,
	})
	if err != nil || adapter == nil {
		b.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil || device == nil {
		b.Destroy()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.logger.Info("wgpu backend ready", "fallback", b.forceFallbackAdapter)
	return b, nil
}

func (b *wgpuBackend) id() uint32 {
	b.nextID++
	return b.nextID
}

func (b *wgpuBackend) SurfaceCapabilities() SurfaceCapabilities {
	b.mu.Lock()
	defer b.mu.Unlock()

	caps := b.surface.GetCapabilities(b.adapter)
	return SurfaceCapabilities{
		Formats:      caps.Formats,
		PresentModes: caps.PresentModes,
		AlphaModes:   caps.AlphaModes,
	}
}

func (b *wgpuBackend) ConfigureSurface(cfg SurfaceConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("backend: cannot configure surface with size %dx%d", cfg.Width, cfg.Height)
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      cfg.Format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: cfg.PresentMode,
		AlphaMode:   cfg.AlphaMode,
	})
	b.configured = true
	return nil
}

func (b *wgpuBackend) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (LayoutID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, err := b.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return 0, fmt.Errorf("failed to create bind group layout %q: %w", desc.Label, err)
	}
	id := LayoutID(b.id())
	b.layouts[id] = layout
	return id, nil
}

func (b *wgpuBackend) CreateBufferInit(desc wgpu.BufferInitDescriptor) (BufferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// CopySrc allows ReadBuffer to stage the contents back to the CPU.
	desc.Usage |= wgpu.BufferUsageCopySrc
	buf, err := b.device.CreateBufferInit(&desc)
	if err != nil {
		return 0, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}
	id := BufferID(b.id())
	b.buffers[id] = &wgpuBuffer{buffer: buf, size: uint64(len(desc.Contents))}
	return id, nil
}

func (b *wgpuBackend) CreateBindGroup(desc BindGroupDescriptor) (BindGroupID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, ok := b.layouts[desc.Layout]
	if !ok {
		return 0, fmt.Errorf("bind group %q: layout %d: %w", desc.Label, desc.Layout, ErrUnknownHandle)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		buf, ok := b.buffers[e.Buffer]
		if !ok {
			return 0, fmt.Errorf("bind group %q: buffer %d: %w", desc.Label, e.Buffer, ErrUnknownHandle)
		}
		size := e.Size
		if size == 0 {
			size = wgpu.WholeSize
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  buf.buffer,
			Offset:  e.Offset,
			Size:    size,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}
	id := BindGroupID(b.id())
	b.bindGroups[id] = bindGroup
	return id, nil
}

func (b *wgpuBackend) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", id, ErrUnknownHandle)
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("write buffer %d: %d bytes at offset %d exceeds size %d", id, len(data), offset, buf.size)
	}
	return b.queue.WriteBuffer(buf.buffer, offset, data)
}

func (b *wgpuBackend) ReadBuffer(id BufferID) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[id]
	if !ok {
		return nil, fmt.Errorf("read buffer %d: %w", id, ErrUnknownHandle)
	}
	if buf.size == 0 {
		return []byte{}, nil
	}

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  buf.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyBufferToBuffer(buf.buffer, 0, staging, 0, buf.size)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, buf.size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("read buffer %d: map failed with status %v", id, status)
	}

	out := make([]byte, buf.size)
	copy(out, staging.GetMappedRange(0, uint(buf.size)))
	staging.Unmap()
	return out, nil
}

func (b *wgpuBackend) BufferSize(id BufferID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[id]
	if !ok {
		return 0, fmt.Errorf("buffer %d: %w", id, ErrUnknownHandle)
	}
	return buf.size, nil
}

func (b *wgpuBackend) CreateRenderPipeline(desc RenderPipelineDescriptor) (PipelineID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layouts := make([]*wgpu.BindGroupLayout, len(desc.Layouts))
	for i, id := range desc.Layouts {
		layout, ok := b.layouts[id]
		if !ok {
			return 0, fmt.Errorf("pipeline %q: layout for group %d: %w", desc.Label, i, ErrUnknownHandle)
		}
		layouts[i] = layout
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return 0, err
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		module.Release()
		return 0, err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    []wgpu.ColorTargetState{desc.Target},
		},
		Primitive:   desc.Primitive,
		Multisample: desc.Multisample,
	})
	if err != nil {
		pipelineLayout.Release()
		module.Release()
		return 0, err
	}

	id := PipelineID(b.id())
	b.pipelines[id] = &wgpuPipeline{module: module, layout: pipelineLayout, pipeline: created}
	return id, nil
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return ErrSurfaceNotConfigured
	}
	// Acquiring a second texture before presenting the first is a validation error in wgpu-native.
	if b.frameSurface != nil {
		return ErrFrameInProgress
	}

	// cogentcore/webgpu returns only validation messages from GetCurrentTexture and drops the
	// surface status, so an outdated or lost surface is not always reported as such. Unrecognized
	// messages classify as ErrDeviceLost and stop the loop.
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return classifyAcquireError(err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuBackend) DrawCall(cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	p, ok := b.pipelines[cmd.Pipeline]
	if !ok {
		return fmt.Errorf("draw: pipeline %d: %w", cmd.Pipeline, ErrUnknownHandle)
	}
	vertex, ok := b.buffers[cmd.VertexBuffer]
	if !ok {
		return fmt.Errorf("draw: vertex buffer %d: %w", cmd.VertexBuffer, ErrUnknownHandle)
	}
	index, ok := b.buffers[cmd.IndexBuffer]
	if !ok {
		return fmt.Errorf("draw: index buffer %d: %w", cmd.IndexBuffer, ErrUnknownHandle)
	}

	b.framePass.SetPipeline(p.pipeline)
	for i, id := range cmd.BindGroups {
		bg, ok := b.bindGroups[id]
		if !ok {
			return fmt.Errorf("draw: bind group %d at group %d: %w", id, i, ErrUnknownHandle)
		}
		b.framePass.SetBindGroup(uint32(i), bg, nil)
	}
	b.framePass.SetVertexBuffer(0, vertex.buffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(index.buffer, cmd.IndexFormat, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(cmd.IndexCount, cmd.InstanceCount, 0, 0, 0)
	return nil
}

func (b *wgpuBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameTargets()
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return ErrNoFrame
	}
	b.surface.Present()
	b.releaseFrameTargets()
	return nil
}

// releaseFrameTargets drops the surface texture and view held for the current frame.
func (b *wgpuBackend) releaseFrameTargets() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuBackend) ReleaseBuffer(id BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buf, ok := b.buffers[id]; ok {
		buf.buffer.Release()
		delete(b.buffers, id)
	}
}

func (b *wgpuBackend) ReleaseBindGroup(id BindGroupID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bg, ok := b.bindGroups[id]; ok {
		bg.Release()
		delete(b.bindGroups, id)
	}
}

func (b *wgpuBackend) ReleaseBindGroupLayout(id LayoutID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if layout, ok := b.layouts[id]; ok {
		layout.Release()
		delete(b.layouts, id)
	}
}

func (b *wgpuBackend) ReleasePipeline(id PipelineID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pipelines[id]; ok {
		p.pipeline.Release()
		p.layout.Release()
		p.module.Release()
		delete(b.pipelines, id)
	}
}

func (b *wgpuBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrameTargets()
	for id, p := range b.pipelines {
		p.pipeline.Release()
		p.layout.Release()
		p.module.Release()
		delete(b.pipelines, id)
	}
	for id, bg := range b.bindGroups {
		bg.Release()
		delete(b.bindGroups, id)
	}
	for id, buf := range b.buffers {
		buf.buffer.Release()
		delete(b.buffers, id)
	}
	for id, layout := range b.layouts {
		layout.Release()
		delete(b.layouts, id)
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
