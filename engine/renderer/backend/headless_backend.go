package backend

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultHeadlessCapabilities mirrors a typical desktop Vulkan surface: a non-sRGB format is
// listed first so that sRGB selection is exercised.
var DefaultHeadlessCapabilities = SurfaceCapabilities{
	Formats:      []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb},
	PresentModes: []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate, wgpu.PresentModeMailbox},
	AlphaModes:   []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
}

// DrawRecord is a draw call captured by the Headless backend.
type DrawRecord struct {
	Command DrawCommand
}

// FrameRecord is a submitted frame captured by the Headless backend.
type FrameRecord struct {
	// Config is the surface configuration active when the frame began.
	Config SurfaceConfig
	// LoadOp is the color attachment load operation of the single render pass.
	LoadOp wgpu.LoadOp
	// Draws holds the draw calls of the frame in encoding order.
	Draws []DrawRecord
	// Presented reports whether Present was called for this frame.
	Presented bool
}

type headlessLayout struct {
	desc wgpu.BindGroupLayoutDescriptor
}

type headlessBuffer struct {
	label string
	data  []byte
	usage wgpu.BufferUsage
}

type headlessBindGroup struct {
	desc BindGroupDescriptor
}

type headlessPipeline struct {
	desc RenderPipelineDescriptor
}

// Headless is an in-memory Backend. It keeps buffer contents on the CPU, validates handle
// references the way a WebGPU implementation would and records every frame, so rendering
// can be exercised without a GPU or a window.
type Headless struct {
	mu *sync.Mutex

	capabilities SurfaceCapabilities
	config       SurfaceConfig
	configured   bool
	configures   int

	nextID     uint32
	layouts    map[LayoutID]*headlessLayout
	buffers    map[BufferID]*headlessBuffer
	bindGroups map[BindGroupID]*headlessBindGroup
	pipelines  map[PipelineID]*headlessPipeline

	acquireErrors   []error
	pipelineErrors  []error
	configureErrors []error

	frame  *FrameRecord
	frames []FrameRecord
}

var _ Backend = &Headless{}

// NewHeadless creates an in-memory backend.
//
// Parameters:
//   - options: functional options to configure capabilities and failure injection
//
// Returns:
//   - *Headless: the new backend
func NewHeadless(options ...HeadlessOption) *Headless {
	h := &Headless{
		mu:           &sync.Mutex{},
		capabilities: DefaultHeadlessCapabilities,
		layouts:      make(map[LayoutID]*headlessLayout),
		buffers:      make(map[BufferID]*headlessBuffer),
		bindGroups:   make(map[BindGroupID]*headlessBindGroup),
		pipelines:    make(map[PipelineID]*headlessPipeline),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *Headless) id() uint32 {
	h.nextID++
	return h.nextID
}

func (h *Headless) SurfaceCapabilities() SurfaceCapabilities {
	h.mu.Lock()
	defer h.mu.Unlock()
	return SurfaceCapabilities{
		Formats:      slices.Clone(h.capabilities.Formats),
		PresentModes: slices.Clone(h.capabilities.PresentModes),
		AlphaModes:   slices.Clone(h.capabilities.AlphaModes),
	}
}

func (h *Headless) ConfigureSurface(cfg SurfaceConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("backend: cannot configure surface with size %dx%d", cfg.Width, cfg.Height)
	}
	if !slices.Contains(h.capabilities.Formats, cfg.Format) {
		return fmt.Errorf("backend: surface format %v not supported", cfg.Format)
	}
	if len(h.configureErrors) > 0 {
		err := h.configureErrors[0]
		h.configureErrors = h.configureErrors[1:]
		return err
	}
	h.config = cfg
	h.configured = true
	h.configures++
	return nil
}

func (h *Headless) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (LayoutID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return 0, fmt.Errorf("bind group layout %q: duplicate binding %d", desc.Label, e.Binding)
		}
		seen[e.Binding] = true
	}
	desc.Entries = slices.Clone(desc.Entries)
	id := LayoutID(h.id())
	h.layouts[id] = &headlessLayout{desc: desc}
	return id, nil
}

func (h *Headless) CreateBufferInit(desc wgpu.BufferInitDescriptor) (BufferID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(desc.Contents)%4 != 0 {
		return 0, fmt.Errorf("buffer %q: size %d is not a multiple of 4", desc.Label, len(desc.Contents))
	}
	id := BufferID(h.id())
	h.buffers[id] = &headlessBuffer{label: desc.Label, data: slices.Clone(desc.Contents), usage: desc.Usage}
	if h.buffers[id].data == nil {
		h.buffers[id].data = []byte{}
	}
	return id, nil
}

func (h *Headless) CreateBindGroup(desc BindGroupDescriptor) (BindGroupID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	layout, ok := h.layouts[desc.Layout]
	if !ok {
		return 0, fmt.Errorf("bind group %q: layout %d: %w", desc.Label, desc.Layout, ErrUnknownHandle)
	}
	if len(desc.Entries) != len(layout.desc.Entries) {
		return 0, fmt.Errorf("bind group %q: %d entries for a layout with %d", desc.Label, len(desc.Entries), len(layout.desc.Entries))
	}
	for _, e := range desc.Entries {
		buf, ok := h.buffers[e.Buffer]
		if !ok {
			return 0, fmt.Errorf("bind group %q: buffer %d: %w", desc.Label, e.Buffer, ErrUnknownHandle)
		}
		idx := slices.IndexFunc(layout.desc.Entries, func(le wgpu.BindGroupLayoutEntry) bool { return le.Binding == e.Binding })
		if idx < 0 {
			return 0, fmt.Errorf("bind group %q: binding %d not in layout", desc.Label, e.Binding)
		}
		le := layout.desc.Entries[idx]
		size := e.Size
		if size == 0 {
			size = uint64(len(buf.data)) - min(e.Offset, uint64(len(buf.data)))
		}
		if size == 0 {
			return 0, fmt.Errorf("bind group %q: binding %d has zero size", desc.Label, e.Binding)
		}
		if e.Offset+size > uint64(len(buf.data)) {
			return 0, fmt.Errorf("bind group %q: binding %d range exceeds buffer size %d", desc.Label, e.Binding, len(buf.data))
		}
		if le.Buffer.MinBindingSize > 0 && size < le.Buffer.MinBindingSize {
			return 0, fmt.Errorf("bind group %q: binding %d size %d below minimum %d", desc.Label, e.Binding, size, le.Buffer.MinBindingSize)
		}
		switch le.Buffer.Type {
		case wgpu.BufferBindingTypeUniform:
			if buf.usage&wgpu.BufferUsageUniform == 0 {
				return 0, fmt.Errorf("bind group %q: binding %d needs a uniform buffer", desc.Label, e.Binding)
			}
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			if buf.usage&wgpu.BufferUsageStorage == 0 {
				return 0, fmt.Errorf("bind group %q: binding %d needs a storage buffer", desc.Label, e.Binding)
			}
		}
	}
	desc.Entries = slices.Clone(desc.Entries)
	id := BindGroupID(h.id())
	h.bindGroups[id] = &headlessBindGroup{desc: desc}
	return id, nil
}

func (h *Headless) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.buffers[id]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", id, ErrUnknownHandle)
	}
	if buf.usage&wgpu.BufferUsageCopyDst == 0 {
		return fmt.Errorf("write buffer %d: buffer %q lacks CopyDst usage", id, buf.label)
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("write buffer %d: offset and size must be multiples of 4", id)
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("write buffer %d: %d bytes at offset %d exceeds size %d", id, len(data), offset, len(buf.data))
	}
	copy(buf.data[offset:], data)
	return nil
}

func (h *Headless) ReadBuffer(id BufferID) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.buffers[id]
	if !ok {
		return nil, fmt.Errorf("read buffer %d: %w", id, ErrUnknownHandle)
	}
	return slices.Clone(buf.data), nil
}

func (h *Headless) BufferSize(id BufferID) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.buffers[id]
	if !ok {
		return 0, fmt.Errorf("buffer %d: %w", id, ErrUnknownHandle)
	}
	return uint64(len(buf.data)), nil
}

func (h *Headless) CreateRenderPipeline(desc RenderPipelineDescriptor) (PipelineID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pipelineErrors) > 0 {
		err := h.pipelineErrors[0]
		h.pipelineErrors = h.pipelineErrors[1:]
		return 0, err
	}
	for i, id := range desc.Layouts {
		if _, ok := h.layouts[id]; !ok {
			return 0, fmt.Errorf("pipeline %q: layout for group %d: %w", desc.Label, i, ErrUnknownHandle)
		}
	}
	if strings.TrimSpace(desc.Source) == "" {
		return 0, fmt.Errorf("pipeline %q: empty shader source", desc.Label)
	}
	for _, entry := range []string{desc.VertexEntryPoint, desc.FragmentEntryPoint} {
		if !strings.Contains(desc.Source, "fn "+entry) {
			return 0, fmt.Errorf("pipeline %q: entry point %q not found in shader", desc.Label, entry)
		}
	}
	if !slices.Contains(h.capabilities.Formats, desc.Target.Format) {
		return 0, fmt.Errorf("pipeline %q: color target format %v not supported", desc.Label, desc.Target.Format)
	}
	desc.Layouts = slices.Clone(desc.Layouts)
	id := PipelineID(h.id())
	h.pipelines[id] = &headlessPipeline{desc: desc}
	return id, nil
}

func (h *Headless) BeginFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.configured {
		return ErrSurfaceNotConfigured
	}
	if h.frame != nil {
		return ErrFrameInProgress
	}
	if len(h.acquireErrors) > 0 {
		err := h.acquireErrors[0]
		h.acquireErrors = h.acquireErrors[1:]
		return classifyAcquireError(err)
	}
	h.frame = &FrameRecord{Config: h.config, LoadOp: wgpu.LoadOpLoad}
	return nil
}

func (h *Headless) DrawCall(cmd DrawCommand) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frame == nil {
		return ErrNoFrame
	}
	p, ok := h.pipelines[cmd.Pipeline]
	if !ok {
		return fmt.Errorf("draw: pipeline %d: %w", cmd.Pipeline, ErrUnknownHandle)
	}
	if len(cmd.BindGroups) != len(p.desc.Layouts) {
		return fmt.Errorf("draw: %d bind groups for a pipeline with %d groups", len(cmd.BindGroups), len(p.desc.Layouts))
	}
	for i, id := range cmd.BindGroups {
		bg, ok := h.bindGroups[id]
		if !ok {
			return fmt.Errorf("draw: bind group %d at group %d: %w", id, i, ErrUnknownHandle)
		}
		if bg.desc.Layout != p.desc.Layouts[i] {
			return fmt.Errorf("draw: bind group %q at group %d does not match the pipeline layout", bg.desc.Label, i)
		}
	}
	if buf, ok := h.buffers[cmd.VertexBuffer]; !ok || buf.usage&wgpu.BufferUsageVertex == 0 {
		return fmt.Errorf("draw: vertex buffer %d is missing or lacks Vertex usage", cmd.VertexBuffer)
	}
	index, ok := h.buffers[cmd.IndexBuffer]
	if !ok || index.usage&wgpu.BufferUsageIndex == 0 {
		return fmt.Errorf("draw: index buffer %d is missing or lacks Index usage", cmd.IndexBuffer)
	}
	stride := uint64(2)
	if cmd.IndexFormat == wgpu.IndexFormatUint32 {
		stride = 4
	}
	if uint64(cmd.IndexCount)*stride > uint64(len(index.data)) {
		return fmt.Errorf("draw: %d indices exceed index buffer size %d", cmd.IndexCount, len(index.data))
	}

	cmd.BindGroups = slices.Clone(cmd.BindGroups)
	h.frame.Draws = append(h.frame.Draws, DrawRecord{Command: cmd})
	return nil
}

func (h *Headless) EndFrame() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frame == nil {
		return ErrNoFrame
	}
	h.frames = append(h.frames, *h.frame)
	return nil
}

func (h *Headless) Present() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frame == nil {
		return ErrNoFrame
	}
	h.frames[len(h.frames)-1].Presented = true
	h.frame = nil
	return nil
}

func (h *Headless) ReleaseBuffer(id BufferID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.buffers, id)
}

func (h *Headless) ReleaseBindGroup(id BindGroupID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bindGroups, id)
}

func (h *Headless) ReleaseBindGroupLayout(id LayoutID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.layouts, id)
}

func (h *Headless) ReleasePipeline(id PipelineID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pipelines, id)
}

func (h *Headless) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.layouts)
	clear(h.buffers)
	clear(h.bindGroups)
	clear(h.pipelines)
	h.frame = nil
	h.configured = false
}

// FailNextAcquire makes the next BeginFrame calls fail with the given native errors, in order.
// Errors are classified exactly like errors from a real surface.
//
// Parameters:
//   - errs: the errors to return from subsequent BeginFrame calls
func (h *Headless) FailNextAcquire(errs ...error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.acquireErrors = append(h.acquireErrors, errs...)
}

// FailNextPipeline makes the next CreateRenderPipeline call fail with err.
//
// Parameters:
//   - err: the error to return, typically a compiler diagnostic
func (h *Headless) FailNextPipeline(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pipelineErrors = append(h.pipelineErrors, err)
}

// FailNextConfigure makes the next ConfigureSurface call fail with err. The previous
// configuration stays applied.
//
// Parameters:
//   - err: the error to return
func (h *Headless) FailNextConfigure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.configureErrors = append(h.configureErrors, err)
}

// SurfaceConfig returns the last applied surface configuration.
func (h *Headless) SurfaceConfig() SurfaceConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// ConfigureCount returns how many times ConfigureSurface succeeded.
func (h *Headless) ConfigureCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.configures
}

// Frames returns a copy of every submitted frame.
func (h *Headless) Frames() []FrameRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.frames)
}

// BufferUsage returns the usage flags a buffer was created with.
func (h *Headless) BufferUsage(id BufferID) (wgpu.BufferUsage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.buffers[id]
	if !ok {
		return 0, fmt.Errorf("buffer %d: %w", id, ErrUnknownHandle)
	}
	return buf.usage, nil
}

// LayoutEntries returns the entries of a bind group layout.
func (h *Headless) LayoutEntries(id LayoutID) ([]wgpu.BindGroupLayoutEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	layout, ok := h.layouts[id]
	if !ok {
		return nil, fmt.Errorf("layout %d: %w", id, ErrUnknownHandle)
	}
	return slices.Clone(layout.desc.Entries), nil
}

// BindGroupDescriptor returns the descriptor a bind group was created with.
func (h *Headless) BindGroupDescriptor(id BindGroupID) (BindGroupDescriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bg, ok := h.bindGroups[id]
	if !ok {
		return BindGroupDescriptor{}, fmt.Errorf("bind group %d: %w", id, ErrUnknownHandle)
	}
	return bg.desc, nil
}

// PipelineDescriptor returns the descriptor a render pipeline was created with.
func (h *Headless) PipelineDescriptor(id PipelineID) (RenderPipelineDescriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.pipelines[id]
	if !ok {
		return RenderPipelineDescriptor{}, fmt.Errorf("pipeline %d: %w", id, ErrUnknownHandle)
	}
	return p.desc, nil
}

// LiveObjects returns the number of layouts, buffers, bind groups and pipelines still alive.
func (h *Headless) LiveObjects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.layouts) + len(h.buffers) + len(h.bindGroups) + len(h.pipelines)
}

// ErrInjected is a convenience error for failure injection in tests and demos.
var ErrInjected = errors.New("headless: injected failure")
