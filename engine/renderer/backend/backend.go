// Package backend is the device boundary of the renderer. It hides the concrete GPU API
// behind opaque handles so that the graphics context, uniform resources and pipelines can be
// driven either by a real WebGPU device or by the in-memory Headless device used for tests
// and offscreen runs.
package backend

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// LayoutID identifies a bind group layout created by a Backend.
type LayoutID uint32

// BufferID identifies a GPU buffer created by a Backend.
type BufferID uint32

// BindGroupID identifies a bind group created by a Backend.
type BindGroupID uint32

// PipelineID identifies a render pipeline created by a Backend.
type PipelineID uint32

// SurfaceCapabilities lists what the presentation surface supports on the selected adapter.
// The first entry of each slice is the adapter's preferred value.
type SurfaceCapabilities struct {
	Formats      []wgpu.TextureFormat
	PresentModes []wgpu.PresentMode
	AlphaModes   []wgpu.CompositeAlphaMode
}

// SurfaceConfig is the presentation surface configuration applied by ConfigureSurface.
type SurfaceConfig struct {
	Format      wgpu.TextureFormat
	Width       uint32
	Height      uint32
	PresentMode wgpu.PresentMode
	AlphaMode   wgpu.CompositeAlphaMode
}

// BindGroupEntry binds a range of a buffer to a binding slot. A Size of zero binds the
// remainder of the buffer starting at Offset.
type BindGroupEntry struct {
	Binding uint32
	Buffer  BufferID
	Offset  uint64
	Size    uint64
}

// BindGroupDescriptor describes a bind group created against an existing layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  LayoutID
	Entries []BindGroupEntry
}

// RenderPipelineDescriptor describes a render pipeline. The pipeline layout is built from
// Layouts in order, so Layouts[i] is the layout of @group(i).
type RenderPipelineDescriptor struct {
	Label              string
	Source             string
	VertexEntryPoint   string
	FragmentEntryPoint string
	Layouts            []LayoutID
	VertexBuffers      []wgpu.VertexBufferLayout
	Primitive          wgpu.PrimitiveState
	Multisample        wgpu.MultisampleState
	Target             wgpu.ColorTargetState
}

// DrawCommand is a single indexed draw recorded into the current render pass.
// BindGroups[i] is bound at group i.
type DrawCommand struct {
	Pipeline      PipelineID
	BindGroups    []BindGroupID
	VertexBuffer  BufferID
	IndexBuffer   BufferID
	IndexFormat   wgpu.IndexFormat
	IndexCount    uint32
	InstanceCount uint32
}

// Backend is the device, queue and surface abstraction used by the renderer.
// Implementations are not required to be safe for concurrent frame recording; the renderer
// drives a Backend from a single thread.
type Backend interface {
	// SurfaceCapabilities returns the formats, present modes and alpha modes the surface supports.
	//
	// Returns:
	//   - SurfaceCapabilities: the capabilities of the surface for the selected adapter
	SurfaceCapabilities() SurfaceCapabilities

	// ConfigureSurface (re)configures the presentation surface.
	//
	// Parameters:
	//   - cfg: the full surface configuration to apply
	//
	// Returns:
	//   - error: an error if the configuration is invalid
	ConfigureSurface(cfg SurfaceConfig) error

	// CreateBindGroupLayout creates a bind group layout.
	//
	// Parameters:
	//   - desc: the layout descriptor, one entry per binding slot
	//
	// Returns:
	//   - LayoutID: the handle of the new layout
	//   - error: an error if the layout could not be created
	CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (LayoutID, error)

	// CreateBufferInit creates a buffer sized to desc.Contents and uploads the contents.
	//
	// Parameters:
	//   - desc: the buffer label, initial contents and usage flags
	//
	// Returns:
	//   - BufferID: the handle of the new buffer
	//   - error: an error if the buffer could not be created
	CreateBufferInit(desc wgpu.BufferInitDescriptor) (BufferID, error)

	// CreateBindGroup creates a bind group whose entries reference existing buffers.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroupID: the handle of the new bind group
	//   - error: an error if the layout or a buffer is unknown or incompatible
	CreateBindGroup(desc BindGroupDescriptor) (BindGroupID, error)

	// WriteBuffer enqueues a write of data into the buffer at offset.
	//
	// Parameters:
	//   - id: the destination buffer
	//   - offset: the byte offset to start writing at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the buffer is unknown or the write is out of range
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer copies the current contents of a buffer back to the CPU.
	// On a real device this blocks until the copy completes.
	//
	// Parameters:
	//   - id: the buffer to read
	//
	// Returns:
	//   - []byte: a copy of the buffer contents
	//   - error: an error if the buffer is unknown or could not be mapped
	ReadBuffer(id BufferID) ([]byte, error)

	// BufferSize returns the allocated size of a buffer in bytes.
	//
	// Parameters:
	//   - id: the buffer to query
	//
	// Returns:
	//   - uint64: the buffer size
	//   - error: an error if the buffer is unknown
	BufferSize(id BufferID) (uint64, error)

	// CreateRenderPipeline compiles the shader source and creates a render pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - PipelineID: the handle of the new pipeline
	//   - error: an error carrying the compiler diagnostic if compilation fails
	CreateRenderPipeline(desc RenderPipelineDescriptor) (PipelineID, error)

	// BeginFrame acquires the next surface texture, creates a command encoder and begins a
	// render pass that loads and stores the existing attachment contents.
	// Must be paired with EndFrame and Present.
	//
	// Returns:
	//   - error: ErrSurfaceOutdated, ErrSurfaceLost or ErrSurfaceTimeout when the surface must be
	//     reconfigured, ErrDeviceLost when the device is gone
	BeginFrame() error

	// DrawCall encodes one indexed draw into the render pass started by BeginFrame.
	//
	// Parameters:
	//   - cmd: the draw command
	//
	// Returns:
	//   - error: an error if no frame is in progress or a handle is unknown
	DrawCall(cmd DrawCommand) error

	// EndFrame ends the render pass, finishes the encoder and submits the command buffer.
	//
	// Returns:
	//   - error: an error if no frame is in progress or the encoder could not be finished
	EndFrame() error

	// Present presents the surface texture acquired by BeginFrame.
	//
	// Returns:
	//   - error: an error if there is nothing to present
	Present() error

	// ReleaseBuffer releases a buffer. Unknown handles are ignored.
	ReleaseBuffer(id BufferID)

	// ReleaseBindGroup releases a bind group. Unknown handles are ignored.
	ReleaseBindGroup(id BindGroupID)

	// ReleaseBindGroupLayout releases a bind group layout. Unknown handles are ignored.
	ReleaseBindGroupLayout(id LayoutID)

	// ReleasePipeline releases a render pipeline and its pipeline layout. Unknown handles are ignored.
	ReleasePipeline(id PipelineID)

	// Destroy releases the device, adapter, surface and instance.
	Destroy()
}
