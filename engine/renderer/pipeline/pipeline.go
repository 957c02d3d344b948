package pipeline

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// QuadVertexLayout is the vertex input every pipeline is built with: one vec3<f32> position
// at location 0.
var QuadVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: uint64(common.VertexSize),
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
	},
}

// pipeline is the implementation of the Pipeline interface.
// It holds the backend handle of a compiled render pipeline and the state it was built with.
type pipeline struct {
	label string

	backend backend.Backend
	id      backend.PipelineID
	shader  shader.Shader
	layouts []backend.LayoutID

	// The following properties configure the pipeline during creation and can be set with the builder options.

	targetFormat wgpu.TextureFormat
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
	sampleCount  uint32
}

// Pipeline defines the interface for a compiled render pipeline: one vertex and one
// fragment entry point, a pipeline layout built from ordered bind group layouts, and
// fixed-function state.
type Pipeline interface {
	// Label returns the label the pipeline was created with.
	//
	// Returns:
	//   - string: the pipeline label
	Label() string

	// ID returns the backend handle of the pipeline.
	//
	// Returns:
	//   - backend.PipelineID: the handle passed to draw commands
	ID() backend.PipelineID

	// Shader returns the shader the pipeline was compiled from.
	//
	// Returns:
	//   - shader.Shader: the shader
	Shader() shader.Shader

	// Layouts returns the bind group layouts of the pipeline layout; index i is @group(i).
	//
	// Returns:
	//   - []backend.LayoutID: a copy of the ordered layouts
	Layouts() []backend.LayoutID

	// TargetFormat returns the color target format, which matches the surface format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the color target format
	TargetFormat() wgpu.TextureFormat

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleList)
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline (e.g., wgpu.ColorWriteMaskAll)
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state for this pipeline
	BlendState() *wgpu.BlendState

	// Release releases the pipeline and its pipeline layout. The bind group layouts are
	// owned by their resources and are not released.
	Release()
}

var _ Pipeline = &pipeline{}

// Build compiles a render pipeline from a processed shader. The pipeline layout is built from
// layouts in order, so layouts[i] must be the layout of @group(i). Defaults: triangle list,
// counter-clockwise front faces, back-face culling, one sample, replace blending into an
// sRGB BGRA target. Driver failures are returned as a *shader.CompileError with StageDriver.
//
// Parameters:
//   - b: the backend that creates the pipeline
//   - s: the processed shader
//   - layouts: the ordered bind group layouts
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the compiled pipeline
//   - error: an error if the shader could not be compiled or a layout is unknown
func Build(b backend.Backend, s shader.Shader, layouts []backend.LayoutID, opts ...PipelineBuilderOption) (Pipeline, error) {
	if s == nil {
		return nil, fmt.Errorf("pipeline: a shader is required")
	}
	p := &pipeline{
		label:        s.Label(),
		backend:      b,
		shader:       s,
		layouts:      slices.Clone(layouts),
		targetFormat: wgpu.TextureFormatBGRA8UnormSrgb,
		cullMode:     wgpu.CullModeBack,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
		blendState:   &wgpu.BlendStateReplace,
		sampleCount:  1,
	}
	for _, opt := range opts {
		opt(p)
	}

	id, err := b.CreateRenderPipeline(p.descriptor())
	if err != nil {
		return nil, shader.NewCompileError(shader.StageDriver, s.Label(), err)
	}
	p.id = id
	return p, nil
}

func (p *pipeline) descriptor() backend.RenderPipelineDescriptor {
	return backend.RenderPipelineDescriptor{
		Label:              p.label,
		Source:             p.shader.Source(),
		VertexEntryPoint:   p.shader.VertexEntryPoint(),
		FragmentEntryPoint: p.shader.FragmentEntryPoint(),
		Layouts:            p.layouts,
		VertexBuffers:      []wgpu.VertexBufferLayout{QuadVertexLayout},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  p.sampleCount,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
		Target: wgpu.ColorTargetState{
			Format:    p.targetFormat,
			Blend:     p.blendState,
			WriteMask: p.writeMask,
		},
	}
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) ID() backend.PipelineID {
	return p.id
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) Layouts() []backend.LayoutID {
	return slices.Clone(p.layouts)
}

func (p *pipeline) TargetFormat() wgpu.TextureFormat {
	return p.targetFormat
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Release() {
	if p.id == 0 {
		return
	}
	p.backend.ReleasePipeline(p.id)
	p.id = 0
}
