package renderer

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, b *backend.Headless, width, height uint32, options ...ContextBuilderOption) *graphicsContext {
	t.Helper()
	ctx, err := NewContext(b, width, height, loader.DefaultShader(), options...)
	require.NoError(t, err)
	t.Cleanup(ctx.Release)
	return ctx.(*graphicsContext)
}

func readFloat(t *testing.T, data []byte, offset int) float32 {
	t.Helper()
	require.GreaterOrEqual(t, len(data), offset+4)
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}

func TestNewContextPicksSRGBFormat(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 800, 600)

	cfg := ctx.SurfaceConfig()
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, cfg.Format)
	assert.Equal(t, wgpu.PresentModeFifo, cfg.PresentMode)
	assert.Equal(t, wgpu.CompositeAlphaModeOpaque, cfg.AlphaMode)
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, uint32(600), cfg.Height)
	assert.Equal(t, cfg, b.SurfaceConfig())
	assert.Equal(t, StateConfigured, ctx.State())

	desc, err := b.PipelineDescriptor(ctx.Pipeline().ID())
	require.NoError(t, err)
	assert.Equal(t, cfg.Format, desc.Target.Format)
}

func TestNewContextFallsBackToFirstFormat(t *testing.T) {
	b := backend.NewHeadless(backend.WithCapabilities(backend.SurfaceCapabilities{
		Formats:      []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm},
		PresentModes: []wgpu.PresentMode{wgpu.PresentModeFifo},
	}))
	ctx := newTestContext(t, b, 64, 64)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, ctx.SurfaceConfig().Format)
	assert.Equal(t, wgpu.CompositeAlphaModeAuto, ctx.SurfaceConfig().AlphaMode)
}

func TestNewContextNoSurfaceFormat(t *testing.T) {
	b := backend.NewHeadless(backend.WithCapabilities(backend.SurfaceCapabilities{}))
	_, err := NewContext(b, 64, 64, loader.DefaultShader())
	assert.ErrorIs(t, err, ErrNoSurfaceFormat)
	assert.Zero(t, b.LiveObjects())
}

func TestNewContextUploadsQuad(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 64, 64)

	vertices, err := b.ReadBuffer(ctx.vertexBuffer)
	require.NoError(t, err)
	assert.Len(t, vertices, 4*common.VertexSize)
	assert.Equal(t, common.MarshalVertices(QuadVertices[:]), vertices)
	assert.Equal(t, float32(-1), readFloat(t, vertices, 2*common.VertexSize))

	indices, err := b.ReadBuffer(ctx.indexBuffer)
	require.NoError(t, err)
	assert.Len(t, indices, 12)
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(indices[2:]))

	usage, err := b.BufferUsage(ctx.vertexBuffer)
	require.NoError(t, err)
	assert.NotZero(t, usage&wgpu.BufferUsageVertex)
	usage, err = b.BufferUsage(ctx.indexBuffer)
	require.NoError(t, err)
	assert.NotZero(t, usage&wgpu.BufferUsageIndex)
}

func TestRenderRecordsOneDraw(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 320, 240)

	require.NoError(t, ctx.Render())
	require.NoError(t, ctx.Render())
	assert.Equal(t, uint64(2), ctx.Frames())

	frames := b.Frames()
	require.Len(t, frames, 2)
	frame := frames[0]
	assert.True(t, frame.Presented)
	assert.Equal(t, wgpu.LoadOpLoad, frame.LoadOp)
	require.Len(t, frame.Draws, 1)

	cmd := frame.Draws[0].Command
	assert.Equal(t, ctx.Pipeline().ID(), cmd.Pipeline)
	assert.Equal(t, wgpu.IndexFormatUint16, cmd.IndexFormat)
	assert.Equal(t, uint32(6), cmd.IndexCount)
	assert.Equal(t, uint32(1), cmd.InstanceCount)
	assert.Equal(t, []backend.BindGroupID{ctx.cameraRes.BindGroup(), ctx.sceneRes.BindGroup()}, cmd.BindGroups)
}

func TestRenderUploadsCamera(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 320, 240)

	require.NoError(t, ctx.Render())
	data, err := b.ReadBuffer(ctx.cameraRes.Buffer())
	require.NoError(t, err)
	assert.Len(t, data, camera.UniformSize(camera.VariantFocal))
	assert.Equal(t, float32(320), readFloat(t, data, 0))
	assert.Equal(t, float32(240), readFloat(t, data, 4))

	require.NoError(t, ctx.Resize(1024, 768))
	require.NoError(t, ctx.Render())
	data, err = b.ReadBuffer(ctx.cameraRes.Buffer())
	require.NoError(t, err)
	assert.Equal(t, float32(1024), readFloat(t, data, 0))
	assert.Equal(t, float32(768), readFloat(t, data, 4))
	assert.Equal(t, uint32(1024), b.SurfaceConfig().Width)
	assert.Equal(t, uint32(768), b.Frames()[1].Config.Height)
}

func TestResizeZeroIsIgnored(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 320, 240)
	before := b.ConfigureCount()

	require.NoError(t, ctx.Resize(0, 240))
	require.NoError(t, ctx.Resize(320, 0))
	assert.Equal(t, before, b.ConfigureCount())
	assert.Equal(t, StateUnconfigured, ctx.State())
	assert.Equal(t, uint32(320), ctx.SurfaceConfig().Width)
	w, h := ctx.Camera().ScreenDimensions()
	assert.Equal(t, [2]float32{320, 240}, [2]float32{w, h})

	require.NoError(t, ctx.Resize(640, 480))
	assert.Equal(t, StateConfigured, ctx.State())
	assert.Equal(t, before+1, b.ConfigureCount())
}

func TestFailedResizeKeepsConfiguration(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 800, 600)
	injected := errors.New("surface rejected")

	b.FailNextConfigure(injected)
	err := ctx.Resize(400, 300)
	require.ErrorIs(t, err, injected)

	assert.Equal(t, uint32(800), ctx.SurfaceConfig().Width)
	assert.Equal(t, uint32(600), ctx.SurfaceConfig().Height)
	assert.Equal(t, b.SurfaceConfig(), ctx.SurfaceConfig())
	w, h := ctx.Camera().ScreenDimensions()
	assert.Equal(t, [2]float32{800, 600}, [2]float32{w, h})

	require.NoError(t, ctx.Reconfigure())
	assert.Equal(t, uint32(800), b.SurfaceConfig().Width)
}

func TestZeroSizedContextWaitsForResize(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 0, 0)

	assert.Equal(t, StateUnconfigured, ctx.State())
	assert.Zero(t, b.ConfigureCount())
	require.NoError(t, ctx.Render())
	assert.Empty(t, b.Frames())

	require.NoError(t, ctx.Resize(200, 100))
	require.NoError(t, ctx.Render())
	assert.Len(t, b.Frames(), 1)
}

func TestRenderRecoversFromOutdatedSurface(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 320, 240)
	before := b.ConfigureCount()

	b.FailNextAcquire(errors.New("SurfaceTextureOutdated"))
	err := ctx.Render()
	require.ErrorIs(t, err, ErrSurfaceOutdated)
	assert.True(t, IsRecoverable(err))
	assert.Empty(t, b.Frames())

	require.NoError(t, ctx.Reconfigure())
	assert.Equal(t, before+1, b.ConfigureCount())
	require.NoError(t, ctx.Render())
	assert.Equal(t, uint64(1), ctx.Frames())
}

func TestRenderSurfaceLostIsRecoverable(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 320, 240)

	b.FailNextAcquire(errors.New("SurfaceTextureLost"))
	err := ctx.Render()
	assert.ErrorIs(t, err, ErrSurfaceLost)
	assert.True(t, IsRecoverable(err))
}

func TestRenderDeviceLostIsFatal(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 320, 240)

	b.FailNextAcquire(errors.New("SurfaceTextureOutOfMemory"))
	err := ctx.Render()
	assert.ErrorIs(t, err, ErrDeviceLost)
	assert.False(t, IsRecoverable(err))
}

func TestEmptyScene(t *testing.T) {
	b := backend.NewHeadless()
	empty, err := scene.NewScene("empty")
	require.NoError(t, err)
	empty.Clear()
	ctx := newTestContext(t, b, 64, 64, WithScene(empty))

	// WebGPU cannot bind a zero-length storage buffer, so an empty scene is backed by one
	// zeroed sphere while the payload size stays 0.
	assert.Zero(t, ctx.sceneRes.Size())
	assert.Equal(t, uint64(scene.GPUSphereSize), ctx.sceneRes.AllocatedSize())
	require.NoError(t, ctx.Render())
	assert.Len(t, b.Frames()[0].Draws, 1)
}

func TestRenderReuploadsChangedScene(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 64, 64)
	require.NoError(t, ctx.Render())
	oldGroup := ctx.sceneRes.BindGroup()

	sphere := scene.GPUSphere{Center: [3]float32{0, 0, -3}, Radius: 0.25}
	require.NoError(t, ctx.Scene().Add(sphere))
	require.NoError(t, ctx.Render())

	want := scene.Spheres(append(scene.DefaultSpheres(), sphere))
	data, err := b.ReadBuffer(ctx.sceneRes.Buffer())
	require.NoError(t, err)
	assert.Equal(t, want.Marshal(), data)

	frames := b.Frames()
	require.Len(t, frames, 2)
	assert.NotEqual(t, oldGroup, frames[1].Draws[0].Command.BindGroups[sceneGroup])
	assert.Equal(t, ctx.sceneRes.BindGroup(), frames[1].Draws[0].Command.BindGroups[sceneGroup])
}

func TestBasisCamera(t *testing.T) {
	b := backend.NewHeadless()
	cam := camera.NewCamera(camera.WithVariant(camera.VariantBasis), camera.WithFov(math.Pi/3))
	ctx := newTestContext(t, b, 100, 50, WithCamera(cam))

	size, err := b.BufferSize(ctx.cameraRes.Buffer())
	require.NoError(t, err)
	assert.Equal(t, uint64(64), size)

	entries, err := b.LayoutEntries(ctx.cameraRes.Layout())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, uint64(64), entries[0].Buffer.MinBindingSize)

	require.NoError(t, ctx.Render())
}

func TestLayoutsHaveOneEntryPerBinding(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 64, 64)

	entries, err := b.LayoutEntries(ctx.sceneRes.Layout())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[0].Buffer.Type)

	desc, err := b.PipelineDescriptor(ctx.Pipeline().ID())
	require.NoError(t, err)
	assert.Equal(t, []backend.LayoutID{ctx.cameraRes.Layout(), ctx.sceneRes.Layout()}, desc.Layouts)
}

func TestCompileErrorReleasesEverything(t *testing.T) {
	b := backend.NewHeadless()
	b.FailNextPipeline(errors.New("error: unknown identifier `colour`"))

	_, err := NewContext(b, 64, 64, loader.DefaultShader())
	require.Error(t, err)
	cerr, ok := shader.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, shader.StageDriver, cerr.Stage)
	assert.Contains(t, cerr.Diagnostic, "colour")
	assert.Zero(t, b.LiveObjects())
}

func TestContractMismatchIsCompileError(t *testing.T) {
	b := backend.NewHeadless()
	_, err := NewContext(b, 64, 64, "@vertex fn main() {}")
	cerr, ok := shader.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, shader.StageContract, cerr.Stage)
	assert.Zero(t, b.LiveObjects())
}

func TestReloadShader(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 64, 64)
	first := ctx.Pipeline().ID()

	require.NoError(t, ctx.ReloadShader(loader.DefaultShader()))
	second := ctx.Pipeline().ID()
	assert.NotEqual(t, first, second)
	_, err := b.PipelineDescriptor(first)
	assert.ErrorIs(t, err, backend.ErrUnknownHandle)

	b.FailNextPipeline(backend.ErrInjected)
	err = ctx.ReloadShader(loader.DefaultShader())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrInjected)
	assert.Equal(t, second, ctx.Pipeline().ID())
	require.NoError(t, ctx.Render())
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := backend.NewHeadless()
	ctx, err := NewContext(b, 64, 64, loader.DefaultShader())
	require.NoError(t, err)
	require.NoError(t, ctx.Render())
	assert.NotZero(t, b.LiveObjects())

	ctx.Release()
	ctx.Release()
	assert.Zero(t, b.LiveObjects())
	assert.ErrorIs(t, ctx.Render(), ErrReleased)
	assert.ErrorIs(t, ctx.Resize(10, 10), ErrReleased)
	assert.ErrorIs(t, ctx.ReloadShader(loader.DefaultShader()), ErrReleased)
}

func TestWithPresentMode(t *testing.T) {
	b := backend.NewHeadless()
	ctx := newTestContext(t, b, 64, 64, WithPresentMode(PresentModeUncapped))
	assert.Equal(t, wgpu.PresentModeImmediate, ctx.SurfaceConfig().PresentMode)
}
