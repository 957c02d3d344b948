package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `//@oxy:include camera
//@oxy:include sphere

//@oxy:group 0 0 storage_uniform camera camera
//@oxy:group 1 0 storage_read spheres array<sphere>

struct VertexInput {
    @location(0) position: vec3<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4<f32>(in.position, 1.0);
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let n = arrayLength(&spheres);
    return vec4<f32>(f32(n), camera.focal, 0.0, 1.0);
}
`

func focalExpectation() Expectation {
	return Expectation{
		VertexEntryPoint:   "vs_main",
		FragmentEntryPoint: "fs_main",
		Groups: []ExpectedGroup{
			{Type: wgpu.BufferBindingTypeUniform, Size: 32},
			{Type: wgpu.BufferBindingTypeReadOnlyStorage, Size: 16, RuntimeArray: true},
		},
		VertexStride: 12,
	}
}

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	pp := NewPreProcessor(camera.VariantFocal)
	out, err := pp.Process(testSource)
	require.NoError(t, err)

	assert.Contains(t, out, "struct Camera {")
	assert.Contains(t, out, "struct Sphere {")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> camera: Camera;")
	assert.Contains(t, out, "@group(1) @binding(0) var<storage, read> spheres: array<Sphere>;")
	assert.NotContains(t, out, "@oxy:")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, 0, *decls[0].Group)
	assert.Equal(t, 1, *decls[1].Group)
	assert.Equal(t, AnnotationArg("spheres"), decls[1].Args[1])
}

func TestPreProcessorSkipsDuplicateInclude(t *testing.T) {
	pp := NewPreProcessor(camera.VariantFocal)
	out, err := pp.Process("//@oxy:include sphere\n//@oxy:include sphere\n")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct Sphere {"))
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor(camera.VariantFocal)
	cases := map[string]string{
		"unknown include":       "//@oxy:include light",
		"unknown type":          "//@oxy:group 0 0 storage_uniform l light",
		"unknown element":       "//@oxy:group 0 0 storage_read l array<light>",
		"bad address space":     "//@oxy:group 0 0 storage_write c camera",
		"bad group":             "//@oxy:group x 0 storage_uniform c camera",
		"missing args":          "//@oxy:group 0 0 storage_uniform",
		"unknown annotation":    "//@oxy:texture 0",
		"empty annotation":      "//@oxy:",
		"include without a key": "//@oxy:include",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := pp.Process(src)
			assert.Error(t, err)
		})
	}

	// annotations must start the comment
	out, err := pp.Process("let x = 1; //@oxy:include light")
	require.NoError(t, err)
	assert.Equal(t, "let x = 1; //@oxy:include light", out)
}

func TestPreProcessorWithStruct(t *testing.T) {
	pp := NewPreProcessor(camera.VariantFocal, WithStruct("light", "struct Light { color: vec4<f32>, }", "Light"))
	out, err := pp.Process("//@oxy:include light\n//@oxy:group 2 0 storage_uniform light light")
	require.NoError(t, err)
	assert.Contains(t, out, "var<uniform> light: Light;")
}

func TestParseContractSizes(t *testing.T) {
	for _, tc := range []struct {
		variant    camera.Variant
		cameraSize uint64
	}{
		{camera.VariantFocal, 32},
		{camera.VariantBasis, 64},
	} {
		t.Run(tc.variant.String(), func(t *testing.T) {
			out, err := NewPreProcessor(tc.variant).Process(testSource)
			require.NoError(t, err)
			c := ParseContract(out)

			assert.Equal(t, "vs_main", c.VertexEntryPoint)
			assert.Equal(t, "fs_main", c.FragmentEntryPoint)
			assert.Equal(t, tc.cameraSize, c.StructSizes["Camera"])
			assert.Equal(t, uint64(camera.UniformSize(tc.variant)), c.StructSizes["Camera"])
			assert.Equal(t, uint64(16), c.StructSizes["Sphere"])

			require.Len(t, c.Bindings, 2)
			cam, ok := c.Binding(0, 0)
			require.True(t, ok)
			assert.Equal(t, wgpu.BufferBindingTypeUniform, cam.Type)
			assert.Equal(t, tc.cameraSize, cam.Size)
			assert.False(t, cam.RuntimeArray)

			spheres, ok := c.Binding(1, 0)
			require.True(t, ok)
			assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, spheres.Type)
			assert.Equal(t, uint64(16), spheres.Size)
			assert.True(t, spheres.RuntimeArray)

			require.Len(t, c.VertexLayouts, 1)
			assert.Equal(t, uint64(12), c.VertexLayouts[0].ArrayStride)
			assert.Equal(t, wgpu.VertexFormatFloat32x3, c.VertexLayouts[0].Attributes[0].Format)
		})
	}
}

func TestContractCheck(t *testing.T) {
	out, err := NewPreProcessor(camera.VariantFocal).Process(testSource)
	require.NoError(t, err)
	c := ParseContract(out)
	assert.NoError(t, c.Check(focalExpectation()))

	basis := focalExpectation()
	basis.Groups[0].Size = 64
	assert.ErrorContains(t, c.Check(basis), "the renderer uploads 64")

	renamed := focalExpectation()
	renamed.FragmentEntryPoint = "main"
	assert.ErrorContains(t, c.Check(renamed), "fragment entry point")

	extra, err := NewPreProcessor(camera.VariantFocal).Process(testSource + "\n//@oxy:group 2 0 storage_uniform other camera\n")
	require.NoError(t, err)
	assert.ErrorContains(t, ParseContract(extra).Check(focalExpectation()), "not provided by the renderer")
}

func TestNewShader(t *testing.T) {
	s, err := NewShader("raytrace", testSource, WithExpectation(focalExpectation()))
	require.NoError(t, err)

	assert.Equal(t, "raytrace", s.Label())
	assert.Equal(t, testSource, s.RawSource())
	assert.Equal(t, "vs_main", s.VertexEntryPoint())
	assert.Equal(t, "fs_main", s.FragmentEntryPoint())
	assert.Len(t, s.Declarations(), 2)
	assert.Contains(t, s.Source(), "var<uniform> camera: Camera;")
}

func TestNewShaderErrorsCarryStage(t *testing.T) {
	_, err := NewShader("bad", "//@oxy:include light\n")
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, StagePreprocess, ce.Stage)
	assert.Contains(t, ce.Error(), `shader "bad"`)

	_, err = NewShader("fragment-only", "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(); }")
	ce, ok = AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, StageContract, ce.Stage)

	wrong := focalExpectation()
	wrong.Groups[1].Size = 32
	_, err = NewShader("mismatch", testSource, WithExpectation(wrong))
	ce, ok = AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, StageContract, ce.Stage)
	assert.Contains(t, ce.Diagnostic, "spheres")
}

func TestValidatorCachesResults(t *testing.T) {
	calls := 0
	v, err := NewValidator(WithCompiler(func(source string) ([]byte, error) {
		calls++
		if strings.Contains(source, "broken") {
			return nil, errors.New("1:1 unexpected token")
		}
		return make([]byte, 8), nil
	}))
	require.NoError(t, err)

	require.NoError(t, v.Validate("a", "fn ok() {}"))
	require.NoError(t, v.Validate("a", "fn ok() {}"))
	assert.Equal(t, 1, calls)

	err = v.Validate("b", "broken")
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, StageNaga, ce.Stage)
	assert.Equal(t, "1:1 unexpected token", ce.Diagnostic)

	_ = v.Validate("b", "broken")
	assert.Equal(t, 2, calls)
	hits, misses := v.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)

	v.Purge()
	require.NoError(t, v.Validate("a", "fn ok() {}"))
	assert.Equal(t, 3, calls)
}

func TestValidatorRecoversCompilerPanic(t *testing.T) {
	v, err := NewValidator(WithCompiler(func(string) ([]byte, error) {
		panic("index out of range")
	}))
	require.NoError(t, err)
	err = v.Validate("p", "x")
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Contains(t, ce.Diagnostic, "index out of range")
}

func TestValidatorRejectsBadCacheSize(t *testing.T) {
	_, err := NewValidator(WithCacheSize(0))
	assert.Error(t, err)
}

func TestNewShaderRunsValidator(t *testing.T) {
	v, err := NewValidator(WithCompiler(func(string) ([]byte, error) {
		return nil, errors.New("type mismatch")
	}))
	require.NoError(t, err)
	_, err = NewShader("raytrace", testSource, WithValidator(v))
	ce, ok := AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, StageNaga, ce.Stage)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raytrace.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testSource), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Close()

	// writes to other files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.wgsl"), []byte("x"), 0o644))
	select {
	case <-w.Changes():
		t.Fatal("unexpected change for another file")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(testSource+"\n"), 0o644))
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
