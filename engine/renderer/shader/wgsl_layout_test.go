package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveLayout(t *testing.T) {
	for typ, want := range map[string]typeLayout{
		"f32":           {4, 4},
		"f16":           {2, 2},
		"vec2f":         {8, 8},
		"vec3<f32>":     {12, 16},
		"vec3i":         {12, 16},
		"vec4<u32>":     {16, 16},
		"vec3h":         {6, 8},
		"mat3x3<f32>":   {48, 16},
		"mat4x4f":       {64, 16},
		"mat2x2<f32>":   {16, 8},
		"atomic<u32>":   {4, 4},
		"atomic< i32 >": {4, 4},
	} {
		got, ok := primitiveLayout(typ)
		if assert.True(t, ok, typ) {
			assert.Equal(t, want, got, typ)
		}
	}

	for _, typ := range []string{"vec3<bogus>", "mat2x2<i32>", "Sphere", "array<f32>"} {
		_, ok := primitiveLayout(typ)
		assert.False(t, ok, typ)
	}
}

func TestVertexFormat(t *testing.T) {
	format, size, ok := vertexFormat("vec3<f32>")
	require.True(t, ok)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, format)
	assert.Equal(t, uint64(12), size)

	format, size, ok = vertexFormat("vec2h")
	require.True(t, ok)
	assert.Equal(t, wgpu.VertexFormatFloat16x2, format)
	assert.Equal(t, uint64(4), size)

	_, _, ok = vertexFormat("vec3h")
	assert.False(t, ok)
	_, _, ok = vertexFormat("mat4x4f")
	assert.False(t, ok)
}

func TestParseArrayType(t *testing.T) {
	elem, count, ok := parseArrayType("array<Sphere>")
	require.True(t, ok)
	assert.Equal(t, "Sphere", elem)
	assert.Zero(t, count)

	elem, count, ok = parseArrayType("array<vec4<f32>, 6u>")
	require.True(t, ok)
	assert.Equal(t, "vec4<f32>", elem)
	assert.Equal(t, uint64(6), count)

	_, _, ok = parseArrayType("array<f32, N>")
	assert.False(t, ok)
	assert.True(t, isRuntimeArray("array<f32>"))
	assert.False(t, isRuntimeArray("array<f32, 4>"))
}

func TestResolveStructs(t *testing.T) {
	src := newWGSLSource(`
struct Scene {
    header: Header,
    spheres: array<Sphere, 4>,
}
/* Header is declared after Scene /* nested */ on purpose */
struct Header {
    count: u32,
    @builtin(position) clip: vec4<f32>, // builtins take no space
}
struct Sphere {
    center: vec3<f32>,
    radius: f32,
}
struct Tail {
    count: u32,
    items: array<vec3f>,
}
struct Broken {
    x: Missing,
}
`)
	sizes := src.structSizes()
	assert.Equal(t, uint64(16), sizes["Sphere"])
	assert.Equal(t, uint64(4), sizes["Header"])
	assert.Equal(t, uint64(80), sizes["Scene"])
	assert.Equal(t, uint64(32), sizes["Tail"])
	assert.NotContains(t, sizes, "Broken")
}

func TestStripComments(t *testing.T) {
	in := "a // line /* not a block\nb /* x /* y */ z */ c\n/* multi\nline */d"
	assert.Equal(t, "a \nb  c\n\nd", stripComments(in))
}

func TestParseMembers(t *testing.T) {
	fields := parseMembers(`
    @location(0) @interpolate(flat, either) id: u32,
    @builtin(position) clip: vec4<f32>,
    weights: array<f32, 4>,
`)
	require.Len(t, fields, 3)
	assert.Equal(t, wgslField{name: "id", typ: "u32", location: 0}, fields[0])
	assert.Equal(t, wgslField{name: "clip", typ: "vec4<f32>", location: -1, builtin: true}, fields[1])
	assert.Equal(t, wgslField{name: "weights", typ: "array<f32, 4>", location: -1}, fields[2])
}

func TestClassifyBuffer(t *testing.T) {
	assert.Equal(t, wgpu.BufferBindingTypeUniform, classifyBuffer("uniform"))
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, classifyBuffer("storage"))
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, classifyBuffer("storage, read"))
	assert.Equal(t, wgpu.BufferBindingTypeStorage, classifyBuffer("storage, read_write"))
	assert.Equal(t, wgpu.BufferBindingTypeUndefined, classifyBuffer(""))
}
