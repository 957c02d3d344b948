package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Host-shareable layout rules from https://www.w3.org/TR/WGSL/#alignment-and-size.

var (
	// vectorTypeRegex matches vecN<T> and the vecNf/i/u/h shorthands.
	vectorTypeRegex = regexp.MustCompile(`^vec([234])(?:<\s*(\w+)\s*>|([fiuh]))$`)

	// matrixTypeRegex matches matCxR<T> and the matCxRf/h shorthands.
	matrixTypeRegex = regexp.MustCompile(`^mat([234])x([234])(?:<\s*(\w+)\s*>|([fh]))$`)

	// atomicTypeRegex matches atomic<i32> and atomic<u32>.
	atomicTypeRegex = regexp.MustCompile(`^atomic<\s*([iu]32)\s*>$`)
)

var shorthandScalars = map[string]string{"f": "f32", "i": "i32", "u": "u32", "h": "f16"}

type vertexFormatKey struct {
	scalar string
	n      int
}

// vertexFormats lists the vertex attribute formats a shader input may declare.
var vertexFormats = map[vertexFormatKey]wgpu.VertexFormat{
	{"f32", 1}: wgpu.VertexFormatFloat32,
	{"f32", 2}: wgpu.VertexFormatFloat32x2,
	{"f32", 3}: wgpu.VertexFormatFloat32x3,
	{"f32", 4}: wgpu.VertexFormatFloat32x4,
	{"i32", 1}: wgpu.VertexFormatSint32,
	{"i32", 2}: wgpu.VertexFormatSint32x2,
	{"i32", 3}: wgpu.VertexFormatSint32x3,
	{"i32", 4}: wgpu.VertexFormatSint32x4,
	{"u32", 1}: wgpu.VertexFormatUint32,
	{"u32", 2}: wgpu.VertexFormatUint32x2,
	{"u32", 3}: wgpu.VertexFormatUint32x3,
	{"u32", 4}: wgpu.VertexFormatUint32x4,
	{"f16", 2}: wgpu.VertexFormatFloat16x2,
	{"f16", 4}: wgpu.VertexFormatFloat16x4,
}

func scalarLayout(scalar string) (typeLayout, bool) {
	switch scalar {
	case "f32", "i32", "u32", "bool":
		return typeLayout{size: 4, align: 4}, true
	case "f16":
		return typeLayout{size: 2, align: 2}, true
	}
	return typeLayout{}, false
}

// vectorLayout applies the vecN rule: three-component vectors align like four.
func vectorLayout(elem typeLayout, n int) typeLayout {
	size := elem.size * uint64(n)
	if n == 3 {
		return typeLayout{size: size, align: elem.size * 4}
	}
	return typeLayout{size: size, align: size}
}

// splitVector returns the scalar type and component count of a scalar or vector type name.
// Scalars report a count of 1.
func splitVector(typ string) (string, int, bool) {
	if _, ok := scalarLayout(typ); ok {
		return typ, 1, true
	}
	m := vectorTypeRegex.FindStringSubmatch(typ)
	if m == nil {
		return "", 0, false
	}
	n, _ := strconv.Atoi(m[1])
	if m[3] != "" {
		return shorthandScalars[m[3]], n, true
	}
	return m[2], n, true
}

// primitiveLayout resolves scalars, vectors, matrices and atomics.
func primitiveLayout(typ string) (typeLayout, bool) {
	if scalar, n, ok := splitVector(typ); ok {
		elem, ok := scalarLayout(scalar)
		if !ok {
			return typeLayout{}, false
		}
		if n == 1 {
			return elem, true
		}
		return vectorLayout(elem, n), true
	}

	if m := matrixTypeRegex.FindStringSubmatch(typ); m != nil {
		cols, _ := strconv.Atoi(m[1])
		rows, _ := strconv.Atoi(m[2])
		scalar := m[3]
		if m[4] != "" {
			scalar = shorthandScalars[m[4]]
		}
		if scalar != "f32" && scalar != "f16" {
			return typeLayout{}, false
		}
		elem, _ := scalarLayout(scalar)
		column := vectorLayout(elem, rows)
		return typeLayout{size: uint64(cols) * column.stride(), align: column.align}, true
	}

	if atomicTypeRegex.MatchString(typ) {
		return typeLayout{size: 4, align: 4}, true
	}
	return typeLayout{}, false
}

// vertexFormat maps a vertex input type to its attribute format and byte size.
func vertexFormat(typ string) (wgpu.VertexFormat, uint64, bool) {
	scalar, n, ok := splitVector(typ)
	if !ok {
		return 0, 0, false
	}
	format, ok := vertexFormats[vertexFormatKey{scalar, n}]
	if !ok {
		return 0, 0, false
	}
	elem, _ := scalarLayout(scalar)
	return format, elem.size * uint64(n), true
}

// parseArrayType splits array<T, N> into its element type and count. A runtime-sized
// array<T> reports a count of zero.
func parseArrayType(typ string) (elem string, count uint64, ok bool) {
	inner, found := strings.CutPrefix(typ, "array<")
	if !found || !strings.HasSuffix(inner, ">") {
		return "", 0, false
	}
	inner = inner[:len(inner)-1]

	// the element type may itself be parameterized; only top-level commas separate the count
	parts := splitTopLevel(inner)
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), 0, true
	}
	if len(parts) != 2 {
		return "", 0, false
	}
	count, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(parts[1]), "u"), 10, 64)
	if err != nil || count == 0 {
		return "", 0, false
	}
	return strings.TrimSpace(parts[0]), count, true
}

// isRuntimeArray reports whether typ is a runtime-sized array<T>.
func isRuntimeArray(typ string) bool {
	_, count, ok := parseArrayType(typ)
	return ok && count == 0
}

// layoutTable holds the layouts of the structs resolved so far, keyed by struct name.
type layoutTable map[string]typeLayout

// resolve returns the layout of typ. Runtime-sized arrays are measured as one element, which
// is the smallest buffer that may be bound to them.
func (t layoutTable) resolve(typ string) (typeLayout, bool) {
	if l, ok := primitiveLayout(typ); ok {
		return l, true
	}
	if l, ok := t[typ]; ok {
		return l, true
	}
	elem, count, ok := parseArrayType(typ)
	if !ok {
		return typeLayout{}, false
	}
	el, ok := t.resolve(elem)
	if !ok {
		return typeLayout{}, false
	}
	return typeLayout{size: max(count, 1) * el.stride(), align: el.align}, true
}

// structLayout places each member at the next offset aligned for its type and rounds the
// total up to the widest member alignment. Builtin members take no buffer space.
func (t layoutTable) structLayout(s wgslStruct) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, f := range s.fields {
		if f.builtin {
			continue
		}
		l, ok := t.resolve(f.typ)
		if !ok {
			return typeLayout{}, false
		}
		offset = common.AlignUp(offset, l.align) + l.size
		align = max(align, l.align)
	}
	return typeLayout{size: common.AlignUp(offset, align), align: align}, true
}

// resolveStructs computes every struct layout it can. Structs may reference structs declared
// after them, so passes repeat until one resolves nothing new.
func resolveStructs(structs []wgslStruct) layoutTable {
	table := make(layoutTable, len(structs))
	pending := structs
	for len(pending) > 0 {
		var unresolved []wgslStruct
		for _, s := range pending {
			if l, ok := table.structLayout(s); ok {
				table[s.name] = l
			} else {
				unresolved = append(unresolved, s)
			}
		}
		if len(unresolved) == len(pending) {
			break
		}
		pending = unresolved
	}
	return table
}

// classifyBuffer maps a WGSL address space qualifier to the buffer binding type it requires.
//
// Parameters:
//   - addressSpace: the qualifier inside var<...>, e.g. "uniform" or "storage, read"
//
// Returns:
//   - wgpu.BufferBindingType: the binding type, or BufferBindingTypeUndefined for handle types
func classifyBuffer(addressSpace string) wgpu.BufferBindingType {
	space, access, _ := strings.Cut(addressSpace, ",")
	switch strings.TrimSpace(space) {
	case "uniform":
		return wgpu.BufferBindingTypeUniform
	case "storage":
		if strings.TrimSpace(access) == "read_write" {
			return wgpu.BufferBindingTypeStorage
		}
		return wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return wgpu.BufferBindingTypeUndefined
	}
}
