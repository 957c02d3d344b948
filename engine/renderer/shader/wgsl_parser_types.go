package shader

import "github.com/Carmen-Shannon/oxy-rt/common"

// typeLayout is the byte size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// stride is the distance between consecutive array elements of this type.
func (l typeLayout) stride() uint64 {
	return common.AlignUp(l.size, l.align)
}

// wgslField is one member of a WGSL struct declaration.
type wgslField struct {
	name    string
	typ     string
	builtin bool

	// location is the @location index, or -1 when the field has none.
	location int
}

// wgslStruct is a struct declaration with its members in source order.
type wgslStruct struct {
	name   string
	fields []wgslField
}

// vertexInput reports whether the struct is fed from a vertex buffer: it carries @location
// members and no @builtin ones. Vertex outputs mix both and are skipped.
func (s wgslStruct) vertexInput() bool {
	located := false
	for _, f := range s.fields {
		if f.builtin {
			return false
		}
		located = located || f.location >= 0
	}
	return located
}
