package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Binding is a buffer variable declared with @group/@binding in WGSL source.
type Binding struct {
	Group    int
	Binding  int
	VarName  string
	TypeName string

	// Type is the buffer binding type implied by the address space.
	Type wgpu.BufferBindingType

	// Size is the byte size of TypeName, or the element stride when RuntimeArray is set.
	// Zero when the type could not be resolved.
	Size uint64

	// RuntimeArray reports whether the variable is a runtime-sized array<T>.
	RuntimeArray bool
}

// Contract is the CPU-visible interface of a render shader: its entry points, its buffer
// bindings and its vertex inputs.
type Contract struct {
	VertexEntryPoint   string
	FragmentEntryPoint string
	Bindings           []Binding
	VertexLayouts      []wgpu.VertexBufferLayout
	StructSizes        map[string]uint64
}

// Expectation is what the renderer binds, checked against a Contract before the pipeline is built.
type Expectation struct {
	VertexEntryPoint   string
	FragmentEntryPoint string

	// Groups lists, per group index, the buffer bound at binding 0.
	Groups []ExpectedGroup

	// VertexStride is the byte stride of the vertex buffer; its single attribute is a
	// Float32x3 at location 0.
	VertexStride uint64
}

// ExpectedGroup is the buffer the renderer binds at binding 0 of one group.
type ExpectedGroup struct {
	Type wgpu.BufferBindingType

	// Size is the payload size for fixed types, the element stride for arrays.
	Size uint64

	// RuntimeArray requires the variable to be a runtime-sized array.
	RuntimeArray bool
}

// ParseContract extracts the contract of pre-processed WGSL source.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - Contract: the parsed contract; missing pieces are left empty
func ParseContract(source string) Contract {
	w := newWGSLSource(source)
	return Contract{
		VertexEntryPoint:   w.entryPoint(ShaderTypeVertex),
		FragmentEntryPoint: w.entryPoint(ShaderTypeFragment),
		Bindings:           w.bindings(),
		VertexLayouts:      w.vertexLayouts(),
		StructSizes:        w.structSizes(),
	}
}

// Binding returns the binding declared at group and binding.
//
// Parameters:
//   - group: the group index
//   - binding: the binding index
//
// Returns:
//   - Binding: the declaration
//   - bool: false if nothing is declared there
func (c Contract) Binding(group, binding int) (Binding, bool) {
	for _, b := range c.Bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return Binding{}, false
}

// Check compares the contract with what the renderer binds. Every mismatch is reported,
// joined into one error.
//
// Parameters:
//   - e: the expected interface
//
// Returns:
//   - error: nil when the contract matches
func (c Contract) Check(e Expectation) error {
	var errs []error

	if c.VertexEntryPoint != e.VertexEntryPoint {
		errs = append(errs, fmt.Errorf("vertex entry point is %q, want %q", c.VertexEntryPoint, e.VertexEntryPoint))
	}
	if c.FragmentEntryPoint != e.FragmentEntryPoint {
		errs = append(errs, fmt.Errorf("fragment entry point is %q, want %q", c.FragmentEntryPoint, e.FragmentEntryPoint))
	}

	for _, b := range c.Bindings {
		if b.Group >= len(e.Groups) || b.Binding != 0 {
			errs = append(errs, fmt.Errorf("@group(%d) @binding(%d) %s is not provided by the renderer", b.Group, b.Binding, b.VarName))
		}
	}

	for g, want := range e.Groups {
		b, ok := c.Binding(g, 0)
		if !ok {
			// an unused group is valid; the bind group is still set at draw time
			continue
		}
		if b.Type != want.Type {
			errs = append(errs, fmt.Errorf("@group(%d) @binding(0) %s has binding type %v, want %v", g, b.VarName, b.Type, want.Type))
		}
		if b.RuntimeArray != want.RuntimeArray {
			errs = append(errs, fmt.Errorf("@group(%d) @binding(0) %s: runtime-sized array is %t, want %t", g, b.VarName, b.RuntimeArray, want.RuntimeArray))
		}
		if b.Size != want.Size {
			errs = append(errs, fmt.Errorf("@group(%d) @binding(0) %s: %s is %d bytes, the renderer uploads %d", g, b.VarName, b.TypeName, b.Size, want.Size))
		}
	}

	if e.VertexStride > 0 && len(c.VertexLayouts) > 0 {
		l := c.VertexLayouts[0]
		if l.ArrayStride != e.VertexStride || len(l.Attributes) != 1 ||
			l.Attributes[0].ShaderLocation != 0 || l.Attributes[0].Format != wgpu.VertexFormatFloat32x3 {
			errs = append(errs, fmt.Errorf("vertex input must be a single vec3<f32> at @location(0) with stride %d", e.VertexStride))
		}
	}

	return errors.Join(errs...)
}
