package scene

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// GPUSphereSource is the canonical WGSL definition of the Sphere struct and its intersection helper.
// Matches GPUSphere layout exactly (16 bytes).
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

// GPUSphereSize is the byte stride of one sphere in the storage buffer.
const GPUSphereSize = int(unsafe.Sizeof(GPUSphere{}))

// GPUSphere is the GPU-aligned representation of one sphere.
// Matches the WGSL Sphere struct layout exactly (see GPUSphereSource).
// Size: 16 bytes.
type GPUSphere struct {
	Center [3]float32 // offset  0: vec3<f32>
	Radius float32    // offset 12: fills the vec3 tail
}

// Size returns the size of the GPUSphere struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUSphere) Size() int {
	return GPUSphereSize
}

// Marshal serializes the GPUSphere struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUSphere) Marshal() []byte {
	buf := make([]byte, GPUSphereSize)
	common.PutFloat32s(buf, 0, g.Center[0], g.Center[1], g.Center[2], g.Radius)
	return buf
}

// Spheres is the ordered sphere list uploaded as one contiguous storage buffer.
type Spheres []GPUSphere

// Marshal serializes every sphere in order. An empty list marshals to zero bytes.
//
// Returns:
//   - []byte: len(s)*16 bytes
func (s Spheres) Marshal() []byte {
	buf := make([]byte, len(s)*GPUSphereSize)
	for i, sp := range s {
		common.PutFloat32s(buf, i*GPUSphereSize, sp.Center[0], sp.Center[1], sp.Center[2], sp.Radius)
	}
	return buf
}

// DefaultSpheres returns the reference scene: one sphere of radius 0.5 at (0, 0, -1).
func DefaultSpheres() Spheres {
	return Spheres{{Center: [3]float32{0, 0, -1}, Radius: 0.5}}
}
