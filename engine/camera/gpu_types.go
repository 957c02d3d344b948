package camera

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// GPUFocalCameraSource is the canonical WGSL definition of the focal Camera struct and its ray helpers.
// Matches GPUFocalCamera layout exactly (32 bytes).
//
//go:embed assets/camera_focal.wgsl
var GPUFocalCameraSource string

// GPUBasisCameraSource is the canonical WGSL definition of the basis Camera struct and its ray helpers.
// Matches GPUBasisCamera layout exactly (64 bytes).
//
//go:embed assets/camera_basis.wgsl
var GPUBasisCameraSource string

// Variant selects the payload shape uploaded for a Camera.
type Variant int

const (
	// VariantFocal is a pinhole camera looking down -Z described by a focal length and viewport height.
	VariantFocal Variant = iota

	// VariantBasis is a look-at camera described by a vertical field of view and an orthonormal basis.
	VariantBasis
)

func (v Variant) String() string {
	switch v {
	case VariantFocal:
		return "focal"
	case VariantBasis:
		return "basis"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant converts a configuration string into a Variant.
//
// Parameters:
//   - s: "focal" or "basis"
//
// Returns:
//   - Variant: the parsed variant
//   - error: an error if s names no variant
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "focal", "":
		return VariantFocal, nil
	case "basis":
		return VariantBasis, nil
	default:
		return 0, fmt.Errorf("camera: unknown variant %q", s)
	}
}

// GPUFocalCamera is the GPU-aligned representation of the focal camera uniform.
// Matches the WGSL Camera struct in GPUFocalCameraSource.
// Size: 32 bytes.
type GPUFocalCamera struct {
	ScreenDimensions [2]float32 // offset  0: vec2<f32>
	Focal            float32    // offset  8
	ViewportHeight   float32    // offset 12
	Position         [3]float32 // offset 16: vec3<f32>
	MaxDepth         int32      // offset 28: i32, fills the vec3 tail
}

// Size returns the size of the GPUFocalCamera struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUFocalCamera) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFocalCamera struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFocalCamera) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, 0, g.ScreenDimensions[0], g.ScreenDimensions[1], g.Focal, g.ViewportHeight)
	common.PutFloat32s(buf, 16, g.Position[0], g.Position[1], g.Position[2])
	binary.LittleEndian.PutUint32(buf[28:], uint32(g.MaxDepth))
	return buf
}

// GPUBasisCamera is the GPU-aligned representation of the basis camera uniform.
// Each vec3 is padded to 16 bytes per WGSL uniform alignment.
// Size: 64 bytes.
type GPUBasisCamera struct {
	ScreenDimensions [2]float32 // offset  0: vec2<f32>
	Fov              float32    // offset  8: vertical field of view in radians
	_pad0            float32    // offset 12
	Position         [3]float32 // offset 16
	_pad1            float32    // offset 28
	Up               [3]float32 // offset 32
	_pad2            float32    // offset 44
	Right            [3]float32 // offset 48
	_pad3            float32    // offset 60
}

// Size returns the size of the GPUBasisCamera struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUBasisCamera) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBasisCamera struct into a byte buffer suitable for GPU upload.
// Padding words are written as zero.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUBasisCamera) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloat32s(buf, 0, g.ScreenDimensions[0], g.ScreenDimensions[1], g.Fov)
	common.PutFloat32s(buf, 16, g.Position[0], g.Position[1], g.Position[2])
	common.PutFloat32s(buf, 32, g.Up[0], g.Up[1], g.Up[2])
	common.PutFloat32s(buf, 48, g.Right[0], g.Right[1], g.Right[2])
	return buf
}

// Uniform is the camera payload uploaded on every frame. Variant selects which of Focal or
// Basis is marshalled; the other field is ignored.
type Uniform struct {
	Variant Variant
	Focal   GPUFocalCamera
	Basis   GPUBasisCamera
}

// Marshal serializes the active variant.
//
// Returns:
//   - []byte: 32 bytes for VariantFocal, 64 bytes for VariantBasis
func (u Uniform) Marshal() []byte {
	if u.Variant == VariantBasis {
		return u.Basis.Marshal()
	}
	return u.Focal.Marshal()
}

// Size returns the byte size of the active variant.
func (u Uniform) Size() int {
	if u.Variant == VariantBasis {
		return u.Basis.Size()
	}
	return u.Focal.Size()
}

// StructSource returns the WGSL source of the Camera struct for a variant.
//
// Parameters:
//   - v: the camera variant
//
// Returns:
//   - string: the WGSL struct and helper functions
func StructSource(v Variant) string {
	if v == VariantBasis {
		return GPUBasisCameraSource
	}
	return GPUFocalCameraSource
}

// UniformSize returns the payload size of a variant without building a camera.
func UniformSize(v Variant) int {
	return Uniform{Variant: v}.Size()
}
