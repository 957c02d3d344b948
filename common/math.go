package common

import (
	"encoding/binary"
	"math"
)

// Add3 returns the component-wise sum a + b.
func Add3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub3 returns the component-wise difference a - b.
func Sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale3 multiplies every component of v by s.
func Scale3(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}

// Dot3 returns the dot product of a and b.
func Dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross3 returns the cross product a x b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Normalize3 returns v scaled to unit length. A zero vector is returned unchanged.
//
// Parameters:
//   - v: the vector to normalize
//
// Returns:
//   - [3]float32: the unit-length vector, or v if its length is zero
func Normalize3(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(Dot3(v, v))))
	if l == 0 {
		return v
	}
	return Scale3(v, 1/l)
}

// LookAtBasis computes an orthonormal camera basis looking from eye towards center.
// The returned right and up vectors span the image plane; forward points into the scene.
// If forward is parallel to worldUp the world Z axis is used to break the tie.
//
// Parameters:
//   - eye: the camera position in world space
//   - center: the point the camera looks at
//   - worldUp: the approximate up direction (typically 0,1,0)
//
// Returns:
//   - right: unit vector pointing to the right of the image plane
//   - up: unit vector pointing up in the image plane
//   - forward: unit vector from eye to center
func LookAtBasis(eye, center, worldUp [3]float32) (right, up, forward [3]float32) {
	forward = Normalize3(Sub3(center, eye))
	right = Cross3(forward, worldUp)
	if Dot3(right, right) == 0 {
		right = Cross3(forward, [3]float32{0, 0, 1})
	}
	right = Normalize3(right)
	up = Cross3(right, forward)
	return right, up, forward
}

// PutFloat32s writes values into buf starting at offset as little-endian IEEE-754 floats.
// It is the shared helper behind the Marshal methods of GPU payload types.
//
// Parameters:
//   - buf: destination byte slice, must have room for len(values)*4 bytes after offset
//   - offset: byte offset of the first value
//   - values: the floats to write
func PutFloat32s(buf []byte, offset int, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v))
	}
}

// Float32At reads a little-endian IEEE-754 float from buf at offset.
func Float32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}
