// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"encoding/binary"
	"unsafe"
)

// Vertex is a single position-only vertex as consumed by the vertex stage at @location(0).
type Vertex struct {
	// Position is the vertex position in normalized device coordinates.
	Position [3]float32
}

// VertexSize is the byte stride of a Vertex in a GPU vertex buffer (12 bytes).
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// MarshalVertices serializes vertices into a tightly packed little-endian byte buffer.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices)*VertexSize bytes
func MarshalVertices(vertices []Vertex) []byte {
	buf := make([]byte, len(vertices)*VertexSize)
	for i, v := range vertices {
		PutFloat32s(buf, i*VertexSize, v.Position[0], v.Position[1], v.Position[2])
	}
	return buf
}

// MarshalIndices16 serializes 16-bit indices into a little-endian byte buffer.
// The result is padded with a trailing zero index when the count is odd so the
// buffer size stays a multiple of 4, which queue writes require.
//
// Parameters:
//   - indices: the indices to serialize
//
// Returns:
//   - []byte: the serialized index data
func MarshalIndices16(indices []uint16) []byte {
	n := len(indices) * 2
	buf := make([]byte, AlignUp(uint64(n), 4))
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}
