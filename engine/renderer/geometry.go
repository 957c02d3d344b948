package renderer

import "github.com/Carmen-Shannon/oxy-rt/common"

// QuadVertices are the corners of a quad covering the whole clip space, in the order
// top-right, bottom-right, bottom-left, top-left.
var QuadVertices = [4]common.Vertex{
	{Position: [3]float32{1, 1, 0}},
	{Position: [3]float32{1, -1, 0}},
	{Position: [3]float32{-1, -1, 0}},
	{Position: [3]float32{-1, 1, 0}},
}

// QuadIndices split the quad into two counter-clockwise triangles.
var QuadIndices = [6]uint16{0, 3, 1, 1, 3, 2}

// QuadIndexCount is the number of indices drawn every frame.
const QuadIndexCount = uint32(len(QuadIndices))
