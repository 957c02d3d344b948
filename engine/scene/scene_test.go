package scene

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphereLayout(t *testing.T) {
	assert.Equal(t, 16, GPUSphereSize)

	data := DefaultSpheres().Marshal()
	require.Len(t, data, 16)
	assert.Equal(t, float32(0), common.Float32At(data, 0))
	assert.Equal(t, float32(0), common.Float32At(data, 4))
	assert.Equal(t, float32(-1), common.Float32At(data, 8))
	assert.Equal(t, float32(0.5), common.Float32At(data, 12))
}

func TestMarshalKeepsOrder(t *testing.T) {
	s := Spheres{
		{Center: [3]float32{1, 0, 0}, Radius: 1},
		{Center: [3]float32{2, 0, 0}, Radius: 2},
	}
	data := s.Marshal()
	require.Len(t, data, 32)
	assert.Equal(t, float32(1), common.Float32At(data, 0))
	assert.Equal(t, float32(2), common.Float32At(data, 16))
	assert.Equal(t, float32(2), common.Float32At(data, 28))

	assert.Empty(t, Spheres{}.Marshal())
}

func TestNewSceneDefaults(t *testing.T) {
	s, err := NewScene("main")
	require.NoError(t, err)
	assert.Equal(t, "main", s.Name())
	assert.Equal(t, DefaultSpheres(), s.Spheres())

	empty, err := NewScene("empty", WithSpheres())
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = NewScene("bad", WithSpheres(GPUSphere{Radius: -1}))
	assert.ErrorIs(t, err, ErrInvalidSphere)
}

func TestMutationsBumpVersion(t *testing.T) {
	s, err := NewScene("main")
	require.NoError(t, err)
	v := s.Version()

	require.NoError(t, s.Add(GPUSphere{Center: [3]float32{0, -100.5, -1}, Radius: 100}))
	assert.Equal(t, 2, s.Len())
	assert.Greater(t, s.Version(), v)

	v = s.Version()
	require.NoError(t, s.Set(0, GPUSphere{Radius: 1}))
	assert.Greater(t, s.Version(), v)
	sp, ok := s.Sphere(0)
	require.True(t, ok)
	assert.Equal(t, float32(1), sp.Radius)

	require.NoError(t, s.Remove(0))
	sp, _ = s.Sphere(0)
	assert.Equal(t, float32(100), sp.Radius, "order of remaining spheres is kept")

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestMutationErrors(t *testing.T) {
	s, err := NewScene("main")
	require.NoError(t, err)
	v := s.Version()

	assert.ErrorIs(t, s.Add(GPUSphere{Radius: 1}, GPUSphere{Radius: float32(math.NaN())}), ErrInvalidSphere)
	assert.Equal(t, 1, s.Len(), "invalid batch is not appended")
	assert.ErrorIs(t, s.Set(5, GPUSphere{}), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Remove(-1), ErrIndexOutOfRange)
	assert.Equal(t, v, s.Version())

	_, ok := s.Sphere(3)
	assert.False(t, ok)
}
