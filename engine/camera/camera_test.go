package camera

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadSizes(t *testing.T) {
	assert.Equal(t, 32, (&GPUFocalCamera{}).Size())
	assert.Equal(t, 64, (&GPUBasisCamera{}).Size())
	assert.Equal(t, 32, UniformSize(VariantFocal))
	assert.Equal(t, 64, UniformSize(VariantBasis))
}

func TestDefaults(t *testing.T) {
	c := NewCamera(WithScreenDimensions(800, 600))

	assert.Equal(t, VariantFocal, c.Variant())
	assert.Equal(t, float32(1), c.Focal())
	assert.Equal(t, float32(2), c.ViewportHeight())
	assert.Equal(t, int32(10), c.MaxDepth())
	assert.Equal(t, [3]float32{0, 0, 0}, c.Position())

	w, h := c.ScreenDimensions()
	assert.Equal(t, float32(800), w)
	assert.Equal(t, float32(600), h)
}

func TestFocalMarshal(t *testing.T) {
	c := NewCamera(WithScreenDimensions(800, 600), WithPosition([3]float32{1, 2, 3}))
	data := c.Uniform().Marshal()
	require.Len(t, data, 32)

	assert.Equal(t, float32(800), common.Float32At(data, 0))
	assert.Equal(t, float32(600), common.Float32At(data, 4))
	assert.Equal(t, float32(1), common.Float32At(data, 8))
	assert.Equal(t, float32(2), common.Float32At(data, 12))
	assert.Equal(t, float32(1), common.Float32At(data, 16))
	assert.Equal(t, float32(2), common.Float32At(data, 20))
	assert.Equal(t, float32(3), common.Float32At(data, 24))
	assert.Equal(t, int32(10), int32(binary.LittleEndian.Uint32(data[28:])))
}

func TestBasisMarshal(t *testing.T) {
	c := NewCamera(
		WithVariant(VariantBasis),
		WithScreenDimensions(640, 480),
		WithFov(math.Pi/2),
		WithPosition([3]float32{0, 0, 5}),
		WithLookAt([3]float32{0, 0, 0}),
	)
	data := c.Uniform().Marshal()
	require.Len(t, data, 64)

	assert.Equal(t, float32(640), common.Float32At(data, 0))
	assert.Equal(t, float32(math.Pi/2), common.Float32At(data, 8))
	assert.Equal(t, float32(0), common.Float32At(data, 12), "padding")
	assert.Equal(t, float32(5), common.Float32At(data, 24))
	assert.InDelta(t, 1.0, common.Float32At(data, 36), 1e-6, "up.y")
	assert.InDelta(t, 1.0, common.Float32At(data, 48), 1e-6, "right.x")
	assert.Equal(t, float32(0), common.Float32At(data, 60), "padding")
}

func TestSetScreenDimensionsReachesPayload(t *testing.T) {
	c := NewCamera(WithScreenDimensions(800, 600))
	c.SetScreenDimensions(1024, 768)

	data := c.Uniform().Marshal()
	assert.Equal(t, float32(1024), common.Float32At(data, 0))
	assert.Equal(t, float32(768), common.Float32At(data, 4))
}

func TestLookAtAndTranslate(t *testing.T) {
	c := NewCamera(WithVariant(VariantBasis), WithPosition([3]float32{0, 0, 0}))
	c.LookAt([3]float32{1, 0, 0})

	right, up, forward := c.Basis()
	assert.InDelta(t, 1.0, forward[0], 1e-6)
	assert.InDelta(t, 1.0, up[1], 1e-6)
	assert.InDelta(t, 1.0, right[2], 1e-6)

	c.Translate(0, 0, 2)
	p := c.Position()
	assert.InDelta(t, 2.0, p[0], 1e-6)

	c.LookAt(c.Position())
	_, _, same := c.Basis()
	assert.Equal(t, forward, same, "looking at the eye keeps the basis")
}

func TestStructSource(t *testing.T) {
	focal := NewCamera()
	assert.True(t, strings.Contains(focal.StructSource(), "focal: f32"))

	basis := NewCamera(WithVariant(VariantBasis))
	assert.True(t, strings.Contains(basis.StructSource(), "fov: f32"))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("basis")
	require.NoError(t, err)
	assert.Equal(t, VariantBasis, v)

	v, err = ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantFocal, v)

	_, err = ParseVariant("orbit")
	assert.Error(t, err)
}

func TestLabelsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewCamera().Label(), NewCamera().Label())
}

func TestControllerStep(t *testing.T) {
	ctrl := NewController(WithSpeed(2), WithBoost(3))

	r, u, f := ctrl.Step(1)
	assert.Zero(t, r+u+f)

	ctrl.KeyDown(common.KeyW)
	ctrl.KeyDown(common.KeyA)
	r, u, f = ctrl.Step(0.5)
	assert.Equal(t, float32(-1), r)
	assert.Equal(t, float32(0), u)
	assert.Equal(t, float32(1), f)

	ctrl.KeyDown(common.KeyS)
	_, _, f = ctrl.Step(1)
	assert.Equal(t, float32(0), f, "opposing keys cancel")

	ctrl.KeyUp(common.KeyS)
	ctrl.KeyDown(common.KeyLeftShift)
	_, _, f = ctrl.Step(1)
	assert.Equal(t, float32(6), f)

	ctrl.Reset()
	assert.False(t, ctrl.Pressed(common.KeyW))
}

func TestCameraUpdate(t *testing.T) {
	ctrl := NewController()
	c := NewCamera(WithController(ctrl))

	assert.False(t, c.Update(1))

	ctrl.KeyDown(common.KeyW)
	assert.True(t, c.Update(1))
	assert.InDelta(t, -1.0, c.Position()[2], 1e-6, "forward is -Z")
}
