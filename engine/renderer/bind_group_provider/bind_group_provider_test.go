package bind_group_provider

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type words []uint32

func (w words) Marshal() []byte {
	buf := make([]byte, len(w)*4)
	for i, v := range w {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func TestCreateUniform(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Camera", KindUniform, words{1, 2, 3, 4})
	require.NoError(t, err)

	entries, err := h.LayoutEntries(res.Layout())
	require.NoError(t, err)
	require.Len(t, entries, 1, "one layout entry per real binding")
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[0].Visibility)

	usage, err := h.BufferUsage(res.Buffer())
	require.NoError(t, err)
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, usage)

	desc, err := h.BindGroupDescriptor(res.BindGroup())
	require.NoError(t, err)
	assert.Equal(t, res.Layout(), desc.Layout)
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, res.Buffer(), desc.Entries[0].Buffer)

	data, err := h.ReadBuffer(res.Buffer())
	require.NoError(t, err)
	assert.Equal(t, words{1, 2, 3, 4}.Marshal(), data)
	assert.Equal(t, uint64(16), res.Size())
}

func TestCreateReadOnlyStorage(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Scene", KindReadOnlyStorage, words{0, 0, 0, 0}, WithMinBindingSize(16))
	require.NoError(t, err)

	entries, err := h.LayoutEntries(res.Layout())
	require.NoError(t, err)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[0].Buffer.Type)
	assert.Equal(t, uint64(16), entries[0].Buffer.MinBindingSize)

	usage, err := h.BufferUsage(res.Buffer())
	require.NoError(t, err)
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, usage)
}

func TestStagedBuilder(t *testing.T) {
	h := backend.NewHeadless()
	ls, err := NewLayout[words](h, "Staged", KindUniform)
	require.NoError(t, err)

	bs, err := ls.WithBuffer(words{7, 7, 7, 7})
	require.NoError(t, err)
	assert.NotZero(t, bs.Buffer())

	res, err := bs.Bind()
	require.NoError(t, err)
	assert.Equal(t, ls.Layout(), res.Layout())
	assert.Equal(t, bs.Buffer(), res.Buffer())
}

func TestWrite(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Camera", KindUniform, words{1, 2, 3, 4})
	require.NoError(t, err)

	require.NoError(t, res.Write(words{5, 6, 7, 8}))
	data, err := h.ReadBuffer(res.Buffer())
	require.NoError(t, err)
	assert.Equal(t, words{5, 6, 7, 8}.Marshal(), data)
	assert.Equal(t, words{5, 6, 7, 8}, res.Value())

	err = res.Write(words{1})
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, words{5, 6, 7, 8}, res.Value(), "failed write leaves the value unchanged")
}

func TestUpdate(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Camera", KindUniform, words{1, 2, 3, 4})
	require.NoError(t, err)

	require.NoError(t, res.Update(func(w *words) {
		(*w)[0] = 42
	}))
	data, err := h.ReadBuffer(res.Buffer())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(data))
}

func TestReplaceReallocatesOnSizeChange(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Scene", KindReadOnlyStorage, words{1, 2, 3, 4}, WithMinBindingSize(16))
	require.NoError(t, err)
	layout, oldBuffer, oldGroup := res.Layout(), res.Buffer(), res.BindGroup()

	require.NoError(t, res.Replace(words{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Equal(t, layout, res.Layout(), "layout is kept")
	assert.NotEqual(t, oldBuffer, res.Buffer())
	assert.NotEqual(t, oldGroup, res.BindGroup())
	assert.Equal(t, uint64(32), res.Size())

	_, err = h.ReadBuffer(oldBuffer)
	assert.ErrorIs(t, err, backend.ErrUnknownHandle, "old buffer is released")

	desc, err := h.BindGroupDescriptor(res.BindGroup())
	require.NoError(t, err)
	assert.Equal(t, res.Buffer(), desc.Entries[0].Buffer)
	assert.Equal(t, layout, desc.Layout)

	buffer := res.Buffer()
	require.NoError(t, res.Replace(words{8, 7, 6, 5, 4, 3, 2, 1}))
	assert.Equal(t, buffer, res.Buffer(), "same size writes in place")
}

func TestEmptyPayloadIsPadded(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Scene", KindReadOnlyStorage, words{}, WithMinBindingSize(16))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), res.Size())
	assert.Equal(t, uint64(16), res.AllocatedSize())
	data, err := h.ReadBuffer(res.Buffer())
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), data)

	assert.NoError(t, res.Write(words{}))
}

func TestSlots(t *testing.T) {
	h := backend.NewHeadless()
	payload := make(words, 128)

	res, err := Create(h, "Pair", KindUniform, payload, WithSlots(
		BindingSlot{Binding: 0, Offset: 0, Size: 64},
		BindingSlot{Binding: 1, Offset: 256, Size: 64},
	))
	require.NoError(t, err)
	entries, err := h.LayoutEntries(res.Layout())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = Create(h, "Unaligned", KindUniform, payload, WithSlots(BindingSlot{Binding: 0, Offset: 4}))
	assert.Error(t, err)

	_, err = Create(h, "Duplicate", KindUniform, payload, WithSlots(BindingSlot{Binding: 0}, BindingSlot{Binding: 0, Offset: 256}))
	assert.Error(t, err)

	_, err = Create(h, "OutOfRange", KindUniform, words{1, 2, 3, 4}, WithSlots(BindingSlot{Binding: 0, Offset: 256}))
	assert.Error(t, err)
}

func TestRelease(t *testing.T) {
	h := backend.NewHeadless()
	res, err := Create(h, "Camera", KindUniform, words{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3, h.LiveObjects())

	res.Release()
	res.Release()
	assert.Equal(t, 0, h.LiveObjects())
}

func TestCreateCleansUpOnFailure(t *testing.T) {
	h := backend.NewHeadless()
	_, err := Create(h, "Odd", KindUniform, oddPayload{})
	require.Error(t, err)
	assert.Equal(t, 0, h.LiveObjects())
}

type oddPayload struct{}

func (oddPayload) Marshal() []byte { return []byte{1, 2, 3} }
