package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// offsetAlignment is the WebGPU default for minUniformBufferOffsetAlignment and
// minStorageBufferOffsetAlignment. Every binding slot must start on this boundary.
const offsetAlignment = 256

// ErrSizeMismatch is returned by Resource.Write when the marshalled payload does not match the buffer size.
var ErrSizeMismatch = errors.New("bind_group_provider: payload size does not match buffer size")

// Payload is a plain-old-data value with a fixed GPU byte layout.
type Payload interface {
	// Marshal serializes the value into the exact byte layout the shader expects.
	//
	// Returns:
	//   - []byte: the serialized bytes
	Marshal() []byte
}

// BufferKind selects how the buffer is exposed to shaders.
type BufferKind int

const (
	// KindUniform binds the buffer as var<uniform>. Buffer usage is Uniform | CopyDst.
	KindUniform BufferKind = iota

	// KindReadOnlyStorage binds the buffer as var<storage, read>. Buffer usage is Storage | CopyDst.
	KindReadOnlyStorage
)

func (k BufferKind) String() string {
	switch k {
	case KindUniform:
		return "uniform"
	case KindReadOnlyStorage:
		return "read-only storage"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

func (k BufferKind) bindingType() wgpu.BufferBindingType {
	if k == KindReadOnlyStorage {
		return wgpu.BufferBindingTypeReadOnlyStorage
	}
	return wgpu.BufferBindingTypeUniform
}

func (k BufferKind) usage() wgpu.BufferUsage {
	if k == KindReadOnlyStorage {
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	}
	return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
}

// BindingSlot exposes a range of the resource's buffer at one @binding index.
// A Size of zero binds from Offset to the end of the buffer.
type BindingSlot struct {
	Binding uint32
	Offset  uint64
	Size    uint64
}

// Resource is the binding triple for one payload: a bind group layout, the GPU buffer holding
// the marshalled payload and a bind group tying the buffer to the layout. The bind group always
// references exactly Layout() and Buffer().
//
// Resources are produced by the staged builder NewLayout -> WithBuffer -> Bind, or by Create.
type Resource[T Payload] struct {
	backend backend.Backend

	label          string
	kind           BufferKind
	slots          []BindingSlot
	minBindingSize uint64

	layout    backend.LayoutID
	buffer    backend.BufferID
	bindGroup backend.BindGroupID

	value T
	// size is the marshalled payload size; allocated is the real buffer size, which is larger
	// only for an empty payload.
	size      uint64
	allocated uint64

	released bool
}

// Create runs all three builder stages for value and returns the finished resource.
//
// Parameters:
//   - b: the backend to create GPU objects on
//   - label: a debug label used for every created object
//   - kind: uniform or read-only storage
//   - value: the initial payload
//   - options: layout options such as WithSlots
//
// Returns:
//   - *Resource[T]: the resource
//   - error: an error from any stage
func Create[T Payload](b backend.Backend, label string, kind BufferKind, value T, options ...LayoutOption) (*Resource[T], error) {
	ls, err := NewLayout[T](b, label, kind, options...)
	if err != nil {
		return nil, err
	}
	bs, err := ls.WithBuffer(value)
	if err != nil {
		ls.Release()
		return nil, err
	}
	res, err := bs.Bind()
	if err != nil {
		bs.Release()
		ls.Release()
		return nil, err
	}
	return res, nil
}

func (r *Resource[T]) Label() string {
	return r.label
}

func (r *Resource[T]) Kind() BufferKind {
	return r.kind
}

// Layout returns the bind group layout handle, used to build pipeline layouts.
func (r *Resource[T]) Layout() backend.LayoutID {
	return r.layout
}

// Buffer returns the buffer handle.
func (r *Resource[T]) Buffer() backend.BufferID {
	return r.buffer
}

// BindGroup returns the bind group handle bound at draw time.
func (r *Resource[T]) BindGroup() backend.BindGroupID {
	return r.bindGroup
}

// Value returns the last payload written to the buffer.
func (r *Resource[T]) Value() T {
	return r.value
}

// Size returns the marshalled payload size in bytes.
func (r *Resource[T]) Size() uint64 {
	return r.size
}

// AllocatedSize returns the size of the GPU buffer. It differs from Size only for empty
// payloads, which are backed by a zero-filled buffer of the minimum binding size.
func (r *Resource[T]) AllocatedSize() uint64 {
	return r.allocated
}

// Write marshals value and overwrites the whole buffer with it. Partial writes are not
// supported: a payload whose size differs from the buffer is rejected with ErrSizeMismatch.
//
// Parameters:
//   - value: the new payload
//
// Returns:
//   - error: ErrSizeMismatch, or an error from the backend
func (r *Resource[T]) Write(value T) error {
	data := value.Marshal()
	if uint64(len(data)) != r.size {
		return fmt.Errorf("%s: %w (got %d bytes, buffer holds %d)", r.label, ErrSizeMismatch, len(data), r.size)
	}
	if len(data) > 0 {
		if err := r.backend.WriteBuffer(r.buffer, 0, data); err != nil {
			return fmt.Errorf("%s: %w", r.label, err)
		}
	}
	r.value = value
	return nil
}

// Update applies fn to a copy of the current value and writes the result.
//
// Parameters:
//   - fn: the mutation to apply
//
// Returns:
//   - error: an error from Write
func (r *Resource[T]) Update(fn func(*T)) error {
	v := r.value
	fn(&v)
	return r.Write(v)
}

// Replace writes value in place when its size matches the buffer. Otherwise it allocates a
// new buffer and bind group against the same layout and releases the old ones, so pipelines
// built from Layout() stay valid.
//
// Parameters:
//   - value: the new payload
//
// Returns:
//   - error: an error from the backend; on failure the old buffer and bind group stay active
func (r *Resource[T]) Replace(value T) error {
	if uint64(len(value.Marshal())) == r.size {
		return r.Write(value)
	}

	ls := &LayoutStage[T]{
		backend:        r.backend,
		label:          r.label,
		kind:           r.kind,
		slots:          r.slots,
		minBindingSize: r.minBindingSize,
		layout:         r.layout,
	}
	bs, err := ls.WithBuffer(value)
	if err != nil {
		return err
	}
	next, err := bs.Bind()
	if err != nil {
		bs.Release()
		return err
	}

	r.backend.ReleaseBindGroup(r.bindGroup)
	r.backend.ReleaseBuffer(r.buffer)
	r.buffer = next.buffer
	r.bindGroup = next.bindGroup
	r.value = next.value
	r.size = next.size
	r.allocated = next.allocated
	return nil
}

// Release releases the bind group, buffer and layout. Calling Release twice is a no-op.
func (r *Resource[T]) Release() {
	if r.released {
		return
	}
	r.backend.ReleaseBindGroup(r.bindGroup)
	r.backend.ReleaseBuffer(r.buffer)
	r.backend.ReleaseBindGroupLayout(r.layout)
	r.released = true
}

// bufferContents pads an empty payload so that it can still be bound.
func bufferContents(data []byte, minBindingSize uint64) []byte {
	if len(data) > 0 {
		return data
	}
	return make([]byte, common.AlignUp(max(minBindingSize, 4), 4))
}
