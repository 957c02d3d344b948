package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// LayoutOption is a functional option used to configure the layout stage during NewLayout.
type LayoutOption func(*layoutConfig)

type layoutConfig struct {
	slots          []BindingSlot
	minBindingSize uint64
	visibility     wgpu.ShaderStage
}

// WithSlots replaces the default single slot (binding 0 covering the whole buffer).
// Each slot produces exactly one layout entry and one bind group entry.
//
// Parameters:
//   - slots: the binding slots, offsets must be multiples of 256
//
// Returns:
//   - LayoutOption: a function that sets the binding slots
func WithSlots(slots ...BindingSlot) LayoutOption {
	return func(c *layoutConfig) {
		c.slots = slots
	}
}

// WithMinBindingSize sets the minimum binding size declared on every layout entry.
// For storage buffers holding runtime-sized arrays this is the element stride.
//
// Parameters:
//   - size: the minimum binding size in bytes
//
// Returns:
//   - LayoutOption: a function that sets the minimum binding size
func WithMinBindingSize(size uint64) LayoutOption {
	return func(c *layoutConfig) {
		c.minBindingSize = size
	}
}

// WithVisibility overrides the shader stages that may access the binding.
// Defaults to vertex | fragment.
//
// Parameters:
//   - stages: the shader stage flags
//
// Returns:
//   - LayoutOption: a function that sets the visibility
func WithVisibility(stages wgpu.ShaderStage) LayoutOption {
	return func(c *layoutConfig) {
		c.visibility = stages
	}
}

// LayoutStage is the first builder stage: the bind group layout exists, no buffer yet.
type LayoutStage[T Payload] struct {
	backend        backend.Backend
	label          string
	kind           BufferKind
	slots          []BindingSlot
	minBindingSize uint64
	layout         backend.LayoutID
}

// BufferStage is the second builder stage: layout and buffer exist, no bind group yet.
type BufferStage[T Payload] struct {
	layoutStage *LayoutStage[T]
	value       T
	buffer      backend.BufferID
	size        uint64
	allocated   uint64
}

// NewLayout creates the bind group layout for a payload type. It is the only entry point of
// the staged builder, so a buffer can never be created before its layout.
//
// Parameters:
//   - b: the backend to create GPU objects on
//   - label: a debug label used for every created object
//   - kind: uniform or read-only storage
//   - options: layout options
//
// Returns:
//   - *LayoutStage[T]: the layout stage
//   - error: an error if the slots are invalid or the layout could not be created
func NewLayout[T Payload](b backend.Backend, label string, kind BufferKind, options ...LayoutOption) (*LayoutStage[T], error) {
	cfg := layoutConfig{
		slots:      []BindingSlot{{Binding: 0}},
		visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if len(cfg.slots) == 0 {
		return nil, fmt.Errorf("%s: at least one binding slot is required", label)
	}

	seen := make(map[uint32]bool, len(cfg.slots))
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(cfg.slots))
	for _, slot := range cfg.slots {
		if seen[slot.Binding] {
			return nil, fmt.Errorf("%s: duplicate binding %d", label, slot.Binding)
		}
		if slot.Offset%offsetAlignment != 0 {
			return nil, fmt.Errorf("%s: binding %d offset %d is not a multiple of %d", label, slot.Binding, slot.Offset, offsetAlignment)
		}
		seen[slot.Binding] = true
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    slot.Binding,
			Visibility: cfg.visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type:           kind.bindingType(),
				MinBindingSize: cfg.minBindingSize,
			},
		})
	}

	layout, err := b.CreateBindGroupLayout(wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Layout",
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	return &LayoutStage[T]{
		backend:        b,
		label:          label,
		kind:           kind,
		slots:          cfg.slots,
		minBindingSize: cfg.minBindingSize,
		layout:         layout,
	}, nil
}

// Layout returns the layout handle created by this stage.
func (s *LayoutStage[T]) Layout() backend.LayoutID {
	return s.layout
}

// WithBuffer creates the buffer holding value's bytes. Several buffers may be created from
// one layout stage.
//
// Parameters:
//   - value: the initial payload
//
// Returns:
//   - *BufferStage[T]: the buffer stage
//   - error: an error if a slot falls outside the buffer or the buffer could not be created
func (s *LayoutStage[T]) WithBuffer(value T) (*BufferStage[T], error) {
	data := value.Marshal()
	contents := bufferContents(data, s.minBindingSize)

	for _, slot := range s.slots {
		end := slot.Offset + slot.Size
		if slot.Size == 0 {
			end = slot.Offset + 1
		}
		if end > uint64(len(contents)) {
			return nil, fmt.Errorf("%s: binding %d range [%d, %d) exceeds buffer size %d", s.label, slot.Binding, slot.Offset, end, len(contents))
		}
	}

	buf, err := s.backend.CreateBufferInit(wgpu.BufferInitDescriptor{
		Label:    s.label + " Buffer",
		Contents: contents,
		Usage:    s.kind.usage(),
	})
	if err != nil {
		return nil, err
	}

	return &BufferStage[T]{
		layoutStage: s,
		value:       value,
		buffer:      buf,
		size:        uint64(len(data)),
		allocated:   uint64(len(contents)),
	}, nil
}

// Release releases the layout. Only needed when the builder is abandoned before Bind.
func (s *LayoutStage[T]) Release() {
	s.backend.ReleaseBindGroupLayout(s.layout)
}

// Buffer returns the buffer handle created by this stage.
func (s *BufferStage[T]) Buffer() backend.BufferID {
	return s.buffer
}

// Bind creates the bind group referencing the stage's layout and buffer and returns the
// finished resource.
//
// Returns:
//   - *Resource[T]: the resource
//   - error: an error if the bind group could not be created
func (s *BufferStage[T]) Bind() (*Resource[T], error) {
	ls := s.layoutStage
	entries := make([]backend.BindGroupEntry, len(ls.slots))
	for i, slot := range ls.slots {
		entries[i] = backend.BindGroupEntry{
			Binding: slot.Binding,
			Buffer:  s.buffer,
			Offset:  slot.Offset,
			Size:    slot.Size,
		}
	}

	bg, err := ls.backend.CreateBindGroup(backend.BindGroupDescriptor{
		Label:   ls.label + " Bind Group",
		Layout:  ls.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	return &Resource[T]{
		backend:        ls.backend,
		label:          ls.label,
		kind:           ls.kind,
		slots:          ls.slots,
		minBindingSize: ls.minBindingSize,
		layout:         ls.layout,
		buffer:         s.buffer,
		bindGroup:      bg,
		value:          s.value,
		size:           s.size,
		allocated:      s.allocated,
	}, nil
}

// Release releases the buffer. Only needed when the builder is abandoned before Bind.
func (s *BufferStage[T]) Release() {
	s.layoutStage.backend.ReleaseBuffer(s.buffer)
}
