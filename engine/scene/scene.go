package scene

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

// ErrInvalidSphere is returned when a sphere has a negative or non-finite radius.
var ErrInvalidSphere = errors.New("scene: invalid sphere")

// ErrIndexOutOfRange is returned when a sphere index does not exist.
var ErrIndexOutOfRange = errors.New("scene: sphere index out of range")

// Scene is the ordered, mutable list of spheres the ray tracer intersects.
// Every mutation bumps Version so the renderer knows when to re-upload the storage buffer.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Len returns the number of spheres.
	Len() int

	// Spheres returns a copy of the sphere list in upload order.
	//
	// Returns:
	//   - Spheres: the spheres
	Spheres() Spheres

	// Sphere returns the sphere at index i.
	//
	// Parameters:
	//   - i: the sphere index
	//
	// Returns:
	//   - GPUSphere: the sphere
	//   - bool: false if i is out of range
	Sphere(i int) (GPUSphere, bool)

	// Add appends spheres to the end of the list.
	//
	// Parameters:
	//   - spheres: the spheres to append
	//
	// Returns:
	//   - error: ErrInvalidSphere if any radius is negative; nothing is appended in that case
	Add(spheres ...GPUSphere) error

	// Set replaces the sphere at index i.
	//
	// Parameters:
	//   - i: the sphere index
	//   - sphere: the new sphere
	//
	// Returns:
	//   - error: ErrIndexOutOfRange or ErrInvalidSphere
	Set(i int, sphere GPUSphere) error

	// Remove deletes the sphere at index i, keeping the order of the others.
	//
	// Parameters:
	//   - i: the sphere index
	//
	// Returns:
	//   - error: ErrIndexOutOfRange
	Remove(i int) error

	// Clear removes every sphere.
	Clear()

	// Version returns a counter incremented by every mutation.
	//
	// Returns:
	//   - uint64: the current version
	Version() uint64
}

type scene struct {
	mu *sync.Mutex

	name    string
	spheres Spheres
	version uint64
}

var _ Scene = &scene{}

// NewScene creates a Scene holding DefaultSpheres unless WithSpheres is given.
//
// Parameters:
//   - name: the scene's identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
//   - error: ErrInvalidSphere if an initial sphere is invalid
func NewScene(name string, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		mu:      &sync.Mutex{},
		name:    name,
		spheres: DefaultSpheres(),
	}
	for _, option := range options {
		option(s)
	}
	for i, sp := range s.spheres {
		if err := validate(sp); err != nil {
			return nil, fmt.Errorf("sphere %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spheres)
}

func (s *scene) Spheres() Spheres {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.spheres)
}

func (s *scene) Sphere(i int) (GPUSphere, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.spheres) {
		return GPUSphere{}, false
	}
	return s.spheres[i], true
}

func (s *scene) Add(spheres ...GPUSphere) error {
	for _, sp := range spheres {
		if err := validate(sp); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spheres = append(s.spheres, spheres...)
	s.version++
	return nil
}

func (s *scene) Set(i int, sphere GPUSphere) error {
	if err := validate(sphere); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.spheres) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	s.spheres[i] = sphere
	s.version++
	return nil
}

func (s *scene) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.spheres) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	s.spheres = slices.Delete(s.spheres, i, i+1)
	s.version++
	return nil
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spheres = nil
	s.version++
}

func (s *scene) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func validate(sp GPUSphere) error {
	r := float64(sp.Radius)
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: radius %v", ErrInvalidSphere, sp.Radius)
	}
	return nil
}
