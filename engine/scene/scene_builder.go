package scene

import "slices"

// SceneBuilderOption is a functional option for configuring a Scene during NewScene.
type SceneBuilderOption func(*scene)

// WithSpheres replaces the default sphere list. An empty call produces an empty scene.
//
// Parameters:
//   - spheres: the initial spheres in upload order
//
// Returns:
//   - SceneBuilderOption: a function that sets the spheres
func WithSpheres(spheres ...GPUSphere) SceneBuilderOption {
	return func(s *scene) {
		s.spheres = slices.Clone(spheres)
	}
}
