package camera

type CameraBuilderOption func(*cameraImpl)

// WithVariant selects the payload shape uploaded to the GPU.
//
// Parameters:
//   - v: the camera variant
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's variant
func WithVariant(v Variant) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.variant = v
	}
}

// WithScreenDimensions sets the initial render target size in pixels.
//
// Parameters:
//   - width, height: the screen dimensions
//
// Returns:
//   - CameraBuilderOption: a function that sets the screen dimensions
func WithScreenDimensions(width, height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.screenDimensions = [2]float32{width, height}
	}
}

// WithPosition sets the camera's world-space position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - CameraBuilderOption: a function that sets the position
func WithPosition(p [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = p
	}
}

// WithLookAt orients the camera towards target. Apply it after WithPosition and WithUp.
//
// Parameters:
//   - target: the world-space point to look at
//
// Returns:
//   - CameraBuilderOption: a function that orients the camera
func WithLookAt(target [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lookAt(target)
	}
}

// WithUp sets the world up direction used by LookAt.
//
// Parameters:
//   - up: the up direction, typically (0, 1, 0)
//
// Returns:
//   - CameraBuilderOption: a function that sets the world up vector
func WithUp(up [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.worldUp = up
	}
}

// WithFocal sets the focal length of the focal variant.
//
// Parameters:
//   - focal: distance from the eye to the viewport
//
// Returns:
//   - CameraBuilderOption: a function that sets the focal length
func WithFocal(focal float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.focal = focal
	}
}

// WithViewportHeight sets the viewport height of the focal variant. The viewport width
// follows from the screen aspect ratio.
//
// Parameters:
//   - height: viewport height in world units
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport height
func WithViewportHeight(height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewportHeight = height
	}
}

// WithFov sets the vertical field of view of the basis variant.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithMaxDepth sets the maximum ray bounce depth.
//
// Parameters:
//   - depth: the maximum depth
//
// Returns:
//   - CameraBuilderOption: a function that sets the max depth
func WithMaxDepth(depth int32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.maxDepth = depth
	}
}

// WithController attaches a controller to the camera.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl Controller) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
