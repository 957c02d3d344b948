package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// cameraCount is an atomic counter used to generate unique labels for each camera instance.
var cameraCount atomic.Uint64

const (
	defaultFocal          = 1.0
	defaultViewportHeight = 2.0
	defaultMaxDepth       = 10
	defaultFov            = 90.0 * (math.Pi / 180.0)
)

type cameraImpl struct {
	mu *sync.Mutex

	label   string
	variant Variant

	screenDimensions [2]float32
	position         [3]float32

	worldUp [3]float32
	right   [3]float32
	up      [3]float32
	forward [3]float32

	focal          float32
	viewportHeight float32
	fov            float32
	maxDepth       int32

	controller Controller
}

// Camera holds the ray-generation parameters uploaded to the GPU on every frame.
// One Camera type serves both payload shapes; the Variant chosen at construction decides
// which fields reach the shader.
type Camera interface {
	// Label returns the unique debug label of this camera.
	//
	// Returns:
	//   - string: the label, e.g. "camera_0"
	Label() string

	// Variant returns the payload shape chosen at construction.
	//
	// Returns:
	//   - Variant: the camera variant
	Variant() Variant

	// ScreenDimensions returns the render target size in pixels.
	//
	// Returns:
	//   - width, height: the screen dimensions
	ScreenDimensions() (width, height float32)

	// SetScreenDimensions sets the render target size in pixels. The renderer calls this on resize.
	//
	// Parameters:
	//   - width, height: the new screen dimensions
	SetScreenDimensions(width, height float32)

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - [3]float32: the position
	Position() [3]float32

	// SetPosition sets the camera's world-space position.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p [3]float32)

	// Translate moves the camera along its local axes.
	//
	// Parameters:
	//   - right: distance along the right axis
	//   - up: distance along the up axis
	//   - forward: distance along the viewing direction
	Translate(right, up, forward float32)

	// LookAt orients the camera towards target. Only the basis variant carries orientation to
	// the GPU; the focal variant always looks down -Z.
	//
	// Parameters:
	//   - target: the world-space point to look at
	LookAt(target [3]float32)

	// Basis returns the camera's orthonormal basis.
	//
	// Returns:
	//   - right, up, forward: unit vectors of the camera frame
	Basis() (right, up, forward [3]float32)

	// Focal returns the focal length used by the focal variant.
	Focal() float32

	// SetFocal sets the focal length used by the focal variant.
	SetFocal(focal float32)

	// ViewportHeight returns the viewport height used by the focal variant.
	ViewportHeight() float32

	// SetViewportHeight sets the viewport height used by the focal variant.
	SetViewportHeight(height float32)

	// Fov returns the vertical field of view in radians used by the basis variant.
	Fov() float32

	// SetFov sets the vertical field of view in radians used by the basis variant.
	SetFov(fov float32)

	// MaxDepth returns the maximum ray bounce depth used by the focal variant.
	MaxDepth() int32

	// SetMaxDepth sets the maximum ray bounce depth used by the focal variant.
	SetMaxDepth(depth int32)

	// Controller returns the attached Controller.
	// Returns nil if no controller is attached.
	//
	// Returns:
	//   - Controller: the attached controller or nil
	Controller() Controller

	// SetController attaches a Controller to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl Controller)

	// Update applies the controller's movement for a frame of dt seconds.
	// If no controller is attached, this method does nothing.
	//
	// Parameters:
	//   - dt: the frame time in seconds
	//
	// Returns:
	//   - bool: true if the camera moved
	Update(dt float32) bool

	// Uniform builds the GPU payload for the camera's variant from its current state.
	//
	// Returns:
	//   - Uniform: the payload to upload
	Uniform() Uniform

	// StructSource returns the WGSL Camera struct matching this camera's variant.
	//
	// Returns:
	//   - string: the WGSL source
	StructSource() string
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera. Defaults match the reference scene: focal length 1,
// viewport height 2, position at the origin looking down -Z and a max depth of 10.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:               &sync.Mutex{},
		label:            "camera_" + strconv.FormatUint(cameraCount.Add(1)-1, 10),
		variant:          VariantFocal,
		screenDimensions: [2]float32{1, 1},
		worldUp:          [3]float32{0, 1, 0},
		right:            [3]float32{1, 0, 0},
		up:               [3]float32{0, 1, 0},
		forward:          [3]float32{0, 0, -1},
		focal:            defaultFocal,
		viewportHeight:   defaultViewportHeight,
		fov:              defaultFov,
		maxDepth:         defaultMaxDepth,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Label() string {
	return c.label
}

func (c *cameraImpl) Variant() Variant {
	return c.variant
}

func (c *cameraImpl) ScreenDimensions() (width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screenDimensions[0], c.screenDimensions[1]
}

func (c *cameraImpl) SetScreenDimensions(width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenDimensions = [2]float32{width, height}
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) SetPosition(p [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
}

func (c *cameraImpl) Translate(right, up, forward float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translate(right, up, forward)
}

func (c *cameraImpl) LookAt(target [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookAt(target)
}

func (c *cameraImpl) Basis() (right, up, forward [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.right, c.up, c.forward
}

func (c *cameraImpl) Focal() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focal
}

func (c *cameraImpl) SetFocal(focal float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focal = focal
}

func (c *cameraImpl) ViewportHeight() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewportHeight
}

func (c *cameraImpl) SetViewportHeight(height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportHeight = height
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) MaxDepth() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxDepth
}

func (c *cameraImpl) SetMaxDepth(depth int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxDepth = depth
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update(dt float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return false
	}
	right, up, forward := c.controller.Step(dt)
	if right == 0 && up == 0 && forward == 0 {
		return false
	}
	c.translate(right, up, forward)
	return true
}

func (c *cameraImpl) Uniform() Uniform {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := Uniform{Variant: c.variant}
	switch c.variant {
	case VariantBasis:
		u.Basis = GPUBasisCamera{
			ScreenDimensions: c.screenDimensions,
			Fov:              c.fov,
			Position:         c.position,
			Up:               c.up,
			Right:            c.right,
		}
	default:
		u.Focal = GPUFocalCamera{
			ScreenDimensions: c.screenDimensions,
			Focal:            c.focal,
			ViewportHeight:   c.viewportHeight,
			Position:         c.position,
			MaxDepth:         c.maxDepth,
		}
	}
	return u
}

func (c *cameraImpl) StructSource() string {
	return StructSource(c.variant)
}

// translate moves the position along the local axes. Caller must hold the mutex.
func (c *cameraImpl) translate(right, up, forward float32) {
	delta := common.Add3(common.Scale3(c.right, right), common.Scale3(c.up, up))
	delta = common.Add3(delta, common.Scale3(c.forward, forward))
	c.position = common.Add3(c.position, delta)
}

// lookAt recomputes the basis from the current position. A target equal to the position
// leaves the basis unchanged. Caller must hold the mutex.
func (c *cameraImpl) lookAt(target [3]float32) {
	d := common.Sub3(target, c.position)
	if common.Dot3(d, d) == 0 {
		return
	}
	c.right, c.up, c.forward = common.LookAtBasis(c.position, target, c.worldUp)
}
