package camera

// Controller turns held keys into camera movement. The window forwards key events with
// KeyDown and KeyUp; the camera asks for the movement of each frame with Step.
//
// Key bindings:
//   - W/S: forward and back
//   - D/A: right and left
//   - E/Q: up and down
//   - Shift: multiplies the speed by the boost factor
type Controller interface {
	// KeyDown records a key press.
	//
	// Parameters:
	//   - key: the key code, see the common.Key* constants
	KeyDown(key int)

	// KeyUp records a key release.
	//
	// Parameters:
	//   - key: the key code, see the common.Key* constants
	KeyUp(key int)

	// Pressed reports whether key is currently held.
	//
	// Parameters:
	//   - key: the key code
	//
	// Returns:
	//   - bool: true while the key is held
	Pressed(key int) bool

	// Step returns the movement for a frame of dt seconds along the camera's local axes.
	//
	// Parameters:
	//   - dt: the frame time in seconds
	//
	// Returns:
	//   - right, up, forward: distances to move along each axis
	Step(dt float32) (right, up, forward float32)

	// Speed returns the movement speed in world units per second.
	//
	// Returns:
	//   - float32: the speed
	Speed() float32

	// SetSpeed sets the movement speed in world units per second.
	//
	// Parameters:
	//   - speed: the new speed
	SetSpeed(speed float32)

	// Reset releases every held key.
	Reset()
}
