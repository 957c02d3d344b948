package camera

// ControllerOption is a functional option for configuring a Controller.
type ControllerOption func(*keyboardController)

// WithSpeed sets the movement speed.
//
// Parameters:
//   - speed: world units per second
//
// Returns:
//   - ControllerOption: functional option to set the speed
func WithSpeed(speed float32) ControllerOption {
	return func(kc *keyboardController) {
		kc.speed = speed
	}
}

// WithBoost sets the speed multiplier applied while Shift is held.
//
// Parameters:
//   - boost: the multiplier
//
// Returns:
//   - ControllerOption: functional option to set the boost factor
func WithBoost(boost float32) ControllerOption {
	return func(kc *keyboardController) {
		kc.boost = boost
	}
}
