package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// keyboardController is the single implementation of Controller.
type keyboardController struct {
	mu *sync.Mutex

	pressed map[int]bool

	speed float32
	boost float32
}

var _ Controller = &keyboardController{}

// NewController creates a keyboard controller with a speed of 1 world unit per second and
// a boost factor of 4.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewController(options ...ControllerOption) Controller {
	kc := &keyboardController{
		mu:      &sync.Mutex{},
		pressed: make(map[int]bool),
		speed:   1.0,
		boost:   4.0,
	}
	for _, option := range options {
		option(kc)
	}
	return kc
}

func (kc *keyboardController) KeyDown(key int) {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	kc.pressed[key] = true
}

func (kc *keyboardController) KeyUp(key int) {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	delete(kc.pressed, key)
}

func (kc *keyboardController) Pressed(key int) bool {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	return kc.pressed[key]
}

func (kc *keyboardController) Step(dt float32) (right, up, forward float32) {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	right = kc.axis(common.KeyD, common.KeyA)
	up = kc.axis(common.KeyE, common.KeyQ)
	forward = kc.axis(common.KeyW, common.KeyS)
	if right == 0 && up == 0 && forward == 0 {
		return 0, 0, 0
	}

	distance := kc.speed * dt
	if kc.pressed[common.KeyLeftShift] || kc.pressed[common.KeyRightShift] {
		distance *= kc.boost
	}
	return right * distance, up * distance, forward * distance
}

func (kc *keyboardController) Speed() float32 {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	return kc.speed
}

func (kc *keyboardController) SetSpeed(speed float32) {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	kc.speed = speed
}

func (kc *keyboardController) Reset() {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	clear(kc.pressed)
}

// axis returns +1, -1 or 0 for a pair of opposing keys. Caller must hold the mutex.
func (kc *keyboardController) axis(positive, negative int) float32 {
	var v float32
	if kc.pressed[positive] {
		v++
	}
	if kc.pressed[negative] {
		v--
	}
	return v
}
