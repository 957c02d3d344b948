package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAdapter is returned when no adapter compatible with the surface is available.
	ErrNoAdapter = errors.New("backend: no compatible adapter")

	// ErrNoDevice is returned when the adapter refuses to create a device.
	ErrNoDevice = errors.New("backend: device request failed")

	// ErrSurfaceOutdated is returned when the surface no longer matches the window and must be reconfigured.
	ErrSurfaceOutdated = errors.New("backend: surface outdated")

	// ErrSurfaceLost is returned when the surface was lost and must be reconfigured.
	ErrSurfaceLost = errors.New("backend: surface lost")

	// ErrSurfaceTimeout is returned when acquiring the next surface texture timed out.
	ErrSurfaceTimeout = errors.New("backend: surface texture acquisition timed out")

	// ErrDeviceLost is returned when the device is gone or out of memory. It is not recoverable.
	ErrDeviceLost = errors.New("backend: device lost")

	// ErrUnknownHandle is returned when a handle does not name a live object.
	ErrUnknownHandle = errors.New("backend: unknown handle")

	// ErrFrameInProgress is returned by BeginFrame when the previous frame was not presented.
	ErrFrameInProgress = errors.New("backend: previous frame not yet presented")

	// ErrNoFrame is returned when a frame operation is called outside BeginFrame/Present.
	ErrNoFrame = errors.New("backend: no frame in progress")

	// ErrSurfaceNotConfigured is returned by BeginFrame before the surface has been configured.
	ErrSurfaceNotConfigured = errors.New("backend: surface not configured")
)

// IsRecoverable reports whether err is a transient presentation error that is resolved by
// reconfiguring the surface and trying again on the next frame.
//
// Parameters:
//   - err: the error returned by BeginFrame
//
// Returns:
//   - bool: true for outdated, lost and timed-out surfaces
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSurfaceOutdated) || errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrSurfaceTimeout)
}

// classifyAcquireError maps an error from surface texture acquisition onto the sentinel
// errors of this package, keeping the native message. The match is on message text; anything
// unrecognized is treated as a lost device.
func classifyAcquireError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "outdated"):
		return fmt.Errorf("%w: %v", ErrSurfaceOutdated, err)
	case strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %v", ErrSurfaceTimeout, err)
	case strings.Contains(msg, "outofmemory"), strings.Contains(msg, "out of memory"), strings.Contains(msg, "device"):
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	case strings.Contains(msg, "lost"):
		return fmt.Errorf("%w: %v", ErrSurfaceLost, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
}
