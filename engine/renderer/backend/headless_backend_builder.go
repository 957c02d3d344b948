package backend

// HeadlessOption is a functional option applied to a Headless backend during construction via NewHeadless.
type HeadlessOption func(*Headless)

// WithCapabilities replaces the surface capabilities reported by the backend.
//
// Parameters:
//   - caps: the capabilities to report
//
// Returns:
//   - HeadlessOption: a function that applies the capabilities option
func WithCapabilities(caps SurfaceCapabilities) HeadlessOption {
	return func(h *Headless) {
		h.capabilities = caps
	}
}
