package window

// WindowBuilderOption is a functional option for configuring a Window during NewWindow.
type WindowBuilderOption func(*engineWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: functional option to set the title
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested initial window size. The framebuffer may end up larger on
// high-DPI displays.
//
// Parameters:
//   - width: the window width in screen coordinates
//   - height: the window height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: functional option to set the size
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithMinSize sets the smallest size the window can be resized to.
//
// Parameters:
//   - width: the minimum width
//   - height: the minimum height
//
// Returns:
//   - WindowBuilderOption: functional option to set the minimum size
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = width
		w.minHeight = height
	}
}
