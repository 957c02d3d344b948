package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW implementation of platformWindow.
type glfwWindow struct {
	window *glfw.Window
	closed bool
}

var _ platformWindow = &glfwWindow{}

// openPlatformWindow initializes GLFW on the calling thread, opens a window without a client
// API and routes its key and framebuffer events into w's callbacks.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func openPlatformWindow(w *engineWindow) (platformWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, glfw.DontCare, glfw.DontCare)

	gw := &glfwWindow{window: win}
	win.SetKeyCallback(gw.keyHandler(w))

	// surfaces are sized in framebuffer pixels, which differ from screen coordinates on high-DPI displays
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	w.width, w.height = win.GetFramebufferSize()
	return gw, nil
}

// keyHandler forwards presses and repeats as key-down events and releases as key-up events.
// Escape closes the window.
func (g *glfwWindow) keyHandler(w *engineWindow) glfw.KeyCallback {
	return func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			g.window.SetShouldClose(true)
			return
		}
		var callback func(uint32)
		switch action {
		case glfw.Press, glfw.Repeat:
			callback = w.onKeyDown
		case glfw.Release:
			callback = w.onKeyUp
		}
		if callback != nil {
			callback(uint32(key))
		}
	}
}

// surfaceDescriptor uses the wgpuglfw bridge, which covers Windows, X11, Wayland and macOS.
func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	if g.closed {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(g.window)
}

func (g *glfwWindow) setTitle(title string) {
	if !g.closed {
		g.window.SetTitle(title)
	}
}

func (g *glfwWindow) running() bool {
	return !g.closed && !g.window.ShouldClose()
}

// poll processes pending events without blocking.
func (g *glfwWindow) poll() bool {
	if g.closed {
		return false
	}
	glfw.PollEvents()
	return g.running()
}

func (g *glfwWindow) destroy() error {
	if g.closed {
		return errors.New("window is already closed")
	}
	g.closed = true
	g.window.Destroy()
	glfw.Terminate()
	return nil
}
