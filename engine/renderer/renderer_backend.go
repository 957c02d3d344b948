package renderer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeDefault uses the first present mode the surface reports.
	PresentModeDefault PresentMode = iota

	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency. Falls back to mailbox, then
	// FIFO, when the surface does not support immediate presentation.
	PresentModeUncapped
)

// String returns the configuration name of the mode.
func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return "default"
	}
}

// ParsePresentMode parses a configuration name. The empty string selects PresentModeDefault.
//
// Parameters:
//   - s: "default", "vsync" or "uncapped"
//
// Returns:
//   - PresentMode: the parsed mode
//   - error: an error for unknown names
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PresentModeDefault, nil
	case "vsync", "fifo":
		return PresentModeVSync, nil
	case "uncapped", "immediate":
		return PresentModeUncapped, nil
	default:
		return PresentModeDefault, fmt.Errorf("unknown present mode %q", s)
	}
}

// resolve picks the wgpu present mode among those the surface supports.
func (m PresentMode) resolve(supported []wgpu.PresentMode) wgpu.PresentMode {
	switch m {
	case PresentModeVSync:
		return wgpu.PresentModeFifo
	case PresentModeUncapped:
		for _, candidate := range []wgpu.PresentMode{wgpu.PresentModeImmediate, wgpu.PresentModeMailbox} {
			if slices.Contains(supported, candidate) {
				return candidate
			}
		}
		return wgpu.PresentModeFifo
	default:
		if len(supported) > 0 {
			return supported[0]
		}
		return wgpu.PresentModeFifo
	}
}

// State is the configuration state of a Context.
type State int

const (
	// StateConfigured means the surface matches the last non-zero size.
	StateConfigured State = iota

	// StateUnconfigured means the last Resize asked for a zero-area surface and was ignored.
	// The previous configuration is stale but still valid.
	StateUnconfigured
)

// String returns a readable state name.
func (s State) String() string {
	if s == StateUnconfigured {
		return "unconfigured"
	}
	return "configured"
}

// pickSurfaceFormat returns the first sRGB format, or the first format when none is sRGB.
func pickSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	for _, f := range formats {
		if isSRGB(f) {
			return f, true
		}
	}
	return formats[0], true
}

func isSRGB(f wgpu.TextureFormat) bool {
	switch f {
	case wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb:
		return true
	default:
		return false
	}
}
