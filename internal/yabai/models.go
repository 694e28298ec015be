package yabai

// Frame is a window or display rectangle in screen points.
type Frame struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Space mirrors `yabai -m query --spaces`.
type Space struct {
	ID                 uint32   `json:"id"`
	UUID               string   `json:"uuid"`
	Index              uint32   `json:"index"`
	Label              string   `json:"label"`
	Type               string   `json:"type"`
	Display            uint32   `json:"display"`
	Windows            []uint32 `json:"windows"`
	FirstWindow        uint32   `json:"first-window"`
	LastWindow         uint32   `json:"last-window"`
	HasFocus           bool     `json:"has-focus"`
	IsVisible          bool     `json:"is-visible"`
	IsNativeFullscreen bool     `json:"is-native-fullscreen"`
}

// Display mirrors `yabai -m query --displays`.
type Display struct {
	ID     uint32   `json:"id"`
	UUID   string   `json:"uuid"`
	Index  uint32   `json:"index"`
	Frame  Frame    `json:"frame"`
	Spaces []uint32 `json:"spaces"`
}

// Window mirrors `yabai -m query --windows`.
type Window struct {
	ID                 uint32  `json:"id"`
	PID                int     `json:"pid"`
	App                string  `json:"app"`
	Title              string  `json:"title"`
	Frame              Frame   `json:"frame"`
	Role               string  `json:"role"`
	Subrole            string  `json:"subrole"`
	Display            uint32  `json:"display"`
	Space              uint32  `json:"space"`
	Level              int     `json:"level"`
	Opacity            float64 `json:"opacity"`
	SplitType          string  `json:"split-type"`
	StackIndex         int     `json:"stack-index"`
	CanMove            bool    `json:"can-move"`
	CanResize          bool    `json:"can-resize"`
	HasFocus           bool    `json:"has-focus"`
	HasShadow          bool    `json:"has-shadow"`
	HasParentZoom      bool    `json:"has-parent-zoom"`
	HasFullscreenZoom  bool    `json:"has-fullscreen-zoom"`
	IsNativeFullscreen bool    `json:"is-native-fullscreen"`
	IsVisible          bool    `json:"is-visible"`
	IsMinimized        bool    `json:"is-minimized"`
	IsHidden           bool    `json:"is-hidden"`
	IsFloating         bool    `json:"is-floating"`
	IsSticky           bool    `json:"is-sticky"`
	IsGrabbed          bool    `json:"is-grabbed"`
}

// HelperSubrole marks Hammerspoon's invisible helper windows, which yabai
// reports like any other window.
const HelperSubrole = "AXUnknown.Hammerspoon"

// Concealed reports whether the window is minimized or its app is hidden.
func (w Window) Concealed() bool {
	return w.IsMinimized || w.IsHidden
}

// Visible returns the windows that are neither minimized nor hidden.
func Visible(windows []Window) []Window {
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		if !w.Concealed() {
			out = append(out, w)
		}
	}
	return out
}

func withoutHelpers(windows []Window) []Window {
	out := windows[:0]
	for _, w := range windows {
		if w.Subrole != HelperSubrole {
			out = append(out, w)
		}
	}
	return out
}
