// Package event decodes yabai signal notifications into typed events.
package event

import (
	"fmt"
	"strconv"
)

// Event is one decoded yabai notification. The set of implementations is
// closed: MissionControlEvent, WindowEvent, DisplayEvent, SpaceChanged and
// ApplicationEvent.
type Event interface {
	// Token returns the yabai event name the event was decoded from.
	Token() string
	isEvent()
}

type MissionControlPhase int

const (
	MissionControlEnter MissionControlPhase = iota
	MissionControlExit
)

// MissionControlEvent fires when mission control activates or deactivates.
type MissionControlEvent struct {
	Phase MissionControlPhase
}

func (e MissionControlEvent) Token() string {
	if e.Phase == MissionControlExit {
		return MissionControlExitToken
	}
	return MissionControlEnterToken
}

func (MissionControlEvent) isEvent() {}

type WindowKind int

const (
	WindowCreated WindowKind = iota
	WindowDestroyed
	WindowFocused
	WindowMoved
	WindowResized
	WindowMinimized
	WindowDeminimized
	WindowTitleChanged
)

// WindowEvent carries the $YABAI_WINDOW_ID of the affected window.
type WindowEvent struct {
	Kind     WindowKind
	WindowID uint32
}

func (e WindowEvent) Token() string {
	switch e.Kind {
	case WindowCreated:
		return WindowCreatedToken
	case WindowDestroyed:
		return WindowDestroyedToken
	case WindowFocused:
		return WindowFocusedToken
	case WindowMoved:
		return WindowMovedToken
	case WindowResized:
		return WindowResizedToken
	case WindowMinimized:
		return WindowMinimizedToken
	case WindowDeminimized:
		return WindowDeminimizedToken
	case WindowTitleChanged:
		return WindowTitleChangedToken
	}
	return fmt.Sprintf("window_kind(%d)", int(e.Kind))
}

func (WindowEvent) isEvent() {}

type DisplayKind int

const (
	DisplayAdded DisplayKind = iota
	DisplayRemoved
	DisplayMoved
	DisplayResized
	DisplayChanged
)

// DisplayEvent optionally carries $YABAI_DISPLAY_ID. display_changed may
// also carry $YABAI_RECENT_DISPLAY_ID.
type DisplayEvent struct {
	Kind            DisplayKind
	DisplayID       *uint32
	RecentDisplayID *uint32
}

func (e DisplayEvent) Token() string {
	switch e.Kind {
	case DisplayAdded:
		return DisplayAddedToken
	case DisplayRemoved:
		return DisplayRemovedToken
	case DisplayMoved:
		return DisplayMovedToken
	case DisplayResized:
		return DisplayResizedToken
	case DisplayChanged:
		return DisplayChangedToken
	}
	return fmt.Sprintf("display_kind(%d)", int(e.Kind))
}

func (DisplayEvent) isEvent() {}

// SpaceChanged fires when the active space changes. It carries
// $YABAI_SPACE_ID and $YABAI_RECENT_SPACE_ID, in that order.
type SpaceChanged struct {
	SpaceID       uint32
	RecentSpaceID uint32
}

func (SpaceChanged) Token() string { return SpaceChangedToken }

func (SpaceChanged) isEvent() {}

type ApplicationKind int

const (
	ApplicationLaunched ApplicationKind = iota
	ApplicationTerminated
	ApplicationFrontSwitched
	ApplicationActivated
	ApplicationDeactivated
	ApplicationVisible
	ApplicationHidden
)

// ApplicationEvent optionally carries $YABAI_PROCESS_ID.
type ApplicationEvent struct {
	Kind ApplicationKind
	PID  *uint32
}

func (e ApplicationEvent) Token() string {
	switch e.Kind {
	case ApplicationLaunched:
		return ApplicationLaunchedToken
	case ApplicationTerminated:
		return ApplicationTerminatedToken
	case ApplicationFrontSwitched:
		return ApplicationFrontSwitchedToken
	case ApplicationActivated:
		return ApplicationActivatedToken
	case ApplicationDeactivated:
		return ApplicationDeactivatedToken
	case ApplicationVisible:
		return ApplicationVisibleToken
	case ApplicationHidden:
		return ApplicationHiddenToken
	}
	return fmt.Sprintf("application_kind(%d)", int(e.Kind))
}

func (ApplicationEvent) isEvent() {}

// Describe renders an event with its payload for logs.
func Describe(ev Event) string {
	switch ev := ev.(type) {
	case WindowEvent:
		return fmt.Sprintf("%s(window=%d)", ev.Token(), ev.WindowID)
	case SpaceChanged:
		return fmt.Sprintf("%s(space=%d, recent=%d)", ev.Token(), ev.SpaceID, ev.RecentSpaceID)
	case DisplayEvent:
		if ev.DisplayID != nil && ev.RecentDisplayID != nil {
			return fmt.Sprintf("%s(display=%d, recent=%d)", ev.Token(), *ev.DisplayID, *ev.RecentDisplayID)
		}
		if ev.DisplayID != nil {
			return fmt.Sprintf("%s(display=%d)", ev.Token(), *ev.DisplayID)
		}
	case ApplicationEvent:
		if ev.PID != nil {
			return fmt.Sprintf("%s(pid=%s)", ev.Token(), strconv.FormatUint(uint64(*ev.PID), 10))
		}
	}
	return ev.Token()
}
