package event

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnexpectedArgument is wrapped by an *ArgumentError for a positional
// argument the event does not take.
var ErrUnexpectedArgument = errors.New("unexpected argument")

// Event names as yabai reports them.
const (
	MissionControlEnterToken = "mission_control_enter"
	MissionControlExitToken  = "mission_control_exit"

	WindowCreatedToken      = "window_created"
	WindowDestroyedToken    = "window_destroyed"
	WindowFocusedToken      = "window_focused"
	WindowMovedToken        = "window_moved"
	WindowResizedToken      = "window_resized"
	WindowMinimizedToken    = "window_minimized"
	WindowDeminimizedToken  = "window_deminimized"
	WindowTitleChangedToken = "window_title_changed"

	DisplayAddedToken   = "display_added"
	DisplayRemovedToken = "display_removed"
	DisplayMovedToken   = "display_moved"
	DisplayResizedToken = "display_resized"
	DisplayChangedToken = "display_changed"

	SpaceChangedToken = "space_changed"

	ApplicationLaunchedToken      = "application_launched"
	ApplicationTerminatedToken    = "application_terminated"
	ApplicationFrontSwitchedToken = "application_front_switched"
	ApplicationActivatedToken     = "application_activated"
	ApplicationDeactivatedToken   = "application_deactivated"
	ApplicationVisibleToken       = "application_visible"
	ApplicationHiddenToken        = "application_hidden"
)

// UnknownEventError is returned for a token outside the known vocabulary.
type UnknownEventError struct {
	Token string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("event %q is not supported", e.Token)
}

// ArgumentError is returned when a known event is missing a positional
// argument, carries one too many, or the argument is not an unsigned 32-bit
// integer.
type ArgumentError struct {
	Token string
	Index int
	Raw   string
	Err   error
}

func (e *ArgumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("event %s: missing argument %d", e.Token, e.Index)
	}
	return fmt.Sprintf("event %s: invalid argument %d %q: %v", e.Token, e.Index, e.Raw, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ParseFields decodes a notification whose first field is the event name.
func ParseFields(fields []string) (Event, error) {
	if len(fields) == 0 {
		return nil, &UnknownEventError{Token: ""}
	}
	return Parse(fields[0], fields[1:])
}

// Parse maps an event name and its positional arguments to an Event.
// Matching is exact; any name outside the table is an *UnknownEventError.
func Parse(token string, args []string) (Event, error) {
	switch token {
	case MissionControlEnterToken:
		return missionControl(token, MissionControlEnter, args)
	case MissionControlExitToken:
		return missionControl(token, MissionControlExit, args)

	case WindowCreatedToken:
		return window(token, WindowCreated, args)
	case WindowDestroyedToken:
		return window(token, WindowDestroyed, args)
	case WindowFocusedToken:
		return window(token, WindowFocused, args)
	case WindowMovedToken:
		return window(token, WindowMoved, args)
	case WindowResizedToken:
		return window(token, WindowResized, args)
	case WindowMinimizedToken:
		return window(token, WindowMinimized, args)
	case WindowDeminimizedToken:
		return window(token, WindowDeminimized, args)
	case WindowTitleChangedToken:
		return window(token, WindowTitleChanged, args)

	case DisplayAddedToken:
		return display(token, DisplayAdded, args)
	case DisplayRemovedToken:
		return display(token, DisplayRemoved, args)
	case DisplayMovedToken:
		return display(token, DisplayMoved, args)
	case DisplayResizedToken:
		return display(token, DisplayResized, args)
	case DisplayChangedToken:
		return displayChanged(token, args)

	case SpaceChangedToken:
		if err := maxArgs(token, args, 2); err != nil {
			return nil, err
		}
		spaceID, err := requiredID(token, args, 0)
		if err != nil {
			return nil, err
		}
		recentID, err := requiredID(token, args, 1)
		if err != nil {
			return nil, err
		}
		return SpaceChanged{SpaceID: spaceID, RecentSpaceID: recentID}, nil

	case ApplicationLaunchedToken:
		return application(token, ApplicationLaunched, args)
	case ApplicationTerminatedToken:
		return application(token, ApplicationTerminated, args)
	case ApplicationFrontSwitchedToken:
		return application(token, ApplicationFrontSwitched, args)
	case ApplicationActivatedToken:
		return application(token, ApplicationActivated, args)
	case ApplicationDeactivatedToken:
		return application(token, ApplicationDeactivated, args)
	case ApplicationVisibleToken:
		return application(token, ApplicationVisible, args)
	case ApplicationHiddenToken:
		return application(token, ApplicationHidden, args)
	}
	return nil, &UnknownEventError{Token: token}
}

func missionControl(token string, phase MissionControlPhase, args []string) (Event, error) {
	if err := maxArgs(token, args, 0); err != nil {
		return nil, err
	}
	return MissionControlEvent{Phase: phase}, nil
}

func window(token string, kind WindowKind, args []string) (Event, error) {
	if err := maxArgs(token, args, 1); err != nil {
		return nil, err
	}
	id, err := requiredID(token, args, 0)
	if err != nil {
		return nil, err
	}
	return WindowEvent{Kind: kind, WindowID: id}, nil
}

func display(token string, kind DisplayKind, args []string) (Event, error) {
	if err := maxArgs(token, args, 1); err != nil {
		return nil, err
	}
	id, err := optionalID(token, args, 0)
	if err != nil {
		return nil, err
	}
	return DisplayEvent{Kind: kind, DisplayID: id}, nil
}

func displayChanged(token string, args []string) (Event, error) {
	if err := maxArgs(token, args, 2); err != nil {
		return nil, err
	}
	id, err := optionalID(token, args, 0)
	if err != nil {
		return nil, err
	}
	recent, err := optionalID(token, args, 1)
	if err != nil {
		return nil, err
	}
	return DisplayEvent{Kind: DisplayChanged, DisplayID: id, RecentDisplayID: recent}, nil
}

func application(token string, kind ApplicationKind, args []string) (Event, error) {
	if err := maxArgs(token, args, 1); err != nil {
		return nil, err
	}
	pid, err := optionalID(token, args, 0)
	if err != nil {
		return nil, err
	}
	return ApplicationEvent{Kind: kind, PID: pid}, nil
}

func maxArgs(token string, args []string, n int) error {
	if len(args) > n {
		return &ArgumentError{Token: token, Index: n, Raw: args[n], Err: ErrUnexpectedArgument}
	}
	return nil
}

func requiredID(token string, args []string, index int) (uint32, error) {
	if index >= len(args) {
		return 0, &ArgumentError{Token: token, Index: index}
	}
	return parseID(token, args[index], index)
}

func optionalID(token string, args []string, index int) (*uint32, error) {
	if index >= len(args) {
		return nil, nil
	}
	id, err := parseID(token, args[index], index)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseID(token, raw string, index int) (uint32, error) {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, &ArgumentError{Token: token, Index: index, Raw: raw, Err: err}
	}
	return uint32(v), nil
}
