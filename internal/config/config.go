// Package config holds yctrl's runtime configuration: the feature toggles,
// the scratchpad grid and the scratchpad registry that config requests mutate
// while the daemon runs.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"
)

// Keys accepted by config requests.
const (
	KeyAutoCloseEmptySpaces    = "yctrl_auto_close_empty_spaces"
	KeyScratchpadLaunchTimeout = "yctrl_scratchpad_launch_timeout"
	KeyScratchpadSpace         = "yctrl_scratchpad_space"
	KeyScratchpadGrid          = "yctrl_scratchpad_grid"
	KeyScratchpads             = "yctrl_scratchpads"
)

// Keys returns every recognized config key in a stable order.
func Keys() []string {
	return []string{
		KeyAutoCloseEmptySpaces,
		KeyScratchpadLaunchTimeout,
		KeyScratchpadSpace,
		KeyScratchpadGrid,
		KeyScratchpads,
	}
}

const (
	DefaultAutoCloseEmptySpaces    = true
	DefaultScratchpadLaunchTimeout = 10
	DefaultScratchpadSpace         = 8
	DefaultScratchpadGrid          = "6:4:1:1:2:4"
)

// RuntimeConfig is the daemon's mutable state. It is only ever touched
// through a Store.
type RuntimeConfig struct {
	AutoCloseEmptySpaces    bool         `json:"auto_close_empty_spaces" yaml:"auto_close_empty_spaces"`
	ScratchpadLaunchTimeout uint8        `json:"scratchpad_launch_timeout" yaml:"scratchpad_launch_timeout"`
	ScratchpadSpace         uint8        `json:"scratchpad_space" yaml:"scratchpad_space"`
	ScratchpadGrid          string       `json:"scratchpad_grid" yaml:"scratchpad_grid"`
	Scratchpads             []Scratchpad `json:"scratchpads" yaml:"scratchpads"`
}

// Default returns the configuration the daemon starts with.
func Default() RuntimeConfig {
	return RuntimeConfig{
		AutoCloseEmptySpaces:    DefaultAutoCloseEmptySpaces,
		ScratchpadLaunchTimeout: DefaultScratchpadLaunchTimeout,
		ScratchpadSpace:         DefaultScratchpadSpace,
		ScratchpadGrid:          DefaultScratchpadGrid,
		Scratchpads:             []Scratchpad{},
	}
}

func (c RuntimeConfig) clone() RuntimeConfig {
	out := c
	out.Scratchpads = cloneScratchpads(c.Scratchpads)
	return out
}

func cloneScratchpads(pads []Scratchpad) []Scratchpad {
	out := make([]Scratchpad, len(pads))
	for i, sp := range pads {
		out[i] = sp.clone()
	}
	return out
}

// TargetKind says what a scratchpad's target is compared against.
type TargetKind string

const (
	KindTitle TargetKind = "title"
	KindApp   TargetKind = "app"
)

func (k TargetKind) valid() bool {
	return k == KindTitle || k == KindApp
}

// Command is a scratchpad launch command. It decodes from either an argv
// array or a single shell-like string such as "open -na 'Alacritty'".
type Command []string

func (c *Command) UnmarshalJSON(data []byte) error {
	var line string
	if err := json.Unmarshal(data, &line); err == nil {
		return c.parse(line)
	}
	var argv []string
	if err := json.Unmarshal(data, &argv); err != nil {
		return fmt.Errorf("command must be a string or an array of strings")
	}
	*c = argv
	return nil
}

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return c.parse(node.Value)
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return err
		}
		*c = argv
		return nil
	}
	return fmt.Errorf("line %d: command must be a string or a list of strings", node.Line)
}

func (c *Command) parse(line string) error {
	argv, err := shellwords.Parse(line)
	if err != nil {
		return fmt.Errorf("invalid command %q: %w", line, err)
	}
	*c = argv
	return nil
}

// Scratchpad is a named utility window that can be toggled on demand and is
// auto-hidden when it gains focus.
type Scratchpad struct {
	Tag     string     `json:"tag" yaml:"tag"`
	Kind    TargetKind `json:"kind" yaml:"kind"`
	Target  string     `json:"target" yaml:"target"`
	Command Command    `json:"command" yaml:"command"`
	Timeout *uint8     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Space   *uint8     `json:"space,omitempty" yaml:"space,omitempty"`
}

func (sp Scratchpad) clone() Scratchpad {
	out := sp
	out.Command = append(Command(nil), sp.Command...)
	if sp.Timeout != nil {
		v := *sp.Timeout
		out.Timeout = &v
	}
	if sp.Space != nil {
		v := *sp.Space
		out.Space = &v
	}
	return out
}

// Matches compares the scratchpad's target against the app name or the
// title, depending on its kind.
func (sp Scratchpad) Matches(app, title string) bool {
	if sp.Kind == KindApp {
		return app == sp.Target
	}
	return title == sp.Target
}

// RuleArgs returns the arguments that follow "rule --add" when registering
// the scratchpad's placement rule.
func (sp Scratchpad) RuleArgs(grid string) []string {
	return []string{
		fmt.Sprintf("%s=^%s$", sp.Kind, sp.Target),
		"grid=" + grid,
		"manage=off",
	}
}

// LaunchTimeout returns how long to wait for a launched scratchpad window,
// preferring the scratchpad's own override.
func (sp Scratchpad) LaunchTimeout(global uint8) time.Duration {
	secs := global
	if sp.Timeout != nil {
		secs = *sp.Timeout
	}
	return time.Duration(secs) * time.Second
}

func (sp Scratchpad) validate() error {
	switch {
	case strings.TrimSpace(sp.Tag) == "":
		return fmt.Errorf("tag is required")
	case !sp.Kind.valid():
		return fmt.Errorf("kind must be one of: title, app (got %q)", sp.Kind)
	case sp.Target == "":
		return fmt.Errorf("target is required")
	case len(sp.Command) == 0 || sp.Command[0] == "":
		return fmt.Errorf("command must not be empty")
	}
	return nil
}

func validateScratchpads(pads []Scratchpad) error {
	seen := make(map[string]int, len(pads))
	for i, sp := range pads {
		if err := sp.validate(); err != nil {
			return fmt.Errorf("scratchpad %d: %w", i, err)
		}
		if prev, ok := seen[sp.Tag]; ok {
			return fmt.Errorf("scratchpad %d: tag %q already used by scratchpad %d", i, sp.Tag, prev)
		}
		seen[sp.Tag] = i
	}
	return nil
}

// ValidateGrid checks a yabai grid of the form rows:cols:x:y:width:height.
func ValidateGrid(grid string) error {
	parts := strings.Split(grid, ":")
	if len(parts) != 6 {
		return fmt.Errorf("grid must have 6 fields rows:cols:x:y:width:height, got %d", len(parts))
	}
	var v [6]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return fmt.Errorf("grid field %d (%q) is not a non-negative integer", i+1, p)
		}
		v[i] = n
	}
	rows, cols, x, y, w, h := v[0], v[1], v[2], v[3], v[4], v[5]
	if rows == 0 || cols == 0 {
		return fmt.Errorf("grid rows and cols must be > 0")
	}
	if w == 0 || h == 0 {
		return fmt.Errorf("grid width and height must be > 0")
	}
	if x+w > cols || y+h > rows {
		return fmt.Errorf("grid cell %d:%d %dx%d does not fit in %dx%d", x, y, w, h, cols, rows)
	}
	return nil
}

func (c RuntimeConfig) validate() error {
	if err := ValidateGrid(c.ScratchpadGrid); err != nil {
		return &ValidationError{Path: "scratchpad_grid", Err: err}
	}
	if err := validateScratchpads(c.Scratchpads); err != nil {
		return &ValidationError{Path: "scratchpads", Err: err}
	}
	return nil
}
