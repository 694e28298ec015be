package mcp

import "github.com/1broseidon/yctrl/internal/config"

// ToggleScratchpadInput is the input for the toggle_scratchpad tool.
type ToggleScratchpadInput struct {
	Tag string `json:"tag" jsonschema:"required,Tag of a configured scratchpad"`
}

// ToggleScratchpadOutput is the output for the toggle_scratchpad tool.
type ToggleScratchpadOutput struct {
	Tag string `json:"tag"`
}

// SetConfigInput is the input for the set_config tool.
type SetConfigInput struct {
	Key   string `json:"key" jsonschema:"required,Config key, e.g. yctrl_scratchpad_grid"`
	Value string `json:"value" jsonschema:"required,New value. For yctrl_scratchpads a JSON list; comments, trailing commas and unquoted keys are accepted"`
}

// SetConfigOutput is the output for the set_config tool.
type SetConfigOutput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetConfigInput is the input for the get_config tool.
type GetConfigInput struct {
	Key string `json:"key,omitempty" jsonschema:"Config key to read. Omit to read the whole runtime configuration"`
}

// GetConfigOutput is the output for the get_config tool. Exactly one of
// Value and Config is set.
type GetConfigOutput struct {
	Key    string                `json:"key,omitempty"`
	Value  string                `json:"value,omitempty"`
	Config *config.RuntimeConfig `json:"config,omitempty"`
}

// SendEventInput is the input for the send_event tool.
type SendEventInput struct {
	Name string   `json:"name" jsonschema:"required,yabai event name, e.g. window_focused or space_changed"`
	Args []string `json:"args,omitempty" jsonschema:"Event arguments: the window id for window events, space id and recent space id for space_changed"`
}

// SendEventOutput is the output for the send_event tool.
type SendEventOutput struct {
	Event string `json:"event"`
}
