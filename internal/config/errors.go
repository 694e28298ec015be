package config

import "fmt"

// UnknownKeyError is returned for a config key yctrl does not recognize.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown config key %q", e.Key)
}

// ValueError is returned when a config value fails to parse or validate.
// Nothing is committed in that case.
type ValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// UnknownScratchpadError is returned when no scratchpad has the given tag.
type UnknownScratchpadError struct {
	Tag string
}

func (e *UnknownScratchpadError) Error() string {
	return fmt.Sprintf("no scratchpad with tag %q", e.Tag)
}

// ValidationError reports an invalid seed value, pointing at the YAML path
// and, when known, the file position it came from.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
