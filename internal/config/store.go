package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// RuleRegistrar registers placement rules for a freshly replaced scratchpad
// list. It is called with the store locked, so registrations never overlap.
type RuleRegistrar func(ctx context.Context, grid string, pads []Scratchpad)

// Store owns the runtime configuration. Every read and write takes the same
// lock; no reader/writer split.
type Store struct {
	mu       sync.Mutex
	cfg      RuntimeConfig
	register RuleRegistrar
}

// NewStore returns a store holding cfg. register may be nil.
func NewStore(cfg RuntimeConfig, register RuleRegistrar) *Store {
	return &Store{cfg: cfg.clone(), register: register}
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() RuntimeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.clone()
}

func (s *Store) AutoCloseEmptySpaces() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.AutoCloseEmptySpaces
}

func (s *Store) ScratchpadLaunchTimeout() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ScratchpadLaunchTimeout
}

func (s *Store) ScratchpadGrid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ScratchpadGrid
}

// Scratchpads returns a copy of the registry in insertion order.
func (s *Store) Scratchpads() []Scratchpad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneScratchpads(s.cfg.Scratchpads)
}

// ScratchpadByTag looks a scratchpad up by tag.
func (s *Store) ScratchpadByTag(tag string) (Scratchpad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range s.cfg.Scratchpads {
		if sp.Tag == tag {
			return sp.clone(), nil
		}
	}
	return Scratchpad{}, &UnknownScratchpadError{Tag: tag}
}

// Set applies a config request. Scalar keys take exactly one value; the
// scratchpad list takes the remaining tokens joined by single spaces. The
// value is parsed and validated before anything is committed.
func (s *Store) Set(ctx context.Context, key string, values []string) error {
	if key == KeyScratchpads {
		return s.setScratchpads(ctx, strings.Join(values, " "))
	}

	var value string
	switch key {
	case KeyAutoCloseEmptySpaces, KeyScratchpadLaunchTimeout, KeyScratchpadSpace, KeyScratchpadGrid:
		if len(values) != 1 {
			return &ValueError{Key: key, Value: strings.Join(values, " "), Err: fmt.Errorf("expected exactly one value, got %d", len(values))}
		}
		value = values[0]
	default:
		return &UnknownKeyError{Key: key}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case KeyAutoCloseEmptySpaces:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return &ValueError{Key: key, Value: value, Err: err}
		}
		s.cfg.AutoCloseEmptySpaces = v
	case KeyScratchpadLaunchTimeout:
		v, err := parseUint8(value)
		if err != nil {
			return &ValueError{Key: key, Value: value, Err: err}
		}
		s.cfg.ScratchpadLaunchTimeout = v
	case KeyScratchpadSpace:
		v, err := parseUint8(value)
		if err != nil {
			return &ValueError{Key: key, Value: value, Err: err}
		}
		s.cfg.ScratchpadSpace = v
	case KeyScratchpadGrid:
		if err := ValidateGrid(value); err != nil {
			return &ValueError{Key: key, Value: value, Err: err}
		}
		s.cfg.ScratchpadGrid = value
	}
	return nil
}

func (s *Store) setScratchpads(ctx context.Context, payload string) error {
	pads, err := ParseScratchpads(payload)
	if err != nil {
		return &ValueError{Key: KeyScratchpads, Value: payload, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceScratchpadsLocked(ctx, pads)
	return nil
}

func (s *Store) replaceScratchpadsLocked(ctx context.Context, pads []Scratchpad) {
	s.cfg.Scratchpads = pads
	if s.register != nil {
		s.register(ctx, s.cfg.ScratchpadGrid, cloneScratchpads(pads))
	}
}

// RegisterRules registers the current scratchpad list again, e.g. after the
// window manager restarted and forgot its rules.
func (s *Store) RegisterRules(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.register != nil && len(s.cfg.Scratchpads) > 0 {
		s.register(ctx, s.cfg.ScratchpadGrid, cloneScratchpads(s.cfg.Scratchpads))
	}
}

// Get renders the current value of key the way Set accepts it.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case KeyAutoCloseEmptySpaces:
		return strconv.FormatBool(s.cfg.AutoCloseEmptySpaces), nil
	case KeyScratchpadLaunchTimeout:
		return strconv.Itoa(int(s.cfg.ScratchpadLaunchTimeout)), nil
	case KeyScratchpadSpace:
		return strconv.Itoa(int(s.cfg.ScratchpadSpace)), nil
	case KeyScratchpadGrid:
		return s.cfg.ScratchpadGrid, nil
	case KeyScratchpads:
		data, err := json.Marshal(s.cfg.Scratchpads)
		if err != nil {
			return "", fmt.Errorf("failed to encode scratchpads: %w", err)
		}
		return string(data), nil
	}
	return "", &UnknownKeyError{Key: key}
}

// Apply merges a seed into the current configuration. Fields the seed does
// not set keep their value. The merged result is validated as a whole before
// it replaces the current one; rules are re-registered when the seed carries
// a scratchpad list.
func (s *Store) Apply(ctx context.Context, seed Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.clone()
	if seed.AutoCloseEmptySpaces != nil {
		next.AutoCloseEmptySpaces = *seed.AutoCloseEmptySpaces
	}
	if seed.ScratchpadLaunchTimeout != nil {
		next.ScratchpadLaunchTimeout = *seed.ScratchpadLaunchTimeout
	}
	if seed.ScratchpadSpace != nil {
		next.ScratchpadSpace = *seed.ScratchpadSpace
	}
	if seed.ScratchpadGrid != nil {
		next.ScratchpadGrid = *seed.ScratchpadGrid
	}
	if seed.Scratchpads != nil {
		next.Scratchpads = cloneScratchpads(seed.Scratchpads)
	}
	if err := next.validate(); err != nil {
		return err
	}

	pads := next.Scratchpads
	next.Scratchpads = s.cfg.Scratchpads
	s.cfg = next
	if seed.Scratchpads != nil {
		s.replaceScratchpadsLocked(ctx, pads)
	}
	return nil
}

func parseUint8(value string) (uint8, error) {
	v, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}
