package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Source locates a seed value in its file.
type Source struct {
	File   string
	Line   int
	Column int
}

// Seed is the optional YAML file applied on top of the defaults at startup
// and whenever it changes. Unset fields leave the current value alone. yctrl
// only reads it; runtime changes are never written back.
type Seed struct {
	AutoCloseEmptySpaces    *bool        `yaml:"auto_close_empty_spaces"`
	ScratchpadLaunchTimeout *uint8       `yaml:"scratchpad_launch_timeout"`
	ScratchpadSpace         *uint8       `yaml:"scratchpad_space"`
	ScratchpadGrid          *string      `yaml:"scratchpad_grid"`
	Scratchpads             []Scratchpad `yaml:"scratchpads"`
}

// Empty reports whether the seed sets nothing.
func (s Seed) Empty() bool {
	return s.AutoCloseEmptySpaces == nil && s.ScratchpadLaunchTimeout == nil &&
		s.ScratchpadSpace == nil && s.ScratchpadGrid == nil && s.Scratchpads == nil
}

func (s Seed) validate() error {
	if s.ScratchpadGrid != nil {
		if err := ValidateGrid(*s.ScratchpadGrid); err != nil {
			return &ValidationError{Path: "scratchpad_grid", Err: err}
		}
	}
	if err := validateScratchpads(s.Scratchpads); err != nil {
		return &ValidationError{Path: "scratchpads", Err: err}
	}
	return nil
}

func DefaultSeedPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "yctrl", "config.yaml"), nil
}

// LoadSeed reads and validates the seed at path. A missing file yields an
// empty seed.
func LoadSeed(path string) (Seed, error) {
	exists, err := pathExists(path)
	if err != nil {
		return Seed{}, err
	}
	if !exists {
		return Seed{}, nil
	}

	canon, err := canonicalPath(path)
	if err != nil {
		return Seed{}, err
	}
	data, err := os.ReadFile(canon)
	if err != nil {
		return Seed{}, fmt.Errorf("%s: failed to read: %w", canon, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Seed{}, fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}

	var seed Seed
	if err := decodeStrictYAML(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("%s: %w", canon, err)
	}
	if err := seed.validate(); err != nil {
		return Seed{}, attachSourceContext(err, collectSources(&doc, canon))
	}
	return seed, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return real, nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// collectSources maps every mapping key path in doc to where its value
// starts, e.g. "scratchpad_grid" or "scratchpads".
func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	collectSourcesRec(node, file, "", out)
	return out
}

func collectSourcesRec(node *yaml.Node, file string, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		out[path] = Source{File: file, Line: val.Line, Column: val.Column}
		collectSourcesRec(val, file, path, out)
	}
}

func attachSourceContext(err error, sources map[string]Source) error {
	verr, ok := err.(*ValidationError)
	if !ok || verr == nil || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}
