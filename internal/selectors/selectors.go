// Package selectors reads candidate selector sets. A set is ordered and each
// entry may carry a purpose label describing what the selector is expected to
// find on the page; the label is documentation only.
package selectors

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptySelector is returned when a set contains a blank selector.
var ErrEmptySelector = errors.New("empty selector")

// Entry is one candidate selector.
type Entry struct {
	Selector string `json:"selector" yaml:"selector"`
	Purpose  string `json:"purpose,omitempty" yaml:"purpose,omitempty"`
}

// Set is an ordered list of candidate selectors. Duplicates are kept.
type Set []Entry

// Selectors returns the selector strings in order.
func (s Set) Selectors() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Selector
	}
	return out
}

// FromStrings builds a Set without purpose labels.
func FromStrings(selectors ...string) Set {
	set := make(Set, len(selectors))
	for i, sel := range selectors {
		set[i] = Entry{Selector: sel}
	}
	return set
}

// Load reads a selector set from a YAML file.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector file: %w", err)
	}

	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a selector set. Three layouts are accepted, optionally nested
// under a top-level "selectors" key:
//
//	# mapping, in file order
//	".tb-status": Status banner
//
//	# list of selectors
//	- ".tb-status"
//
//	# list of entries
//	- selector: ".tb-status"
//	  purpose: Status banner
func Parse(data []byte) (Set, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse selector set: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Set{}, nil
	}

	root := doc.Content[0]
	if nested := lookup(root, "selectors"); nested != nil {
		root = nested
	}

	var (
		set Set
		err error
	)
	switch root.Kind {
	case yaml.MappingNode:
		set, err = fromMapping(root)
	case yaml.SequenceNode:
		set, err = fromSequence(root)
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return Set{}, nil
		}
		err = fmt.Errorf("line %d: expected a mapping or a list of selectors", root.Line)
	default:
		err = fmt.Errorf("line %d: expected a mapping or a list of selectors", root.Line)
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// lookup returns the value of key when n is a mapping whose only key is key.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil
	}
	if n.Content[0].Value != key {
		return nil
	}
	value := n.Content[1]
	switch {
	case value.Kind == yaml.MappingNode, value.Kind == yaml.SequenceNode:
		return value
	case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
		// "selectors:" with nothing under it is an empty set
		return value
	}
	return nil
}

func fromMapping(n *yaml.Node) (Set, error) {
	set := make(Set, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: purpose for %q must be a string", value.Line, key.Value)
		}
		entry, err := newEntry(key.Value, value.Value, key.Line)
		if err != nil {
			return nil, err
		}
		set = append(set, entry)
	}
	return set, nil
}

func fromSequence(n *yaml.Node) (Set, error) {
	set := make(Set, 0, len(n.Content))
	for _, item := range n.Content {
		var (
			entry Entry
			err   error
		)
		switch item.Kind {
		case yaml.ScalarNode:
			entry, err = newEntry(item.Value, "", item.Line)
		case yaml.MappingNode:
			var raw Entry
			if err := item.Decode(&raw); err != nil {
				return nil, fmt.Errorf("line %d: %w", item.Line, err)
			}
			entry, err = newEntry(raw.Selector, raw.Purpose, item.Line)
		default:
			err = fmt.Errorf("line %d: expected a selector or a selector entry", item.Line)
		}
		if err != nil {
			return nil, err
		}
		set = append(set, entry)
	}
	return set, nil
}

func newEntry(selector, purpose string, line int) (Entry, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Entry{}, fmt.Errorf("line %d: %w", line, ErrEmptySelector)
	}
	return Entry{Selector: selector, Purpose: strings.TrimSpace(purpose)}, nil
}
