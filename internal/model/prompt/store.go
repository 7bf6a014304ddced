package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes suggested prompts to handlers and the terminal client.
type Store interface {
	List() []Prompt
	At(i int) (Prompt, bool)
}

// MemoryStore implements Store over a fixed slice.
type MemoryStore struct {
	items []Prompt
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied prompts.
func NewMemoryStore(items []Prompt) *MemoryStore {
	return &MemoryStore{items: append([]Prompt(nil), items...)}
}

// List returns a copy of the prompts.
func (s *MemoryStore) List() []Prompt {
	return append([]Prompt(nil), s.items...)
}

// At returns the prompt at index i, wrapping around the list.
func (s *MemoryStore) At(i int) (Prompt, bool) {
	if len(s.items) == 0 {
		return Prompt{}, false
	}
	i %= len(s.items)
	if i < 0 {
		i += len(s.items)
	}
	return s.items[i], true
}

type file struct {
	Prompts []Prompt `yaml:"prompts"`
}

// LoadFile reads prompts from a YAML file of the form
//
//	prompts:
//	  - title: ...
//	    prompt: ...
//	    description: ...
//
// Entries without prompt text are skipped.
func LoadFile(path string) ([]Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	items := make([]Prompt, 0, len(f.Prompts))
	for _, p := range f.Prompts {
		p.Prompt = strings.TrimSpace(p.Prompt)
		if p.Prompt == "" {
			continue
		}
		if p.Title == "" {
			p.Title = p.Prompt
		}
		items = append(items, p)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("prompts file %s has no prompts", path)
	}
	return items, nil
}

// Load returns the prompts from path, or the built-in seed when path is empty.
func Load(path string) (*MemoryStore, error) {
	if path == "" {
		return NewMemoryStore(Seed()), nil
	}
	items, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(items), nil
}
