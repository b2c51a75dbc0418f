// Package models is the static catalogue of completion models and the
// generation capabilities the orchestrator needs to know about.
package models

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var catalogue []byte

// Capability describes what a model accepts.
type Capability struct {
	ID                  string `yaml:"id" json:"id"`
	Category            string `yaml:"-" json:"category"`
	Description         string `yaml:"description" json:"description"`
	MaxOutputTokens     int    `yaml:"max_tokens" json:"max_output_tokens"`
	SupportsStreaming   bool   `yaml:"supports_streaming" json:"supports_streaming"`
	SupportsTemperature bool   `yaml:"supports_temperature" json:"supports_temperature"`
	ContextWindow       int    `yaml:"context_window" json:"context_window,omitempty"`
	Deprecated          bool   `yaml:"deprecated" json:"deprecated,omitempty"`
	Size                string `yaml:"size" json:"size,omitempty"`
}

// Fallback is used for model ids the catalogue does not know.
var Fallback = Capability{
	MaxOutputTokens:     1000,
	SupportsStreaming:   true,
	SupportsTemperature: true,
}

type catalogueFile struct {
	Categories []struct {
		Name   string       `yaml:"name"`
		Models []Capability `yaml:"models"`
	} `yaml:"categories"`
}

// Registry is an immutable id → capability map.
type Registry struct {
	byID  map[string]Capability
	order []string
}

// Parse builds a registry from catalogue YAML.
func Parse(data []byte) (*Registry, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model catalogue: %w", err)
	}

	r := &Registry{byID: make(map[string]Capability)}
	for _, cat := range f.Categories {
		for _, m := range cat.Models {
			if m.ID == "" {
				return nil, fmt.Errorf("parse model catalogue: model without id in %q", cat.Name)
			}
			if _, dup := r.byID[m.ID]; dup {
				return nil, fmt.Errorf("parse model catalogue: duplicate model %q", m.ID)
			}
			m.Category = cat.Name
			r.byID[m.ID] = m
			r.order = append(r.order, m.ID)
		}
	}
	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := Parse(catalogue)
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the embedded catalogue, parsed on first use.
func Default() *Registry { return defaultRegistry() }

// Lookup returns the capability of id and whether it is catalogued.
func (r *Registry) Lookup(id string) (Capability, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Capabilities returns the capability of id, or Fallback for unknown ids.
func (r *Registry) Capabilities(id string) Capability {
	if c, ok := r.byID[id]; ok {
		return c
	}
	c := Fallback
	c.ID = id
	return c
}

// All lists catalogued models in catalogue order.
func (r *Registry) All() []Capability {
	out := make([]Capability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Categories returns the category names sorted alphabetically.
func (r *Registry) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range r.byID {
		if _, ok := seen[c.Category]; !ok {
			seen[c.Category] = struct{}{}
			out = append(out, c.Category)
		}
	}
	sort.Strings(out)
	return out
}
