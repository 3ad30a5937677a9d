// Package discovery resolves plugin definitions from a YAML manifest. A
// manifest is bundled with the binary; a project may override it with its
// own discovery file.
package discovery

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
)

//go:embed discovery.yml
var bundled []byte

// manifest is the YAML shape of a discovery file.
type manifest struct {
	Version      int                        `yaml:"version"`
	Extractors   []*domain.PluginDefinition `yaml:"extractors"`
	Loaders      []*domain.PluginDefinition `yaml:"loaders"`
	Transformers []*domain.PluginDefinition `yaml:"transformers"`
}

type Source struct {
	defs map[domain.PluginType][]*domain.PluginDefinition
}

// NewSource parses the bundled discovery manifest.
func NewSource() (ports.DefinitionSource, error) {
	return parse(bundled)
}

// NewSourceFromFile parses a discovery manifest from disk.
func NewSourceFromFile(path string) (ports.DefinitionSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read discovery manifest: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Source, error) {
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse discovery manifest: %w", err)
	}

	s := &Source{defs: make(map[domain.PluginType][]*domain.PluginDefinition)}
	for t, defs := range map[domain.PluginType][]*domain.PluginDefinition{
		domain.PluginTypeExtractor:   m.Extractors,
		domain.PluginTypeLoader:      m.Loaders,
		domain.PluginTypeTransformer: m.Transformers,
	} {
		for _, def := range defs {
			def.Type = t
		}
		s.defs[t] = defs
	}
	return s, nil
}

// Find returns the definition matching the ref.
func (s *Source) Find(ref domain.PluginRef) (*domain.PluginDefinition, error) {
	for _, def := range s.defs[ref.Type] {
		if def.Name == ref.Name {
			return def, nil
		}
	}
	return nil, domain.ErrPluginNotDiscovered
}

// List returns every known definition of a type; PluginTypeAll returns all.
func (s *Source) List(pluginType domain.PluginType) []*domain.PluginDefinition {
	if pluginType != domain.PluginTypeAll {
		return s.defs[pluginType]
	}

	var all []*domain.PluginDefinition
	for _, t := range []domain.PluginType{
		domain.PluginTypeExtractor,
		domain.PluginTypeLoader,
		domain.PluginTypeTransformer,
	} {
		all = append(all, s.defs[t]...)
	}
	return all
}
