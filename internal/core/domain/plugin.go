package domain

import (
	"strings"
)

// PluginType categorizes a plugin by its role in a pipeline.
type PluginType string

const (
	PluginTypeExtractor   PluginType = "extractors"
	PluginTypeLoader      PluginType = "loaders"
	PluginTypeTransformer PluginType = "transformers"

	// PluginTypeAll matches every plugin type in filter contexts.
	PluginTypeAll PluginType = "all"
)

func (t PluginType) String() string {
	return string(t)
}

// IsValid checks if the type names a concrete plugin group.
func (t PluginType) IsValid() bool {
	return t == PluginTypeExtractor || t == PluginTypeLoader || t == PluginTypeTransformer
}

// ParsePluginType accepts both the plural group name ("extractors") and the
// singular form used on the CLI ("extractor").
func ParsePluginType(s string) (PluginType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extractor", "extractors":
		return PluginTypeExtractor, nil
	case "loader", "loaders":
		return PluginTypeLoader, nil
	case "transformer", "transformers":
		return PluginTypeTransformer, nil
	case "all":
		return PluginTypeAll, nil
	default:
		return "", ErrInvalidPluginType
	}
}

// Plugin is a project-level plugin declaration.
//
// Extras holds fields from the project file that this service does not
// interpret; they are preserved verbatim on round-trip.
type Plugin struct {
	Type   PluginType
	Name   string
	PipURL string
	Config map[string]any
	Select []string
	Extras map[string]any
}

// NewPlugin creates a project plugin declaration with validation.
func NewPlugin(pluginType PluginType, name, pipURL string) (*Plugin, error) {
	if !pluginType.IsValid() {
		return nil, ErrInvalidPluginType
	}
	if name == "" {
		return nil, ErrInvalidPluginName
	}
	return &Plugin{
		Type:   pluginType,
		Name:   name,
		PipURL: pipURL,
	}, nil
}

// Equal reports plugin identity: two plugins are the same declaration when
// their name and type match.
func (p *Plugin) Equal(other *Plugin) bool {
	return other != nil && p.Name == other.Name && p.Type == other.Type
}

// SelectPatterns returns the configured entity selection patterns, falling
// back to selecting everything.
func (p *Plugin) SelectPatterns() []string {
	if len(p.Select) == 0 {
		return []string{"*.*"}
	}
	return p.Select
}

// AddSelectPattern appends a selection pattern, ignoring duplicates.
func (p *Plugin) AddSelectPattern(pattern string) {
	for _, existing := range p.Select {
		if existing == pattern {
			return
		}
	}
	p.Select = append(p.Select, pattern)
}

// PluginRef identifies a plugin by type and name, independent of whether it
// is part of a project.
type PluginRef struct {
	Type PluginType
	Name string
}

func (r PluginRef) String() string {
	return string(r.Type) + "/" + r.Name
}
