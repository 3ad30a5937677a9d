package project

import (
	"gopkg.in/yaml.v3"

	"elt-orchestration-service/internal/core/domain"
)

// record is the YAML shape of one plugin entry in the project file.
//
// Keys this service does not interpret are kept in Extras and written back
// verbatim, so hand-edited project files survive a round-trip.
type record struct {
	Name   string
	PipURL string
	Config map[string]any
	Select []string
	Extras map[string]any
}

var knownKeys = map[string]bool{
	"name":    true,
	"pip_url": true,
	"config":  true,
	"select":  true,
}

func (r *record) UnmarshalYAML(node *yaml.Node) error {
	var fields struct {
		Name   string         `yaml:"name"`
		PipURL string         `yaml:"pip_url"`
		Config map[string]any `yaml:"config"`
		Select []string       `yaml:"select"`
	}
	if err := node.Decode(&fields); err != nil {
		return err
	}

	var all map[string]any
	if err := node.Decode(&all); err != nil {
		return err
	}
	extras := make(map[string]any)
	for k, v := range all {
		if !knownKeys[k] {
			extras[k] = v
		}
	}

	r.Name = fields.Name
	r.PipURL = fields.PipURL
	r.Config = fields.Config
	r.Select = fields.Select
	if len(extras) > 0 {
		r.Extras = extras
	}
	return nil
}

func (r *record) MarshalYAML() (any, error) {
	out := make(map[string]any, len(r.Extras)+4)
	for k, v := range r.Extras {
		out[k] = v
	}
	out["name"] = r.Name
	if r.PipURL != "" {
		out["pip_url"] = r.PipURL
	}
	if len(r.Config) > 0 {
		out["config"] = r.Config
	}
	if len(r.Select) > 0 {
		out["select"] = r.Select
	}
	return out, nil
}

func (r *record) toPlugin(t domain.PluginType) *domain.Plugin {
	return &domain.Plugin{
		Type:   t,
		Name:   r.Name,
		PipURL: r.PipURL,
		Config: r.Config,
		Select: r.Select,
		Extras: r.Extras,
	}
}

func fromPlugin(p *domain.Plugin) *record {
	return &record{
		Name:   p.Name,
		PipURL: p.PipURL,
		Config: p.Config,
		Select: p.Select,
		Extras: p.Extras,
	}
}
