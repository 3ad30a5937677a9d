package domain

import (
	"strings"
)

// RedactedValue replaces sensitive setting values in API responses.
const RedactedValue = "(redacted)"

// SettingKind describes how a setting value is rendered and whether it is
// sensitive.
type SettingKind string

const (
	SettingKindString   SettingKind = "string"
	SettingKindPassword SettingKind = "password"
	SettingKindBoolean  SettingKind = "boolean"
	SettingKindInteger  SettingKind = "integer"
	SettingKindDateISO  SettingKind = "date_iso8601"
)

// SettingDefinition declares one configurable setting of a plugin, as
// published by the discovery manifest.
type SettingDefinition struct {
	Name string      `json:"name" yaml:"name"`
	Kind SettingKind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Env overrides the conventional environment variable name.
	Env string `json:"env,omitempty" yaml:"env,omitempty"`

	// Protected settings may only be changed from inside the project, never
	// through the API.
	Protected bool `json:"protected,omitempty" yaml:"protected,omitempty"`

	Default any    `json:"value,omitempty" yaml:"value,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Sensitive returns true if the setting value must be redacted on read.
func (d SettingDefinition) Sensitive() bool {
	return d.Kind == SettingKindPassword
}

// EnvKey returns the environment variable consulted for this setting.
//
// Without an explicit alias the conventional form is used, e.g. the
// "api_token" setting of tap-gitlab resolves to TAP_GITLAB_API_TOKEN.
func (d SettingDefinition) EnvKey(plugin string) string {
	if d.Env != "" {
		return d.Env
	}
	upper := func(s string) string {
		return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(s))
	}
	return upper(plugin) + "_" + upper(d.Name)
}

// PluginDefinition is a discoverable plugin: its identity, installation
// source, and the settings it accepts.
type PluginDefinition struct {
	Name     string              `json:"name" yaml:"name"`
	Type     PluginType          `json:"type" yaml:"-"`
	PipURL   string              `json:"pip_url" yaml:"pip_url"`
	Settings []SettingDefinition `json:"settings" yaml:"settings,omitempty"`
}

// FindSetting returns the definition for a setting name.
func (d *PluginDefinition) FindSetting(name string) (SettingDefinition, error) {
	for _, s := range d.Settings {
		if s.Name == name {
			return s, nil
		}
	}
	return SettingDefinition{}, ErrSettingNotDefined
}
