package services

import (
	"context"
	"fmt"
	"os"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

type SettingsService struct {
	project   *project.Project
	discovery ports.DefinitionSource
	repo      ports.PluginSettingRepository
}

func NewSettingsService(
	proj *project.Project,
	discovery ports.DefinitionSource,
	repo ports.PluginSettingRepository,
) *SettingsService {
	return &SettingsService{
		project:   proj,
		discovery: discovery,
		repo:      repo,
	}
}

// Definition returns the discovery definition for a project plugin.
func (s *SettingsService) Definition(ref domain.PluginRef) (*domain.PluginDefinition, error) {
	if _, err := s.project.FindPlugin(ref); err != nil {
		return nil, err
	}
	return s.discovery.Find(ref)
}

// Config resolves the effective configuration of a plugin.
//
// For each defined setting the value comes from, in order: the environment
// (definition alias or <PLUGIN>_<SETTING> convention), the stored value,
// the plugin's static config in the project file, the definition default.
// With redacted set, password-kind values are masked.
func (s *SettingsService) Config(ctx context.Context, ref domain.PluginRef, redacted bool) (map[string]any, error) {
	plugin, err := s.project.FindPlugin(ref)
	if err != nil {
		return nil, err
	}

	def, err := s.discovery.Find(ref)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.GetAll(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load stored settings: %w", err)
	}

	config := make(map[string]any, len(def.Settings))
	for _, setting := range def.Settings {
		var value any

		switch {
		case os.Getenv(setting.EnvKey(ref.Name)) != "":
			value = os.Getenv(setting.EnvKey(ref.Name))
		case stored[setting.Name] != "":
			value = stored[setting.Name]
		case plugin.Config[setting.Name] != nil:
			value = plugin.Config[setting.Name]
		case setting.Default != nil:
			value = setting.Default
		default:
			continue
		}

		if redacted && setting.Sensitive() {
			value = domain.RedactedValue
		}
		config[setting.Name] = value
	}

	return config, nil
}

// Set stores a setting value. Protected settings are rejected and an empty
// value unsets the stored row.
func (s *SettingsService) Set(ctx context.Context, ref domain.PluginRef, name, value string) error {
	def, err := s.Definition(ref)
	if err != nil {
		return err
	}

	setting, err := def.FindSetting(name)
	if err != nil {
		return err
	}
	if setting.Protected {
		return domain.ErrSettingProtected
	}

	if value == "" {
		return s.repo.Unset(ctx, ref, name)
	}
	return s.repo.Upsert(ctx, ref, name, value)
}

// Unset removes a stored setting value.
func (s *SettingsService) Unset(ctx context.Context, ref domain.PluginRef, name string) error {
	def, err := s.Definition(ref)
	if err != nil {
		return err
	}
	if _, err := def.FindSetting(name); err != nil {
		return err
	}
	return s.repo.Unset(ctx, ref, name)
}
