package services

import (
	"context"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

type PluginService struct {
	project   *project.Project
	discovery ports.DefinitionSource
	installer ports.PluginInstaller
}

func NewPluginService(
	proj *project.Project,
	discovery ports.DefinitionSource,
	installer ports.PluginInstaller,
) *PluginService {
	return &PluginService{
		project:   proj,
		discovery: discovery,
		installer: installer,
	}
}

// Add declares a discovered plugin in the project file.
func (s *PluginService) Add(ctx context.Context, pluginType domain.PluginType, name string) (*domain.Plugin, error) {
	if !pluginType.IsValid() {
		return nil, domain.ErrInvalidPluginType
	}
	if name == "" {
		return nil, domain.ErrInvalidPluginName
	}

	def, err := s.discovery.Find(domain.PluginRef{Type: pluginType, Name: name})
	if err != nil {
		return nil, err
	}

	plugin, err := domain.NewPlugin(def.Type, def.Name, def.PipURL)
	if err != nil {
		return nil, err
	}

	if err := s.project.AddPlugin(plugin); err != nil {
		return nil, err
	}
	return plugin, nil
}

// List returns the project's plugins, optionally filtered by type.
func (s *PluginService) List(pluginType domain.PluginType) []*domain.Plugin {
	return s.project.Plugins(pluginType)
}

// Get returns a single project plugin.
func (s *PluginService) Get(ref domain.PluginRef) (*domain.Plugin, error) {
	return s.project.FindPlugin(ref)
}

// Install materializes plugin executables into the project.
//
// With PluginTypeAll and an empty name every project plugin is installed;
// a type narrows to that group; a name narrows to a single plugin. The
// callback, when set, is invoked after each plugin finishes.
func (s *PluginService) Install(ctx context.Context, pluginType domain.PluginType, name string, done func(*domain.Plugin)) error {
	var targets []*domain.Plugin

	if name != "" {
		plugin, err := s.project.FindPlugin(domain.PluginRef{Type: pluginType, Name: name})
		if err != nil {
			return err
		}
		targets = []*domain.Plugin{plugin}
	} else {
		targets = s.project.Plugins(pluginType)
	}

	for _, plugin := range targets {
		if err := s.installer.Install(ctx, plugin); err != nil {
			return err
		}
		if done != nil {
			done(plugin)
		}
	}
	return nil
}

// Installed reports whether a plugin's executable is present.
func (s *PluginService) Installed(plugin *domain.Plugin) bool {
	return s.installer.IsInstalled(plugin)
}
