// Package project manages the on-disk layout of a pipeline project: the
// YAML project file declaring plugins and schedules, the .orchestrate/ tree
// holding installed plugins and run scratch space, and the optional .env
// file loaded into the process environment.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"elt-orchestration-service/internal/core/domain"
)

const (
	// FileName is the project file at the project root.
	FileName = "project.yml"

	// InternalDir holds everything the orchestrator writes itself.
	InternalDir = ".orchestrate"

	dirMode = 0o755
)

// Project is a loaded project directory.
type Project struct {
	Root string

	mu   sync.Mutex
	file *File
}

// File is the YAML shape of the project file.
type File struct {
	Version   int                             `yaml:"version"`
	Name      string                          `yaml:"name,omitempty"`
	Plugins   map[domain.PluginType][]*record `yaml:"plugins,omitempty"`
	Schedules []*domain.Schedule              `yaml:"schedules,omitempty"`
}

// Load opens an existing project rooted at dir. A .env file in the project
// root, when present, is loaded into the process environment so plugin
// settings can reference its variables.
func Load(dir string) (*Project, error) {
	path := filepath.Join(dir, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}

	dotenv := filepath.Join(dir, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			log.WithError(err).Warn("could not load project .env file")
		}
	}

	return &Project{Root: dir, file: &file}, nil
}

// Init scaffolds a new project directory and returns it loaded.
func Init(dir, name string) (*Project, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("project file already exists at %s", path)
	}

	p := &Project{
		Root: dir,
		file: &File{Version: 1, Name: name},
	}
	if err := p.Save(); err != nil {
		return nil, err
	}

	for _, sub := range []string{"plugins", "run", filepath.Join("logs", "elt")} {
		if err := os.MkdirAll(filepath.Join(dir, InternalDir, sub), dirMode); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", sub, err)
		}
	}

	// Stub .env so secrets have an obvious home outside the project file.
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte("# plugin secrets go here\n"), 0o600); err != nil {
			return nil, fmt.Errorf("write .env stub: %w", err)
		}
	}

	return p, nil
}

// Save writes the project file back to disk.
func (p *Project) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save()
}

func (p *Project) save() error {
	raw, err := yaml.Marshal(p.file)
	if err != nil {
		return fmt.Errorf("marshal project file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.Root, FileName), raw, 0o644); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	return nil
}

// Name returns the project name from the project file.
func (p *Project) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Name
}

// ============================================================================
// Plugins
// ============================================================================

// Plugins returns every declared plugin, optionally filtered by type.
func (p *Project) Plugins(pluginType domain.PluginType) []*domain.Plugin {
	p.mu.Lock()
	defer p.mu.Unlock()

	var plugins []*domain.Plugin
	for t, records := range p.file.Plugins {
		if pluginType != domain.PluginTypeAll && t != pluginType {
			continue
		}
		for _, rec := range records {
			plugins = append(plugins, rec.toPlugin(t))
		}
	}
	return plugins
}

// FindPlugin returns the declared plugin matching the ref.
func (p *Project) FindPlugin(ref domain.PluginRef) (*domain.Plugin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rec := range p.file.Plugins[ref.Type] {
		if rec.Name == ref.Name {
			return rec.toPlugin(ref.Type), nil
		}
	}
	return nil, domain.ErrPluginNotFound
}

// AddPlugin declares a plugin in the project file and persists it.
func (p *Project) AddPlugin(plugin *domain.Plugin) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rec := range p.file.Plugins[plugin.Type] {
		if rec.Name == plugin.Name {
			return domain.ErrPluginAlreadyAdded
		}
	}

	if p.file.Plugins == nil {
		p.file.Plugins = make(map[domain.PluginType][]*record)
	}
	p.file.Plugins[plugin.Type] = append(p.file.Plugins[plugin.Type], fromPlugin(plugin))
	return p.save()
}

// ============================================================================
// Schedules
// ============================================================================

// Schedules returns the declared pipeline schedules.
func (p *Project) Schedules() []*domain.Schedule {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.Schedule(nil), p.file.Schedules...)
}

// AddSchedule declares a schedule and persists it. Names are unique.
func (p *Project) AddSchedule(schedule *domain.Schedule) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.file.Schedules {
		if existing.Name == schedule.Name {
			return domain.ErrScheduleExists
		}
	}
	p.file.Schedules = append(p.file.Schedules, schedule)
	return p.save()
}

// RemoveSchedule deletes a schedule declaration and persists the change.
func (p *Project) RemoveSchedule(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.file.Schedules {
		if existing.Name == name {
			p.file.Schedules = append(p.file.Schedules[:i], p.file.Schedules[i+1:]...)
			return p.save()
		}
	}
	return domain.ErrScheduleNotFound
}

// ============================================================================
// Paths
// ============================================================================

// PluginDir returns the install directory for a plugin.
func (p *Project) PluginDir(ref domain.PluginRef) string {
	return filepath.Join(p.Root, InternalDir, "plugins", string(ref.Type), ref.Name)
}

// ExecPath returns the path of a plugin's executable inside its install
// directory.
func (p *Project) ExecPath(ref domain.PluginRef) string {
	return filepath.Join(p.PluginDir(ref), "bin", ref.Name)
}

// RunDir returns (and creates) the scratch directory for a job run.
func (p *Project) RunDir(jobName string) (string, error) {
	dir := filepath.Join(p.Root, InternalDir, "run", jobName)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return dir, nil
}

// LogsDir returns (and creates) the log directory for a job name.
func (p *Project) LogsDir(jobName string) (string, error) {
	dir := filepath.Join(p.Root, InternalDir, "logs", "elt", jobName)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("create logs directory: %w", err)
	}
	return dir, nil
}
