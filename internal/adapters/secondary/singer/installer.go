package singer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

// Installer installs Singer plugins into per-plugin virtualenvs under the
// project's plugin directory, so taps and targets never share dependencies.
type Installer struct {
	project *project.Project
	python  string
}

// NewInstaller creates a new plugin installer. python names the interpreter
// used to create the virtualenvs.
func NewInstaller(proj *project.Project, python string) ports.PluginInstaller {
	if python == "" {
		python = "python3"
	}
	return &Installer{project: proj, python: python}
}

// Install creates the plugin's virtualenv and installs its pip URL into it.
// Reinstalling an already installed plugin upgrades it in place.
func (i *Installer) Install(ctx context.Context, plugin *domain.Plugin) error {
	if plugin.PipURL == "" {
		return fmt.Errorf("plugin %s: %w", plugin.Name, domain.ErrPluginNotDiscovered)
	}

	ref := domain.PluginRef{Type: plugin.Type, Name: plugin.Name}
	dir := i.project.PluginDir(ref)

	log.WithFields(log.Fields{
		"plugin": ref.String(),
		"dir":    dir,
	}).Info("installing plugin")

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create plugin directory: %w", err)
	}

	venv := exec.CommandContext(ctx, i.python, "-m", "venv", dir)
	if out, err := venv.CombinedOutput(); err != nil {
		return fmt.Errorf("create virtualenv for %s: %w: %s", plugin.Name, err, out)
	}

	pip := filepath.Join(dir, "bin", "pip")
	install := exec.CommandContext(ctx, pip, "install", "--upgrade", plugin.PipURL)
	if out, err := install.CombinedOutput(); err != nil {
		return fmt.Errorf("pip install %s: %w: %s", plugin.PipURL, err, out)
	}

	return nil
}

// IsInstalled reports whether the plugin's executable exists.
func (i *Installer) IsInstalled(plugin *domain.Plugin) bool {
	ref := domain.PluginRef{Type: plugin.Type, Name: plugin.Name}
	info, err := os.Stat(i.project.ExecPath(ref))
	return err == nil && !info.IsDir()
}
