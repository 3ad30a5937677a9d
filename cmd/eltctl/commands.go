package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/core/services"
	"elt-orchestration-service/internal/project"
)

// InitCmd scaffolds a new project directory.
type InitCmd struct {
	Name string `arg:"" help:"Project name; becomes the directory name."`
}

func (c *InitCmd) Run(ctx context.Context, app *appContext) error {
	dir := filepath.Join(CLI.Project, c.Name)
	proj, err := project.Init(dir, c.Name)
	if err != nil {
		return err
	}

	fmt.Printf("initialized project %q at %s\n", c.Name, proj.Root)
	return nil
}

// AddCmd declares a plugin in the project and installs it.
type AddCmd struct {
	Type string `arg:"" help:"Plugin type (extractor, loader, transformer)."`
	Name string `arg:"" help:"Plugin name, e.g. tap-gitlab."`
}

func (c *AddCmd) Run(ctx context.Context, app *appContext) error {
	pluginType, err := domain.ParsePluginType(c.Type)
	if err != nil {
		return err
	}

	svc, err := app.pluginService()
	if err != nil {
		return err
	}

	plugin, err := svc.Add(ctx, pluginType, c.Name)
	if err != nil {
		return err
	}
	fmt.Printf("added %s %s\n", c.Type, plugin.Name)

	if err := svc.Install(ctx, plugin.Type, plugin.Name, nil); err != nil {
		return err
	}
	fmt.Printf("installed %s\n", plugin.Name)
	return nil
}

// InstallCmd installs the project's plugins.
type InstallCmd struct {
	Type string `arg:"" optional:"" default:"all" help:"Plugin type to install (default: all)."`
	Name string `arg:"" optional:"" help:"Single plugin to install."`
}

func (c *InstallCmd) Run(ctx context.Context, app *appContext) error {
	pluginType, err := domain.ParsePluginType(c.Type)
	if err != nil {
		return err
	}

	svc, err := app.pluginService()
	if err != nil {
		return err
	}

	total := len(svc.List(pluginType))
	if c.Name != "" {
		total = 1
	}
	if total == 0 {
		fmt.Println("nothing to install")
		return nil
	}

	bar := progressbar.Default(int64(total), "installing plugins")
	err = svc.Install(ctx, pluginType, c.Name, func(p *domain.Plugin) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	return err
}

// EltCmd runs a pipeline in the foreground.
type EltCmd struct {
	Extractor string `arg:"" help:"Extractor plugin name."`
	Loader    string `arg:"" help:"Loader plugin name."`
	Transform string `help:"Transform mode: skip, run, or only." default:"skip"`
	JobID     string `help:"Override the job name used for logs and polling."`
	TapOutput string `help:"Also capture the raw tap stream to this file." placeholder:"PATH" type:"path"`
}

func (c *EltCmd) Run(ctx context.Context, app *appContext) error {
	transform, err := domain.ParseTransformMode(c.Transform)
	if err != nil {
		return err
	}

	svc, err := app.orchestrationService(ctx)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"extractor": c.Extractor,
		"loader":    c.Loader,
		"transform": transform,
	}).Info("running pipeline")

	return svc.RunELTSync(ctx, services.RunRequest{
		Extractor:      c.Extractor,
		Loader:         c.Loader,
		Transform:      transform,
		JobName:        c.JobID,
		TapCapturePath: c.TapOutput,
	})
}

// JobsCmd lists recent pipeline runs from the job ledger.
type JobsCmd struct {
	State  string `help:"Filter by state (RUNNING, SUCCESS, FAIL, DEAD)."`
	Search string `help:"Filter by job name substring."`
	Limit  int    `default:"20" help:"Maximum number of runs to show."`
}

func (c *JobsCmd) Run(ctx context.Context, app *appContext) error {
	svc, err := app.orchestrationService(ctx)
	if err != nil {
		return err
	}

	jobs, total, err := svc.ListJobs(ctx, ports.JobListFilter{
		State:  c.State,
		Search: c.Search,
		Limit:  c.Limit,
	})
	if err != nil {
		return err
	}

	for _, job := range jobs {
		ended := "-"
		if job.EndedAt != nil {
			ended = job.EndedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-40s %-8s started=%s ended=%s\n",
			job.Name, job.State, job.StartedAt.Format(time.RFC3339), ended)
		if job.LastError != "" {
			fmt.Printf("  error: %s\n", job.LastError)
		}
	}
	fmt.Printf("%d of %d runs\n", len(jobs), total)
	return nil
}

// ScheduleCmd declares a recurring pipeline.
type ScheduleCmd struct {
	Name      string `arg:"" help:"Schedule name."`
	Extractor string `arg:"" help:"Extractor plugin name."`
	Loader    string `arg:"" help:"Loader plugin name."`
	Interval  string `arg:"" help:"Interval: @once, @hourly, @daily, @weekly, @monthly, @yearly."`
	Transform string `help:"Transform mode: skip, run, or only." default:"skip"`
}

func (c *ScheduleCmd) Run(ctx context.Context, app *appContext) error {
	transform, err := domain.ParseTransformMode(c.Transform)
	if err != nil {
		return err
	}

	svc, err := app.scheduleService(ctx)
	if err != nil {
		return err
	}

	schedule, err := svc.Add(ctx, c.Name, c.Extractor, c.Loader, transform, c.Interval)
	if err != nil {
		return err
	}

	fmt.Printf("scheduled %s: %s -> %s %s\n", schedule.Name, schedule.Extractor, schedule.Loader, schedule.Interval)
	return nil
}

// ConfigCmd manages plugin configuration.
type ConfigCmd struct {
	List  ConfigListCmd  `cmd:"" default:"withargs" help:"Show a plugin's effective configuration."`
	Set   ConfigSetCmd   `cmd:"" help:"Set a plugin setting."`
	Unset ConfigUnsetCmd `cmd:"" help:"Unset a plugin setting."`
}

type ConfigListCmd struct {
	Type string `arg:"" help:"Plugin type."`
	Name string `arg:"" help:"Plugin name."`
}

func (c *ConfigListCmd) Run(ctx context.Context, app *appContext) error {
	ref, err := pluginRef(c.Type, c.Name)
	if err != nil {
		return err
	}

	svc, err := app.settingsService(ctx)
	if err != nil {
		return err
	}

	config, err := svc.Config(ctx, ref, true)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s = %v\n", k, config[k])
	}
	return nil
}

type ConfigSetCmd struct {
	Type  string `arg:"" help:"Plugin type."`
	Name  string `arg:"" help:"Plugin name."`
	Key   string `arg:"" help:"Setting name."`
	Value string `arg:"" help:"Setting value."`
}

func (c *ConfigSetCmd) Run(ctx context.Context, app *appContext) error {
	ref, err := pluginRef(c.Type, c.Name)
	if err != nil {
		return err
	}

	svc, err := app.settingsService(ctx)
	if err != nil {
		return err
	}
	return svc.Set(ctx, ref, c.Key, c.Value)
}

type ConfigUnsetCmd struct {
	Type string `arg:"" help:"Plugin type."`
	Name string `arg:"" help:"Plugin name."`
	Key  string `arg:"" help:"Setting name."`
}

func (c *ConfigUnsetCmd) Run(ctx context.Context, app *appContext) error {
	ref, err := pluginRef(c.Type, c.Name)
	if err != nil {
		return err
	}

	svc, err := app.settingsService(ctx)
	if err != nil {
		return err
	}
	return svc.Unset(ctx, ref, c.Key)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx context.Context, app *appContext) error {
	fmt.Println(version)
	return nil
}

func pluginRef(rawType, name string) (domain.PluginRef, error) {
	pluginType, err := domain.ParsePluginType(rawType)
	if err != nil {
		return domain.PluginRef{}, err
	}
	return domain.PluginRef{Type: pluginType, Name: name}, nil
}
