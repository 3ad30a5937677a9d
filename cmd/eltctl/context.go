package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"elt-orchestration-service/internal/adapters/secondary/discovery"
	"elt-orchestration-service/internal/adapters/secondary/joblog"
	"elt-orchestration-service/internal/adapters/secondary/kubernetes"
	"elt-orchestration-service/internal/adapters/secondary/postgres"
	"elt-orchestration-service/internal/adapters/secondary/singer"
	"elt-orchestration-service/internal/config"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/core/services"
	"elt-orchestration-service/internal/project"
)

// appContext wires services on demand so commands that never touch the job
// database do not require one.
type appContext struct {
	cfg  *config.Config
	proj *project.Project
	pool *pgxpool.Pool
}

func (a *appContext) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *appContext) loadConfig() (*config.Config, error) {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		a.cfg = cfg
	}
	return a.cfg, nil
}

func (a *appContext) loadProject() (*project.Project, error) {
	if a.proj == nil {
		proj, err := project.Load(CLI.Project)
		if err != nil {
			return nil, fmt.Errorf("no project at %s (run 'eltctl init' first): %w", CLI.Project, err)
		}
		a.proj = proj
	}
	return a.proj, nil
}

func (a *appContext) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	dsn := CLI.DatabaseDSN
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to job database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping job database: %w", err)
	}

	a.pool = pool
	return pool, nil
}

func (a *appContext) pluginService() (*services.PluginService, error) {
	proj, err := a.loadProject()
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	source, err := discovery.NewSource()
	if err != nil {
		return nil, err
	}
	installer := singer.NewInstaller(proj, cfg.Runner.PythonExecutable)
	return services.NewPluginService(proj, source, installer), nil
}

func (a *appContext) settingsService(ctx context.Context) (*services.SettingsService, error) {
	proj, err := a.loadProject()
	if err != nil {
		return nil, err
	}
	source, err := discovery.NewSource()
	if err != nil {
		return nil, err
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(proj, source, postgres.NewPluginSettingRepository(pool)), nil
}

func (a *appContext) orchestrationService(ctx context.Context) (*services.OrchestrationService, error) {
	proj, err := a.loadProject()
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	settings, err := a.settingsService(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewOrchestrationService(
		proj,
		postgres.NewJobRepository(pool),
		joblog.NewStore(proj),
		singer.NewRunner(proj),
		settings,
		cfg.Runner.TestTimeout,
	), nil
}

func (a *appContext) scheduleService(ctx context.Context) (*services.ScheduleService, error) {
	proj, err := a.loadProject()
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, err
	}

	var k8sClient ports.KubernetesClient
	if cfg.Kubernetes.Enabled {
		client, err := kubernetes.NewClient(&cfg.Kubernetes)
		if err != nil {
			return nil, err
		}
		k8sClient = client
	}

	return services.NewScheduleService(proj, postgres.NewJobRepository(pool), k8sClient), nil
}
