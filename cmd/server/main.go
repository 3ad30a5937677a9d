package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elt-orchestration-service/internal/adapters/primary/http/handlers"
	"elt-orchestration-service/internal/adapters/primary/http/middleware"
	"elt-orchestration-service/internal/adapters/secondary/discovery"
	"elt-orchestration-service/internal/adapters/secondary/joblog"
	"elt-orchestration-service/internal/adapters/secondary/kubernetes"
	"elt-orchestration-service/internal/adapters/secondary/postgres"
	"elt-orchestration-service/internal/adapters/secondary/singer"
	"elt-orchestration-service/internal/config"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/core/services"
	"elt-orchestration-service/internal/project"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	proj, err := project.Load(cfg.Project.Dir)
	if err != nil {
		log.Fatalf("load project: %v", err)
	}
	log.WithField("project", proj.Name()).Info("project loaded")

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	jobRepo := postgres.NewJobRepository(pool)
	settingRepo := postgres.NewPluginSettingRepository(pool)
	logStore := joblog.NewStore(proj)
	runner := singer.NewRunner(proj)
	installer := singer.NewInstaller(proj, cfg.Runner.PythonExecutable)

	discoverySource, err := discovery.NewSource()
	if err != nil {
		log.Fatalf("load discovery manifest: %v", err)
	}

	// Kubernetes Client (Optional - based on config)
	var k8sClient ports.KubernetesClient
	if cfg.Kubernetes.Enabled {
		client, err := kubernetes.NewClient(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("Kubernetes client init failed (continuing without cluster hand-off): %v", err)
		} else {
			k8sClient = client
			log.Info("Kubernetes client initialized")
		}
	} else {
		log.Info("Kubernetes integration disabled")
	}

	// Core Services (Application Layer)
	pluginSvc := services.NewPluginService(proj, discoverySource, installer)
	settingsSvc := services.NewSettingsService(proj, discoverySource, settingRepo)
	scheduleSvc := services.NewScheduleService(proj, jobRepo, k8sClient)
	orchestrationSvc := services.NewOrchestrationService(proj, jobRepo, logStore, runner, settingsSvc, cfg.Runner.TestTimeout)

	// Jobs whose process died without reporting back stay RUNNING forever
	// otherwise.
	if n, err := jobRepo.MarkStaleRunning(context.Background(), 24); err != nil {
		log.WithError(err).Warn("could not sweep stale jobs")
	} else if n > 0 {
		log.WithField("count", n).Warn("marked stale running jobs as dead")
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(orchestrationSvc, settingsSvc, scheduleSvc, pluginSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/orchestrations")
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
