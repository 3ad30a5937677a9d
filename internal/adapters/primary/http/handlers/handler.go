package handlers

import (
	"elt-orchestration-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	orchestrationSvc *services.OrchestrationService
	settingsSvc      *services.SettingsService
	scheduleSvc      *services.ScheduleService
	pluginSvc        *services.PluginService
}

func New(
	orchestrationSvc *services.OrchestrationService,
	settingsSvc *services.SettingsService,
	scheduleSvc *services.ScheduleService,
	pluginSvc *services.PluginService,
) *Handler {
	return &Handler{
		orchestrationSvc: orchestrationSvc,
		settingsSvc:      settingsSvc,
		scheduleSvc:      scheduleSvc,
		pluginSvc:        pluginSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Jobs
	r.POST("/jobs/state", h.JobState)
	r.GET("/jobs/:job_id", h.Job)
	r.GET("/jobs/:job_id/log", h.JobLog)

	// Runs
	r.POST("/run", h.Run)

	// Plugins
	r.GET("/plugins", h.ListPlugins)
	r.POST("/plugins", h.AddPlugin)

	// Plugin configuration
	r.GET("/plugins/:type/:name/configuration", h.GetConfiguration)
	r.PUT("/plugins/:type/:name/configuration", h.SaveConfiguration)
	r.POST("/plugins/:type/:name/configuration/test", h.TestConfiguration)

	// Pipeline schedules
	r.GET("/pipeline_schedules", h.ListSchedules)
	r.POST("/pipeline_schedules", h.CreateSchedule)
	r.DELETE("/pipeline_schedules/:name", h.DeleteSchedule)
}
