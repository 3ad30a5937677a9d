package handlers

import (
	"net/http"

	"elt-orchestration-service/internal/adapters/primary/http/dto"
	"elt-orchestration-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ListSchedules returns every pipeline schedule joined with the latest
// state of its job.
func (h *Handler) ListSchedules(c *gin.Context) {
	statuses, err := h.scheduleSvc.List(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("list schedules failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, statuses)
}

// CreateSchedule declares a new pipeline schedule.
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transform, err := domain.ParseTransformMode(req.Transform)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	schedule, err := h.scheduleSvc.Add(c.Request.Context(), req.Name, req.Extractor, req.Loader, transform, req.Interval)
	if err != nil {
		log.WithError(err).Error("create schedule failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// DeleteSchedule removes a pipeline schedule declaration.
func (h *Handler) DeleteSchedule(c *gin.Context) {
	name := c.Param("name")

	if err := h.scheduleSvc.Remove(c.Request.Context(), name); err != nil {
		log.WithError(err).WithField("schedule", name).Error("delete schedule failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListPlugins returns the project's declared plugins.
func (h *Handler) ListPlugins(c *gin.Context) {
	pluginType := domain.PluginTypeAll
	if q := c.Query("type"); q != "" {
		parsed, err := domain.ParsePluginType(q)
		if err != nil {
			mapDomainError(c, err)
			return
		}
		pluginType = parsed
	}

	plugins := h.pluginSvc.List(pluginType)
	items := make([]dto.PluginResponse, 0, len(plugins))
	for _, p := range plugins {
		items = append(items, dto.ToPluginResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{"plugins": items})
}

// AddPlugin declares a discovered plugin in the project.
func (h *Handler) AddPlugin(c *gin.Context) {
	var req dto.AddPluginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pluginType, err := domain.ParsePluginType(req.Type)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	plugin, err := h.pluginSvc.Add(c.Request.Context(), pluginType, req.Name)
	if err != nil {
		log.WithError(err).Error("add plugin failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPluginResponse(plugin))
}
