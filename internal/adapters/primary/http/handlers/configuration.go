package handlers

import (
	"errors"
	"net/http"

	"elt-orchestration-service/internal/adapters/primary/http/dto"
	"elt-orchestration-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func pluginRefParam(c *gin.Context) (domain.PluginRef, error) {
	pluginType, err := domain.ParsePluginType(c.Param("type"))
	if err != nil || !pluginType.IsValid() {
		return domain.PluginRef{}, domain.ErrInvalidPluginType
	}
	return domain.PluginRef{Type: pluginType, Name: c.Param("name")}, nil
}

// GetConfiguration returns a plugin's redacted configuration along with its
// setting definitions.
func (h *Handler) GetConfiguration(c *gin.Context) {
	ref, err := pluginRefParam(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	config, err := h.settingsSvc.Config(c.Request.Context(), ref, true)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	def, err := h.settingsSvc.Definition(ref)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConfigurationResponse{
		Config:   config,
		Settings: def.Settings,
	})
}

// SaveConfiguration persists a flat map of setting values. Protected
// settings are skipped with a warning; an empty string unsets a value.
func (h *Handler) SaveConfiguration(c *gin.Context) {
	ref, err := pluginRefParam(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var payload map[string]string
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for name, value := range payload {
		err := h.settingsSvc.Set(c.Request.Context(), ref, name, value)
		if errors.Is(err, domain.ErrSettingProtected) {
			log.WithFields(log.Fields{"plugin": ref.String(), "setting": name}).
				Warn("cannot set a protected setting externally")
			continue
		}
		if err != nil {
			mapDomainError(c, err)
			return
		}
	}

	config, err := h.settingsSvc.Config(c.Request.Context(), ref, true)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, config)
}

// TestConfiguration checks whether the extractor can reach its source with
// the submitted config overrides: 202 when records flowed, 404 otherwise.
func (h *Handler) TestConfiguration(c *gin.Context) {
	ref, err := pluginRefParam(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	success, err := h.orchestrationSvc.TestPlugin(c.Request.Context(), ref.Name, payload)
	if err != nil {
		log.WithError(err).WithField("plugin", ref.String()).Warn("connection test errored")
		success = false
	}

	if success {
		c.JSON(http.StatusAccepted, dto.TestResponse{Success: true})
	} else {
		c.JSON(http.StatusNotFound, dto.TestResponse{Success: false})
	}
}
