package handlers

import (
	"errors"
	"net/http"

	"elt-orchestration-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrPluginNotFound),
		errors.Is(err, domain.ErrPluginNotDiscovered),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrSettingNotDefined),
		errors.Is(err, domain.ErrPluginNotInstalled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrScheduleExists),
		errors.Is(err, domain.ErrPluginAlreadyAdded):
		c.JSON(http.StatusConflict, gin.H{"error": true, "code": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidPluginType),
		errors.Is(err, domain.ErrInvalidPluginName),
		errors.Is(err, domain.ErrInvalidJobName),
		errors.Is(err, domain.ErrInvalidScheduleName),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrInvalidTransformMode),
		errors.Is(err, domain.ErrSettingProtected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
