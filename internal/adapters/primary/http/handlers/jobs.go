package handlers

import (
	"errors"
	"net/http"

	"elt-orchestration-service/internal/adapters/primary/http/dto"
	"elt-orchestration-service/internal/core/domain"
	"elt-orchestration-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// JobState returns the status of a batch of job names. Names with no
// recorded run yet are omitted from the response, since a job may not be
// queued while a prerequisite step is still in flight.
func (h *Handler) JobState(c *gin.Context) {
	var req dto.JobStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses, err := h.orchestrationSvc.JobStates(c.Request.Context(), req.JobIDs)
	if err != nil {
		log.WithError(err).Error("job state lookup failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobStateResponse{Jobs: statuses})
}

// Job returns one job run by its id.
func (h *Handler) Job(c *gin.Context) {
	job, err := h.orchestrationSvc.Job(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}

// JobLog returns the most recent log generated by a job. A job with no log
// yet answers 204 rather than an error.
func (h *Handler) JobLog(c *gin.Context) {
	jobID := c.Param("job_id")

	content, hasError, err := h.orchestrationSvc.JobLog(c.Request.Context(), jobID)
	if errors.Is(err, domain.ErrJobLogNotFound) {
		c.JSON(http.StatusNoContent, gin.H{"error": false, "code": err.Error()})
		return
	}
	if err != nil {
		log.WithError(err).WithField("job", jobID).Error("job log lookup failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobLogResponse{
		JobID:    jobID,
		Log:      content,
		HasError: hasError,
	})
}

// Run launches an ELT pipeline and returns its job name for polling.
func (h *Handler) Run(c *gin.Context) {
	var req dto.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transform, err := domain.ParseTransformMode(req.Transform)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	jobID, err := h.orchestrationSvc.RunELT(c.Request.Context(), runRequest(req, transform))
	if err != nil {
		log.WithError(err).Error("run submission failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.RunResponse{JobID: jobID})
}

func runRequest(req dto.RunRequest, transform domain.TransformMode) services.RunRequest {
	return services.RunRequest{
		Extractor: req.Extractor,
		Loader:    req.Loader,
		Transform: transform,
		JobName:   req.JobID,
	}
}
