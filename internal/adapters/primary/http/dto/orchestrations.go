package dto

import (
	"encoding/json"
	"time"

	"elt-orchestration-service/internal/core/domain"
	"elt-orchestration-service/internal/core/services"
)

// ============================================================================
// Jobs
// ============================================================================

type JobStateRequest struct {
	JobIDs []string `json:"job_ids" binding:"required"`
}

type JobStateResponse struct {
	Jobs []services.JobStatus `json:"jobs"`
}

type JobResponse struct {
	ID        string          `json:"id"`
	JobID     string          `json:"job_id"`
	State     string          `json:"state"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at"`
	LastError string          `json:"last_error,omitempty"`
}

func ToJobResponse(j *domain.Job) JobResponse {
	return JobResponse{
		ID:        j.ID.String(),
		JobID:     j.Name,
		State:     string(j.State),
		Payload:   json.RawMessage(j.Payload),
		StartedAt: j.StartedAt,
		EndedAt:   j.EndedAt,
		LastError: j.LastError,
	}
}

type JobLogResponse struct {
	JobID    string `json:"job_id"`
	Log      string `json:"log"`
	HasError bool   `json:"has_error"`
}

// ============================================================================
// Runs
// ============================================================================

type RunRequest struct {
	Extractor string `json:"extractor" binding:"required"`
	Loader    string `json:"loader" binding:"required"`
	Transform string `json:"transform"`
	JobID     string `json:"job_id"`
}

type RunResponse struct {
	JobID string `json:"job_id"`
}

// ============================================================================
// Configuration
// ============================================================================

type ConfigurationResponse struct {
	Config   map[string]any             `json:"config"`
	Settings []domain.SettingDefinition `json:"settings"`
}

type TestResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Schedules
// ============================================================================

type CreateScheduleRequest struct {
	Name      string `json:"name" binding:"required"`
	Extractor string `json:"extractor" binding:"required"`
	Loader    string `json:"loader" binding:"required"`
	Transform string `json:"transform"`
	Interval  string `json:"interval" binding:"required"`
}

// ============================================================================
// Plugins
// ============================================================================

type AddPluginRequest struct {
	Type string `json:"type" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type PluginResponse struct {
	Type   string   `json:"type"`
	Name   string   `json:"name"`
	PipURL string   `json:"pip_url,omitempty"`
	Select []string `json:"select,omitempty"`
}

func ToPluginResponse(p *domain.Plugin) PluginResponse {
	return PluginResponse{
		Type:   string(p.Type),
		Name:   p.Name,
		PipURL: p.PipURL,
		Select: p.Select,
	}
}
