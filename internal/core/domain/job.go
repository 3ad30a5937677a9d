package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState represents the lifecycle state of a pipeline job.
type JobState string

const (
	JobStateIdle    JobState = "IDLE"
	JobStateRunning JobState = "RUNNING"
	JobStateSuccess JobState = "SUCCESS"
	JobStateFail    JobState = "FAIL"

	// JobStateDead marks a job whose process disappeared without reporting a
	// terminal state.
	JobStateDead JobState = "DEAD"
)

// IsValid checks if the state is valid.
func (s JobState) IsValid() bool {
	switch s {
	case JobStateIdle, JobStateRunning, JobStateSuccess, JobStateFail, JobStateDead:
		return true
	}
	return false
}

// Job is one run of a pipeline, persisted so its status can be polled.
//
// Name is the stable identifier jobs are looked up by ("job_id" in API
// payloads); several runs of the same pipeline share a name and are ordered
// by StartedAt.
type Job struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"job_id"`
	State     JobState   `json:"state"`
	Payload   []byte     `json:"payload,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	LastError string     `json:"last_error,omitempty"`
}

// NewJob creates a job in the RUNNING state with validation.
func NewJob(name string, payload []byte) (*Job, error) {
	if name == "" {
		return nil, ErrInvalidJobName
	}
	return &Job{
		ID:        uuid.New(),
		Name:      name,
		State:     JobStateRunning,
		Payload:   payload,
		StartedAt: time.Now(),
	}, nil
}

// Succeed marks the job as completed successfully.
func (j *Job) Succeed() {
	j.State = JobStateSuccess
	now := time.Now()
	j.EndedAt = &now
}

// Fail marks the job as failed with the given cause.
func (j *Job) Fail(err error) {
	j.State = JobStateFail
	if err != nil {
		j.LastError = err.Error()
	}
	now := time.Now()
	j.EndedAt = &now
}

// IsComplete returns true once the job reached a terminal outcome.
func (j *Job) IsComplete() bool {
	return j.State == JobStateSuccess || j.State == JobStateFail
}

// HasError returns true if the job failed.
func (j *Job) HasError() bool {
	return j.State == JobStateFail
}

// IsRunning returns true while the job is in flight.
func (j *Job) IsRunning() bool {
	return j.State == JobStateRunning
}

// ELTJobName derives the job name for an extractor/loader pair.
func ELTJobName(extractor, loader string) string {
	return fmt.Sprintf("%s-to-%s", extractor, loader)
}
