package services

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

// ScheduleStatus joins a schedule with the latest state of its job.
type ScheduleStatus struct {
	*domain.Schedule
	JobID     string `json:"job_id,omitempty"`
	HasError  bool   `json:"has_error"`
	IsRunning bool   `json:"is_running"`
}

type ScheduleService struct {
	project *project.Project
	jobs    ports.JobRepository
	k8s     ports.KubernetesClient
}

func NewScheduleService(
	proj *project.Project,
	jobs ports.JobRepository,
	k8s ports.KubernetesClient,
) *ScheduleService {
	return &ScheduleService{
		project: proj,
		jobs:    jobs,
		k8s:     k8s,
	}
}

// Add declares a new pipeline schedule.
//
// Both plugins must already be part of the project. When the Kubernetes
// integration is enabled the schedule is also handed off to the cluster as
// a CronJob; a hand-off failure is logged but does not fail the call, the
// declaration in the project file is the source of truth.
func (s *ScheduleService) Add(ctx context.Context, name, extractor, loader string, transform domain.TransformMode, interval string) (*domain.Schedule, error) {
	if _, err := s.project.FindPlugin(domain.PluginRef{Type: domain.PluginTypeExtractor, Name: extractor}); err != nil {
		return nil, err
	}
	if _, err := s.project.FindPlugin(domain.PluginRef{Type: domain.PluginTypeLoader, Name: loader}); err != nil {
		return nil, err
	}

	schedule, err := domain.NewSchedule(name, extractor, loader, transform, interval)
	if err != nil {
		return nil, err
	}

	if err := s.project.AddSchedule(schedule); err != nil {
		return nil, err
	}

	if s.k8s != nil && s.k8s.IsAvailable() {
		if err := s.k8s.ApplyScheduleCronJob(ctx, schedule); err != nil {
			log.WithError(err).WithField("schedule", schedule.Name).
				Warn("could not hand schedule off to the cluster")
		}
	}

	return schedule, nil
}

// Remove deletes a schedule declaration. The cluster CronJob, when one was
// handed off, is torn down on a best-effort basis.
func (s *ScheduleService) Remove(ctx context.Context, name string) error {
	if err := s.project.RemoveSchedule(name); err != nil {
		return err
	}

	if s.k8s != nil && s.k8s.IsAvailable() {
		if err := s.k8s.DeleteScheduleCronJob(ctx, name); err != nil {
			log.WithError(err).WithField("schedule", name).
				Warn("could not remove the schedule's cluster cronjob")
		}
	}
	return nil
}

// List returns every schedule joined with the latest state of its job.
func (s *ScheduleService) List(ctx context.Context) ([]*ScheduleStatus, error) {
	schedules := s.project.Schedules()

	statuses := make([]*ScheduleStatus, 0, len(schedules))
	for _, schedule := range schedules {
		status := &ScheduleStatus{Schedule: schedule}

		job, err := s.jobs.LatestByName(ctx, schedule.Name)
		switch {
		case err == nil:
			status.JobID = job.Name
			status.HasError = job.HasError()
			status.IsRunning = job.IsRunning()
		case errors.Is(err, domain.ErrJobNotFound):
			// Never ran, leave the zero status.
		default:
			return nil, err
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}
