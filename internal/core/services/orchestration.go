package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

// JobStatus is the poll response for one job name.
type JobStatus struct {
	JobID      string `json:"job_id"`
	IsComplete bool   `json:"is_complete"`
	HasError   bool   `json:"has_error"`
}

// RunRequest describes an ELT run submitted through the API or CLI.
type RunRequest struct {
	Extractor string
	Loader    string
	Transform domain.TransformMode

	// JobName overrides the derived <extractor>-to-<loader> name; schedules
	// run under their own name.
	JobName string

	// TapCapturePath, when set, also writes the raw tap stream to a file.
	TapCapturePath string
}

type OrchestrationService struct {
	project     *project.Project
	jobs        ports.JobRepository
	logs        ports.JobLogStore
	runner      ports.PipelineRunner
	settings    *SettingsService
	testTimeout time.Duration
}

func NewOrchestrationService(
	proj *project.Project,
	jobs ports.JobRepository,
	logs ports.JobLogStore,
	runner ports.PipelineRunner,
	settings *SettingsService,
	testTimeout time.Duration,
) *OrchestrationService {
	if testTimeout <= 0 {
		testTimeout = 30 * time.Second
	}
	return &OrchestrationService{
		project:     proj,
		jobs:        jobs,
		logs:        logs,
		runner:      runner,
		settings:    settings,
		testTimeout: testTimeout,
	}
}

// RunELT validates the request, records a RUNNING job, and launches the
// pipeline in the background. The returned job name can be polled via
// JobStates and JobLog immediately.
func (s *OrchestrationService) RunELT(ctx context.Context, req RunRequest) (string, error) {
	if req.Transform == "" {
		req.Transform = domain.TransformSkip
	}
	if !req.Transform.IsValid() {
		return "", domain.ErrInvalidTransformMode
	}

	if _, err := s.project.FindPlugin(domain.PluginRef{Type: domain.PluginTypeExtractor, Name: req.Extractor}); err != nil {
		return "", err
	}
	if _, err := s.project.FindPlugin(domain.PluginRef{Type: domain.PluginTypeLoader, Name: req.Loader}); err != nil {
		return "", err
	}

	name := req.JobName
	if name == "" {
		name = domain.ELTJobName(req.Extractor, req.Loader)
	}

	payload, _ := json.Marshal(map[string]string{
		"extractor": req.Extractor,
		"loader":    req.Loader,
		"transform": string(req.Transform),
	})

	job, err := domain.NewJob(name, payload)
	if err != nil {
		return "", err
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	// Detached from the request context: the run outlives the HTTP call.
	go s.execute(context.Background(), job, req)

	return job.Name, nil
}

// RunELTSync runs a pipeline in the foreground. The CLI path.
func (s *OrchestrationService) RunELTSync(ctx context.Context, req RunRequest) error {
	name, err := s.RunELT(ctx, req)
	if err != nil {
		return err
	}

	// Poll the ledger rather than sharing a channel so the sync path
	// observes exactly what API pollers observe.
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			job, err := s.jobs.LatestByName(ctx, name)
			if err != nil {
				return err
			}
			if job.IsComplete() {
				if job.HasError() {
					return errors.New(job.LastError)
				}
				return nil
			}
		}
	}
}

func (s *OrchestrationService) execute(ctx context.Context, job *domain.Job, req RunRequest) {
	logger := log.WithFields(log.Fields{
		"job":       job.Name,
		"extractor": req.Extractor,
		"loader":    req.Loader,
	})

	runErr := s.runPipeline(ctx, job, req)
	if runErr != nil {
		logger.WithError(runErr).Error("pipeline run failed")
		job.Fail(runErr)
	} else {
		logger.Info("pipeline run succeeded")
		job.Succeed()
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		logger.WithError(err).Error("could not persist job outcome")
	}
}

func (s *OrchestrationService) runPipeline(ctx context.Context, job *domain.Job, req RunRequest) error {
	logWriter, err := s.logs.Writer(job.Name)
	if err != nil {
		return err
	}
	defer logWriter.Close()

	extractorCfg, err := s.settings.Config(ctx, domain.PluginRef{Type: domain.PluginTypeExtractor, Name: req.Extractor}, false)
	if err != nil {
		return err
	}
	loaderCfg, err := s.settings.Config(ctx, domain.PluginRef{Type: domain.PluginTypeLoader, Name: req.Loader}, false)
	if err != nil {
		return err
	}

	return s.runner.Run(ctx, ports.ELTRequest{
		JobName:         job.Name,
		Extractor:       req.Extractor,
		Loader:          req.Loader,
		Transform:       req.Transform,
		ExtractorConfig: extractorCfg,
		LoaderConfig:    loaderCfg,
		Log:             logWriter,
		TapCapturePath:  req.TapCapturePath,
	})
}

// JobStates returns the status of each named job. Names with no recorded
// job yet are omitted: a job may not be queued while a prerequisite step
// (plugin installation, for example) is still in flight.
func (s *OrchestrationService) JobStates(ctx context.Context, names []string) ([]JobStatus, error) {
	statuses := make([]JobStatus, 0, len(names))
	for _, name := range names {
		job, err := s.jobs.LatestByName(ctx, name)
		if errors.Is(err, domain.ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, JobStatus{
			JobID:      job.Name,
			IsComplete: job.IsComplete(),
			HasError:   job.HasError(),
		})
	}
	return statuses, nil
}

// Job returns one job run by its id.
func (s *OrchestrationService) Job(ctx context.Context, id string) (*domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrJobNotFound
	}
	return s.jobs.GetByID(ctx, id)
}

// ListJobs returns recent job runs, newest first, with the total count.
func (s *OrchestrationService) ListJobs(ctx context.Context, filter ports.JobListFilter) ([]*domain.Job, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.jobs.List(ctx, filter)
}

// JobLog returns the latest log for a job name along with whether the
// latest run failed.
func (s *OrchestrationService) JobLog(ctx context.Context, name string) (string, bool, error) {
	content, err := s.logs.LatestLog(name)
	if err != nil {
		return "", false, err
	}

	hasError := false
	if job, err := s.jobs.LatestByName(ctx, name); err == nil {
		hasError = job.HasError()
	}
	return content, hasError, nil
}

// TestPlugin invokes an extractor with config overrides applied on top of
// its effective configuration and reports whether it produced any records.
func (s *OrchestrationService) TestPlugin(ctx context.Context, extractor string, overrides map[string]any) (bool, error) {
	ref := domain.PluginRef{Type: domain.PluginTypeExtractor, Name: extractor}
	if _, err := s.project.FindPlugin(ref); err != nil {
		return false, err
	}

	config, err := s.settings.Config(ctx, ref, false)
	if err != nil {
		return false, err
	}
	for k, v := range overrides {
		config[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, s.testTimeout)
	defer cancel()

	return s.runner.TestConnection(ctx, extractor, config)
}
