package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/testutil"
)

type orchestrationFixture struct {
	svc    *OrchestrationService
	jobs   *testutil.MockJobRepo
	logs   *testutil.MemoryLogStore
	runner *testutil.MockRunner
}

func newOrchestrationFixture(t *testing.T) *orchestrationFixture {
	t.Helper()

	proj := testutil.NewTestProject(t,
		&domain.Plugin{Type: domain.PluginTypeExtractor, Name: "tap-gitlab"},
		&domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-postgres"},
	)

	discovery := &testutil.StaticDefinitions{Defs: []*domain.PluginDefinition{
		tapDefinition(),
		{Name: "target-postgres", Type: domain.PluginTypeLoader, PipURL: "target-postgres"},
	}}

	settingsRepo := &testutil.MockPluginSettingRepo{}
	settingsRepo.On("GetAll", mock.Anything, mock.Anything).Return(map[string]string{}, nil)

	jobs := &testutil.MockJobRepo{}
	logs := testutil.NewMemoryLogStore()
	runner := &testutil.MockRunner{}

	settings := NewSettingsService(proj, discovery, settingsRepo)
	return &orchestrationFixture{
		svc:    NewOrchestrationService(proj, jobs, logs, runner, settings, time.Second),
		jobs:   jobs,
		logs:   logs,
		runner: runner,
	}
}

func TestRunELT(t *testing.T) {
	f := newOrchestrationFixture(t)

	f.jobs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	f.runner.On("Run", mock.Anything, mock.MatchedBy(func(req ports.ELTRequest) bool {
		return req.Extractor == "tap-gitlab" && req.Loader == "target-postgres" && req.Log != nil
	})).Return(nil)

	updated := make(chan *domain.Job, 1)
	f.jobs.On("Update", mock.Anything, mock.AnythingOfType("*domain.Job")).
		Run(func(args mock.Arguments) { updated <- args.Get(1).(*domain.Job) }).
		Return(nil)

	name, err := f.svc.RunELT(context.Background(), RunRequest{
		Extractor: "tap-gitlab",
		Loader:    "target-postgres",
	})
	require.NoError(t, err)
	assert.Equal(t, "tap-gitlab-to-target-postgres", name)

	select {
	case job := <-updated:
		assert.Equal(t, domain.JobStateSuccess, job.State)
		assert.NotNil(t, job.EndedAt)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline never completed")
	}
}

func TestRunELT_PipelineFailure(t *testing.T) {
	f := newOrchestrationFixture(t)

	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("Run", mock.Anything, mock.Anything).
		Return(domain.ErrExtractorFailed)

	updated := make(chan *domain.Job, 1)
	f.jobs.On("Update", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updated <- args.Get(1).(*domain.Job) }).
		Return(nil)

	_, err := f.svc.RunELT(context.Background(), RunRequest{
		Extractor: "tap-gitlab",
		Loader:    "target-postgres",
	})
	require.NoError(t, err)

	select {
	case job := <-updated:
		assert.Equal(t, domain.JobStateFail, job.State)
		assert.Contains(t, job.LastError, domain.ErrExtractorFailed.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline never completed")
	}
}

func TestRunELT_UnknownPlugins(t *testing.T) {
	f := newOrchestrationFixture(t)

	_, err := f.svc.RunELT(context.Background(), RunRequest{Extractor: "tap-missing", Loader: "target-postgres"})
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)

	_, err = f.svc.RunELT(context.Background(), RunRequest{Extractor: "tap-gitlab", Loader: "target-missing"})
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}

func TestRunELT_InvalidTransform(t *testing.T) {
	f := newOrchestrationFixture(t)

	_, err := f.svc.RunELT(context.Background(), RunRequest{
		Extractor: "tap-gitlab",
		Loader:    "target-postgres",
		Transform: domain.TransformMode("maybe"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransformMode)
}

func TestRunELT_CustomJobName(t *testing.T) {
	f := newOrchestrationFixture(t)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)
	f.jobs.On("Update", mock.Anything, mock.Anything).Return(nil)

	name, err := f.svc.RunELT(context.Background(), RunRequest{
		Extractor: "tap-gitlab",
		Loader:    "target-postgres",
		JobName:   "nightly-sync",
	})
	require.NoError(t, err)
	assert.Equal(t, "nightly-sync", name)
}

func TestRunELTSync(t *testing.T) {
	f := newOrchestrationFixture(t)

	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)
	f.jobs.On("Update", mock.Anything, mock.Anything).Return(nil)

	done, err := domain.NewJob("tap-gitlab-to-target-postgres", nil)
	require.NoError(t, err)
	done.Succeed()
	f.jobs.On("LatestByName", mock.Anything, "tap-gitlab-to-target-postgres").Return(done, nil)

	err = f.svc.RunELTSync(context.Background(), RunRequest{
		Extractor: "tap-gitlab",
		Loader:    "target-postgres",
	})
	assert.NoError(t, err)
}

func TestRunELTSync_Failure(t *testing.T) {
	f := newOrchestrationFixture(t)

	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("Run", mock.Anything, mock.Anything).Return(errors.New("loader exited 1"))
	f.jobs.On("Update", mock.Anything, mock.Anything).Return(nil)

	failed, err := domain.NewJob("tap-gitlab-to-target-postgres", nil)
	require.NoError(t, err)
	failed.Fail(errors.New("loader exited 1"))
	f.jobs.On("LatestByName", mock.Anything, mock.Anything).Return(failed, nil)

	err = f.svc.RunELTSync(context.Background(), RunRequest{
		Extractor: "tap-gitlab",
		Loader:    "target-postgres",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader exited 1")
}

func TestJobStates(t *testing.T) {
	f := newOrchestrationFixture(t)

	running, err := domain.NewJob("job-a", nil)
	require.NoError(t, err)
	failed, err := domain.NewJob("job-b", nil)
	require.NoError(t, err)
	failed.Fail(errors.New("boom"))

	f.jobs.On("LatestByName", mock.Anything, "job-a").Return(running, nil)
	f.jobs.On("LatestByName", mock.Anything, "job-b").Return(failed, nil)
	f.jobs.On("LatestByName", mock.Anything, "job-c").Return(nil, domain.ErrJobNotFound)

	statuses, err := f.svc.JobStates(context.Background(), []string{"job-a", "job-b", "job-c"})
	require.NoError(t, err)

	// Names with no recorded job are omitted, not errored.
	require.Len(t, statuses, 2)
	assert.Equal(t, JobStatus{JobID: "job-a", IsComplete: false, HasError: false}, statuses[0])
	assert.Equal(t, JobStatus{JobID: "job-b", IsComplete: true, HasError: true}, statuses[1])
}

func TestJob(t *testing.T) {
	f := newOrchestrationFixture(t)

	job, err := domain.NewJob("job-a", nil)
	require.NoError(t, err)
	f.jobs.On("GetByID", mock.Anything, job.ID.String()).Return(job, nil)

	got, err := f.svc.Job(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, job.Name, got.Name)
}

func TestJob_MalformedID(t *testing.T) {
	f := newOrchestrationFixture(t)

	_, err := f.svc.Job(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	f.jobs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestListJobs_DefaultLimit(t *testing.T) {
	f := newOrchestrationFixture(t)

	f.jobs.On("List", mock.Anything, mock.MatchedBy(func(filter ports.JobListFilter) bool {
		return filter.Limit == 50
	})).Return([]*domain.Job{}, 0, nil)

	_, _, err := f.svc.ListJobs(context.Background(), ports.JobListFilter{})
	require.NoError(t, err)
	f.jobs.AssertExpectations(t)
}

func TestJobLog(t *testing.T) {
	f := newOrchestrationFixture(t)

	w, err := f.logs.Writer("job-a")
	require.NoError(t, err)
	_, err = w.Write([]byte("tap running\n"))
	require.NoError(t, err)

	failed, err := domain.NewJob("job-a", nil)
	require.NoError(t, err)
	failed.Fail(errors.New("boom"))
	f.jobs.On("LatestByName", mock.Anything, "job-a").Return(failed, nil)

	content, hasError, err := f.svc.JobLog(context.Background(), "job-a")
	require.NoError(t, err)
	assert.Equal(t, "tap running\n", content)
	assert.True(t, hasError)
}

func TestJobLog_Missing(t *testing.T) {
	f := newOrchestrationFixture(t)

	_, _, err := f.svc.JobLog(context.Background(), "never-ran")
	assert.ErrorIs(t, err, domain.ErrJobLogNotFound)
}

func TestTestPlugin(t *testing.T) {
	f := newOrchestrationFixture(t)

	f.runner.On("TestConnection", mock.Anything, "tap-gitlab", mock.MatchedBy(func(config map[string]any) bool {
		// Overrides are applied on top of the effective config.
		return config["api_url"] == "https://override.example" && config["groups"] == "data-eng"
	})).Return(true, nil)

	ok, err := f.svc.TestPlugin(context.Background(), "tap-gitlab", map[string]any{
		"api_url": "https://override.example",
		"groups":  "data-eng",
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTestPlugin_UnknownExtractor(t *testing.T) {
	f := newOrchestrationFixture(t)

	_, err := f.svc.TestPlugin(context.Background(), "tap-missing", nil)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}
