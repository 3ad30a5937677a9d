package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"elt-orchestration-service/internal/core/domain"
	"elt-orchestration-service/internal/core/services"
	"elt-orchestration-service/internal/testutil"
)

type fixture struct {
	router *gin.Engine
	jobs   *testutil.MockJobRepo
	repo   *testutil.MockPluginSettingRepo
	logs   *testutil.MemoryLogStore
	runner *testutil.MockRunner
	k8s    *testutil.MockKubernetesClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	proj := testutil.NewTestProject(t,
		&domain.Plugin{Type: domain.PluginTypeExtractor, Name: "tap-gitlab"},
		&domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-postgres"},
	)

	discovery := &testutil.StaticDefinitions{Defs: []*domain.PluginDefinition{
		{
			Name:   "tap-gitlab",
			Type:   domain.PluginTypeExtractor,
			PipURL: "tap-gitlab",
			Settings: []domain.SettingDefinition{
				{Name: "api_url", Kind: domain.SettingKindString, Default: "https://gitlab.com/api/v4"},
				{Name: "private_token", Kind: domain.SettingKindPassword, Env: "GITLAB_API_TOKEN"},
				{Name: "schema", Kind: domain.SettingKindString, Protected: true},
			},
		},
		{Name: "target-postgres", Type: domain.PluginTypeLoader, PipURL: "target-postgres"},
		{Name: "target-csv", Type: domain.PluginTypeLoader, PipURL: "target-csv"},
	}}

	f := &fixture{
		jobs:   &testutil.MockJobRepo{},
		repo:   &testutil.MockPluginSettingRepo{},
		logs:   testutil.NewMemoryLogStore(),
		runner: &testutil.MockRunner{},
		k8s:    &testutil.MockKubernetesClient{},
	}

	settingsSvc := services.NewSettingsService(proj, discovery, f.repo)
	orchestrationSvc := services.NewOrchestrationService(proj, f.jobs, f.logs, f.runner, settingsSvc, time.Second)
	scheduleSvc := services.NewScheduleService(proj, f.jobs, f.k8s)
	pluginSvc := services.NewPluginService(proj, discovery, &testutil.MockInstaller{})

	router := gin.New()
	api := router.Group("/api/v1/orchestrations")
	New(orchestrationSvc, settingsSvc, scheduleSvc, pluginSvc).RegisterRoutes(api)

	f.router = router
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestJobState(t *testing.T) {
	f := newFixture(t)

	failed, err := domain.NewJob("job-a", nil)
	require.NoError(t, err)
	failed.Fail(errors.New("boom"))

	f.jobs.On("LatestByName", mock.Anything, "job-a").Return(failed, nil)
	f.jobs.On("LatestByName", mock.Anything, "job-b").Return(nil, domain.ErrJobNotFound)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/jobs/state", gin.H{
		"job_ids": []string{"job-a", "job-b"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs []services.JobStatus `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "job-a", resp.Jobs[0].JobID)
	assert.True(t, resp.Jobs[0].HasError)
}

func TestJobState_MissingJobIDs(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/jobs/state", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJob(t *testing.T) {
	f := newFixture(t)

	job, err := domain.NewJob("job-a", []byte(`{"extractor": "tap-gitlab"}`))
	require.NoError(t, err)
	f.jobs.On("GetByID", mock.Anything, job.ID.String()).Return(job, nil)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/jobs/"+job.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-a", resp["job_id"])
	assert.Equal(t, "RUNNING", resp["state"])
}

func TestGetJob_MalformedID(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobLog(t *testing.T) {
	f := newFixture(t)

	lw, err := f.logs.Writer("job-a")
	require.NoError(t, err)
	_, err = lw.Write([]byte("tap running\n"))
	require.NoError(t, err)

	ok, err := domain.NewJob("job-a", nil)
	require.NoError(t, err)
	ok.Succeed()
	f.jobs.On("LatestByName", mock.Anything, "job-a").Return(ok, nil)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/jobs/job-a/log", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tap running\n", resp["log"])
	assert.Equal(t, false, resp["has_error"])
}

func TestJobLog_NoneYet(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/jobs/never-ran/log", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRun(t *testing.T) {
	f := newFixture(t)

	f.repo.On("GetAll", mock.Anything, mock.Anything).Return(map[string]string{}, nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.jobs.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/run", gin.H{
		"extractor": "tap-gitlab",
		"loader":    "target-postgres",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tap-gitlab-to-target-postgres", resp["job_id"])
}

func TestRun_UnknownExtractor(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/run", gin.H{
		"extractor": "tap-missing",
		"loader":    "target-postgres",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_InvalidTransform(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/run", gin.H{
		"extractor": "tap-gitlab",
		"loader":    "target-postgres",
		"transform": "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConfiguration(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetAll", mock.Anything, mock.Anything).Return(map[string]string{"private_token": "s3cret"}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/plugins/extractors/tap-gitlab/configuration", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Config   map[string]any             `json:"config"`
		Settings []domain.SettingDefinition `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, domain.RedactedValue, resp.Config["private_token"])
	assert.Equal(t, "https://gitlab.com/api/v4", resp.Config["api_url"])
	assert.Len(t, resp.Settings, 3)
}

func TestGetConfiguration_InvalidType(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/plugins/widgets/tap-gitlab/configuration", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveConfiguration(t *testing.T) {
	f := newFixture(t)

	ref := domain.PluginRef{Type: domain.PluginTypeExtractor, Name: "tap-gitlab"}
	f.repo.On("Upsert", mock.Anything, ref, "private_token", "s3cret").Return(nil).Once()
	f.repo.On("Unset", mock.Anything, ref, "api_url").Return(nil).Once()
	f.repo.On("GetAll", mock.Anything, ref).Return(map[string]string{"private_token": "s3cret"}, nil)

	w := f.do(t, http.MethodPut, "/api/v1/orchestrations/plugins/extractors/tap-gitlab/configuration", gin.H{
		"private_token": "s3cret",
		"api_url":       "",
		// Protected, must be skipped rather than fail the request.
		"schema": "analytics",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.AssertExpectations(t)

	var config map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &config))
	assert.Equal(t, domain.RedactedValue, config["private_token"])
}

func TestTestConfiguration(t *testing.T) {
	f := newFixture(t)

	f.repo.On("GetAll", mock.Anything, mock.Anything).Return(map[string]string{}, nil)
	f.runner.On("TestConnection", mock.Anything, "tap-gitlab", mock.Anything).Return(true, nil)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/plugins/extractors/tap-gitlab/configuration/test", gin.H{
		"api_url": "https://gitlab.example/api/v4",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"success": true}`, w.Body.String())
}

func TestTestConfiguration_NoRecords(t *testing.T) {
	f := newFixture(t)

	f.repo.On("GetAll", mock.Anything, mock.Anything).Return(map[string]string{}, nil)
	f.runner.On("TestConnection", mock.Anything, "tap-gitlab", mock.Anything).Return(false, nil)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/plugins/extractors/tap-gitlab/configuration/test", gin.H{})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success": false}`, w.Body.String())
}

func TestCreateSchedule(t *testing.T) {
	f := newFixture(t)
	f.k8s.On("IsAvailable").Return(false)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/pipeline_schedules", gin.H{
		"name":      "Nightly Sync",
		"extractor": "tap-gitlab",
		"loader":    "target-postgres",
		"interval":  "@daily",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "nightly-sync", resp["name"])
}

func TestCreateSchedule_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.k8s.On("IsAvailable").Return(false)

	body := gin.H{
		"name":      "nightly",
		"extractor": "tap-gitlab",
		"loader":    "target-postgres",
		"interval":  "@daily",
	}

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/pipeline_schedules", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/orchestrations/pipeline_schedules", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["error"])
}

func TestDeleteSchedule(t *testing.T) {
	f := newFixture(t)
	f.k8s.On("IsAvailable").Return(false)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/pipeline_schedules", gin.H{
		"name":      "nightly",
		"extractor": "tap-gitlab",
		"loader":    "target-postgres",
		"interval":  "@daily",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/orchestrations/pipeline_schedules/nightly", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orchestrations/pipeline_schedules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDeleteSchedule_Missing(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodDelete, "/api/v1/orchestrations/pipeline_schedules/nightly", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSchedules(t *testing.T) {
	f := newFixture(t)
	f.k8s.On("IsAvailable").Return(false)
	f.jobs.On("LatestByName", mock.Anything, "nightly").Return(nil, domain.ErrJobNotFound)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/pipeline_schedules", gin.H{
		"name":      "nightly",
		"extractor": "tap-gitlab",
		"loader":    "target-postgres",
		"interval":  "@daily",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orchestrations/pipeline_schedules", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "nightly", resp[0]["name"])
	assert.Equal(t, false, resp[0]["is_running"])
}

func TestListPlugins(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orchestrations/plugins", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plugins []map[string]any `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Plugins, 2)

	w = f.do(t, http.MethodGet, "/api/v1/orchestrations/plugins?type=extractors", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Plugins, 1)
	assert.Equal(t, "tap-gitlab", resp.Plugins[0]["name"])
}

func TestAddPlugin(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/plugins", gin.H{
		"type": "loaders",
		"name": "target-csv",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "target-csv", resp["name"])
}

func TestAddPlugin_AlreadyAdded(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/plugins", gin.H{
		"type": "extractors",
		"name": "tap-gitlab",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAddPlugin_NotDiscovered(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/orchestrations/plugins", gin.H{
		"type": "extractors",
		"name": "tap-unknown",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
