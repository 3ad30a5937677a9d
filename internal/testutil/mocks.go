package testutil

import (
	"bytes"
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
)

// MockJobRepo is a mock of JobRepository.
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepo) Update(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepo) LatestByName(ctx context.Context, name string) (*domain.Job, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepo) List(ctx context.Context, filter ports.JobListFilter) ([]*domain.Job, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Job), args.Int(1), args.Error(2)
}

func (m *MockJobRepo) MarkStaleRunning(ctx context.Context, cutoffHours int) (int, error) {
	args := m.Called(ctx, cutoffHours)
	return args.Int(0), args.Error(1)
}

// MockPluginSettingRepo is a mock of PluginSettingRepository.
type MockPluginSettingRepo struct {
	mock.Mock
}

func (m *MockPluginSettingRepo) Upsert(ctx context.Context, ref domain.PluginRef, name, value string) error {
	args := m.Called(ctx, ref, name, value)
	return args.Error(0)
}

func (m *MockPluginSettingRepo) Unset(ctx context.Context, ref domain.PluginRef, name string) error {
	args := m.Called(ctx, ref, name)
	return args.Error(0)
}

func (m *MockPluginSettingRepo) GetAll(ctx context.Context, ref domain.PluginRef) (map[string]string, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// MockRunner is a mock of PipelineRunner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req ports.ELTRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRunner) TestConnection(ctx context.Context, extractor string, config map[string]any) (bool, error) {
	args := m.Called(ctx, extractor, config)
	return args.Bool(0), args.Error(1)
}

// MockInstaller is a mock of PluginInstaller.
type MockInstaller struct {
	mock.Mock
}

func (m *MockInstaller) Install(ctx context.Context, plugin *domain.Plugin) error {
	args := m.Called(ctx, plugin)
	return args.Error(0)
}

func (m *MockInstaller) IsInstalled(plugin *domain.Plugin) bool {
	args := m.Called(plugin)
	return args.Bool(0)
}

// MockKubernetesClient is a mock of KubernetesClient.
type MockKubernetesClient struct {
	mock.Mock
}

func (m *MockKubernetesClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockKubernetesClient) ApplyScheduleCronJob(ctx context.Context, schedule *domain.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockKubernetesClient) DeleteScheduleCronJob(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MemoryLogStore is an in-memory JobLogStore for tests.
type MemoryLogStore struct {
	Logs map[string]*bytes.Buffer
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{Logs: make(map[string]*bytes.Buffer)}
}

func (s *MemoryLogStore) Writer(jobName string) (io.WriteCloser, error) {
	buf := &bytes.Buffer{}
	s.Logs[jobName] = buf
	return nopCloser{buf}, nil
}

func (s *MemoryLogStore) LatestLog(jobName string) (string, error) {
	buf, ok := s.Logs[jobName]
	if !ok {
		return "", domain.ErrJobLogNotFound
	}
	return buf.String(), nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// StaticDefinitions is a DefinitionSource backed by a fixed list.
type StaticDefinitions struct {
	Defs []*domain.PluginDefinition
}

func (s *StaticDefinitions) Find(ref domain.PluginRef) (*domain.PluginDefinition, error) {
	for _, def := range s.Defs {
		if def.Name == ref.Name && def.Type == ref.Type {
			return def, nil
		}
	}
	return nil, domain.ErrPluginNotDiscovered
}

func (s *StaticDefinitions) List(pluginType domain.PluginType) []*domain.PluginDefinition {
	if pluginType == domain.PluginTypeAll {
		return s.Defs
	}
	var defs []*domain.PluginDefinition
	for _, def := range s.Defs {
		if def.Type == pluginType {
			defs = append(defs, def)
		}
	}
	return defs
}
