package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elt-orchestration-service/internal/core/domain"
)

func TestInitAndLoad(t *testing.T) {
	dir := t.TempDir()

	proj, err := Init(dir, "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", proj.Name())

	// Layout
	assert.FileExists(t, filepath.Join(dir, FileName))
	assert.FileExists(t, filepath.Join(dir, ".env"))
	assert.DirExists(t, filepath.Join(dir, InternalDir, "plugins"))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.Name())
}

func TestInit_ExistingProject(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, "demo")
	require.NoError(t, err)

	_, err = Init(dir, "demo")
	assert.Error(t, err)
}

func TestAddPlugin_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	proj, err := Init(dir, "demo")
	require.NoError(t, err)

	plugin := &domain.Plugin{
		Type:   domain.PluginTypeExtractor,
		Name:   "tap-gitlab",
		PipURL: "tap-gitlab",
		Config: map[string]any{"api_url": "https://gitlab.com/api/v4"},
		Select: []string{"commits.*"},
		Extras: map[string]any{"namespace": "gitlab"},
	}
	require.NoError(t, proj.AddPlugin(plugin))

	reloaded, err := Load(dir)
	require.NoError(t, err)

	got, err := reloaded.FindPlugin(domain.PluginRef{Type: domain.PluginTypeExtractor, Name: "tap-gitlab"})
	require.NoError(t, err)
	assert.Equal(t, plugin.PipURL, got.PipURL)
	assert.Equal(t, []string{"commits.*"}, got.Select)
	assert.Equal(t, "https://gitlab.com/api/v4", got.Config["api_url"])

	// Unknown keys survive the round-trip.
	assert.Equal(t, "gitlab", got.Extras["namespace"])
}

func TestAddPlugin_Duplicate(t *testing.T) {
	proj, err := Init(t.TempDir(), "demo")
	require.NoError(t, err)

	plugin := &domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-postgres"}
	require.NoError(t, proj.AddPlugin(plugin))

	err = proj.AddPlugin(&domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-postgres"})
	assert.ErrorIs(t, err, domain.ErrPluginAlreadyAdded)
}

func TestPlugins_Filter(t *testing.T) {
	proj, err := Init(t.TempDir(), "demo")
	require.NoError(t, err)

	require.NoError(t, proj.AddPlugin(&domain.Plugin{Type: domain.PluginTypeExtractor, Name: "tap-a"}))
	require.NoError(t, proj.AddPlugin(&domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-b"}))

	assert.Len(t, proj.Plugins(domain.PluginTypeAll), 2)
	assert.Len(t, proj.Plugins(domain.PluginTypeExtractor), 1)
	assert.Empty(t, proj.Plugins(domain.PluginTypeTransformer))
}

func TestAddSchedule_Duplicate(t *testing.T) {
	proj, err := Init(t.TempDir(), "demo")
	require.NoError(t, err)

	s, err := domain.NewSchedule("nightly", "tap-a", "target-b", domain.TransformSkip, "@daily")
	require.NoError(t, err)
	require.NoError(t, proj.AddSchedule(s))

	err = proj.AddSchedule(s)
	assert.ErrorIs(t, err, domain.ErrScheduleExists)

	assert.Len(t, proj.Schedules(), 1)
}

func TestRemoveSchedule(t *testing.T) {
	dir := t.TempDir()
	proj, err := Init(dir, "demo")
	require.NoError(t, err)

	s, err := domain.NewSchedule("nightly", "tap-a", "target-b", domain.TransformSkip, "@daily")
	require.NoError(t, err)
	require.NoError(t, proj.AddSchedule(s))

	require.NoError(t, proj.RemoveSchedule("nightly"))
	assert.Empty(t, proj.Schedules())

	// The removal survives a reload.
	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Schedules())
}

func TestRemoveSchedule_Missing(t *testing.T) {
	proj, err := Init(t.TempDir(), "demo")
	require.NoError(t, err)

	err = proj.RemoveSchedule("nightly")
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestLoad_MissingProjectFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestFindPlugin_NotFound(t *testing.T) {
	proj, err := Init(t.TempDir(), "demo")
	require.NoError(t, err)

	_, err = proj.FindPlugin(domain.PluginRef{Type: domain.PluginTypeExtractor, Name: "tap-missing"})
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}

func TestLoad_ReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, "demo")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROJECT_TEST_SECRET=hunter2\n"), 0o600))
	t.Setenv("PROJECT_TEST_SECRET", "")
	os.Unsetenv("PROJECT_TEST_SECRET")

	_, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", os.Getenv("PROJECT_TEST_SECRET"))
}
