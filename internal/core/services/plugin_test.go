package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"elt-orchestration-service/internal/core/domain"
	"elt-orchestration-service/internal/testutil"
)

func TestPluginAdd(t *testing.T) {
	proj := testutil.NewTestProject(t)
	discovery := &testutil.StaticDefinitions{Defs: []*domain.PluginDefinition{tapDefinition()}}
	svc := NewPluginService(proj, discovery, &testutil.MockInstaller{})

	plugin, err := svc.Add(context.Background(), domain.PluginTypeExtractor, "tap-gitlab")
	require.NoError(t, err)
	assert.Equal(t, "tap-gitlab", plugin.Name)
	assert.Equal(t, "tap-gitlab", plugin.PipURL)

	declared, err := proj.FindPlugin(domain.PluginRef{Type: domain.PluginTypeExtractor, Name: "tap-gitlab"})
	require.NoError(t, err)
	assert.Equal(t, plugin.Name, declared.Name)
}

func TestPluginAdd_NotDiscovered(t *testing.T) {
	proj := testutil.NewTestProject(t)
	svc := NewPluginService(proj, &testutil.StaticDefinitions{}, &testutil.MockInstaller{})

	_, err := svc.Add(context.Background(), domain.PluginTypeExtractor, "tap-unknown")
	assert.ErrorIs(t, err, domain.ErrPluginNotDiscovered)
}

func TestPluginAdd_Duplicate(t *testing.T) {
	proj := testutil.NewTestProject(t)
	discovery := &testutil.StaticDefinitions{Defs: []*domain.PluginDefinition{tapDefinition()}}
	svc := NewPluginService(proj, discovery, &testutil.MockInstaller{})

	_, err := svc.Add(context.Background(), domain.PluginTypeExtractor, "tap-gitlab")
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), domain.PluginTypeExtractor, "tap-gitlab")
	assert.ErrorIs(t, err, domain.ErrPluginAlreadyAdded)
}

func TestPluginAdd_InvalidInput(t *testing.T) {
	svc := NewPluginService(testutil.NewTestProject(t), &testutil.StaticDefinitions{}, &testutil.MockInstaller{})

	_, err := svc.Add(context.Background(), domain.PluginType("widgets"), "x")
	assert.ErrorIs(t, err, domain.ErrInvalidPluginType)

	_, err = svc.Add(context.Background(), domain.PluginTypeExtractor, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPluginName)
}

func TestPluginInstall_All(t *testing.T) {
	proj := testutil.NewTestProject(t,
		&domain.Plugin{Type: domain.PluginTypeExtractor, Name: "tap-a", PipURL: "tap-a"},
		&domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-b", PipURL: "target-b"},
	)
	installer := &testutil.MockInstaller{}
	installer.On("Install", mock.Anything, mock.AnythingOfType("*domain.Plugin")).Return(nil).Twice()

	svc := NewPluginService(proj, &testutil.StaticDefinitions{}, installer)

	var done []string
	err := svc.Install(context.Background(), domain.PluginTypeAll, "", func(p *domain.Plugin) {
		done = append(done, p.Name)
	})
	require.NoError(t, err)
	assert.Len(t, done, 2)
	installer.AssertExpectations(t)
}

func TestPluginInstall_Single(t *testing.T) {
	proj := testutil.NewTestProject(t,
		&domain.Plugin{Type: domain.PluginTypeExtractor, Name: "tap-a", PipURL: "tap-a"},
		&domain.Plugin{Type: domain.PluginTypeLoader, Name: "target-b", PipURL: "target-b"},
	)
	installer := &testutil.MockInstaller{}
	installer.On("Install", mock.Anything, mock.MatchedBy(func(p *domain.Plugin) bool {
		return p.Name == "tap-a"
	})).Return(nil).Once()

	svc := NewPluginService(proj, &testutil.StaticDefinitions{}, installer)

	err := svc.Install(context.Background(), domain.PluginTypeExtractor, "tap-a", nil)
	require.NoError(t, err)
	installer.AssertExpectations(t)
}

func TestPluginInstall_UnknownPlugin(t *testing.T) {
	svc := NewPluginService(testutil.NewTestProject(t), &testutil.StaticDefinitions{}, &testutil.MockInstaller{})

	err := svc.Install(context.Background(), domain.PluginTypeExtractor, "tap-missing", nil)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}
