package testutil

import (
	"testing"

	"elt-orchestration-service/internal/core/domain"
	"elt-orchestration-service/internal/project"
)

// NewTestProject scaffolds a throwaway project with the given plugins
// declared.
func NewTestProject(t *testing.T, plugins ...*domain.Plugin) *project.Project {
	t.Helper()

	proj, err := project.Init(t.TempDir(), "test-project")
	if err != nil {
		t.Fatalf("init test project: %v", err)
	}
	for _, p := range plugins {
		if err := proj.AddPlugin(p); err != nil {
			t.Fatalf("add plugin %s: %v", p.Name, err)
		}
	}
	return proj
}
