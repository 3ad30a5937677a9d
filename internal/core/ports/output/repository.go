package ports

import (
	"context"

	"elt-orchestration-service/internal/core/domain"
)

type JobListFilter struct {
	State  string
	Search string
	Limit  int
	Offset int
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// LatestByName returns the most recently started job with the given
	// name, or domain.ErrJobNotFound.
	LatestByName(ctx context.Context, name string) (*domain.Job, error)
	List(ctx context.Context, filter JobListFilter) ([]*domain.Job, int, error)

	// MarkStaleRunning flags RUNNING jobs older than the cutoff as DEAD and
	// returns how many were updated.
	MarkStaleRunning(ctx context.Context, cutoffHours int) (int, error)
}

type PluginSettingRepository interface {
	// Upsert stores a setting value for a plugin, replacing any previous
	// value.
	Upsert(ctx context.Context, ref domain.PluginRef, name, value string) error

	// Unset removes a stored setting value. Removing an absent setting is
	// not an error.
	Unset(ctx context.Context, ref domain.PluginRef, name string) error

	// GetAll returns every stored setting for a plugin, keyed by setting
	// name.
	GetAll(ctx context.Context, ref domain.PluginRef) (map[string]string, error)
}
