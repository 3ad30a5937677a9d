package ports

import (
	"context"
	"io"

	"elt-orchestration-service/internal/core/domain"
)

// ELTRequest describes one pipeline run. Configs are fully resolved by the
// caller; the runner only renders and executes.
type ELTRequest struct {
	JobName   string
	Extractor string
	Loader    string
	Transform domain.TransformMode

	ExtractorConfig map[string]any
	LoaderConfig    map[string]any

	// Log receives the combined output of every process in the pipeline.
	// May be nil.
	Log io.Writer

	// TapCapturePath, when set, names a file the raw tap stream is teed
	// into alongside the target.
	TapCapturePath string
}

// PipelineRunner executes extract/load/transform pipelines.
type PipelineRunner interface {
	Run(ctx context.Context, req ELTRequest) error

	// TestConnection invokes the extractor with the given config overrides
	// and reports whether it emitted at least one RECORD message.
	TestConnection(ctx context.Context, extractor string, config map[string]any) (bool, error)
}

// PluginInstaller materializes a plugin's executable into the project's
// plugin directory.
type PluginInstaller interface {
	Install(ctx context.Context, plugin *domain.Plugin) error
	IsInstalled(plugin *domain.Plugin) bool
}

// DefinitionSource resolves plugin definitions from the discovery manifest.
type DefinitionSource interface {
	Find(ref domain.PluginRef) (*domain.PluginDefinition, error)
	List(pluginType domain.PluginType) []*domain.PluginDefinition
}

// JobLogStore persists and retrieves per-job run logs.
type JobLogStore interface {
	// Writer opens a new log for a run of the named job.
	Writer(jobName string) (io.WriteCloser, error)

	// LatestLog returns the content of the most recent log for the named
	// job, or domain.ErrJobLogNotFound.
	LatestLog(jobName string) (string, error)
}

// KubernetesClient hands scheduled pipelines off to a cluster as CronJobs.
// Implementations must tolerate the integration being disabled.
type KubernetesClient interface {
	IsAvailable() bool
	ApplyScheduleCronJob(ctx context.Context, schedule *domain.Schedule) error
	DeleteScheduleCronJob(ctx context.Context, name string) error
}
