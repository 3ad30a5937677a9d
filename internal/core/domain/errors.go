package domain

import "errors"

// ============================================================================
// Plugin Errors
// ============================================================================

var (
	ErrPluginNotFound      = errors.New("plugin not found in project")
	ErrPluginNotDiscovered = errors.New("plugin is not known to the discovery manifest")
	ErrPluginAlreadyAdded  = errors.New("plugin is already part of the project")
	ErrInvalidPluginType   = errors.New("invalid plugin type")
	ErrInvalidPluginName   = errors.New("plugin name is required")
	ErrPluginNotInstalled  = errors.New("plugin executable is not installed")
)

// ============================================================================
// Job Errors
// ============================================================================

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobLogNotFound = errors.New("no log is available for this job")
	ErrInvalidJobName = errors.New("job name is required")
)

// ============================================================================
// Schedule Errors
// ============================================================================

var (
	ErrScheduleExists       = errors.New("a schedule with this name already exists")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrInvalidScheduleName  = errors.New("schedule name is required")
	ErrInvalidInterval      = errors.New("invalid schedule interval")
	ErrInvalidTransformMode = errors.New("invalid transform mode")
)

// ============================================================================
// Settings Errors
// ============================================================================

var (
	ErrSettingNotDefined = errors.New("setting is not defined for this plugin")
	ErrSettingProtected  = errors.New("protected settings cannot be set externally")
)

// ============================================================================
// Pipeline Errors
// ============================================================================

var (
	ErrExtractorFailed   = errors.New("extractor exited with a non-zero code")
	ErrLoaderFailed      = errors.New("loader exited with a non-zero code")
	ErrTransformerFailed = errors.New("transformer exited with a non-zero code")
)
