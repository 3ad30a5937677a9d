package domain

import (
	"regexp"
	"strings"
	"time"
)

// TransformMode controls whether a pipeline runs its transform step.
type TransformMode string

const (
	TransformSkip TransformMode = "skip"
	TransformRun  TransformMode = "run"
	TransformOnly TransformMode = "only"
)

// IsValid checks if the mode is valid.
func (m TransformMode) IsValid() bool {
	return m == TransformSkip || m == TransformRun || m == TransformOnly
}

// ParseTransformMode parses a transform mode, defaulting to skip.
func ParseTransformMode(s string) (TransformMode, error) {
	if s == "" {
		return TransformSkip, nil
	}
	mode := TransformMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", ErrInvalidTransformMode
	}
	return mode, nil
}

// Intervals accepted for pipeline schedules. External orchestrators expand
// these into concrete cron expressions.
var validIntervals = map[string]bool{
	"@once":    true,
	"@hourly":  true,
	"@daily":   true,
	"@weekly":  true,
	"@monthly": true,
	"@yearly":  true,
}

// Schedule is a recurring pipeline declaration stored in the project file.
type Schedule struct {
	Name      string        `json:"name" yaml:"name"`
	Extractor string        `json:"extractor" yaml:"extractor"`
	Loader    string        `json:"loader" yaml:"loader"`
	Transform TransformMode `json:"transform" yaml:"transform"`
	Interval  string        `json:"interval" yaml:"interval"`
	StartDate time.Time     `json:"start_date" yaml:"start_date"`
}

// NewSchedule creates a schedule with validation. The name is slugified
// because downstream orchestrators only accept alphanumerics, dashes, dots
// and underscores.
func NewSchedule(name, extractor, loader string, transform TransformMode, interval string) (*Schedule, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrInvalidScheduleName
	}
	if extractor == "" || loader == "" {
		return nil, ErrInvalidPluginName
	}
	if !transform.IsValid() {
		return nil, ErrInvalidTransformMode
	}
	if !validIntervals[interval] {
		return nil, ErrInvalidInterval
	}
	return &Schedule{
		Name:      slug,
		Extractor: extractor,
		Loader:    loader,
		Transform: transform,
		Interval:  interval,
		StartDate: time.Now().UTC().Truncate(24 * time.Hour),
	}, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9._-]+`)

// Slugify lowercases a name and collapses runs of unsupported characters
// into single dashes.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
