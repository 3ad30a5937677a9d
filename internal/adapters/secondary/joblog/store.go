// Package joblog stores pipeline run logs on the project filesystem, one
// timestamped file per run under .orchestrate/logs/elt/<job>/.
package joblog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

type Store struct {
	project *project.Project
}

// NewStore creates a new job log store.
func NewStore(proj *project.Project) ports.JobLogStore {
	return &Store{project: proj}
}

// Writer opens a new timestamped log file for a run of the named job.
func (s *Store) Writer(jobName string) (io.WriteCloser, error) {
	dir, err := s.project.LogsDir(jobName)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("elt_%s.log", time.Now().UTC().Format("20060102_150405.000000"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create job log: %w", err)
	}
	return f, nil
}

// LatestLog returns the content of the most recent log file for the named
// job. The timestamped file names sort chronologically.
func (s *Store) LatestLog(jobName string) (string, error) {
	dir, err := s.project.LogsDir(jobName)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read log directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", domain.ErrJobLogNotFound
	}
	sort.Strings(names)

	raw, err := os.ReadFile(filepath.Join(dir, names[len(names)-1]))
	if err != nil {
		return "", fmt.Errorf("read job log: %w", err)
	}
	return string(raw), nil
}
