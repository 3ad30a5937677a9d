// Package singer runs extract/load pipelines over the Singer protocol:
// the tap's stdout is piped into the target's stdin, state messages emitted
// by the target are bookmarked for the next run, and an optional transform
// step runs after the load completes.
package singer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
	"elt-orchestration-service/internal/project"
)

// Run directory files for one job.
const (
	tapConfigFile    = "tap.config.json"
	tapCatalogFile   = "tap.properties.json"
	tapStateFile     = "state.json"
	targetConfigFile = "target.config.json"
	newStateFile     = "new_state.json"
)

// Runner executes Singer pipelines against plugins installed in a project.
type Runner struct {
	project *project.Project
}

// NewRunner creates a new pipeline runner.
func NewRunner(proj *project.Project) ports.PipelineRunner {
	return &Runner{project: proj}
}

// Run executes a pipeline end to end: prepare the run directory, stream the
// tap into the target, bookmark state, then apply the transform mode.
func (r *Runner) Run(ctx context.Context, req ports.ELTRequest) error {
	runDir, err := r.project.RunDir(req.JobName)
	if err != nil {
		return err
	}

	if req.Transform != domain.TransformOnly {
		if err := r.prepare(runDir, req); err != nil {
			return err
		}
		if err := r.invoke(ctx, runDir, req); err != nil {
			return err
		}
		if err := bookmark(runDir); err != nil {
			return err
		}
	}

	if req.Transform == domain.TransformRun || req.Transform == domain.TransformOnly {
		if err := r.transform(ctx, req); err != nil {
			return err
		}
	}

	return nil
}

// prepare renders the tap and target config files into the run directory.
// The tap catalog shipped with the plugin, when present, is rendered
// alongside them.
func (r *Runner) prepare(runDir string, req ports.ELTRequest) error {
	if err := renderConfig(filepath.Join(runDir, tapConfigFile), req.ExtractorConfig); err != nil {
		return fmt.Errorf("render tap config: %w", err)
	}
	if err := renderConfig(filepath.Join(runDir, targetConfigFile), req.LoaderConfig); err != nil {
		return fmt.Errorf("render target config: %w", err)
	}

	tapRef := domain.PluginRef{Type: domain.PluginTypeExtractor, Name: req.Extractor}
	catalog := filepath.Join(r.project.PluginDir(tapRef), tapCatalogFile)
	if fileHasData(catalog) {
		if err := renderFile(catalog, filepath.Join(runDir, tapCatalogFile)); err != nil {
			return fmt.Errorf("render tap catalog: %w", err)
		}
	}

	return nil
}

// invoke spawns the tap and target and streams one into the other. When a
// capture path is set the tap stream is teed into it on the way.
//
// The target's stdout is captured into new_state.json so its final state
// message can be bookmarked. Both stderr streams go to the run log. Either
// process exiting non-zero fails the run.
func (r *Runner) invoke(ctx context.Context, runDir string, req ports.ELTRequest) error {
	tapArgs := []string{"-c", filepath.Join(runDir, tapConfigFile)}
	if fileHasData(filepath.Join(runDir, tapCatalogFile)) {
		tapArgs = append(tapArgs, "--catalog", filepath.Join(runDir, tapCatalogFile))
	}
	if fileHasData(filepath.Join(runDir, tapStateFile)) {
		tapArgs = append(tapArgs, "--state", filepath.Join(runDir, tapStateFile))
	}

	tap := exec.CommandContext(ctx, r.execPath(domain.PluginTypeExtractor, req.Extractor), tapArgs...)
	target := exec.CommandContext(ctx, r.execPath(domain.PluginTypeLoader, req.Loader),
		"-c", filepath.Join(runDir, targetConfigFile))

	stateOut, err := os.Create(filepath.Join(runDir, newStateFile))
	if err != nil {
		return fmt.Errorf("create state capture file: %w", err)
	}
	defer stateOut.Close()

	tapOut, err := tap.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open tap stdout: %w", err)
	}
	targetIn, err := target.StdinPipe()
	if err != nil {
		return fmt.Errorf("open target stdin: %w", err)
	}

	target.Stdout = stateOut
	if req.Log != nil {
		tap.Stderr = req.Log
		target.Stderr = req.Log
	}

	if err := target.Start(); err != nil {
		return fmt.Errorf("start target: %w", err)
	}
	if err := tap.Start(); err != nil {
		targetIn.Close()
		_ = target.Wait()
		return fmt.Errorf("start tap: %w", err)
	}

	var tapStream io.Writer = targetIn
	if req.TapCapturePath != "" {
		capture, err := os.Create(req.TapCapturePath)
		if err != nil {
			targetIn.Close()
			_ = tap.Wait()
			_ = target.Wait()
			return fmt.Errorf("create tap capture file: %w", err)
		}
		defer capture.Close()
		tapStream = io.MultiWriter(targetIn, capture)
	}

	copyErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(tapStream, tapOut)
		targetIn.Close()
		copyErr <- err
	}()

	// The copy ends at EOF when the tap exits; draining it first keeps
	// tap.Wait from closing the stdout pipe under the copy.
	streamErr := <-copyErr
	tapErr := tap.Wait()
	targetErr := target.Wait()

	if tapErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractorFailed, tapErr)
	}
	if streamErr != nil {
		return fmt.Errorf("stream tap output: %w", streamErr)
	}
	if targetErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrLoaderFailed, targetErr)
	}
	return nil
}

// transform runs the project's transformer plugin.
func (r *Runner) transform(ctx context.Context, req ports.ELTRequest) error {
	transformers := r.project.Plugins(domain.PluginTypeTransformer)
	if len(transformers) == 0 {
		return domain.ErrPluginNotFound
	}
	transformer := transformers[0]

	cmd := exec.CommandContext(ctx, r.execPath(domain.PluginTypeTransformer, transformer.Name), "run")
	cmd.Dir = r.project.Root
	if req.Log != nil {
		cmd.Stdout = req.Log
		cmd.Stderr = req.Log
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransformerFailed, err)
	}
	return nil
}

// TestConnection invokes the extractor with the given config and reports
// success as soon as it emits a RECORD message. The process is killed once
// the verdict is known or the context expires.
func (r *Runner) TestConnection(ctx context.Context, extractor string, config map[string]any) (bool, error) {
	runDir, err := r.project.RunDir("test-" + extractor)
	if err != nil {
		return false, err
	}

	configPath := filepath.Join(runDir, tapConfigFile)
	if err := renderConfig(configPath, config); err != nil {
		return false, err
	}

	execPath := r.execPath(domain.PluginTypeExtractor, extractor)
	if _, err := os.Stat(execPath); err != nil {
		return false, domain.ErrPluginNotInstalled
	}

	cmd := exec.CommandContext(ctx, execPath, "-c", configPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, fmt.Errorf("open tap stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start tap: %w", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	ok := scanForRecord(stdout)
	if !ok {
		log.WithField("extractor", extractor).Debug("connection test saw no records")
	}
	return ok, nil
}

func (r *Runner) execPath(t domain.PluginType, name string) string {
	return r.project.ExecPath(domain.PluginRef{Type: t, Name: name})
}

// scanForRecord reads Singer messages until a RECORD appears or the stream
// ends.
func scanForRecord(stream io.Reader) bool {
	dec := json.NewDecoder(stream)
	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := dec.Decode(&msg); err != nil {
			return false
		}
		if msg.Type == "RECORD" {
			return true
		}
	}
}

// bookmark promotes the state captured from the target to the tap's input
// state for the next run. An empty capture leaves the previous state alone.
func bookmark(runDir string) error {
	captured := filepath.Join(runDir, newStateFile)
	if !fileHasData(captured) {
		return nil
	}
	if err := os.Rename(captured, filepath.Join(runDir, tapStateFile)); err != nil {
		return fmt.Errorf("bookmark state: %w", err)
	}
	return nil
}

func fileHasData(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
