package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// ExecJobConfig describes an external program run instead of the built-in
// pipeline: its source tree, the runtime it needs, and the dependency
// install step that must succeed before it is invoked.
type ExecJobConfig struct {
	Command        string
	Args           []string
	SourceDir      string
	RuntimeBin     string
	RuntimeVersion string
	InstallCommand string
	BaseEnv        []string
}

// ExecJob runs an external program inside the provisioned workspace with
// the six secret variables appended to a minimal base environment. Setup
// failures abort the run before the program starts.
type ExecJob struct {
	cfg ExecJobConfig
}

var _ Job = (*ExecJob)(nil)

func NewExecJob(cfg ExecJobConfig) *ExecJob {
	if cfg.BaseEnv == nil {
		cfg.BaseEnv = []string{
			"PATH=" + os.Getenv("PATH"),
			"HOME=" + os.Getenv("HOME"),
		}
	}

	return &ExecJob{cfg: cfg}
}

func (j *ExecJob) Name() string {
	return filepath.Base(j.cfg.Command)
}

func (j *ExecJob) Run(ctx context.Context, workspace string, secrets Secrets, report ReportFunc) (Result, error) {
	if j.cfg.SourceDir != "" {
		report(StatusProvisioning, StageWorkspace)
		if err := os.CopyFS(workspace, os.DirFS(j.cfg.SourceDir)); err != nil {
			return Result{}, &StageError{Stage: StageWorkspace, Err: fmt.Errorf("failed to materialize source tree: %w", err)}
		}
	}

	if j.cfg.RuntimeBin != "" {
		report(StatusProvisioning, StageRuntime)
		if err := j.checkRuntime(ctx); err != nil {
			return Result{}, &StageError{Stage: StageRuntime, Err: err}
		}
	}

	if j.cfg.InstallCommand != "" {
		report(StatusProvisioning, StageDependencies)
		if err := j.installDependencies(ctx, workspace); err != nil {
			return Result{}, &StageError{Stage: StageDependencies, Err: err}
		}
	}

	report(StatusRunning, StageExecute)

	cmd := exec.CommandContext(ctx, j.cfg.Command, j.cfg.Args...)
	cmd.Dir = workspace
	cmd.Env = append(slices.Clone(j.cfg.BaseEnv), secrets.Environ()...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Debug("Program output", "tail", outputTail(output.String()))
			return Result{ExitCode: exitErr.ExitCode()},
				fmt.Errorf("program exited with code %d", exitErr.ExitCode())
		}
		return Result{}, fmt.Errorf("failed to start program: %w", err)
	}

	slog.Debug("Program output", "tail", outputTail(output.String()))

	return Result{}, nil
}

func (j *ExecJob) checkRuntime(ctx context.Context) error {
	path, err := exec.LookPath(j.cfg.RuntimeBin)
	if err != nil {
		return fmt.Errorf("runtime not available: %w", err)
	}

	if j.cfg.RuntimeVersion == "" {
		return nil
	}

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to check runtime version: %w", err)
	}

	if !strings.Contains(string(out), j.cfg.RuntimeVersion) {
		return fmt.Errorf("runtime version mismatch: need %s, have %s",
			j.cfg.RuntimeVersion, strings.TrimSpace(string(out)))
	}

	return nil
}

func (j *ExecJob) installDependencies(ctx context.Context, workspace string) error {
	parts := strings.Fields(j.cfg.InstallCommand)
	if len(parts) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = workspace
	cmd.Env = slices.Clone(j.cfg.BaseEnv)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("dependency installation failed: %w (%s)", err, outputTail(string(out)))
	}

	return nil
}

func outputTail(s string) string {
	const maxTail = 500
	s = strings.TrimSpace(s)
	if len(s) > maxTail {
		return "..." + s[len(s)-maxTail:]
	}
	return s
}
