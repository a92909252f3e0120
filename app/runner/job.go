package runner

import (
	"context"
	"fmt"
)

type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusRunning      Status = "running"
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
)

type Stage string

const (
	StageWorkspace    Stage = "workspace"
	StageRuntime      Stage = "runtime"
	StageDependencies Stage = "dependencies"
	StageExecute      Stage = "execute"
)

// Secrets is the credential set materialized for exactly one run. It is
// passed explicitly into the job invocation and never stored in globals,
// so nothing outlives the run that received it.
type Secrets struct {
	EmailTo      string
	EmailFrom    string
	EmailPass    string
	GoogleAPIKey string
	GoogleCSEID  string
	SerpAPIKey   string
}

// Environ renders the secret set as the six environment variable entries
// an external program expects. Unset secrets yield empty values; presence
// is intentionally not validated.
func (s Secrets) Environ() []string {
	return []string{
		"EMAIL_TO=" + s.EmailTo,
		"EMAIL_FROM=" + s.EmailFrom,
		"EMAIL_PASS=" + s.EmailPass,
		"GOOGLE_API_KEY=" + s.GoogleAPIKey,
		"GOOGLE_CSE_ID=" + s.GoogleCSEID,
		"SERPAPI_KEY=" + s.SerpAPIKey,
	}
}

// Result carries the observable outcome of a job execution.
type Result struct {
	ExitCode      int
	ArticlesFound int
	EmailSent     bool
}

// ReportFunc lets a job surface its state transitions to the run record
// while it executes.
type ReportFunc func(status Status, stage Stage)

// Job is one unit of schedulable work. The workspace is a fresh directory
// provisioned for this run only; it is removed when the run finishes.
type Job interface {
	Name() string
	Run(ctx context.Context, workspace string, secrets Secrets, report ReportFunc) (Result, error)
}

// StageError marks a failure with the setup stage it occurred in, so the
// run record can show how far a failed run got.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
