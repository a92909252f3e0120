package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avelichko/news-digest/app/database"
)

type OverlapPolicy string

const (
	// OverlapSkip drops a trigger that fires while a run is in progress.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapWait queues the trigger behind the in-flight run.
	OverlapWait OverlapPolicy = "wait"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// Runner owns the job lifecycle: it fires the job on the configured cron
// schedule or on manual dispatch, provisions a fresh workspace per run,
// executes the job synchronously, and records the outcome. Exactly one
// execution happens per accepted trigger; there is no retry.
type Runner struct {
	job      Job
	runRepo  database.RunRepository
	secrets  Secrets
	schedule cron.Schedule
	overlap  OverlapPolicy
	timeout  time.Duration

	running sync.Mutex // held for the duration of one run
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(job Job, runRepo database.RunRepository, secrets Secrets,
	scheduleExpr string, overlap OverlapPolicy, timeout time.Duration) (*Runner, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(scheduleExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", scheduleExpr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		job:      job,
		runRepo:  runRepo,
		secrets:  secrets,
		schedule: schedule,
		overlap:  overlap,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start launches the schedule loop. The schedule is evaluated in UTC.
func (r *Runner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		for {
			now := time.Now().UTC()
			next := r.schedule.Next(now)
			timer := time.NewTimer(next.Sub(now))

			slog.Debug("Next scheduled run computed", "next", next.Format(time.RFC3339))

			select {
			case <-r.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if _, err := r.Dispatch(TriggerSchedule); err != nil {
					slog.Warn("Scheduled trigger not dispatched", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the schedule loop and any in-flight run, then waits for
// everything to finish.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

// NextRun returns the next scheduled fire time.
func (r *Runner) NextRun() time.Time {
	return r.schedule.Next(time.Now().UTC())
}

// Dispatch requests one job execution. Under the skip policy a trigger
// arriving while a run is in progress returns ErrRunInProgress; under the
// wait policy it queues behind the in-flight run. The returned run ID is
// assigned immediately, the execution itself is asynchronous.
func (r *Runner) Dispatch(trigger Trigger) (string, error) {
	select {
	case <-r.ctx.Done():
		return "", r.ctx.Err()
	default:
	}

	runID := newRunID()

	switch r.overlap {
	case OverlapWait:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.running.Lock()
			defer r.running.Unlock()
			r.execute(runID, trigger)
		}()
	default:
		if !r.running.TryLock() {
			slog.Info("Run in progress, skipping trigger", "trigger", trigger)
			return "", ErrRunInProgress
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.running.Unlock()
			r.execute(runID, trigger)
		}()
	}

	return runID, nil
}

func (r *Runner) execute(runID string, trigger Trigger) {
	started := time.Now().UTC()

	if err := r.runRepo.InsertRun(runID, string(trigger), started); err != nil {
		slog.Error("Failed to record run start", "run_id", runID, "error", err)
	}

	slog.Info("Run started", "run_id", runID, "trigger", trigger, "job", r.job.Name())

	report := func(status Status, stage Stage) {
		if err := r.runRepo.UpdateRunStage(runID, string(status), string(stage)); err != nil {
			slog.Warn("Failed to record run stage", "run_id", runID, "stage", stage, "error", err)
		}
	}

	result, err := r.provisionAndRun(report)

	finished := time.Now().UTC()
	duration := finished.Sub(started)

	if err != nil {
		stage := StageExecute
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}

		r.finish(runID, database.RunResult{
			Status:        string(StatusFailed),
			Stage:         string(stage),
			Error:         err.Error(),
			ExitCode:      result.ExitCode,
			ArticlesFound: result.ArticlesFound,
			EmailSent:     result.EmailSent,
		}, finished)

		slog.Error("Run failed", "run_id", runID, "stage", string(stage), "duration", duration, "error", err)
		return
	}

	r.finish(runID, database.RunResult{
		Status:        string(StatusSucceeded),
		Stage:         string(StageExecute),
		ExitCode:      result.ExitCode,
		ArticlesFound: result.ArticlesFound,
		EmailSent:     result.EmailSent,
	}, finished)

	slog.Info("Run succeeded", "run_id", runID, "duration", duration,
		"articles", result.ArticlesFound, "email_sent", result.EmailSent)
}

func (r *Runner) provisionAndRun(report ReportFunc) (Result, error) {
	workspace, err := os.MkdirTemp("", "news-digest-run-")
	if err != nil {
		return Result{}, &StageError{Stage: StageWorkspace, Err: fmt.Errorf("failed to provision workspace: %w", err)}
	}
	defer os.RemoveAll(workspace)

	jobCtx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
	}

	return r.job.Run(jobCtx, workspace, r.secrets, report)
}

func (r *Runner) finish(runID string, result database.RunResult, finishedAt time.Time) {
	if err := r.runRepo.FinishRun(runID, result, finishedAt); err != nil {
		slog.Error("Failed to record run result", "run_id", runID, "error", err)
	}
}

func newRunID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(10000))
}
