package database

import (
	"time"
)

type Run struct {
	ID            string
	TriggerKind   string // "schedule" or "manual"
	Status        string // provisioning, running, succeeded, failed
	Stage         string // last stage reached: workspace, runtime, dependencies, execute
	Error         string
	ExitCode      int
	ArticlesFound int
	EmailSent     bool
	StartedAt     time.Time
	FinishedAt    *time.Time
}

type SeenItem struct {
	ContentHash string
	OrgName     string
	Title       string
	Link        string
	FirstSeenAt time.Time
}

type RunResult struct {
	Status        string
	Stage         string
	Error         string
	ExitCode      int
	ArticlesFound int
	EmailSent     bool
}
