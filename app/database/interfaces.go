package database

import (
	"time"
)

type RunRepository interface {
	InsertRun(id, triggerKind string, startedAt time.Time) error
	UpdateRunStage(id, status, stage string) error
	FinishRun(id string, result RunResult, finishedAt time.Time) error

	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
	GetRunCounts() (succeeded int, failed int, err error)
}

type SeenItemRepository interface {
	CheckSeen(contentHash string) (bool, error)
	MarkSeen(contentHash, orgName, title, link string) error
	Prune(olderThan time.Time) (int64, error)
	GetSeenCount() (int, error)
}
