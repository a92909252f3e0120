package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RunRepositoryImpl handles database operations for job run records
type RunRepositoryImpl struct {
	db *DB
}

var _ RunRepository = (*RunRepositoryImpl)(nil)

func NewRunRepository(db *DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

func (r *RunRepositoryImpl) InsertRun(id, triggerKind string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (id, trigger_kind, status, started_at)
		VALUES (?, ?, 'provisioning', ?)
	`, id, triggerKind, startedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *RunRepositoryImpl) UpdateRunStage(id, status, stage string) error {
	result, err := r.db.Exec(`
		UPDATE runs SET status = ?, stage = ? WHERE id = ?
	`, status, stage, id)
	if err != nil {
		return fmt.Errorf("failed to update run stage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

func (r *RunRepositoryImpl) FinishRun(id string, res RunResult, finishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET status = ?, stage = ?, error = ?, exit_code = ?,
		    articles_found = ?, email_sent = ?, finished_at = ?
		WHERE id = ?
	`, res.Status, res.Stage, res.Error, res.ExitCode,
		res.ArticlesFound, boolToInt(res.EmailSent), finishedAt.UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

func (r *RunRepositoryImpl) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, trigger_kind, status, stage, error, exit_code,
		       articles_found, email_sent, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

func (r *RunRepositoryImpl) ListRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, trigger_kind, status, stage, error, exit_code,
		       articles_found, email_sent, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (r *RunRepositoryImpl) GetRunCounts() (int, int, error) {
	var succeeded, failed int
	err := r.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN status = 'succeeded' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM runs
	`).Scan(&succeeded, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	return succeeded, failed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var emailSent int
	var startedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(&run.ID, &run.TriggerKind, &run.Status, &run.Stage,
		&run.Error, &run.ExitCode, &run.ArticlesFound, &emailSent,
		&startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.EmailSent = emailSent != 0
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}

	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
