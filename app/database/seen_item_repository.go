package database

import (
	"fmt"
	"time"
)

// SeenItemRepositoryImpl handles database operations for the article
// deduplication store
type SeenItemRepositoryImpl struct {
	db *DB
}

var _ SeenItemRepository = (*SeenItemRepositoryImpl)(nil)

func NewSeenItemRepository(db *DB) *SeenItemRepositoryImpl {
	return &SeenItemRepositoryImpl{db: db}
}

func (r *SeenItemRepositoryImpl) CheckSeen(contentHash string) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM seen_items WHERE content_hash = ?
	`, contentHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check seen item: %w", err)
	}

	return count > 0, nil
}

func (r *SeenItemRepositoryImpl) MarkSeen(contentHash, orgName, title, link string) error {
	_, err := r.db.Exec(`
		INSERT INTO seen_items (content_hash, org_name, title, link, first_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (content_hash) DO NOTHING
	`, contentHash, orgName, title, link, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to mark item seen: %w", err)
	}

	return nil
}

func (r *SeenItemRepositoryImpl) Prune(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM seen_items WHERE first_seen_at < ?
	`, olderThan.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune seen items: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	return deleted, nil
}

func (r *SeenItemRepositoryImpl) GetSeenCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM seen_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count seen items: %w", err)
	}

	return count, nil
}
