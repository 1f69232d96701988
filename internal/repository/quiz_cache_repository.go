package repository

import (
	"errors"
	"fmt"
	"studygen_backend/internal/model"
	"studygen_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// QuizCacheRepository backs the quiz cache with the relational store.
// Datastore failures surface as util.ErrStoreUnavailable so the
// orchestrator can degrade to live generation instead of failing the
// request outright.
type QuizCacheRepository struct {
	DB *gorm.DB
}

func NewQuizCacheRepository(db *gorm.DB) *QuizCacheRepository {
	return &QuizCacheRepository{DB: db}
}

// Lookup returns the newest valid, unexpired entry for the key, or nil on
// a miss. A hit increments the use count and stamps last-used as an
// observable side effect.
func (r *QuizCacheRepository) Lookup(moduleID uint, technique, difficulty, fingerprint string) (*model.QuizCacheEntry, error) {
	var entry model.QuizCacheEntry
	err := r.DB.Where(
		"module_id = ? AND technique = ? AND difficulty = ? AND fingerprint = ? AND valid = ? AND expires_at > ?",
		moduleID, technique, difficulty, fingerprint, true, time.Now(),
	).Order("created_at desc").First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}

	now := time.Now()
	if err := r.DB.Model(&entry).UpdateColumns(map[string]interface{}{
		"use_count":    gorm.Expr("use_count + 1"),
		"last_used_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	entry.UseCount++
	entry.LastUsedAt = now

	return &entry, nil
}

// Insert creates a fresh entry. An existing entry for the same key is
// left in place; the newer row wins future lookups (last-writer wins).
func (r *QuizCacheRepository) Insert(entry *model.QuizCacheEntry) error {
	if err := r.DB.Create(entry).Error; err != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	return nil
}

// InvalidateByModule logically deletes every entry for a module by
// flipping the valid flag. Used when instructors flush stale content.
func (r *QuizCacheRepository) InvalidateByModule(moduleID uint) (int64, error) {
	res := r.DB.Model(&model.QuizCacheEntry{}).
		Where("module_id = ? AND valid = ?", moduleID, true).
		Update("valid", false)
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeExpired removes entries that expired more than the grace period
// ago. Runs off the hot path from a background task.
func (r *QuizCacheRepository) PurgeExpired(grace time.Duration) (int64, error) {
	res := r.DB.Unscoped().
		Where("expires_at < ?", time.Now().Add(-grace)).
		Delete(&model.QuizCacheEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
