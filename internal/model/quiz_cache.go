package model

import "time"

// QuizCacheEntry maps (module, technique, difficulty, fingerprint) to a
// previously generated, validated quiz. Content is never mutated after
// creation; a regeneration inserts a fresh entry and the newest wins.
// Entries die by the valid flag or expiry, never by hot-path deletes.
type QuizCacheEntry struct {
	BaseModel
	ModuleID           uint      `gorm:"index:idx_quiz_cache_key;type:bigint unsigned;not null" json:"moduleId"`
	Technique          string    `gorm:"index:idx_quiz_cache_key;size:50;not null" json:"technique"`
	Difficulty         string    `gorm:"index:idx_quiz_cache_key;size:20;not null" json:"difficulty"`
	Fingerprint        string    `gorm:"index:idx_quiz_cache_key;size:64;not null" json:"fingerprint"`
	ContentFingerprint string    `gorm:"size:16" json:"contentFingerprint"`
	QuizID             uint      `gorm:"type:bigint unsigned;not null" json:"quizId"`
	UseCount           int64     `gorm:"default:0" json:"useCount"`
	LastUsedAt         time.Time `json:"lastUsedAt"`
	Valid              bool      `gorm:"default:true" json:"valid"`
	ExpiresAt          time.Time `gorm:"index" json:"expiresAt"`
}

func (QuizCacheEntry) TableName() string {
	return "quiz_cache_entries"
}
