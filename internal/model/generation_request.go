package model

import "encoding/json"

type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusProcessing GenerationStatus = "processing"
	StatusCompleted  GenerationStatus = "completed"
	StatusCached     GenerationStatus = "cached"
	StatusFailed     GenerationStatus = "failed"
)

// IsTerminal reports whether a request has reached a final state.
func (s GenerationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCached || s == StatusFailed
}

// GenerationRequest is the append-only ledger row for one quiz-generation
// attempt. Rows are created when a request arrives, advanced through the
// state machine by the orchestrator, and never deleted.
type GenerationRequest struct {
	BaseModel
	UserID             uint             `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	ModuleID           uint             `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Technique          string           `gorm:"size:50;not null" json:"technique"`
	Difficulty         string           `gorm:"size:20;not null" json:"difficulty"`
	QuestionTypes      json.RawMessage  `gorm:"type:json" json:"questionTypes"` // resolved []QuestionType
	RequestedCount     int              `gorm:"default:0" json:"requestedCount"`
	FocusTopics        json.RawMessage  `gorm:"type:json" json:"focusTopics"` // ordered []string
	Fingerprint        string           `gorm:"size:64;index" json:"fingerprint"`
	ContentFingerprint string           `gorm:"size:16" json:"contentFingerprint"`
	Status             GenerationStatus `gorm:"type:enum('pending','processing','completed','cached','failed');default:'pending';index" json:"status"`
	ErrorMessage       string           `gorm:"type:text" json:"errorMessage,omitempty"`
	ProcessingMs       int64            `gorm:"default:0" json:"processingMs"`
	QuizID             *uint            `gorm:"type:bigint unsigned" json:"quizId,omitempty"`
}

func (GenerationRequest) TableName() string {
	return "generation_requests"
}
