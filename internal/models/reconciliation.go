package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
)

type ReconciliationRun struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	TotalMovements       int
	MatchedIncomeCount   int
	MatchedExpenseCount  int
	UnassignedCount      int
	AlreadyConsumedCount int
	FailedCount          int
	Status               string
	StartedAt            time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time
}
