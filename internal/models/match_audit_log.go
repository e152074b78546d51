package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchAuditLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID          uuid.UUID `gorm:"index"`
	BankMovementID uuid.UUID `gorm:"index"`
	InvoiceID      uuid.UUID
	InvoiceNumber  string
	Score          int
	Action         string
	PerformedBy    string
	CreatedAt      time.Time
}
