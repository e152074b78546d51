package repository

import (
	"context"
	"errors"
	"fmt"

	"bookkeeping-backend/internal/models"

	"gorm.io/gorm"
)

// ErrStoreMissing is returned when a table a run depends on does not exist.
var ErrStoreMissing = errors.New("required store missing")

// AutoMigrate creates or updates every table of the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Invoice{},
		&models.BankMovement{},
		&models.ReportRow{},
		&models.ReconciliationRun{},
		&models.MatchAuditLog{},
	)
}

// RequireTables fails with ErrStoreMissing unless every table exists.
func RequireTables(ctx context.Context, db *gorm.DB, tables ...interface{}) error {
	m := db.WithContext(ctx).Migrator()
	for _, t := range tables {
		if !m.HasTable(t) {
			return fmt.Errorf("%w: %T", ErrStoreMissing, t)
		}
	}
	return nil
}

func nextRowNumber(ctx context.Context, q *gorm.DB) (int, error) {
	var last int
	if err := q.WithContext(ctx).Select("COALESCE(MAX(row_number), 0)").Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}
