package repository

import (
	"context"

	"bookkeeping-backend/internal/models"

	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Replace clears the stored report and writes rows in one transaction.
func (r *ReportRepository) Replace(ctx context.Context, rows []models.ReportRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ReportRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

// List returns the stored report in emission order.
func (r *ReportRepository) List(ctx context.Context) ([]models.ReportRow, error) {
	var rows []models.ReportRow
	err := r.db.WithContext(ctx).Order("ordinal ASC").Find(&rows).Error
	return rows, err
}
