package repository

import (
	"context"

	"bookkeeping-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) WithTx(tx *gorm.DB) *RunRepository {
	return &RunRepository{db: tx}
}

func (r *RunRepository) Create(ctx context.Context, run *models.ReconciliationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) Save(ctx context.Context, run *models.ReconciliationRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// AddAuditLog records one automatic or manual assignment.
func (r *RunRepository) AddAuditLog(ctx context.Context, entry *models.MatchAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// AuditLogs lists the assignments of one run.
func (r *RunRepository) AuditLogs(ctx context.Context, runID uuid.UUID) ([]models.MatchAuditLog, error) {
	var logs []models.MatchAuditLog
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("created_at ASC").Find(&logs).Error
	return logs, err
}
