package repository

import (
	"context"

	"bookkeeping-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BankMovementRepository struct {
	db *gorm.DB
}

func NewBankMovementRepository(db *gorm.DB) *BankMovementRepository {
	return &BankMovementRepository{db: db}
}

func (r *BankMovementRepository) WithTx(tx *gorm.DB) *BankMovementRepository {
	return &BankMovementRepository{db: tx}
}

// List returns every bank movement in store order.
func (r *BankMovementRepository) List(ctx context.Context) ([]models.BankMovement, error) {
	var movements []models.BankMovement
	err := r.db.WithContext(ctx).Order("row_number ASC").Find(&movements).Error
	return movements, err
}

// ListByConsumed filters by the consumed flag.
func (r *BankMovementRepository) ListByConsumed(ctx context.Context, consumed bool) ([]models.BankMovement, error) {
	var movements []models.BankMovement
	err := r.db.WithContext(ctx).
		Where("consumed = ?", consumed).
		Order("row_number ASC").
		Find(&movements).Error
	return movements, err
}

func (r *BankMovementRepository) NextRowNumber(ctx context.Context) (int, error) {
	return nextRowNumber(ctx, r.db.Model(&models.BankMovement{}))
}

func (r *BankMovementRepository) CreateBatch(ctx context.Context, movements []models.BankMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(movements, 200).Error
}

// Assignment is what a successful match writes onto a bank movement.
type Assignment struct {
	InvoiceRef    string
	Category      string
	DebitAccount  string
	CreditAccount string
	Score         int
	Details       datatypes.JSON
}

// MarkConsumed links a movement to an invoice. It fails with
// gorm.ErrRecordNotFound when the movement is missing or already consumed.
func (r *BankMovementRepository) MarkConsumed(ctx context.Context, id uuid.UUID, a Assignment) error {
	res := r.db.WithContext(ctx).
		Model(&models.BankMovement{}).
		Where("id = ? AND consumed = ?", id, false).
		Updates(map[string]interface{}{
			"consumed":           true,
			"linked_invoice_ref": a.InvoiceRef,
			"category":           a.Category,
			"debit_account":      a.DebitAccount,
			"credit_account":     a.CreditAccount,
			"match_score":        a.Score,
			"match_details":      a.Details,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
