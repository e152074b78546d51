package repository

import (
	"context"
	"strings"
	"time"

	"bookkeeping-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

// ListByDirection returns all income or expense records in store order.
func (r *InvoiceRepository) ListByDirection(ctx context.Context, dir models.Direction) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("direction = ?", dir).
		Order("row_number ASC").
		Find(&invoices).Error
	return invoices, err
}

// GetByID fetches a single invoice by ID.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Search filters invoices by counterparty or reference, direction and status.
func (r *InvoiceRepository) Search(ctx context.Context, query string, dir models.Direction, statuses []string) ([]models.Invoice, error) {
	var invoices []models.Invoice

	q := r.db.WithContext(ctx).Model(&models.Invoice{})
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(counterparty) LIKE ? OR LOWER(invoice_number) LIKE ?", like, like)
	}
	if dir != "" {
		q = q.Where("direction = ?", dir)
	}
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	err := q.Order("direction ASC, row_number ASC").Find(&invoices).Error
	return invoices, err
}

// NextRowNumber returns the row number the next imported record of dir gets.
func (r *InvoiceRepository) NextRowNumber(ctx context.Context, dir models.Direction) (int, error) {
	return nextRowNumber(ctx, r.db.Model(&models.Invoice{}).Where("direction = ?", dir))
}

// CreateBatch inserts invoices, ignoring rows whose ID already exists.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(invoices, 200).Error
}

// MarkPaid settles an invoice in full. It fails with gorm.ErrRecordNotFound
// when the invoice does not exist or is already paid.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, method string, paidOn time.Time, gross decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status <> ?", id, models.InvoiceStatusPaid).
		Updates(map[string]interface{}{
			"status":            models.InvoiceStatusPaid,
			"payment_method":    method,
			"payment_date":      paidOn,
			"paid_gross":        gross,
			"remaining_balance": decimal.Zero,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
