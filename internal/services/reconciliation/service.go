package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookkeeping-backend/internal/accounts"
	"bookkeeping-backend/internal/logger"
	"bookkeeping-backend/internal/models"
	"bookkeeping-backend/internal/repository"
	"bookkeeping-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentMethodBankTransfer = "bank_transfer"

	ActionAutoMatch   = "auto_match"
	ActionManualMatch = "manual_match"
)

// DefaultMinScore accepts an amount match without any further signal.
const DefaultMinScore = matching.AmountScore

var (
	ErrAlreadyConsumed   = errors.New("bank movement already consumed")
	ErrInvoicePaid       = errors.New("invoice already paid")
	ErrDirectionMismatch = errors.New("bank movement direction does not match invoice")
)

// Stats summarizes one reconciliation pass.
type Stats struct {
	RunID           uuid.UUID `json:"run_id"`
	Total           int       `json:"total"`
	MatchedIncome   int       `json:"matched_income"`
	MatchedExpense  int       `json:"matched_expense"`
	Unassigned      int       `json:"unassigned"`
	AlreadyConsumed int       `json:"already_consumed"`
	Failed          int       `json:"failed"`
}

type ReconciliationService struct {
	db          *gorm.DB
	invoiceRepo *repository.InvoiceRepository
	bankRepo    *repository.BankMovementRepository
	runRepo     *repository.RunRepository
	scorer      matching.Config
	minScore    int
	log         zerolog.Logger
}

func NewReconciliationService(
	db *gorm.DB,
	invoiceRepo *repository.InvoiceRepository,
	bankRepo *repository.BankMovementRepository,
	runRepo *repository.RunRepository,
	log zerolog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		db:          db,
		invoiceRepo: invoiceRepo,
		bankRepo:    bankRepo,
		runRepo:     runRepo,
		scorer:      matching.DefaultConfig(),
		minScore:    DefaultMinScore,
		log:         log,
	}
}

// WithScoring overrides the scorer settings and the acceptance threshold.
func (s *ReconciliationService) WithScoring(cfg matching.Config, minScore int) *ReconciliationService {
	s.scorer = cfg
	s.minScore = minScore
	return s
}

// Run visits every unconsumed bank movement once, in store order, and
// settles it against the best scoring open invoice of the matching
// direction. A failed settlement is logged and counted as unassigned; the
// pass always completes.
func (s *ReconciliationService) Run(ctx context.Context) (*Stats, error) {
	if err := repository.RequireTables(ctx, s.db,
		&models.Invoice{}, &models.BankMovement{}, &models.ReconciliationRun{}, &models.MatchAuditLog{},
	); err != nil {
		return nil, err
	}

	income, err := s.openInvoices(ctx, models.DirectionIncome)
	if err != nil {
		return nil, err
	}
	expense, err := s.openInvoices(ctx, models.DirectionExpense)
	if err != nil {
		return nil, err
	}
	movements, err := s.bankRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank movements: %w", err)
	}

	run := &models.ReconciliationRun{
		ID:             uuid.New(),
		TotalMovements: len(movements),
		Status:         models.RunStatusProcessing,
		StartedAt:      time.Now(),
		CreatedAt:      time.Now(),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	log := logger.WithFields(s.ctxLog(ctx), map[string]interface{}{
		"run_id": run.ID.String(),
	})

	stats := &Stats{RunID: run.ID, Total: len(movements)}
	for i := range movements {
		mv := &movements[i]
		if mv.Consumed {
			stats.AlreadyConsumed++
			continue
		}

		var pool []*models.Invoice
		switch {
		case mv.Amount.IsPositive():
			pool = income
		case mv.Amount.IsNegative():
			pool = expense
		}

		inv, b := s.bestCandidate(mv, pool)
		if inv == nil {
			stats.Unassigned++
			continue
		}

		if err := s.settle(ctx, run.ID, ActionAutoMatch, mv, inv, b); err != nil {
			log.Error().Err(err).
				Int("row", mv.RowNumber).
				Str("invoice", inv.InvoiceNumber).
				Msg("assignment failed, movement left unassigned")
			stats.Failed++
			stats.Unassigned++
			continue
		}

		if inv.IsIncome() {
			stats.MatchedIncome++
		} else {
			stats.MatchedExpense++
		}
		log.Debug().
			Int("row", mv.RowNumber).
			Str("invoice", inv.InvoiceNumber).
			Int("score", b.Score).
			Msg("bank movement assigned")
	}

	completed := time.Now()
	run.MatchedIncomeCount = stats.MatchedIncome
	run.MatchedExpenseCount = stats.MatchedExpense
	run.UnassignedCount = stats.Unassigned
	run.AlreadyConsumedCount = stats.AlreadyConsumed
	run.FailedCount = stats.Failed
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &completed
	if err := s.runRepo.Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("could not store run statistics")
	}

	summary := logger.WithFields(log, map[string]interface{}{
		"total":            stats.Total,
		"matched_income":   stats.MatchedIncome,
		"matched_expense":  stats.MatchedExpense,
		"unassigned":       stats.Unassigned,
		"already_consumed": stats.AlreadyConsumed,
		"failed":           stats.Failed,
	})
	summary.Info().Msg("reconciliation finished")

	return stats, nil
}

func (s *ReconciliationService) openInvoices(ctx context.Context, dir models.Direction) ([]*models.Invoice, error) {
	all, err := s.invoiceRepo.ListByDirection(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load %s invoices: %w", dir, err)
	}
	open := make([]*models.Invoice, 0, len(all))
	for i := range all {
		if all[i].Status != models.InvoiceStatusPaid {
			open = append(open, &all[i])
		}
	}
	return open, nil
}

// bestCandidate returns the highest scoring invoice at or above the
// threshold. The first one seen wins ties.
func (s *ReconciliationService) bestCandidate(mv *models.BankMovement, pool []*models.Invoice) (*models.Invoice, matching.Breakdown) {
	var (
		best   *models.Invoice
		bestBD matching.Breakdown
	)
	for _, inv := range pool {
		if inv.Status == models.InvoiceStatusPaid {
			continue
		}
		b := s.scorer.Explain(mv, inv)
		if b.Score < s.minScore || b.Score == 0 {
			continue
		}
		if best == nil || b.Score > bestBD.Score {
			best, bestBD = inv, b
		}
	}
	return best, bestBD
}

// settle marks the invoice paid and the movement consumed in one
// transaction. The in-memory records are only updated after the commit.
func (s *ReconciliationService) settle(
	ctx context.Context,
	runID uuid.UUID,
	action string,
	mv *models.BankMovement,
	inv *models.Invoice,
	b matching.Breakdown,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assignment panicked: %v", r)
		}
	}()

	paidOn := mv.BookingDate
	debit, credit := accounts.AccountsFor(inv.Category, inv.IsIncome())

	details, err := json.Marshal(map[string]interface{}{
		"invoice_id":      inv.ID.String(),
		"invoice_number":  inv.InvoiceNumber,
		"counterparty":    inv.Counterparty,
		"booking_text":    mv.BookingText,
		"amount_match":    b.AmountMatch,
		"reference_match": b.ReferenceMatch,
		"date_match":      b.DateMatch,
		"days_apart":      b.DaysApart,
		"score":           b.Score,
		"decision":        action,
	})
	if err != nil {
		return fmt.Errorf("encode match details: %w", err)
	}

	assignment := repository.Assignment{
		InvoiceRef:    inv.InvoiceNumber,
		Category:      inv.Category,
		DebitAccount:  debit,
		CreditAccount: credit,
		Score:         b.Score,
		Details:       details,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoiceRepo.WithTx(tx).MarkPaid(ctx, inv.ID, PaymentMethodBankTransfer, paidOn, inv.GrossAmount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, ErrInvoicePaid)
			}
			return fmt.Errorf("mark invoice %s paid: %w", inv.InvoiceNumber, err)
		}
		if err := s.bankRepo.WithTx(tx).MarkConsumed(ctx, mv.ID, assignment); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("bank row %d: %w", mv.RowNumber, ErrAlreadyConsumed)
			}
			return fmt.Errorf("mark bank row %d consumed: %w", mv.RowNumber, err)
		}
		return s.runRepo.WithTx(tx).AddAuditLog(ctx, &models.MatchAuditLog{
			ID:             uuid.New(),
			RunID:          runID,
			BankMovementID: mv.ID,
			InvoiceID:      inv.ID,
			InvoiceNumber:  inv.InvoiceNumber,
			Score:          b.Score,
			Action:         action,
			PerformedBy:    "system",
			CreatedAt:      time.Now(),
		})
	})
	if err != nil {
		return err
	}

	inv.Status = models.InvoiceStatusPaid
	inv.PaymentMethod = PaymentMethodBankTransfer
	inv.PaymentDate = &paidOn
	inv.PaidGross = inv.GrossAmount
	inv.RemainingBalance = decimal.Zero

	ref := inv.InvoiceNumber
	mv.Consumed = true
	mv.LinkedInvoiceRef = &ref
	mv.Category = assignment.Category
	mv.DebitAccount = debit
	mv.CreditAccount = credit
	mv.MatchScore = b.Score
	mv.MatchDetails = details
	return nil
}

// ManualMatch assigns a movement to a chosen invoice with the same
// two-sided update the automatic pass uses.
func (s *ReconciliationService) ManualMatch(ctx context.Context, movementID, invoiceID uuid.UUID) (*models.BankMovement, error) {
	var mv models.BankMovement
	if err := s.db.WithContext(ctx).First(&mv, "id = ?", movementID).Error; err != nil {
		return nil, err
	}
	if mv.Consumed {
		return nil, ErrAlreadyConsumed
	}
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusPaid {
		return nil, ErrInvoicePaid
	}
	if mv.Amount.IsPositive() != inv.IsIncome() || mv.Amount.IsZero() {
		return nil, ErrDirectionMismatch
	}

	b := s.scorer.Explain(&mv, inv)
	if err := s.settle(ctx, uuid.Nil, ActionManualMatch, &mv, inv, b); err != nil {
		return nil, err
	}
	return &mv, nil
}

// ctxLog prefers the request scoped logger carried by ctx.
func (s *ReconciliationService) ctxLog(ctx context.Context) zerolog.Logger {
	return logger.FromContext(ctx, s.log).With().Str("component", "reconciliation").Logger()
}

// Movements lists bank movements, optionally filtered by the consumed flag.
func (s *ReconciliationService) Movements(ctx context.Context, consumed *bool) ([]models.BankMovement, error) {
	if consumed == nil {
		return s.bankRepo.List(ctx)
	}
	return s.bankRepo.ListByConsumed(ctx, *consumed)
}

func (s *ReconciliationService) GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, []models.MatchAuditLog, error) {
	run, err := s.runRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.runRepo.AuditLogs(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, logs, nil
}
