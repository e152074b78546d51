package bwa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bookkeeping-backend/internal/logger"
	"bookkeeping-backend/internal/models"
	"bookkeeping-backend/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Archiver stores a rendered report outside the database.
type Archiver interface {
	Upload(ctx context.Context, name string, data []byte) error
}

type Service struct {
	db       *gorm.DB
	invoices *repository.InvoiceRepository
	bank     *repository.BankMovementRepository
	reports  *repository.ReportRepository
	archiver Archiver
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(
	db *gorm.DB,
	invoices *repository.InvoiceRepository,
	bank *repository.BankMovementRepository,
	reports *repository.ReportRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:       db,
		invoices: invoices,
		bank:     bank,
		reports:  reports,
		log:      log,
		now:      time.Now,
	}
}

// WithArchiver uploads every generated report through a.
func (s *Service) WithArchiver(a Archiver) *Service {
	s.archiver = a
	return s
}

// WithClock replaces the clock used for future-date checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Generate reads all records, builds the report and replaces the stored one.
// On a *ValidationError nothing is written.
func (s *Service) Generate(ctx context.Context, year int) (*Result, error) {
	if err := repository.RequireTables(ctx, s.db, &models.Invoice{}, &models.BankMovement{}, &models.ReportRow{}); err != nil {
		return nil, err
	}

	income, err := s.invoices.ListByDirection(ctx, models.DirectionIncome)
	if err != nil {
		return nil, fmt.Errorf("load income: %w", err)
	}
	expense, err := s.invoices.ListByDirection(ctx, models.DirectionExpense)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	movements, err := s.bank.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank movements: %w", err)
	}

	log := s.ctxLog(ctx)
	now := s.now()
	res, err := Build(income, expense, movements, Options{Year: year, Now: now})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			log.Error().Int("errors", len(verr.Messages)).Strs("messages", verr.Messages).Msg("BWA aborted, source data invalid")
		}
		return nil, err
	}

	if err := s.reports.Replace(ctx, res.Rows); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	log.Info().
		Int("income_rows", len(income)).
		Int("expense_rows", len(expense)).
		Int("bank_rows", len(movements)).
		Int("year", year).
		Msg("BWA generated")

	if len(res.Warnings) > 0 {
		log.Warn().Int("count", len(res.Warnings)).Strs("warnings", res.Warnings).Msg("unknown categories booked to fallback buckets")
	}

	if s.archiver != nil {
		s.archive(ctx, log, year, now, res.Rows)
	}
	return res, nil
}

// archive failures are logged only; the report is already stored.
func (s *Service) archive(ctx context.Context, log zerolog.Logger, year int, now time.Time, rows []models.ReportRow) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		log.Error().Err(err).Msg("render BWA archive")
		return
	}
	name := archiveName(year, now.Format("20060102-150405"))
	if err := s.archiver.Upload(ctx, name, buf.Bytes()); err != nil {
		log.Error().Err(err).Str("object", name).Msg("upload BWA archive")
		return
	}
	log.Info().Str("object", name).Msg("BWA archived")
}

// ctxLog prefers the request scoped logger carried by ctx.
func (s *Service) ctxLog(ctx context.Context) zerolog.Logger {
	return logger.FromContext(ctx, s.log).With().Str("component", "bwa").Logger()
}

// Report returns the stored report rows.
func (s *Service) Report(ctx context.Context) ([]models.ReportRow, error) {
	return s.reports.List(ctx)
}

// Export writes the stored report as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.reports.List(ctx)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	return WriteCSV(w, rows)
}
