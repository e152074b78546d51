// Package importer reads income, expense and bank CSV exports into the
// store. Cells are parsed leniently; validation happens when the BWA is
// built, so a bad payment date is stored as missing rather than rejected.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bookkeeping-backend/internal/models"
	"bookkeeping-backend/internal/parse"
	"bookkeeping-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	invoiceColumns = 9
	bankColumns    = 4
)

var hundred = decimal.NewFromInt(100)

// Report describes one import.
type Report struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

type Importer struct {
	invoices *repository.InvoiceRepository
	bank     *repository.BankMovementRepository
	log      zerolog.Logger
}

func New(invoices *repository.InvoiceRepository, bank *repository.BankMovementRepository, log zerolog.Logger) *Importer {
	return &Importer{
		invoices: invoices,
		bank:     bank,
		log:      log.With().Str("component", "importer").Logger(),
	}
}

// ImportInvoices appends income or expense records. Expected columns:
// number; invoice date; counterparty; category; net; VAT rate; gross;
// paid gross; payment date; payment method (optional).
func (im *Importer) ImportInvoices(ctx context.Context, dir models.Direction, r io.Reader) (*Report, error) {
	if dir != models.DirectionIncome && dir != models.DirectionExpense {
		return nil, fmt.Errorf("unknown direction %q", dir)
	}

	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	next, err := im.invoices.NextRowNumber(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("next row number: %w", err)
	}

	report := &Report{}
	invoices := make([]models.Invoice, 0, len(records))
	for _, rec := range records {
		if len(rec.fields) < invoiceColumns {
			report.Skipped = append(report.Skipped, fmt.Sprintf("line %d: expected %d columns, got %d", rec.line, invoiceColumns, len(rec.fields)))
			continue
		}
		inv := invoiceFromRecord(rec.fields)
		inv.ID = uuid.New()
		inv.Direction = dir
		inv.RowNumber = next
		next++
		invoices = append(invoices, inv)
	}

	if err := im.invoices.CreateBatch(ctx, invoices); err != nil {
		return nil, fmt.Errorf("store invoices: %w", err)
	}
	report.Imported = len(invoices)

	im.log.Info().
		Str("direction", string(dir)).
		Int("imported", report.Imported).
		Int("skipped", len(report.Skipped)).
		Msg("invoices imported")
	return report, nil
}

func invoiceFromRecord(rec []string) models.Invoice {
	invDate, _ := parse.Date(rec[1])
	net := parse.Currency(rec[4])
	vat := parse.TaxRate(rec[5])

	gross := parse.Currency(rec[6])
	if strings.TrimSpace(rec[6]) == "" {
		gross = net.Add(net.Mul(vat).Div(hundred)).Round(2)
	}
	paid := parse.Currency(rec[7])

	inv := models.Invoice{
		InvoiceNumber: strings.TrimSpace(rec[0]),
		InvoiceDate:   invDate,
		Counterparty:  strings.TrimSpace(rec[2]),
		Category:      strings.TrimSpace(rec[3]),
		NetAmount:     net,
		VatRate:       vat,
		GrossAmount:   gross,
		PaidGross:     paid,
		Status:        models.InvoiceStatusOpen,
	}
	if len(rec) > invoiceColumns {
		inv.PaymentMethod = strings.TrimSpace(rec[invoiceColumns])
	}
	if d, ok := parse.Date(rec[8]); ok {
		inv.PaymentDate = &d
	}

	inv.RemainingBalance = decimal.Max(gross.Sub(paid), decimal.Zero)
	switch {
	case paid.IsPositive() && inv.RemainingBalance.IsZero():
		inv.Status = models.InvoiceStatusPaid
	case paid.IsPositive():
		inv.Status = models.InvoiceStatusPartial
	}
	return inv
}

// ImportBankMovements appends bank bookings. Expected columns: booking
// date; booking text; amount; balance after booking.
func (im *Importer) ImportBankMovements(ctx context.Context, r io.Reader) (*Report, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	next, err := im.bank.NextRowNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next row number: %w", err)
	}

	report := &Report{}
	movements := make([]models.BankMovement, 0, len(records))
	for _, rec := range records {
		if len(rec.fields) < bankColumns {
			report.Skipped = append(report.Skipped, fmt.Sprintf("line %d: expected %d columns, got %d", rec.line, bankColumns, len(rec.fields)))
			continue
		}

		// an unparsable booking date is kept as zero; such rows never
		// feed a liquidity snapshot
		booked, _ := parse.Date(rec.fields[0])
		movements = append(movements, models.BankMovement{
			ID:          uuid.New(),
			RowNumber:   next,
			BookingDate: booked,
			BookingText: strings.TrimSpace(rec.fields[1]),
			Amount:      parse.Currency(rec.fields[2]),
			Balance:     parse.Currency(rec.fields[3]),
		})
		next++
	}

	if err := im.bank.CreateBatch(ctx, movements); err != nil {
		return nil, fmt.Errorf("store bank movements: %w", err)
	}
	report.Imported = len(movements)

	im.log.Info().
		Int("imported", report.Imported).
		Int("skipped", len(report.Skipped)).
		Msg("bank movements imported")
	return report, nil
}

type record struct {
	line   int
	fields []string
}

// readCSV returns every non-blank record after the header row.
func readCSV(r io.Reader) ([]record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if strings.TrimSpace(strings.Join(fields, "")) == "" {
			continue
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}
	return records, nil
}

// sniffDelimiter looks at the header line. Semicolons win because German
// exports use the comma as decimal separator.
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	switch {
	case bytes.Contains(header, []byte(";")):
		return ';'
	case bytes.Contains(header, []byte("\t")):
		return '\t'
	default:
		return ','
	}
}

