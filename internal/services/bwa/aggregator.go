package bwa

import (
	"fmt"
	"strings"
	"time"

	"bookkeeping-backend/internal/models"
	"bookkeeping-backend/internal/parse"

	"github.com/google/uuid"
)

var monthLabels = [12]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// ValidationError carries every row error found during one run.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d invalid rows: %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

type Options struct {
	// Year limits realized bookings and bank snapshots to one calendar
	// year. Zero processes everything.
	Year int
	Now  time.Time
}

type Result struct {
	Rows      []models.ReportRow
	Warnings  []string
	Aggregate *Aggregate
}

// Build runs the aggregation phases in order and returns the 17 report rows.
// Any row error aborts the run before a single row is produced.
func Build(income, expense []models.Invoice, bank []models.BankMovement, opts Options) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	agg := &Aggregate{}
	diag := &Diagnostics{}

	for i := range income {
		ProcessRow(&income[i], true, agg, diag, now, opts.Year)
	}
	for i := range expense {
		ProcessRow(&expense[i], false, agg, diag, now, opts.Year)
	}

	ingestBalances(agg, bank, now, opts.Year)
	carryForward(agg)

	if len(diag.Errors) > 0 {
		return nil, &ValidationError{Messages: diag.Errors}
	}

	for m := range agg.Monthly {
		deriveResults(&agg.Monthly[m])
	}

	return &Result{
		Rows:      emit(agg, opts.Year),
		Warnings:  diag.Warnings,
		Aggregate: agg,
	}, nil
}

// ingestBalances takes the balance of the latest booking of each month as
// that month's liquidity.
func ingestBalances(agg *Aggregate, bank []models.BankMovement, now time.Time, year int) {
	lastBooking := make(map[int]time.Time, 12)
	today := parse.Today(now)
	for i := range bank {
		if bank[i].BookingDate.IsZero() {
			continue
		}
		date := parse.Day(bank[i].BookingDate)
		if date.After(today) {
			continue
		}
		if year != 0 && date.Year() != year {
			continue
		}
		m := int(date.Month())
		if last, ok := lastBooking[m]; ok && date.Before(last) {
			continue
		}
		lastBooking[m] = date
		agg.Month(m).Liquidity = bank[i].Balance
	}
}

// carryForward fills months without a snapshot with the previous month's
// liquidity.
func carryForward(agg *Aggregate) {
	carry := agg.Monthly[0].Liquidity
	for m := 1; m < 12; m++ {
		if agg.Monthly[m].Liquidity.IsZero() {
			agg.Monthly[m].Liquidity = carry
		} else {
			carry = agg.Monthly[m].Liquidity
		}
	}
}

// deriveResults computes the profit lines. No tax is modeled, so the result
// after tax equals the result before tax.
func deriveResults(b *models.Bucket) {
	b.GrossMargin = b.TotalIncome.Sub(b.Purchases)
	b.OperatingResult = b.GrossMargin.Sub(b.TotalExpense.Sub(b.Purchases))
	b.ResultBeforeTax = b.OperatingResult
	b.ResultAfterTax = b.ResultBeforeTax
}

// emit lays out M1 M2 M3 Q1 ... M10 M11 M12 Q4 Year.
func emit(agg *Aggregate, year int) []models.ReportRow {
	rows := make([]models.ReportRow, 0, 17)
	add := func(pt models.PeriodType, idx int, label string, b models.Bucket) {
		rows = append(rows, models.ReportRow{
			ID:          uuid.New(),
			Ordinal:     len(rows) + 1,
			Year:        year,
			PeriodType:  pt,
			PeriodIndex: idx,
			Label:       label,
			Bucket:      b,
		})
	}

	var total models.Bucket
	for q := 1; q <= 4; q++ {
		var quarter models.Bucket
		for m := q*3 - 2; m <= q*3; m++ {
			month := *agg.Month(m)
			add(models.PeriodMonth, m, monthLabels[m-1], month)
			quarter.AddSums(&month)
		}
		quarter.Liquidity = agg.Month(q * 3).Liquidity
		add(models.PeriodQuarter, q, fmt.Sprintf("Q%d", q), quarter)
		total.AddSums(&quarter)
	}

	total.Liquidity = agg.Month(12).Liquidity
	total.OpenReceivables = agg.OpenReceivables
	total.OpenPayables = agg.OpenPayables
	add(models.PeriodYear, 0, "Gesamtjahr", total)

	return rows
}
