// Package bwa builds the monthly, quarterly and yearly BWA report from
// income records, expense records and bank balances.
package bwa

import (
	"fmt"
	"strings"
	"time"

	"bookkeeping-backend/internal/accounts"
	"bookkeeping-backend/internal/models"
	"bookkeeping-backend/internal/parse"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregate is the in-progress state of one run. Monthly[0] is January; all
// twelve months exist even without activity.
type Aggregate struct {
	Monthly         [12]models.Bucket
	OpenReceivables decimal.Decimal
	OpenPayables    decimal.Decimal
}

// Month returns the bucket of month m (1-12).
func (a *Aggregate) Month(m int) *models.Bucket {
	return &a.Monthly[m-1]
}

func (a *Aggregate) addOpen(isIncome bool, amount decimal.Decimal) {
	if isIncome {
		a.OpenReceivables = a.OpenReceivables.Add(amount)
	} else {
		a.OpenPayables = a.OpenPayables.Add(amount)
	}
}

// Diagnostics collects the problems of one run. Errors abort the run,
// Warnings are reported after a successful one.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

// PaidNet strips VAT from a paid gross amount. A zero or negative rate
// leaves the amount unchanged.
func PaidNet(paidGross, vatRate decimal.Decimal) decimal.Decimal {
	if !vatRate.IsPositive() {
		return paidGross
	}
	return paidGross.Div(decimal.NewFromInt(1).Add(vatRate.Div(hundred))).Round(2)
}

// ProcessRow books one income or expense record into agg. Rows that cannot
// be booked append an error to diag and leave agg untouched. year restricts
// realized bookings to one calendar year when non-zero.
func ProcessRow(inv *models.Invoice, isIncome bool, agg *Aggregate, diag *Diagnostics, now time.Time, year int) {
	net := inv.NetAmount
	paidGross := inv.PaidGross
	paidNet := PaidNet(paidGross, inv.VatRate)

	var paymentDate time.Time
	hasDate := inv.PaymentDate != nil && !inv.PaymentDate.IsZero()
	if hasDate {
		paymentDate = parse.Day(*inv.PaymentDate)
	}

	if !paidGross.IsZero() && !hasDate {
		diag.Errors = append(diag.Errors, rowError(inv, isIncome, "payment without a valid date"))
		return
	}
	if hasDate && paymentDate.After(parse.Today(now)) {
		diag.Errors = append(diag.Errors, rowError(inv, isIncome,
			fmt.Sprintf("payment date in the future (%s)", paymentDate.Format("02.01.2006"))))
		return
	}

	if !hasDate {
		agg.addOpen(isIncome, net)
		return
	}

	// the unpaid remainder is open regardless of the year filter
	if restOpen := net.Sub(paidNet); restOpen.IsPositive() {
		agg.addOpen(isIncome, restOpen)
	}

	if year != 0 && paymentDate.Year() != year {
		return
	}

	bucket := agg.Month(int(paymentDate.Month()))
	key := accounts.ResolveCategory(inv.Category, isIncome, inv.RowNumber, &diag.Warnings)

	field := bucket.Field(key)
	*field = field.Add(paidNet)
	if isIncome {
		bucket.TotalIncome = bucket.TotalIncome.Add(paidNet)
	} else {
		bucket.TotalExpense = bucket.TotalExpense.Add(paidNet)
	}
}

func rowError(inv *models.Invoice, isIncome bool, msg string) string {
	kind := "expense"
	if isIncome {
		kind = "income"
	}
	ref := strings.TrimSpace(inv.InvoiceNumber)
	if ref == "" {
		return fmt.Sprintf("%s row %d: %s", kind, inv.RowNumber, msg)
	}
	return fmt.Sprintf("%s row %d (%s): %s", kind, inv.RowNumber, ref, msg)
}
