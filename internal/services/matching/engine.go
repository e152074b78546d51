// Package matching scores how well a bank movement fits an invoice.
package matching

import (
	"math"
	"strings"
	"time"
	"unicode"

	"bookkeeping-backend/internal/models"

	"github.com/shopspring/decimal"
)

const (
	AmountScore    = 5
	ReferenceScore = 4
	DateScore      = 1
	MaxScore       = AmountScore + ReferenceScore + DateScore
)

type Config struct {
	AmountTolerance decimal.Decimal
	DateWindowDays  int
}

func DefaultConfig() Config {
	return Config{
		AmountTolerance: decimal.RequireFromString("0.01"),
		DateWindowDays:  30,
	}
}

// Breakdown explains a score.
type Breakdown struct {
	AmountMatch    bool    `json:"amount_match"`
	ReferenceMatch bool    `json:"reference_match"`
	DateMatch      bool    `json:"date_match"`
	DaysApart      float64 `json:"days_apart"`
	Score          int     `json:"score"`
}

// Score returns 0 when the absolute amounts differ by more than the
// tolerance, otherwise a value between AmountScore and MaxScore.
func (c Config) Score(mv *models.BankMovement, inv *models.Invoice) int {
	return c.Explain(mv, inv).Score
}

func (c Config) Explain(mv *models.BankMovement, inv *models.Invoice) Breakdown {
	var b Breakdown

	diff := mv.Amount.Abs().Sub(inv.GrossAmount.Abs()).Abs()
	if diff.GreaterThan(c.AmountTolerance) {
		return b
	}
	b.AmountMatch = true
	b.Score = AmountScore

	if ref := normalizeRef(inv.InvoiceNumber); ref != "" && strings.Contains(normalizeRef(mv.BookingText), ref) {
		b.ReferenceMatch = true
		b.Score += ReferenceScore
	}

	if !mv.BookingDate.IsZero() && !inv.InvoiceDate.IsZero() {
		b.DaysApart = daysBetween(mv.BookingDate, inv.InvoiceDate)
		if b.DaysApart <= float64(c.DateWindowDays) {
			b.DateMatch = true
			b.Score += DateScore
		}
	}

	return b
}

// Score uses DefaultConfig.
func Score(mv *models.BankMovement, inv *models.Invoice) int {
	return DefaultConfig().Score(mv, inv)
}

// normalizeRef drops whitespace and hyphens and folds case, so
// "RE-2024 001" and "re2024001" compare equal.
func normalizeRef(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func daysBetween(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24)
}
