package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BankMovement is one booking on the business account. The sign of Amount
// tells incoming (positive) from outgoing (negative) money. Balance is the
// account balance after the booking and feeds the liquidity snapshot.
type BankMovement struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	RowNumber        int       `gorm:"index"`
	BookingDate      time.Time `gorm:"column:booking_date"`
	BookingText      string
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);index"`
	Balance          decimal.Decimal `gorm:"type:numeric(14,2)"`
	Consumed         bool            `gorm:"index"`
	LinkedInvoiceRef *string
	Category         string
	DebitAccount     string
	CreditAccount    string
	MatchScore       int
	MatchDetails     datatypes.JSON
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
