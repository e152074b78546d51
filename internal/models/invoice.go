package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

const (
	InvoiceStatusOpen    = "open"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
)

// Invoice is one income or expense record. PaidGross is tax-inclusive; the
// paid net amount is always derived from it and VatRate.
type Invoice struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Direction        Direction `gorm:"index"`
	RowNumber        int       `gorm:"index"`
	InvoiceNumber    string    `gorm:"index"`
	Counterparty     string
	InvoiceDate      time.Time
	Category         string
	NetAmount        decimal.Decimal `gorm:"type:numeric(14,2)"`
	VatRate          decimal.Decimal `gorm:"type:numeric(5,2)"`
	GrossAmount      decimal.Decimal `gorm:"type:numeric(14,2)"`
	PaidGross        decimal.Decimal `gorm:"type:numeric(14,2)"`
	PaymentDate      *time.Time
	Status           string `gorm:"index"`
	PaymentMethod    string
	RemainingBalance decimal.Decimal `gorm:"type:numeric(14,2)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (i *Invoice) IsIncome() bool {
	return i.Direction == DirectionIncome
}
