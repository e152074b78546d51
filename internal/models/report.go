package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BucketKey names one category field of a Bucket.
type BucketKey string

const (
	BucketRevenue        BucketKey = "revenue"
	BucketServices       BucketKey = "services"
	BucketCommissions    BucketKey = "commissions"
	BucketInterestIncome BucketKey = "interestIncome"
	BucketOtherIncome    BucketKey = "otherIncome"

	BucketPurchases        BucketKey = "purchases"
	BucketExternalServices BucketKey = "externalServices"
	BucketPersonnel        BucketKey = "personnel"
	BucketRent             BucketKey = "rent"
	BucketVehicle          BucketKey = "vehicle"
	BucketTravel           BucketKey = "travel"
	BucketMarketing        BucketKey = "marketing"
	BucketInsurance        BucketKey = "insurance"
	BucketDepreciation     BucketKey = "depreciation"
	BucketInterestExpense  BucketKey = "interestExpense"
	BucketOperatingCosts   BucketKey = "operatingCosts"
)

// Bucket holds the figures of one BWA period. The zero value is a valid,
// zero-filled bucket.
type Bucket struct {
	Revenue        decimal.Decimal `gorm:"type:numeric(14,2)" json:"revenue"`
	Services       decimal.Decimal `gorm:"type:numeric(14,2)" json:"services"`
	Commissions    decimal.Decimal `gorm:"type:numeric(14,2)" json:"commissions"`
	InterestIncome decimal.Decimal `gorm:"type:numeric(14,2)" json:"interest_income"`
	OtherIncome    decimal.Decimal `gorm:"type:numeric(14,2)" json:"other_income"`
	TotalIncome    decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_income"`

	Purchases        decimal.Decimal `gorm:"type:numeric(14,2)" json:"purchases"`
	ExternalServices decimal.Decimal `gorm:"type:numeric(14,2)" json:"external_services"`
	Personnel        decimal.Decimal `gorm:"type:numeric(14,2)" json:"personnel"`
	Rent             decimal.Decimal `gorm:"type:numeric(14,2)" json:"rent"`
	Vehicle          decimal.Decimal `gorm:"type:numeric(14,2)" json:"vehicle"`
	Travel           decimal.Decimal `gorm:"type:numeric(14,2)" json:"travel"`
	Marketing        decimal.Decimal `gorm:"type:numeric(14,2)" json:"marketing"`
	Insurance        decimal.Decimal `gorm:"type:numeric(14,2)" json:"insurance"`
	Depreciation     decimal.Decimal `gorm:"type:numeric(14,2)" json:"depreciation"`
	InterestExpense  decimal.Decimal `gorm:"type:numeric(14,2)" json:"interest_expense"`
	OperatingCosts   decimal.Decimal `gorm:"type:numeric(14,2)" json:"operating_costs"`
	TotalExpense     decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_expense"`

	OpenReceivables decimal.Decimal `gorm:"type:numeric(14,2)" json:"open_receivables"`
	OpenPayables    decimal.Decimal `gorm:"type:numeric(14,2)" json:"open_payables"`

	GrossMargin     decimal.Decimal `gorm:"type:numeric(14,2)" json:"gross_margin"`
	OperatingResult decimal.Decimal `gorm:"type:numeric(14,2)" json:"operating_result"`
	ResultBeforeTax decimal.Decimal `gorm:"type:numeric(14,2)" json:"result_before_tax"`
	ResultAfterTax  decimal.Decimal `gorm:"type:numeric(14,2)" json:"result_after_tax"`

	Liquidity decimal.Decimal `gorm:"type:numeric(14,2)" json:"liquidity"`
}

// Field returns the category field addressed by key, or nil for an unknown key.
func (b *Bucket) Field(key BucketKey) *decimal.Decimal {
	switch key {
	case BucketRevenue:
		return &b.Revenue
	case BucketServices:
		return &b.Services
	case BucketCommissions:
		return &b.Commissions
	case BucketInterestIncome:
		return &b.InterestIncome
	case BucketOtherIncome:
		return &b.OtherIncome
	case BucketPurchases:
		return &b.Purchases
	case BucketExternalServices:
		return &b.ExternalServices
	case BucketPersonnel:
		return &b.Personnel
	case BucketRent:
		return &b.Rent
	case BucketVehicle:
		return &b.Vehicle
	case BucketTravel:
		return &b.Travel
	case BucketMarketing:
		return &b.Marketing
	case BucketInsurance:
		return &b.Insurance
	case BucketDepreciation:
		return &b.Depreciation
	case BucketInterestExpense:
		return &b.InterestExpense
	case BucketOperatingCosts:
		return &b.OperatingCosts
	}
	return nil
}

// sums lists every summable field. Liquidity is a snapshot and is left out.
func (b *Bucket) sums() []*decimal.Decimal {
	return []*decimal.Decimal{
		&b.Revenue, &b.Services, &b.Commissions, &b.InterestIncome, &b.OtherIncome, &b.TotalIncome,
		&b.Purchases, &b.ExternalServices, &b.Personnel, &b.Rent, &b.Vehicle, &b.Travel,
		&b.Marketing, &b.Insurance, &b.Depreciation, &b.InterestExpense, &b.OperatingCosts, &b.TotalExpense,
		&b.OpenReceivables, &b.OpenPayables,
		&b.GrossMargin, &b.OperatingResult, &b.ResultBeforeTax, &b.ResultAfterTax,
	}
}

// AddSums adds every field of o except Liquidity to b.
func (b *Bucket) AddSums(o *Bucket) {
	dst, src := b.sums(), o.sums()
	for i := range dst {
		*dst[i] = dst[i].Add(*src[i])
	}
}

type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
)

// ReportRow is one emitted BWA line. Ordinal keeps the interleaved
// month/quarter/year order.
type ReportRow struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Ordinal     int        `gorm:"index" json:"ordinal"`
	Year        int        `json:"year,omitempty"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodIndex int        `json:"period_index"`
	Label       string     `json:"label"`
	Bucket      `gorm:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
}
