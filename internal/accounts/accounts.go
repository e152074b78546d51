// Package accounts maps free-text bookkeeping categories to BWA buckets and
// to SKR03 booking accounts. All tables are fixed at compile time.
package accounts

import (
	"fmt"
	"strings"

	"bookkeeping-backend/internal/models"
)

// BankAccount is the SKR03 account of the business bank account.
const BankAccount = "1200"

var incomeBuckets = map[string]models.BucketKey{
	"Umsatzerlöse":       models.BucketRevenue,
	"Erlöse 19%":         models.BucketRevenue,
	"Erlöse 7%":          models.BucketRevenue,
	"Warenverkauf":       models.BucketRevenue,
	"Dienstleistungen":   models.BucketServices,
	"Beratung":           models.BucketServices,
	"Provisionen":        models.BucketCommissions,
	"Zinserträge":        models.BucketInterestIncome,
	"Sonstige Einnahmen": models.BucketOtherIncome,
	"Sonstige Erträge":   models.BucketOtherIncome,
}

var expenseBuckets = map[string]models.BucketKey{
	"Wareneinkauf":       models.BucketPurchases,
	"Material":           models.BucketPurchases,
	"Fremdleistungen":    models.BucketExternalServices,
	"Löhne und Gehälter": models.BucketPersonnel,
	"Personalkosten":     models.BucketPersonnel,
	"Miete":              models.BucketRent,
	"Raumkosten":         models.BucketRent,
	"Kfz-Kosten":         models.BucketVehicle,
	"Reisekosten":        models.BucketTravel,
	"Werbekosten":        models.BucketMarketing,
	"Marketing":          models.BucketMarketing,
	"Versicherungen":     models.BucketInsurance,
	"Abschreibungen":     models.BucketDepreciation,
	"Zinsaufwand":        models.BucketInterestExpense,
	"Bürobedarf":         models.BucketOperatingCosts,
	"Telefon/Internet":   models.BucketOperatingCosts,
	"Betriebskosten":     models.BucketOperatingCosts,
	"Sonstige Ausgaben":  models.BucketOperatingCosts,
}

// revenueAccounts are the SKR03 credit accounts of income categories.
var revenueAccounts = map[string]string{
	"Umsatzerlöse":       "8400",
	"Erlöse 19%":         "8400",
	"Erlöse 7%":          "8300",
	"Warenverkauf":       "8400",
	"Dienstleistungen":   "8400",
	"Beratung":           "8400",
	"Provisionen":        "8510",
	"Zinserträge":        "2650",
	"Sonstige Einnahmen": "2700",
	"Sonstige Erträge":   "2700",
}

// costAccounts are the SKR03 debit accounts of expense categories.
var costAccounts = map[string]string{
	"Wareneinkauf":       "3400",
	"Material":           "3400",
	"Fremdleistungen":    "3100",
	"Löhne und Gehälter": "4120",
	"Personalkosten":     "4120",
	"Miete":              "4210",
	"Raumkosten":         "4210",
	"Kfz-Kosten":         "4530",
	"Reisekosten":        "4670",
	"Werbekosten":        "4600",
	"Marketing":          "4600",
	"Versicherungen":     "4360",
	"Abschreibungen":     "4830",
	"Zinsaufwand":        "2100",
	"Bürobedarf":         "4930",
	"Telefon/Internet":   "4920",
	"Betriebskosten":     "4900",
	"Sonstige Ausgaben":  "4900",
}

const (
	fallbackRevenueAccount = "2700"
	fallbackCostAccount    = "4900"
)

// ResolveCategory returns the bucket for a raw category. Unknown or empty
// categories fall back to other income or operating costs, and a line naming
// the row is appended to diagnostics.
func ResolveCategory(raw string, isIncome bool, row int, diagnostics *[]string) models.BucketKey {
	table, fallback := expenseBuckets, models.BucketOperatingCosts
	if isIncome {
		table, fallback = incomeBuckets, models.BucketOtherIncome
	}

	category := strings.TrimSpace(raw)
	if key, ok := table[category]; ok && category != "" {
		return key
	}

	if diagnostics != nil {
		*diagnostics = append(*diagnostics, fmt.Sprintf("row %d: unknown category %q", row, raw))
	}
	return fallback
}

// AccountsFor returns the debit/credit account pair booked for a category.
// Income is booked bank to revenue, expenses cost to bank.
func AccountsFor(category string, isIncome bool) (debit, credit string) {
	category = strings.TrimSpace(category)
	if isIncome {
		credit, ok := revenueAccounts[category]
		if !ok {
			credit = fallbackRevenueAccount
		}
		return BankAccount, credit
	}

	debit, ok := costAccounts[category]
	if !ok {
		debit = fallbackCostAccount
	}
	return debit, BankAccount
}
