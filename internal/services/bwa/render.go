package bwa

import (
	"encoding/csv"
	"io"
	"strconv"

	"bookkeeping-backend/internal/models"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"Periode", "Typ",
	"Umsatzerlöse", "Dienstleistungen", "Provisionen", "Zinserträge", "Sonstige Einnahmen", "Gesamteinnahmen",
	"Wareneinkauf", "Fremdleistungen", "Personalkosten", "Raumkosten", "Kfz-Kosten", "Reisekosten",
	"Werbekosten", "Versicherungen", "Abschreibungen", "Zinsaufwand", "Betriebskosten", "Gesamtausgaben",
	"Offene Forderungen", "Offene Verbindlichkeiten",
	"Rohertrag", "Betriebsergebnis", "Ergebnis vor Steuern", "Ergebnis nach Steuern",
	"Liquidität",
}

// WriteCSV renders report rows as semicolon separated values with decimal
// commas.
func WriteCSV(w io.Writer, rows []models.ReportRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		b := r.Bucket
		record := []string{r.Label, string(r.PeriodType)}
		for _, v := range []decimal.Decimal{
			b.Revenue, b.Services, b.Commissions, b.InterestIncome, b.OtherIncome, b.TotalIncome,
			b.Purchases, b.ExternalServices, b.Personnel, b.Rent, b.Vehicle, b.Travel,
			b.Marketing, b.Insurance, b.Depreciation, b.InterestExpense, b.OperatingCosts, b.TotalExpense,
			b.OpenReceivables, b.OpenPayables,
			b.GrossMargin, b.OperatingResult, b.ResultBeforeTax, b.ResultAfterTax,
			b.Liquidity,
		} {
			record = append(record, formatAmount(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i] + "," + s[i+1:]
		}
	}
	return s
}

func archiveName(year int, stamp string) string {
	period := "all"
	if year != 0 {
		period = strconv.Itoa(year)
	}
	return "bwa/" + period + "-" + stamp + ".csv"
}
