package reconciliation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"bookkeeping-backend/internal/logger"
	"bookkeeping-backend/internal/models"
	"bookkeeping-backend/internal/repository"
	"bookkeeping-backend/internal/services/matching"
	"bookkeeping-backend/internal/testdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func date(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*ReconciliationService, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t)
	svc := NewReconciliationService(
		db,
		repository.NewInvoiceRepository(db),
		repository.NewBankMovementRepository(db),
		repository.NewRunRepository(db),
		logger.Nop(),
	)
	return svc, db
}

func addInvoice(t *testing.T, db *gorm.DB, dir models.Direction, row int, ref, gross string, invDate time.Time) uuid.UUID {
	t.Helper()
	inv := models.Invoice{
		ID:               uuid.New(),
		Direction:        dir,
		RowNumber:        row,
		InvoiceNumber:    ref,
		InvoiceDate:      invDate,
		Category:         "Dienstleistungen",
		GrossAmount:      dec(gross),
		RemainingBalance: dec(gross),
		Status:           models.InvoiceStatusOpen,
	}
	if dir == models.DirectionExpense {
		inv.Category = "Miete"
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv.ID
}

func addMovement(t *testing.T, db *gorm.DB, row int, amount, text string, booked time.Time) uuid.UUID {
	t.Helper()
	mv := models.BankMovement{
		ID:          uuid.New(),
		RowNumber:   row,
		Amount:      dec(amount),
		BookingText: text,
		BookingDate: booked,
	}
	if err := db.Create(&mv).Error; err != nil {
		t.Fatalf("create movement: %v", err)
	}
	return mv.ID
}

func loadInvoice(t *testing.T, db *gorm.DB, id uuid.UUID) models.Invoice {
	t.Helper()
	var inv models.Invoice
	if err := db.First(&inv, "id = ?", id).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	return inv
}

func loadMovement(t *testing.T, db *gorm.DB, id uuid.UUID) models.BankMovement {
	t.Helper()
	var mv models.BankMovement
	if err := db.First(&mv, "id = ?", id).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	return mv
}

func TestRun_MatchesByReference(t *testing.T) {
	svc, db := newTestService(t)
	invID := addInvoice(t, db, models.DirectionIncome, 1, "RE-2024-001", "1190", date(time.March, 10))
	mvID := addMovement(t, db, 1, "1190", "RE-2024-001 payment", date(time.March, 12))

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.MatchedIncome != 1 || stats.Unassigned != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	inv := loadInvoice(t, db, invID)
	if inv.Status != models.InvoiceStatusPaid || inv.PaymentMethod != PaymentMethodBankTransfer {
		t.Errorf("invoice not settled: %+v", inv)
	}
	if inv.PaymentDate == nil || !inv.PaymentDate.Equal(date(time.March, 12)) {
		t.Errorf("payment date = %v", inv.PaymentDate)
	}
	if !inv.PaidGross.Equal(dec("1190")) || !inv.RemainingBalance.IsZero() {
		t.Errorf("paid %s remaining %s", inv.PaidGross, inv.RemainingBalance)
	}

	mv := loadMovement(t, db, mvID)
	if !mv.Consumed || mv.LinkedInvoiceRef == nil || *mv.LinkedInvoiceRef != "RE-2024-001" {
		t.Fatalf("movement not consumed: %+v", mv)
	}
	if mv.Category != "Dienstleistungen" || mv.DebitAccount != "1200" || mv.CreditAccount != "8400" {
		t.Errorf("category/accounts = %s %s/%s", mv.Category, mv.DebitAccount, mv.CreditAccount)
	}
	if mv.MatchScore != matching.MaxScore {
		t.Errorf("score = %d, want %d", mv.MatchScore, matching.MaxScore)
	}
	var details map[string]interface{}
	if err := json.Unmarshal(mv.MatchDetails, &details); err != nil || details["reference_match"] != true {
		t.Errorf("match details = %s (%v)", mv.MatchDetails, err)
	}

	run, logs, err := svc.GetRun(context.Background(), stats.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != models.RunStatusCompleted || run.MatchedIncomeCount != 1 {
		t.Errorf("run = %+v", run)
	}
	if len(logs) != 1 || logs[0].InvoiceID != invID || logs[0].Action != ActionAutoMatch {
		t.Errorf("audit logs = %+v", logs)
	}
}

func TestRun_DirectionFollowsSign(t *testing.T) {
	svc, db := newTestService(t)
	incomeID := addInvoice(t, db, models.DirectionIncome, 1, "A-1", "500", date(time.May, 1))
	expenseID := addInvoice(t, db, models.DirectionExpense, 1, "B-1", "500", date(time.May, 1))
	mvID := addMovement(t, db, 1, "-500", "Miete Mai", date(time.May, 2))

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.MatchedExpense != 1 || stats.MatchedIncome != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if loadInvoice(t, db, incomeID).Status == models.InvoiceStatusPaid {
		t.Error("income invoice must not be touched by an outgoing payment")
	}
	if loadInvoice(t, db, expenseID).Status != models.InvoiceStatusPaid {
		t.Error("expense invoice not settled")
	}
	mv := loadMovement(t, db, mvID)
	if mv.DebitAccount != "4210" || mv.CreditAccount != "1200" {
		t.Errorf("accounts = %s/%s", mv.DebitAccount, mv.CreditAccount)
	}
}

func TestRun_TieGoesToFirstSeen(t *testing.T) {
	svc, db := newTestService(t)
	first := addInvoice(t, db, models.DirectionIncome, 1, "X-1", "100", date(time.January, 1))
	second := addInvoice(t, db, models.DirectionIncome, 2, "X-2", "100", date(time.January, 1))
	addMovement(t, db, 1, "100", "Gutschrift", date(time.January, 5))

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loadInvoice(t, db, first).Status != models.InvoiceStatusPaid {
		t.Error("first invoice should win the tie")
	}
	if loadInvoice(t, db, second).Status == models.InvoiceStatusPaid {
		t.Error("second invoice should stay open")
	}
}

func TestRun_HigherScoreWins(t *testing.T) {
	svc, db := newTestService(t)
	plain := addInvoice(t, db, models.DirectionIncome, 1, "X-1", "100", date(time.January, 1))
	referenced := addInvoice(t, db, models.DirectionIncome, 2, "X-2", "100", date(time.January, 1))
	addMovement(t, db, 1, "100", "Zahlung X-2", date(time.January, 5))

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loadInvoice(t, db, referenced).Status != models.InvoiceStatusPaid {
		t.Error("referenced invoice should win")
	}
	if loadInvoice(t, db, plain).Status == models.InvoiceStatusPaid {
		t.Error("plain invoice should stay open")
	}
}

func TestRun_InvoiceSettledOnlyOnce(t *testing.T) {
	svc, db := newTestService(t)
	addInvoice(t, db, models.DirectionIncome, 1, "X-1", "100", date(time.January, 1))
	addMovement(t, db, 1, "100", "", date(time.January, 5))
	second := addMovement(t, db, 2, "100", "", date(time.January, 6))

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.MatchedIncome != 1 || stats.Unassigned != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if loadMovement(t, db, second).Consumed {
		t.Error("second movement must stay unconsumed")
	}
}

func TestRun_SecondPassSkipsConsumed(t *testing.T) {
	svc, db := newTestService(t)
	invID := addInvoice(t, db, models.DirectionIncome, 1, "RE-1", "250", date(time.June, 1))
	addInvoice(t, db, models.DirectionIncome, 2, "RE-2", "250", date(time.June, 1))
	mvID := addMovement(t, db, 1, "250", "RE-1", date(time.June, 3))

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.AlreadyConsumed != 1 || stats.MatchedIncome != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	mv := loadMovement(t, db, mvID)
	if !mv.Consumed || *mv.LinkedInvoiceRef != "RE-1" {
		t.Errorf("movement changed on second pass: %+v", mv)
	}
	if loadInvoice(t, db, invID).Status != models.InvoiceStatusPaid {
		t.Error("invoice lost its paid status")
	}
}

func TestRun_Unassigned(t *testing.T) {
	svc, db := newTestService(t)
	paidID := addInvoice(t, db, models.DirectionIncome, 1, "P-1", "80", date(time.July, 1))
	if err := db.Model(&models.Invoice{}).Where("id = ?", paidID).Update("status", models.InvoiceStatusPaid).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	addInvoice(t, db, models.DirectionIncome, 2, "O-1", "90", date(time.July, 1))

	addMovement(t, db, 1, "80", "P-1", date(time.July, 2))
	addMovement(t, db, 2, "42", "O-1", date(time.July, 2))
	addMovement(t, db, 3, "0", "Kontoabschluss", date(time.July, 31))

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Unassigned != 3 || stats.MatchedIncome != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRun_Threshold(t *testing.T) {
	svc, db := newTestService(t)
	svc.WithScoring(matching.DefaultConfig(), 9)
	addInvoice(t, db, models.DirectionIncome, 1, "RE-9", "300", date(time.January, 1))
	addMovement(t, db, 1, "300", "ohne Referenz", date(time.January, 2))

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Unassigned != 1 {
		t.Fatalf("amount and date alone should not clear 9, got %+v", stats)
	}
}

func TestRun_FailureIsIsolatedAndRolledBack(t *testing.T) {
	svc, db := newTestService(t)
	firstInv := addInvoice(t, db, models.DirectionIncome, 1, "F-1", "10", date(time.March, 1))
	secondInv := addInvoice(t, db, models.DirectionIncome, 2, "F-2", "20", date(time.March, 1))
	firstMv := addMovement(t, db, 1, "10", "F-1", date(time.March, 2))
	addMovement(t, db, 2, "20", "F-2", date(time.March, 2))

	failed := false
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_once", func(tx *gorm.DB) {
		if !failed && tx.Statement.Schema != nil && tx.Statement.Schema.Table == "bank_movements" {
			failed = true
			tx.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 1 || stats.Unassigned != 1 || stats.MatchedIncome != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if loadInvoice(t, db, firstInv).Status == models.InvoiceStatusPaid {
		t.Error("invoice update must be rolled back with the failed movement update")
	}
	if loadMovement(t, db, firstMv).Consumed {
		t.Error("failed movement must stay unconsumed")
	}
	if loadInvoice(t, db, secondInv).Status != models.InvoiceStatusPaid {
		t.Error("later movements must still be processed")
	}
}

func TestRun_MissingStore(t *testing.T) {
	svc, db := newTestService(t)
	if err := db.Migrator().DropTable(&models.MatchAuditLog{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := svc.Run(context.Background()); !errors.Is(err, repository.ErrStoreMissing) {
		t.Fatalf("expected ErrStoreMissing, got %v", err)
	}
}

func TestManualMatch(t *testing.T) {
	svc, db := newTestService(t)
	incomeID := addInvoice(t, db, models.DirectionIncome, 1, "M-1", "75", date(time.April, 1))
	expenseID := addInvoice(t, db, models.DirectionExpense, 1, "M-2", "75", date(time.April, 1))
	mvID := addMovement(t, db, 1, "70", "Teilzahlung", date(time.April, 20))

	if _, err := svc.ManualMatch(context.Background(), mvID, expenseID); !errors.Is(err, ErrDirectionMismatch) {
		t.Fatalf("expected ErrDirectionMismatch, got %v", err)
	}

	mv, err := svc.ManualMatch(context.Background(), mvID, incomeID)
	if err != nil {
		t.Fatalf("ManualMatch: %v", err)
	}
	if !mv.Consumed || *mv.LinkedInvoiceRef != "M-1" {
		t.Errorf("movement = %+v", mv)
	}
	if loadInvoice(t, db, incomeID).Status != models.InvoiceStatusPaid {
		t.Error("invoice not settled")
	}

	if _, err := svc.ManualMatch(context.Background(), mvID, incomeID); !errors.Is(err, ErrAlreadyConsumed) {
		t.Fatalf("expected ErrAlreadyConsumed, got %v", err)
	}
}

func TestRun_LogsThroughContextLogger(t *testing.T) {
	svc, db := newTestService(t)
	addInvoice(t, db, models.DirectionIncome, 1, "RE-9", "50.00", date(time.March, 1))
	addMovement(t, db, 1, "50.00", "RE-9", date(time.March, 2))

	buf := &bytes.Buffer{}
	reqLog := logger.NewWithWriter(buf).With().Str("request_id", "req-7").Logger()
	ctx := logger.WithContext(context.Background(), reqLog)

	stats, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"request_id":"req-7"`,
		`"component":"reconciliation"`,
		`"run_id":"` + stats.RunID.String() + `"`,
		`"matched_income":1`,
		"reconciliation finished",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output misses %s: %s", want, out)
		}
	}
}
