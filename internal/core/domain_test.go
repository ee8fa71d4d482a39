package core

import (
	"errors"
	"testing"
	"time"
)

func TestCategoryValidate(t *testing.T) {
	for _, c := range Categories() {
		if err := c.Validate(); err != nil {
			t.Fatalf("%s expected valid, got %v", c, err)
		}
	}
	for _, bad := range []Category{"", "groceries", "Rent"} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%q expected ErrInvalidCategory, got %v", bad, err)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		UserID:   1,
		Amount:   Money{Cents: 100},
		Category: Groceries,
		Date:     time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{UserID: 1, Amount: Money{Cents: 0}, Category: Groceries, Date: good.Date},
		{UserID: 1, Amount: Money{Cents: 100}, Category: "Rent", Date: good.Date},
		{UserID: 1, Amount: Money{Cents: 100}, Category: Groceries},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestIncomeValidate(t *testing.T) {
	good := Income{
		UserID: 1,
		Amount: Money{Cents: 250000},
		Source: "Salary",
		Date:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Income{UserID: 1, Amount: Money{Cents: 1}, Source: "  ", Date: good.Date}).Validate(); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{
		UserID:   1,
		Category: Travel,
		Limit:    Money{Cents: 50000},
		Period:   Period{Year: 2026, Month: time.August},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Budget{UserID: 1, Category: Travel, Limit: Money{Cents: -1}, Period: good.Period}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPeriod(t *testing.T) {
	p := Period{Year: 2026, Month: time.February}
	if !p.Contains(time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)) {
		t.Fatal("expected date inside period")
	}
	if p.Contains(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected date outside period")
	}
	if got := p.Start(); got != time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected period start %v", got)
	}
	if got := p.String(); got != "2026-02" {
		t.Fatalf("unexpected period string %q", got)
	}
	if !(Period{}).IsZero() {
		t.Fatal("zero period should report IsZero")
	}
}

func TestSummarize(t *testing.T) {
	budget := Budget{ID: 7, Category: Groceries, Limit: Money{Cents: 10000}}

	over := Summarize(budget, Money{Cents: 12000})
	if over.Remaining.Cents != -2000 || over.OverAmount.Cents != 2000 {
		t.Fatalf("over budget: remaining=%d over=%d", over.Remaining.Cents, over.OverAmount.Cents)
	}

	under := Summarize(budget, Money{Cents: 8000})
	if under.Remaining.Cents != 2000 || under.OverAmount.Cents != 0 {
		t.Fatalf("under budget: remaining=%d over=%d", under.Remaining.Cents, under.OverAmount.Cents)
	}

	exact := Summarize(budget, Money{Cents: 10000})
	if exact.Remaining.Cents != 0 || exact.OverAmount.Cents != 0 {
		t.Fatalf("exact budget: remaining=%d over=%d", exact.Remaining.Cents, exact.OverAmount.Cents)
	}
}
