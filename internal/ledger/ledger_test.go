package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfm/internal/core"
)

type fakeLedgerStore struct {
	budgets  []core.Budget
	expenses []core.Expense
	incomes  []core.Income
	err      error
}

func (s *fakeLedgerStore) FindBudgetsByUser(_ context.Context, userID int64) ([]core.Budget, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) SpentPerCategory(_ context.Context, userID int64, period core.Period) (map[core.Category]core.Money, error) {
	if s.err != nil {
		return nil, s.err
	}
	totals := make(map[core.Category]core.Money)
	for _, e := range s.expenses {
		if e.UserID == userID && period.Contains(e.Date) {
			totals[e.Category] = totals[e.Category].Add(e.Amount)
		}
	}
	return totals, nil
}

func (s *fakeLedgerStore) SpentForCategory(ctx context.Context, userID int64, category core.Category, period core.Period) (core.Money, error) {
	totals, err := s.SpentPerCategory(ctx, userID, period)
	if err != nil {
		return core.Money{}, err
	}
	return totals[category], nil
}

func (s *fakeLedgerStore) SumExpensesForMonth(_ context.Context, userID int64, period core.Period) (core.Money, error) {
	if s.err != nil {
		return core.Money{}, s.err
	}
	var total core.Money
	for _, e := range s.expenses {
		if e.UserID == userID && period.Contains(e.Date) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *fakeLedgerStore) SumIncomeForMonth(_ context.Context, userID int64, period core.Period) (core.Money, error) {
	if s.err != nil {
		return core.Money{}, s.err
	}
	var total core.Money
	for _, i := range s.incomes {
		if i.UserID == userID && period.Contains(i.Date) {
			total = total.Add(i.Amount)
		}
	}
	return total, nil
}

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeSummaryOverBudget(t *testing.T) {
	store := &fakeLedgerStore{
		budgets: []core.Budget{
			{ID: 1, UserID: 1, Category: core.Groceries, Limit: core.Money{Cents: 10000}, Period: core.PeriodOf(testNow)},
		},
		expenses: []core.Expense{
			{UserID: 1, Category: core.Groceries, Amount: core.Money{Cents: 12000}, Date: day(10)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	summaries, err := ledger.ComputeSummary(context.Background(), 1, core.Period{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, core.Groceries, s.Category)
	assert.Equal(t, int64(12000), s.Spent.Cents)
	assert.Equal(t, int64(-2000), s.Remaining.Cents)
	assert.Equal(t, int64(2000), s.OverAmount.Cents)
}

func TestComputeSummaryUnderBudget(t *testing.T) {
	store := &fakeLedgerStore{
		budgets: []core.Budget{
			{ID: 1, UserID: 1, Category: core.Groceries, Limit: core.Money{Cents: 10000}, Period: core.PeriodOf(testNow)},
		},
		expenses: []core.Expense{
			{UserID: 1, Category: core.Groceries, Amount: core.Money{Cents: 8000}, Date: day(10)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	summaries, err := ledger.ComputeSummary(context.Background(), 1, core.Period{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, int64(8000), s.Spent.Cents)
	assert.Equal(t, int64(2000), s.Remaining.Cents)
	assert.Equal(t, int64(0), s.OverAmount.Cents)
}

func TestComputeSummaryNoBudgets(t *testing.T) {
	store := &fakeLedgerStore{
		expenses: []core.Expense{
			{UserID: 1, Category: core.Travel, Amount: core.Money{Cents: 5000}, Date: day(3)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	summaries, err := ledger.ComputeSummary(context.Background(), 1, core.Period{})
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.NotNil(t, summaries)
}

func TestComputeSummaryIgnoresOtherMonthsAndUsers(t *testing.T) {
	store := &fakeLedgerStore{
		budgets: []core.Budget{
			{ID: 1, UserID: 1, Category: core.Groceries, Limit: core.Money{Cents: 10000}, Period: core.PeriodOf(testNow)},
		},
		expenses: []core.Expense{
			{UserID: 1, Category: core.Groceries, Amount: core.Money{Cents: 3000}, Date: day(5)},
			{UserID: 1, Category: core.Groceries, Amount: core.Money{Cents: 9999}, Date: time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)},
			{UserID: 2, Category: core.Groceries, Amount: core.Money{Cents: 7777}, Date: day(5)},
			{UserID: 1, Category: core.Travel, Amount: core.Money{Cents: 4000}, Date: day(6)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	summaries, err := ledger.ComputeSummary(context.Background(), 1, core.Period{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(3000), summaries[0].Spent.Cents)
}

func TestComputeSummaryDuplicateBudgetsShareSpend(t *testing.T) {
	store := &fakeLedgerStore{
		budgets: []core.Budget{
			{ID: 1, UserID: 1, Category: core.Hobbies, Limit: core.Money{Cents: 5000}, Period: core.PeriodOf(testNow)},
			{ID: 2, UserID: 1, Category: core.Hobbies, Limit: core.Money{Cents: 20000}, Period: core.PeriodOf(testNow)},
		},
		expenses: []core.Expense{
			{UserID: 1, Category: core.Hobbies, Amount: core.Money{Cents: 6000}, Date: day(12)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	summaries, err := ledger.ComputeSummary(context.Background(), 1, core.Period{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for _, s := range summaries {
		assert.Equal(t, int64(6000), s.Spent.Cents, "spend is category-wide")
	}
}

func TestComputeSummaryExplicitPeriod(t *testing.T) {
	july := core.Period{Year: 2026, Month: time.July}
	store := &fakeLedgerStore{
		budgets: []core.Budget{
			{ID: 1, UserID: 1, Category: core.Utilities, Limit: core.Money{Cents: 15000}, Period: july},
		},
		expenses: []core.Expense{
			{UserID: 1, Category: core.Utilities, Amount: core.Money{Cents: 11000}, Date: time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)},
			{UserID: 1, Category: core.Utilities, Amount: core.Money{Cents: 99999}, Date: day(20)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	summaries, err := ledger.ComputeSummary(context.Background(), 1, july)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(11000), summaries[0].Spent.Cents)
}

func TestStoreFaultSurfaces(t *testing.T) {
	store := &fakeLedgerStore{
		err: fmt.Errorf("query budgets: %w", core.ErrStoreUnavailable),
	}
	ledger := NewLedger(store, fixedNow)

	_, err := ledger.ComputeSummary(context.Background(), 1, core.Period{})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestMonthTotals(t *testing.T) {
	store := &fakeLedgerStore{
		expenses: []core.Expense{
			{UserID: 1, Category: core.Groceries, Amount: core.Money{Cents: 40000}, Date: day(2)},
		},
		incomes: []core.Income{
			{UserID: 1, Source: "Salary", Amount: core.Money{Cents: 250000}, Date: day(1)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	totals, err := ledger.MonthTotals(context.Background(), 1, core.Period{})
	require.NoError(t, err)
	assert.Equal(t, int64(250000), totals.Income.Cents)
	assert.Equal(t, int64(40000), totals.Expense.Cents)
	assert.Equal(t, int64(210000), totals.Net.Cents)
	assert.Equal(t, core.PeriodOf(testNow), totals.Period)
}

func TestTotalSpentForCategory(t *testing.T) {
	store := &fakeLedgerStore{
		expenses: []core.Expense{
			{UserID: 1, Category: core.Shopping, Amount: core.Money{Cents: 2500}, Date: day(4)},
			{UserID: 1, Category: core.Shopping, Amount: core.Money{Cents: 1500}, Date: day(8)},
			{UserID: 1, Category: core.Travel, Amount: core.Money{Cents: 9000}, Date: day(8)},
		},
	}
	ledger := NewLedger(store, fixedNow)

	total, err := ledger.TotalSpentForCategory(context.Background(), 1, core.Shopping)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), total.Cents)

	perCategory, err := ledger.TotalSpentPerCategory(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), perCategory[core.Shopping].Cents)
	assert.Equal(t, int64(9000), perCategory[core.Travel].Cents)
}
