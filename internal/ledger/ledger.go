// Package ledger derives budget-versus-spend figures from the record store.
// All computations are pure reads over one user's records; nothing here holds
// state, so concurrent calls need no coordination.
package ledger

import (
	"context"
	"fmt"
	"time"

	"pfm/internal/core"
)

// LedgerStore is the record-store slice the ledger reads from. Aggregations
// are calendar-month scoped; a month with no matching records sums to zero,
// never to an error.
type LedgerStore interface {
	FindBudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error)
	SpentPerCategory(ctx context.Context, userID int64, period core.Period) (map[core.Category]core.Money, error)
	SpentForCategory(ctx context.Context, userID int64, category core.Category, period core.Period) (core.Money, error)
	SumExpensesForMonth(ctx context.Context, userID int64, period core.Period) (core.Money, error)
	SumIncomeForMonth(ctx context.Context, userID int64, period core.Period) (core.Money, error)
}

type Ledger struct {
	store LedgerStore
	now   func() time.Time
}

// NewLedger wires the ledger to a store. A nil clock means time.Now.
func NewLedger(store LedgerStore, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}
}

func (l *Ledger) resolve(period core.Period) core.Period {
	if period.IsZero() {
		return core.CurrentPeriod(l.now())
	}
	return period
}

// ComputeSummary returns one summary per budget record the user owns, with
// spent totals taken from the target month's expenses. A zero period means the
// current calendar month. Spend is category-wide: two budget records for the
// same category each report the full category spend against their own limit.
// Order is not guaranteed. A user without budgets yields an empty slice.
func (l *Ledger) ComputeSummary(ctx context.Context, userID int64, period core.Period) ([]core.BudgetSummary, error) {
	period = l.resolve(period)

	budgets, err := l.store.FindBudgetsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find budgets: %w", err)
	}
	summaries := make([]core.BudgetSummary, 0, len(budgets))
	if len(budgets) == 0 {
		return summaries, nil
	}

	spent, err := l.store.SpentPerCategory(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("sum spend per category: %w", err)
	}
	for _, b := range budgets {
		summaries = append(summaries, core.Summarize(b, spent[b.Category]))
	}
	return summaries, nil
}

// TotalSpentPerCategory sums the current month's expenses per category.
func (l *Ledger) TotalSpentPerCategory(ctx context.Context, userID int64) (map[core.Category]core.Money, error) {
	totals, err := l.store.SpentPerCategory(ctx, userID, core.CurrentPeriod(l.now()))
	if err != nil {
		return nil, fmt.Errorf("sum spend per category: %w", err)
	}
	return totals, nil
}

// TotalSpentForCategory sums the current month's expenses in one category.
func (l *Ledger) TotalSpentForCategory(ctx context.Context, userID int64, category core.Category) (core.Money, error) {
	total, err := l.store.SpentForCategory(ctx, userID, category, core.CurrentPeriod(l.now()))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum spend for category %s: %w", category, err)
	}
	return total, nil
}

// TotalExpenseForMonth sums a user's expenses for an arbitrary month.
func (l *Ledger) TotalExpenseForMonth(ctx context.Context, userID int64, period core.Period) (core.Money, error) {
	total, err := l.store.SumExpensesForMonth(ctx, userID, l.resolve(period))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses for month: %w", err)
	}
	return total, nil
}

// TotalIncomeForMonth sums a user's income for an arbitrary month.
func (l *Ledger) TotalIncomeForMonth(ctx context.Context, userID int64, period core.Period) (core.Money, error) {
	total, err := l.store.SumIncomeForMonth(ctx, userID, l.resolve(period))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum income for month: %w", err)
	}
	return total, nil
}

// MonthTotals bundles the dashboard figures for one month.
func (l *Ledger) MonthTotals(ctx context.Context, userID int64, period core.Period) (core.MonthTotals, error) {
	period = l.resolve(period)

	income, err := l.store.SumIncomeForMonth(ctx, userID, period)
	if err != nil {
		return core.MonthTotals{}, fmt.Errorf("sum income for month: %w", err)
	}
	expense, err := l.store.SumExpensesForMonth(ctx, userID, period)
	if err != nil {
		return core.MonthTotals{}, fmt.Errorf("sum expenses for month: %w", err)
	}
	return core.MonthTotals{
		Period:  period,
		Income:  income,
		Expense: expense,
		Net:     income.Sub(expense),
	}, nil
}
