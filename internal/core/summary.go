package core

// BudgetSummary is the derived per-budget figure set: how much of the declared
// limit the category-wide monthly spend has consumed.
type BudgetSummary struct {
	BudgetID   int64
	Category   Category
	Limit      Money
	Spent      Money
	Remaining  Money // Limit - Spent, negative when over budget
	OverAmount Money // max(0, Spent - Limit)
}

// Summarize derives the budget figures from a limit and a spent total.
func Summarize(b Budget, spent Money) BudgetSummary {
	s := BudgetSummary{
		BudgetID:  b.ID,
		Category:  b.Category,
		Limit:     b.Limit,
		Spent:     spent,
		Remaining: b.Limit.Sub(spent),
	}
	if over := spent.Sub(b.Limit); over.Cents > 0 {
		s.OverAmount = over
	}
	return s
}

// MonthTotals is the dashboard aggregate for one period.
type MonthTotals struct {
	Period  Period
	Income  Money
	Expense Money
	Net     Money
}
