package http

import (
	"net/http"

	"pfm/internal/core"
	"pfm/internal/log"
)

type summaryResponse struct {
	BudgetID        int64  `json:"budget_id"`
	Category        string `json:"category"`
	Limit           string `json:"limit"`
	Spent           string `json:"spent"`
	Remaining       string `json:"remaining"`
	OverAmount      string `json:"over_amount"`
	LimitCents      int64  `json:"limit_cents"`
	SpentCents      int64  `json:"spent_cents"`
	RemainingCents  int64  `json:"remaining_cents"`
	OverAmountCents int64  `json:"over_amount_cents"`
	OverBudget      bool   `json:"over_budget"`
}

func toSummaryResponse(s core.BudgetSummary) summaryResponse {
	return summaryResponse{
		BudgetID:        s.BudgetID,
		Category:        s.Category.String(),
		Limit:           s.Limit.String(),
		Spent:           s.Spent.String(),
		Remaining:       s.Remaining.String(),
		OverAmount:      s.OverAmount.String(),
		LimitCents:      s.Limit.Cents,
		SpentCents:      s.Spent.Cents,
		RemainingCents:  s.Remaining.Cents,
		OverAmountCents: s.OverAmount.Cents,
		OverBudget:      s.OverAmount.Cents > 0,
	}
}

// getSummaries returns the budget summary for one user and month, serving
// from the LRU cache when possible.
func (s *Server) getSummaries(r *http.Request, userID int64, period core.Period) ([]core.BudgetSummary, error) {
	if period.IsZero() {
		period = core.PeriodOf(s.now())
	}
	key := summaryKey(userID, period)

	if cached, found := s.summaryCache.Get(key); found {
		s.logger.DebugContext(r.Context(), "Summary cache hit",
			log.FieldUserID, userID,
			log.FieldYear, period.Year,
			log.FieldMonth, int(period.Month))
		return cached, nil
	}

	summaries, err := s.ledger.ComputeSummary(r.Context(), userID, period)
	if err != nil {
		return nil, err
	}

	s.summaryCache.Set(key, summaries)
	return summaries, nil
}

// handleSummary reports budget-vs-spend for the requested month (current
// month when no year/month query parameters are given).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	summaries, err := s.getSummaries(r, account.ID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if period.IsZero() {
		period = core.PeriodOf(s.now())
	}

	out := make([]summaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":      period.Year,
		"month":     int(period.Month),
		"summaries": out,
	})
}

// handleDashboard combines the monthly income/expense totals with the
// budget summary in one payload.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	totals, err := s.ledger.MonthTotals(r.Context(), account.ID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries, err := s.getSummaries(r, account.ID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]summaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toSummaryResponse(summary))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":          totals.Period.Year,
		"month":         int(totals.Period.Month),
		"income":        totals.Income.String(),
		"income_cents":  totals.Income.Cents,
		"expense":       totals.Expense.String(),
		"expense_cents": totals.Expense.Cents,
		"net":           totals.Net.String(),
		"net_cents":     totals.Net.Cents,
		"summaries":     out,
	})
}
