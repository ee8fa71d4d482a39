package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"pfm/internal/core"
	"pfm/internal/log"
)

type expenseResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Category:    e.Category.String(),
		Date:        e.Date.Format("2006-01-02"),
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	expenses, err := s.store.ListExpensesByUser(r.Context(), account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req expenseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid expense payload")
		return
	}

	expense, err := req.toExpense(account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := s.store.CreateExpense(r.Context(), expense)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	expense.ID = id

	s.logger.InfoContext(r.Context(), "Expense recorded",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, account.ID,
		log.FieldCategory, expense.Category.String(),
		log.FieldAmountCents, expense.Amount.Cents)

	s.invalidateSummaries(account.ID)
	s.publishOverBudgetAlerts(r.Context(), account.ID, expense)

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var req expenseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid expense payload")
		return
	}

	expense, err := req.toExpense(account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	expense.ID = id

	if err := s.store.UpdateExpense(r.Context(), expense); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSummaries(account.ID)
	s.publishOverBudgetAlerts(r.Context(), account.ID, expense)

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.store.DeleteExpense(r.Context(), id, account.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSummaries(account.ID)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateSummaries drops every cached month for one user.
func (s *Server) invalidateSummaries(userID int64) {
	s.summaryCache.DeletePrefix(summaryKeyPrefix(userID))
}

func summaryKeyPrefix(userID int64) string {
	return "summary:" + strconv.FormatInt(userID, 10) + ":"
}

func summaryKey(userID int64, period core.Period) string {
	return summaryKeyPrefix(userID) + period.String()
}

// publishOverBudgetAlerts recomputes the summary for the expense's month
// and publishes an alert for each over-limit budget in that category.
// Publishing is best effort; the write has already succeeded.
func (s *Server) publishOverBudgetAlerts(ctx context.Context, userID int64, expense core.Expense) {
	if s.alerts == nil {
		return
	}

	period := core.PeriodOf(expense.Date)
	summaries, err := s.ledger.ComputeSummary(ctx, userID, period)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping budget alerts, summary unavailable",
			log.FieldError, err, log.FieldUserID, userID)
		return
	}

	for _, summary := range summaries {
		if summary.Category != expense.Category || summary.OverAmount.Cents == 0 {
			continue
		}
		if err := s.alerts.PublishBudgetAlert(ctx, userID, summary, period); err != nil {
			s.logger.WarnContext(ctx, "Budget alert publish failed",
				log.FieldError, err,
				log.FieldUserID, userID,
				log.FieldCategory, summary.Category.String())
		}
	}
}
