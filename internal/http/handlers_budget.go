package http

import (
	"net/http"

	"pfm/internal/core"
	"pfm/internal/log"
)

type budgetResponse struct {
	ID         int64  `json:"id"`
	Limit      string `json:"limit"`
	LimitCents int64  `json:"limit_cents"`
	Category   string `json:"category"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		Limit:      b.Limit.String(),
		LimitCents: b.Limit.Cents,
		Category:   b.Category.String(),
		Year:       b.Period.Year,
		Month:      int(b.Period.Month),
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	budgets, err := s.store.FindBudgetsByUser(r.Context(), account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req budgetRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid budget payload")
		return
	}

	budget, err := req.toBudget(account.ID, core.PeriodOf(s.now()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := s.store.CreateBudget(r.Context(), budget)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	budget.ID = id

	s.logger.InfoContext(r.Context(), "Budget created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, account.ID,
		log.FieldCategory, budget.Category.String(),
		log.FieldAmountCents, budget.Limit.Cents)

	s.invalidateSummaries(account.ID)
	writeJSON(w, http.StatusCreated, toBudgetResponse(budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var req budgetRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid budget payload")
		return
	}

	budget, err := req.toBudget(account.ID, core.PeriodOf(s.now()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	budget.ID = id

	if err := s.store.UpdateBudget(r.Context(), budget); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSummaries(account.ID)
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.store.DeleteBudget(r.Context(), id, account.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSummaries(account.ID)
	w.WriteHeader(http.StatusNoContent)
}
