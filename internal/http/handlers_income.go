package http

import (
	"net/http"

	"pfm/internal/core"
	"pfm/internal/log"
)

type incomeResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Source      string `json:"source"`
	Date        string `json:"date"`
}

func toIncomeResponse(i core.Income) incomeResponse {
	return incomeResponse{
		ID:          i.ID,
		Amount:      i.Amount.String(),
		AmountCents: i.Amount.Cents,
		Source:      i.Source,
		Date:        i.Date.Format("2006-01-02"),
	}
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	incomes, err := s.store.ListIncomesByUser(r.Context(), account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]incomeResponse, 0, len(incomes))
	for _, i := range incomes {
		out = append(out, toIncomeResponse(i))
	}
	writeJSON(w, http.StatusOK, map[string]any{"incomes": out})
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req incomeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid income payload")
		return
	}

	income, err := req.toIncome(account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := s.store.CreateIncome(r.Context(), income)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	income.ID = id

	s.logger.InfoContext(r.Context(), "Income recorded",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, account.ID,
		log.FieldAmountCents, income.Amount.Cents)

	writeJSON(w, http.StatusCreated, toIncomeResponse(income))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var req incomeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid income payload")
		return
	}

	income, err := req.toIncome(account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	income.ID = id

	if err := s.store.UpdateIncome(r.Context(), income); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.store.DeleteIncome(r.Context(), id, account.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
