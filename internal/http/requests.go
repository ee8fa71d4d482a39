package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"pfm/internal/core"
)

// validate is shared across handlers; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New()

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type expenseRequest struct {
	Amount   string `json:"amount" validate:"required"`
	Category string `json:"category" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
}

type incomeRequest struct {
	Amount string `json:"amount" validate:"required"`
	Source string `json:"source" validate:"required"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
}

type budgetRequest struct {
	Limit    string `json:"limit" validate:"required"`
	Category string `json:"category" validate:"required"`
	Year     int    `json:"year" validate:"omitempty,min=2000,max=2200"`
	Month    int    `json:"month" validate:"omitempty,min=1,max=12"`
}

// decodeAndValidate decodes a JSON body into dst and runs struct
// validation. Unknown fields are rejected to catch client typos early.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	return nil
}

// toExpense converts a validated request into a domain expense owned by
// userID.
func (req *expenseRequest) toExpense(userID int64) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	e := core.Expense{
		UserID:   userID,
		Amount:   core.Money{Cents: cents},
		Category: core.Category(req.Category),
		Date:     date.UTC(),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (req *incomeRequest) toIncome(userID int64) (core.Income, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Income{}, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse date: %w", err)
	}
	i := core.Income{
		UserID: userID,
		Amount: core.Money{Cents: cents},
		Source: req.Source,
		Date:   date.UTC(),
	}
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	return i, nil
}

// toBudget converts a validated request into a domain budget. Year and
// month default to the given fallback period when omitted.
func (req *budgetRequest) toBudget(userID int64, fallback core.Period) (core.Budget, error) {
	cents, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		return core.Budget{}, err
	}
	period := fallback
	if req.Year != 0 && req.Month != 0 {
		period = core.Period{Year: req.Year, Month: time.Month(req.Month)}
	}
	b := core.Budget{
		UserID:   userID,
		Limit:    core.Money{Cents: cents},
		Category: core.Category(req.Category),
		Period:   period,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}
