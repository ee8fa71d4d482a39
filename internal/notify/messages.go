package notify

import (
	"encoding/json"
	"time"
)

// BudgetAlertMessage announces that a budget crossed its monthly limit.
// Amounts travel as cents so consumers never deal with floating point.
type BudgetAlertMessage struct {
	UserID          int64     `json:"user_id"`
	BudgetID        int64     `json:"budget_id"`
	Category        string    `json:"category"`
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	LimitCents      int64     `json:"limit_cents"`
	SpentCents      int64     `json:"spent_cents"`
	OverAmountCents int64     `json:"over_amount_cents"`
	Timestamp       time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
