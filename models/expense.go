package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as JSON numbers, matching what the dashboard sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// ============================================================================
// EXPENSE
// ============================================================================

type Expense struct {
	ID       string          `json:"id"`
	Date     Date            `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Notes    string          `json:"notes"`
}

type CreateExpenseRequest struct {
	Date     *Date            `json:"date" binding:"required"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
	Category string           `json:"category" binding:"required"`
	Notes    string           `json:"notes"`
}

// UpdateExpenseRequest carries a partial edit; nil fields are left unchanged.
type UpdateExpenseRequest struct {
	Date     *Date            `json:"date"`
	Amount   *decimal.Decimal `json:"amount"`
	Category *string          `json:"category"`
	Notes    *string          `json:"notes"`
}
