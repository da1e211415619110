package models

import "github.com/shopspring/decimal"

// DefaultMonthlyBudget is the allowance of a freshly initialized ledger.
var DefaultMonthlyBudget = decimal.NewFromInt(100000)

// GlobalState is the ledger-wide singleton.
type GlobalState struct {
	MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
	ArchivedSpend decimal.Decimal `json:"archivedSpend"`
}

// UpdateStateRequest is a partial update; nil fields are left unchanged.
type UpdateStateRequest struct {
	MonthlyBudget *decimal.Decimal `json:"monthlyBudget"`
	ArchivedSpend *decimal.Decimal `json:"archivedSpend"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
