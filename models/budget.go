package models

import "github.com/shopspring/decimal"

// Budget is the spending limit of one category. The category name is its key.
type Budget struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type SetBudgetRequest struct {
	Category string           `json:"category" binding:"required"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
}
