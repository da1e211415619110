package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ============================================================================
// DASHBOARD SUMMARY
// ============================================================================

type DailyTotal struct {
	Date  Date            `json:"date"`
	Total decimal.Decimal `json:"total"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Icon     IconKey         `json:"icon"`
	Total    decimal.Decimal `json:"total"`
}

type BudgetUsage struct {
	Category   string          `json:"category"`
	Budget     decimal.Decimal `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	OverBudget bool            `json:"overBudget"`
}

type Summary struct {
	Today           Date            `json:"today"`
	TodayTotal      decimal.Decimal `json:"todayTotal"`
	CurrentSpend    decimal.Decimal `json:"currentSpend"`
	ArchivedSpend   decimal.Decimal `json:"archivedSpend"`
	TotalToDate     decimal.Decimal `json:"totalToDate"`
	MonthlyBudget   decimal.Decimal `json:"monthlyBudget"`
	RemainingBudget decimal.Decimal `json:"remainingBudget"`
	ExpenseCount    int             `json:"expenseCount"`
	DailyTotals     []DailyTotal    `json:"dailyTotals"`
	CategoryTotals  []CategoryTotal `json:"categoryTotals"`
	BudgetUsage     []BudgetUsage   `json:"budgetUsage"`
}

// ============================================================================
// EXPENSE REPORTS
// ============================================================================

type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByAmount   SortKey = "amount"
	SortByCategory SortKey = "category"
)

// ExpenseFilter selects and orders expenses for the reports page.
// Zero values disable the corresponding filter.
type ExpenseFilter struct {
	Month      string // YYYY-MM
	From       *Date
	To         *Date
	Category   string
	Search     string
	SortKey    SortKey
	Descending bool
}

// DefaultExpenseFilter lists everything, newest first.
func DefaultExpenseFilter() ExpenseFilter {
	return ExpenseFilter{SortKey: SortByDate, Descending: true}
}

// ParseSort reads the "<key>_<asc|desc>" form used by the dashboard.
func ParseSort(raw string) (SortKey, bool, error) {
	if raw == "" {
		return SortByDate, true, nil
	}
	key, order, ok := strings.Cut(strings.ToLower(raw), "_")
	if !ok {
		return "", false, fmt.Errorf("invalid sort %q: expected <key>_<asc|desc>", raw)
	}
	switch SortKey(key) {
	case SortByDate, SortByAmount, SortByCategory:
	default:
		return "", false, fmt.Errorf("invalid sort key %q", key)
	}
	switch order {
	case "asc":
		return SortKey(key), false, nil
	case "desc":
		return SortKey(key), true, nil
	default:
		return "", false, fmt.Errorf("invalid sort order %q", order)
	}
}

type ExpenseReport struct {
	Expenses []Expense       `json:"expenses"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type AnalysisResponse struct {
	Analysis string `json:"analysis"`
}
