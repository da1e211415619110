package services

import (
	"cmp"
	"slices"
	"strings"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/shopspring/decimal"
)

// Everything in this file is a pure function of its arguments.

func SumAmounts(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalToDate is the current spend plus the archived spend.
func TotalToDate(expenses []models.Expense, st models.GlobalState) decimal.Decimal {
	return SumAmounts(expenses).Add(st.ArchivedSpend)
}

// RemainingBudget may be negative when over budget.
func RemainingBudget(expenses []models.Expense, st models.GlobalState) decimal.Decimal {
	return st.MonthlyBudget.Sub(TotalToDate(expenses, st))
}

func TodayTotal(expenses []models.Expense, today models.Date) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Date.Equal(today) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// DailyTotals groups by date, oldest first.
func DailyTotals(expenses []models.Expense) []models.DailyTotal {
	byDay := make(map[string]*models.DailyTotal)
	for _, e := range expenses {
		k := e.Date.String()
		if dt, ok := byDay[k]; ok {
			dt.Total = dt.Total.Add(e.Amount)
			continue
		}
		byDay[k] = &models.DailyTotal{Date: e.Date, Total: e.Amount}
	}

	out := make([]models.DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	slices.SortFunc(out, func(a, b models.DailyTotal) int {
		return a.Date.Compare(b.Date.Time)
	})
	return out
}

// CategoryTotals sums spend per category, largest first. Categories with
// no spend are left out.
func CategoryTotals(expenses []models.Expense, categories []models.Category) []models.CategoryTotal {
	icons := make(map[string]models.IconKey, len(categories))
	for _, c := range categories {
		icons[c.Name] = c.Icon
	}

	sums := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}

	out := make([]models.CategoryTotal, 0, len(sums))
	for name, total := range sums {
		if total.IsZero() {
			continue
		}
		icon, ok := icons[name]
		if !ok {
			icon = models.IconOther
		}
		out = append(out, models.CategoryTotal{Category: name, Icon: icon, Total: total})
	}
	slices.SortFunc(out, func(a, b models.CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// BudgetUsages compares each budget with the spend in its category.
func BudgetUsages(expenses []models.Expense, budgets []models.Budget) []models.BudgetUsage {
	spent := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		spent[e.Category] = spent[e.Category].Add(e.Amount)
	}

	out := make([]models.BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		s := spent[b.Category]
		remaining := b.Amount.Sub(s)
		out = append(out, models.BudgetUsage{
			Category:   b.Category,
			Budget:     b.Amount,
			Spent:      s,
			Remaining:  remaining,
			OverBudget: remaining.IsNegative(),
		})
	}
	slices.SortFunc(out, func(a, b models.BudgetUsage) int {
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// BuildSummary derives the dashboard figures.
func BuildSummary(snap Snapshot, today models.Date) models.Summary {
	current := SumAmounts(snap.Expenses)
	total := current.Add(snap.State.ArchivedSpend)
	return models.Summary{
		Today:           today,
		TodayTotal:      TodayTotal(snap.Expenses, today),
		CurrentSpend:    current,
		ArchivedSpend:   snap.State.ArchivedSpend,
		TotalToDate:     total,
		MonthlyBudget:   snap.State.MonthlyBudget,
		RemainingBudget: snap.State.MonthlyBudget.Sub(total),
		ExpenseCount:    len(snap.Expenses),
		DailyTotals:     DailyTotals(snap.Expenses),
		CategoryTotals:  CategoryTotals(snap.Expenses, snap.Categories),
		BudgetUsage:     BudgetUsages(snap.Expenses, snap.Budgets),
	}
}

// FilterExpenses applies f and returns a new, sorted slice. Sorting is
// stable, so equal keys keep their input order.
func FilterExpenses(expenses []models.Expense, f models.ExpenseFilter) []models.Expense {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Month != "" && e.Date.MonthKey() != f.Month {
			continue
		}
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Date.After(*f.To) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Notes), search) {
			continue
		}
		out = append(out, e)
	}

	key := f.SortKey
	if key == "" {
		key = models.SortByDate
	}
	slices.SortStableFunc(out, func(a, b models.Expense) int {
		var c int
		switch key {
		case models.SortByAmount:
			c = a.Amount.Cmp(b.Amount)
		case models.SortByCategory:
			c = cmp.Compare(a.Category, b.Category)
		default:
			c = a.Date.Compare(b.Date.Time)
		}
		if f.Descending {
			return -c
		}
		return c
	})
	return out
}

func BuildReport(expenses []models.Expense, f models.ExpenseFilter) models.ExpenseReport {
	list := FilterExpenses(expenses, f)
	return models.ExpenseReport{
		Expenses: list,
		Count:    len(list),
		Total:    SumAmounts(list),
	}
}
