package services

import (
	"testing"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureExpenses() []models.Expense {
	return []models.Expense{
		{ID: "a", Date: models.NewDate(2024, time.May, 3), Amount: dec("40"), Category: "Groceries", Notes: "Weekly shop"},
		{ID: "b", Date: models.NewDate(2024, time.May, 3), Amount: dec("12.5"), Category: "Transport", Notes: "Metro card"},
		{ID: "c", Date: models.NewDate(2024, time.April, 28), Amount: dec("300"), Category: "Housing", Notes: "Plumber"},
		{ID: "d", Date: models.NewDate(2024, time.May, 1), Amount: dec("7.5"), Category: "Groceries", Notes: "bakery"},
	}
}

func TestDailyTotals(t *testing.T) {
	got := DailyTotals(fixtureExpenses())

	require.Len(t, got, 3)
	assert.Equal(t, "2024-04-28", got[0].Date.String())
	assert.Equal(t, "2024-05-01", got[1].Date.String())
	assert.Equal(t, "2024-05-03", got[2].Date.String())
	assertDecimal(t, "52.5", got[2].Total)
}

func TestCategoryTotals(t *testing.T) {
	cats := []models.Category{
		{Name: "Groceries", Icon: models.IconGroceries},
		{Name: "Transport", Icon: models.IconTransport},
		{Name: "Housing", Icon: models.IconHousing},
		{Name: "Health", Icon: models.IconHealth},
	}
	got := CategoryTotals(fixtureExpenses(), cats)

	require.Len(t, got, 3)
	assert.Equal(t, "Housing", got[0].Category)
	assert.Equal(t, models.IconHousing, got[0].Icon)
	assert.Equal(t, "Groceries", got[1].Category)
	assertDecimal(t, "47.5", got[1].Total)
	assert.Equal(t, "Transport", got[2].Category)
}

func TestBuildSummary(t *testing.T) {
	snap := Snapshot{
		Expenses: fixtureExpenses(),
		Budgets:  []models.Budget{{Category: "Groceries", Amount: dec("30")}, {Category: "Health", Amount: dec("50")}},
		State:    models.GlobalState{MonthlyBudget: dec("300"), ArchivedSpend: dec("20")},
	}

	s := BuildSummary(snap, models.NewDate(2024, time.May, 3))

	assertDecimal(t, "52.5", s.TodayTotal)
	assertDecimal(t, "360", s.CurrentSpend)
	assertDecimal(t, "380", s.TotalToDate)
	assertDecimal(t, "-80", s.RemainingBudget)
	assert.Equal(t, 4, s.ExpenseCount)

	require.Len(t, s.BudgetUsage, 2)
	assert.Equal(t, "Groceries", s.BudgetUsage[0].Category)
	assertDecimal(t, "47.5", s.BudgetUsage[0].Spent)
	assertDecimal(t, "-17.5", s.BudgetUsage[0].Remaining)
	assert.True(t, s.BudgetUsage[0].OverBudget)
	assert.False(t, s.BudgetUsage[1].OverBudget)
}

func TestFilterExpenses(t *testing.T) {
	from := models.NewDate(2024, time.May, 2)
	to := models.NewDate(2024, time.May, 3)

	tests := []struct {
		name   string
		filter models.ExpenseFilter
		want   []string
	}{
		{name: "default newest first", filter: models.DefaultExpenseFilter(), want: []string{"a", "b", "d", "c"}},
		{name: "month", filter: models.ExpenseFilter{Month: "2024-04", SortKey: models.SortByDate}, want: []string{"c"}},
		{name: "range inclusive", filter: models.ExpenseFilter{From: &from, To: &to}, want: []string{"a", "b"}},
		{name: "category", filter: models.ExpenseFilter{Category: "Groceries", SortKey: models.SortByAmount}, want: []string{"d", "a"}},
		{name: "search ignores case", filter: models.ExpenseFilter{Search: "BAKE"}, want: []string{"d"}},
		{name: "amount desc", filter: models.ExpenseFilter{SortKey: models.SortByAmount, Descending: true}, want: []string{"c", "a", "b", "d"}},
		{name: "category asc keeps input order for ties", filter: models.ExpenseFilter{SortKey: models.SortByCategory}, want: []string{"a", "d", "c", "b"}},
		{name: "nothing matches", filter: models.ExpenseFilter{Category: "Health"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterExpenses(fixtureExpenses(), tt.filter)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(fixtureExpenses(), models.ExpenseFilter{Month: "2024-05"})
	assert.Equal(t, 3, r.Count)
	assertDecimal(t, "60", r.Total)
}

func TestResetState(t *testing.T) {
	st := ResetState(models.GlobalState{MonthlyBudget: dec("1000"), ArchivedSpend: dec("100")}, dec("250"))
	assertDecimal(t, "650", st.MonthlyBudget)
	assertDecimal(t, "0", st.ArchivedSpend)
}
