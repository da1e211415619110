package migration

import (
	"context"
	"io"
	"testing"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedSource(t *testing.T) store.Store {
	t.Helper()
	src := store.NewMemoryStore()
	err := src.Update(context.Background(), func(ctx context.Context, l store.Ledger) error {
		for _, c := range []models.Category{
			{Name: "Groceries", Icon: models.IconGroceries},
			{Name: "Other", Icon: models.IconOther},
			{Name: "Concerts", Icon: models.IconEntertainment},
		} {
			if err := l.InsertCategory(ctx, c); err != nil {
				return err
			}
		}
		if _, err := l.UpsertBudget(ctx, models.Budget{Category: "Concerts", Amount: decimal.NewFromInt(300)}); err != nil {
			return err
		}
		for i, cat := range []string{"Groceries", "Concerts"} {
			_, err := l.InsertExpense(ctx, models.Expense{
				ID:       "src-" + cat,
				Date:     models.NewDate(2024, 3, i+1),
				Amount:   decimal.NewFromInt(int64(10 * (i + 1))),
				Category: cat,
			})
			if err != nil {
				return err
			}
		}
		return l.PutState(ctx, models.GlobalState{MonthlyBudget: decimal.NewFromInt(5000), ArchivedSpend: decimal.NewFromInt(70)})
	})
	require.NoError(t, err)
	return src
}

func dump(t *testing.T, s store.Store) (expenses []models.Expense, categories []models.Category, budgets []models.Budget, state models.GlobalState) {
	t.Helper()
	err := s.View(context.Background(), func(ctx context.Context, l store.Ledger) error {
		var err error
		if expenses, err = l.ListExpenses(ctx); err != nil {
			return err
		}
		if categories, err = l.ListCategories(ctx); err != nil {
			return err
		}
		if budgets, err = l.ListBudgets(ctx); err != nil {
			return err
		}
		state, err = l.GetState(ctx)
		return err
	})
	require.NoError(t, err)
	return
}

func TestCopyLedgerIntoEmptyStore(t *testing.T) {
	src := seedSource(t)
	dst := store.NewMemoryStore()

	stats, err := CopyLedger(context.Background(), src, dst, CopyOptions{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Categories)
	assert.Equal(t, 1, stats.Budgets)
	assert.Equal(t, 2, stats.Expenses)
	assert.True(t, stats.StateWritten)

	expenses, categories, budgets, state := dump(t, dst)
	assert.Len(t, categories, 3)
	require.Len(t, budgets, 1)
	assert.Equal(t, "Concerts", budgets[0].Category)
	require.Len(t, expenses, 2)
	assert.Equal(t, "Concerts", expenses[0].Category)
	assert.NotEqual(t, "src-Concerts", expenses[0].ID, "ids are reassigned")
	assert.True(t, decimal.NewFromInt(70).Equal(state.ArchivedSpend))
}

func TestCopyLedgerMergesCategoriesCaseInsensitively(t *testing.T) {
	src := seedSource(t)
	dst := store.NewMemoryStore()
	require.NoError(t, dst.Update(context.Background(), func(ctx context.Context, l store.Ledger) error {
		if err := l.InsertCategory(ctx, models.Category{Name: "concerts", Icon: models.IconOther}); err != nil {
			return err
		}
		return l.PutState(ctx, models.GlobalState{MonthlyBudget: decimal.NewFromInt(1), ArchivedSpend: decimal.Zero})
	}))

	stats, err := CopyLedger(context.Background(), src, dst, CopyOptions{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CategoriesSkipped)
	assert.False(t, stats.StateWritten, "existing state kept without overwrite")

	expenses, _, budgets, state := dump(t, dst)
	for _, e := range expenses {
		assert.NotEqual(t, "Concerts", e.Category)
	}
	assert.Equal(t, "concerts", budgets[0].Category)
	assert.True(t, decimal.NewFromInt(1).Equal(state.MonthlyBudget))
}

func TestCopyLedgerOverwriteAndDryRun(t *testing.T) {
	src := seedSource(t)
	dst := store.NewMemoryStore()

	_, err := CopyLedger(context.Background(), src, dst, CopyOptions{}, quietLogger())
	require.NoError(t, err)

	stats, err := CopyLedger(context.Background(), src, dst, CopyOptions{Overwrite: true}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ExpensesRemoved)
	expenses, _, _, _ := dump(t, dst)
	assert.Len(t, expenses, 2, "overwrite does not duplicate")

	empty := store.NewMemoryStore()
	stats, err = CopyLedger(context.Background(), src, empty, CopyOptions{DryRun: true}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Expenses)
	require.NoError(t, empty.View(context.Background(), func(ctx context.Context, l store.Ledger) error {
		list, err := l.ListExpenses(ctx)
		assert.Empty(t, list)
		return err
	}))
}
