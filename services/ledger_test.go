package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

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

func newTestLedger(t *testing.T, icons IconSuggester) *LedgerService {
	t.Helper()
	cfg := DefaultLedgerConfig()
	cfg.IconSuggestTimeout = 100 * time.Millisecond
	l := NewLedgerService(store.NewMemoryStore(), icons, cfg, quietLogger())
	require.NoError(t, l.Bootstrap(context.Background()))
	return l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func addExpense(t *testing.T, l *LedgerService, date, amount, category string) models.Expense {
	t.Helper()
	d, err := models.ParseDate(date)
	require.NoError(t, err)
	a := dec(amount)
	e, err := l.CreateExpense(context.Background(), models.CreateExpenseRequest{
		Date: &d, Amount: &a, Category: category,
	})
	require.NoError(t, err)
	return e
}

func setState(t *testing.T, l *LedgerService, monthly, archived string) {
	t.Helper()
	m, a := dec(monthly), dec(archived)
	_, err := l.UpdateState(context.Background(), models.UpdateStateRequest{MonthlyBudget: &m, ArchivedSpend: &a})
	require.NoError(t, err)
}

func TestBootstrap_SeedsDefaultsOnce(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	require.NoError(t, l.Bootstrap(ctx))

	cats, err := l.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategories(), cats)

	st, err := l.GetState(ctx)
	require.NoError(t, err)
	assertDecimal(t, "100000", st.MonthlyBudget)
	assertDecimal(t, "0", st.ArchivedSpend)
}

func TestGetState_CreatesDefaultOnFirstAccess(t *testing.T) {
	cfg := DefaultLedgerConfig()
	cfg.DefaultMonthlyBudget = dec("2500")
	l := NewLedgerService(store.NewMemoryStore(), nil, cfg, quietLogger())

	st, err := l.GetState(context.Background())
	require.NoError(t, err)
	assertDecimal(t, "2500", st.MonthlyBudget)
}

func TestUpdateState_Partial(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	setState(t, l, "1000", "40")

	m := dec("750")
	st, err := l.UpdateState(ctx, models.UpdateStateRequest{MonthlyBudget: &m})
	require.NoError(t, err)
	assertDecimal(t, "750", st.MonthlyBudget)
	assertDecimal(t, "40", st.ArchivedSpend)

	neg := dec("-1")
	_, err = l.UpdateState(ctx, models.UpdateStateRequest{ArchivedSpend: &neg})
	assert.ErrorIs(t, err, ErrValidation)

	st, err = l.GetState(ctx)
	require.NoError(t, err)
	assertDecimal(t, "40", st.ArchivedSpend)
}

func TestReset_FoldsSpendIntoBudget(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	setState(t, l, "1000", "0")
	addExpense(t, l, "2024-05-01", "100", "Groceries")
	addExpense(t, l, "2024-05-02", "200", "Transport")

	st, err := l.Reset(ctx)
	require.NoError(t, err)
	assertDecimal(t, "700", st.MonthlyBudget)
	assertDecimal(t, "0", st.ArchivedSpend)

	list, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	stored, err := l.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.MonthlyBudget.String(), stored.MonthlyBudget.String())
}

func TestReset_FloorsAtZero(t *testing.T) {
	l := newTestLedger(t, nil)
	setState(t, l, "100", "50")
	addExpense(t, l, "2024-05-01", "200", "Housing")

	st, err := l.Reset(context.Background())
	require.NoError(t, err)
	assertDecimal(t, "0", st.MonthlyBudget)
	assertDecimal(t, "0", st.ArchivedSpend)
}

func TestReset_WithoutStateFails(t *testing.T) {
	l := NewLedgerService(store.NewMemoryStore(), nil, DefaultLedgerConfig(), quietLogger())

	_, err := l.Reset(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestReset_ConcurrentInsertsAreNeitherLostNorDoubleCounted(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	setState(t, l, "1000", "0")

	const writers = 50
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			addExpense(t, l, "2024-05-01", "1", "Groceries")
		}()
	}

	var resetState models.GlobalState
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		var err error
		resetState, err = l.Reset(ctx)
		assert.NoError(t, err)
	}()
	close(start)
	wg.Wait()

	remaining, err := l.ListExpenses(ctx)
	require.NoError(t, err)

	// Every expense was either folded into the budget or is still listed.
	removed := writers - len(remaining)
	assertDecimal(t, decimal.NewFromInt(int64(1000-removed)).String(), resetState.MonthlyBudget)
}

func TestTotalToDate_TracksInsertsDeletesAndResets(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	setState(t, l, "5000", "25")

	check := func(wantCurrent string) {
		t.Helper()
		snap, err := l.Snapshot(ctx)
		require.NoError(t, err)
		sum := BuildSummary(snap, models.NewDate(2024, time.May, 3))
		assertDecimal(t, wantCurrent, SumAmounts(snap.Expenses))
		assert.True(t, sum.TotalToDate.Equal(SumAmounts(snap.Expenses).Add(snap.State.ArchivedSpend)))
		assert.True(t, sum.RemainingBudget.Equal(snap.State.MonthlyBudget.Sub(sum.TotalToDate)))
	}

	a := addExpense(t, l, "2024-05-01", "10.50", "Groceries")
	check("10.50")
	addExpense(t, l, "2024-05-02", "4.25", "Health")
	check("14.75")
	require.NoError(t, l.DeleteExpense(ctx, a.ID))
	check("4.25")
	_, err := l.Reset(ctx)
	require.NoError(t, err)
	check("0")
	addExpense(t, l, "2024-05-03", "1", "Other")
	check("1")
}

func TestDeleteCategory_Cascades(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()

	_, err := l.AddCategory(ctx, "Travel")
	require.NoError(t, err)
	_, err = l.SetBudget(ctx, "Travel", dec("500"))
	require.NoError(t, err)
	addExpense(t, l, "2024-06-01", "120", "Travel")
	addExpense(t, l, "2024-06-02", "80", "Travel")
	keep := addExpense(t, l, "2024-06-02", "5", "Groceries")

	require.NoError(t, l.DeleteCategory(ctx, "Travel"))

	budgets, err := l.ListBudgets(ctx)
	require.NoError(t, err)
	for _, b := range budgets {
		assert.NotEqual(t, "Travel", b.Category)
	}
	expenses, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, keep.ID, expenses[0].ID)

	// Deleting again is not an error.
	assert.NoError(t, l.DeleteCategory(ctx, "Travel"))
}

func TestDeleteCategory_OtherIsProtected(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	addExpense(t, l, "2024-06-01", "9", models.OtherCategory)
	_, err := l.SetBudget(ctx, models.OtherCategory, dec("10"))
	require.NoError(t, err)

	before, err := l.Snapshot(ctx)
	require.NoError(t, err)

	err = l.DeleteCategory(ctx, models.OtherCategory)
	require.ErrorIs(t, err, ErrProtected)

	after, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Categories, after.Categories)
	assert.Equal(t, len(before.Expenses), len(after.Expenses))
	assert.Equal(t, len(before.Budgets), len(after.Budgets))
}

func TestAddCategory_DuplicateIsCaseInsensitive(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()

	for _, name := range []string{"groceries", "GROCERIES", "  Groceries "} {
		_, err := l.AddCategory(ctx, name)
		assert.ErrorIs(t, err, ErrDuplicateCategory, name)
	}

	cats, err := l.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(models.DefaultCategories()))
}

func TestAddCategory_EmptyName(t *testing.T) {
	l := newTestLedger(t, nil)
	_, err := l.AddCategory(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetBudget(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	_, err := l.AddCategory(ctx, "Food")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		b, err := l.SetBudget(ctx, "Food", dec("200"))
		require.NoError(t, err)
		assertDecimal(t, "200", b.Amount)
	}

	budgets, err := l.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, "Food", budgets[0].Category)
	assertDecimal(t, "200", budgets[0].Amount)

	_, err = l.SetBudget(ctx, "Food", dec("-5"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = l.SetBudget(ctx, "Nope", dec("5"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestAddCategory_IconFallback(t *testing.T) {
	tests := []struct {
		name      string
		suggester IconSuggester
		want      models.IconKey
	}{
		{name: "no suggester", suggester: nil, want: models.IconOther},
		{
			name: "suggester error",
			suggester: IconSuggesterFunc(func(context.Context, string, []models.IconKey) (models.IconKey, error) {
				return "", errors.New("connection refused")
			}),
			want: models.IconOther,
		},
		{
			name: "out of enumeration",
			suggester: IconSuggesterFunc(func(context.Context, string, []models.IconKey) (models.IconKey, error) {
				return models.IconKey("airplane"), nil
			}),
			want: models.IconOther,
		},
		{
			name: "ignores context and hangs",
			suggester: IconSuggesterFunc(func(context.Context, string, []models.IconKey) (models.IconKey, error) {
				time.Sleep(5 * time.Second)
				return models.IconHealth, nil
			}),
			want: models.IconOther,
		},
		{
			name: "panics",
			suggester: IconSuggesterFunc(func(context.Context, string, []models.IconKey) (models.IconKey, error) {
				panic("boom")
			}),
			want: models.IconOther,
		},
		{
			name: "valid answer",
			suggester: IconSuggesterFunc(func(context.Context, string, []models.IconKey) (models.IconKey, error) {
				return models.IconTransport, nil
			}),
			want: models.IconTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, tt.suggester)

			started := time.Now()
			cat, err := l.AddCategory(context.Background(), "Flights")
			require.NoError(t, err)
			assert.Less(t, time.Since(started), 2*time.Second)
			assert.Equal(t, tt.want, cat.Icon)
			assert.Equal(t, "Flights", cat.Name)
		})
	}
}

func TestCreateExpense_Validation(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	d := models.NewDate(2024, time.July, 4)
	neg, pos := dec("-3"), dec("3")

	_, err := l.CreateExpense(ctx, models.CreateExpenseRequest{Date: &d, Amount: &neg, Category: "Health"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.CreateExpense(ctx, models.CreateExpenseRequest{Amount: &pos, Category: "Health"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = l.CreateExpense(ctx, models.CreateExpenseRequest{Date: &d, Amount: &pos, Category: "Yachts"})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	list, err := l.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateExpense(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	e := addExpense(t, l, "2024-07-01", "12", "Health")

	notes := "pharmacy"
	amount := dec("15.75")
	updated, err := l.UpdateExpense(ctx, e.ID, models.UpdateExpenseRequest{Amount: &amount, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID)
	assert.Equal(t, "Health", updated.Category)
	assert.Equal(t, "2024-07-01", updated.Date.String())
	assertDecimal(t, "15.75", updated.Amount)
	assert.Equal(t, "pharmacy", updated.Notes)

	bad := "Yachts"
	_, err = l.UpdateExpense(ctx, e.ID, models.UpdateExpenseRequest{Category: &bad})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = l.UpdateExpense(ctx, "missing", models.UpdateExpenseRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExpense_Unknown(t *testing.T) {
	l := newTestLedger(t, nil)
	assert.ErrorIs(t, l.DeleteExpense(context.Background(), "missing"), ErrNotFound)
}

func TestImportExpenses(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	rows := []models.Expense{
		{Date: models.NewDate(2024, time.March, 1), Amount: dec("3"), Category: "Groceries"},
		{Date: models.NewDate(2024, time.March, 2), Amount: dec("4"), Category: "Pets"},
	}

	_, err := l.ImportExpenses(ctx, rows, false)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	list, _ := l.ListExpenses(ctx)
	assert.Empty(t, list)

	n, err := l.ImportExpenses(ctx, rows, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cats, err := l.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, cats, models.Category{Name: "Pets", Icon: models.IconOther})
}

type failingStore struct{ store.Store }

func (failingStore) View(context.Context, func(context.Context, store.Ledger) error) error {
	return errors.New("connection reset")
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	l := NewLedgerService(failingStore{store.NewMemoryStore()}, nil, DefaultLedgerConfig(), quietLogger())

	_, err := l.ListExpenses(context.Background())
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list expenses", se.Op)
}
