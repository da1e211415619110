package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/store"
	"github.com/LovationAdmin/expensewise-api/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type LedgerConfig struct {
	DefaultMonthlyBudget decimal.Decimal
	IconSuggestTimeout   time.Duration
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		DefaultMonthlyBudget: models.DefaultMonthlyBudget,
		IconSuggestTimeout:   5 * time.Second,
	}
}

// LedgerService applies the reconciliation rules on top of a store. Every
// mutating method runs as one store.Update unit.
type LedgerService struct {
	store store.Store
	icons IconSuggester
	cfg   LedgerConfig
	log   logrus.FieldLogger
}

// NewLedgerService accepts a nil icons; categories then always get the
// fallback icon.
func NewLedgerService(st store.Store, icons IconSuggester, cfg LedgerConfig, log logrus.FieldLogger) *LedgerService {
	if cfg.IconSuggestTimeout <= 0 {
		cfg.IconSuggestTimeout = DefaultLedgerConfig().IconSuggestTimeout
	}
	if cfg.DefaultMonthlyBudget.IsNegative() {
		cfg.DefaultMonthlyBudget = models.DefaultMonthlyBudget
	}
	return &LedgerService{
		store: st,
		icons: icons,
		cfg:   cfg,
		log:   log.WithField("component", "ledger"),
	}
}

func (s *LedgerService) defaultState() models.GlobalState {
	return models.GlobalState{MonthlyBudget: s.cfg.DefaultMonthlyBudget, ArchivedSpend: decimal.Zero}
}

var domainErrors = []error{
	ErrValidation, ErrDuplicateCategory, ErrProtected,
	ErrUnknownCategory, ErrNotInitialized, ErrNotFound,
}

// wrapStoreErr passes domain errors through and wraps everything else as a
// StoreError.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ============================================================================
// BOOTSTRAP & GLOBAL STATE
// ============================================================================

// Bootstrap seeds the default categories into an empty ledger, makes sure
// the protected category exists and creates the global state. Safe to call
// on every start.
func (s *LedgerService) Bootstrap(ctx context.Context) error {
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		cats, err := l.ListCategories(ctx)
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			s.log.Info("Initializing default categories")
			for _, c := range models.DefaultCategories() {
				if err := l.InsertCategory(ctx, c); err != nil {
					return err
				}
			}
		} else if _, err := l.FindCategoryFold(ctx, models.OtherCategory); errors.Is(err, store.ErrNotFound) {
			if err := l.InsertCategory(ctx, models.Category{Name: models.OtherCategory, Icon: models.IconOther}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		_, err = l.GetState(ctx)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Info("Initializing global state")
			return l.PutState(ctx, s.defaultState())
		}
		return err
	})
	return wrapStoreErr("bootstrap", err)
}

// GetState returns the singleton, creating it with defaults on first access.
func (s *LedgerService) GetState(ctx context.Context) (models.GlobalState, error) {
	var st models.GlobalState
	err := s.store.View(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		st, err = l.GetState(ctx)
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		return st, wrapStoreErr("get state", err)
	}

	err = s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		st, err = l.GetState(ctx)
		if errors.Is(err, store.ErrNotFound) {
			st = s.defaultState()
			return l.PutState(ctx, st)
		}
		return err
	})
	return st, wrapStoreErr("init state", err)
}

// UpdateState changes only the supplied fields.
func (s *LedgerService) UpdateState(ctx context.Context, req models.UpdateStateRequest) (models.GlobalState, error) {
	if req.MonthlyBudget != nil && req.MonthlyBudget.IsNegative() {
		return models.GlobalState{}, validationf("monthlyBudget must not be negative")
	}
	if req.ArchivedSpend != nil && req.ArchivedSpend.IsNegative() {
		return models.GlobalState{}, validationf("archivedSpend must not be negative")
	}

	var st models.GlobalState
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		st, err = l.GetState(ctx)
		if errors.Is(err, store.ErrNotFound) {
			st = s.defaultState()
		} else if err != nil {
			return err
		}
		if req.MonthlyBudget != nil {
			st.MonthlyBudget = *req.MonthlyBudget
		}
		if req.ArchivedSpend != nil {
			st.ArchivedSpend = *req.ArchivedSpend
		}
		return l.PutState(ctx, st)
	})
	if err != nil {
		return models.GlobalState{}, wrapStoreErr("update state", err)
	}

	utils.LogLedgerAction(s.log, "global state updated", logrus.Fields{
		"monthly_budget": st.MonthlyBudget,
		"archived_spend": st.ArchivedSpend,
	})
	return st, nil
}

// Reset folds the current spend into the monthly budget and clears the
// expense list. The archived counter is set to zero, not accumulated.
// The amounts summed are exactly the rows deleted in the same unit.
func (s *LedgerService) Reset(ctx context.Context) (models.GlobalState, error) {
	var (
		next    models.GlobalState
		removed int
	)
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		st, err := l.GetState(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInitialized
		}
		if err != nil {
			return err
		}

		expenses, err := l.DeleteAllExpenses(ctx)
		if err != nil {
			return err
		}
		removed = len(expenses)

		next = ResetState(st, SumAmounts(expenses))
		return l.PutState(ctx, next)
	})
	if err != nil {
		return models.GlobalState{}, wrapStoreErr("reset", err)
	}

	utils.LogLedgerAction(s.log, "expenses reset", logrus.Fields{
		"removed":        removed,
		"monthly_budget": next.MonthlyBudget,
	})
	return next, nil
}

// ResetState computes the state that follows a reset.
func ResetState(st models.GlobalState, currentSpend decimal.Decimal) models.GlobalState {
	total := currentSpend.Add(st.ArchivedSpend)
	budget := st.MonthlyBudget.Sub(total)
	if budget.IsNegative() {
		budget = decimal.Zero
	}
	return models.GlobalState{MonthlyBudget: budget, ArchivedSpend: decimal.Zero}
}

// ============================================================================
// EXPENSES
// ============================================================================

func (s *LedgerService) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	var list []models.Expense
	err := s.store.View(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		list, err = l.ListExpenses(ctx)
		return err
	})
	return list, wrapStoreErr("list expenses", err)
}

func validateExpense(e models.Expense) error {
	if e.Date.IsZero() {
		return validationf("date is required (YYYY-MM-DD)")
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if e.Category == "" {
		return validationf("category is required")
	}
	return nil
}

// requireCategory resolves the exact category name and keeps it from being
// deleted until the enclosing unit commits.
func requireCategory(ctx context.Context, l store.Ledger, name string) error {
	_, err := l.FindCategory(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownCategory
	}
	return err
}

func (s *LedgerService) CreateExpense(ctx context.Context, req models.CreateExpenseRequest) (models.Expense, error) {
	if req.Date == nil || req.Amount == nil {
		return models.Expense{}, validationf("date and amount are required")
	}
	e := models.Expense{
		Date:     *req.Date,
		Amount:   *req.Amount,
		Category: strings.TrimSpace(req.Category),
		Notes:    strings.TrimSpace(req.Notes),
	}
	if err := validateExpense(e); err != nil {
		return models.Expense{}, err
	}

	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		if err := requireCategory(ctx, l, e.Category); err != nil {
			return err
		}
		var err error
		e, err = l.InsertExpense(ctx, e)
		if errors.Is(err, store.ErrReference) {
			return ErrUnknownCategory
		}
		return err
	})
	if err != nil {
		return models.Expense{}, wrapStoreErr("create expense", err)
	}

	utils.LogLedgerAction(s.log, "expense created", logrus.Fields{
		"expense_id": e.ID,
		"category":   e.Category,
		"amount":     e.Amount,
	})
	return e, nil
}

// UpdateExpense applies a partial edit.
func (s *LedgerService) UpdateExpense(ctx context.Context, id string, req models.UpdateExpenseRequest) (models.Expense, error) {
	var e models.Expense
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		e, err = l.GetExpense(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if req.Date != nil {
			e.Date = *req.Date
		}
		if req.Amount != nil {
			e.Amount = *req.Amount
		}
		if req.Category != nil {
			e.Category = strings.TrimSpace(*req.Category)
		}
		if req.Notes != nil {
			e.Notes = strings.TrimSpace(*req.Notes)
		}
		if err := validateExpense(e); err != nil {
			return err
		}
		if req.Category != nil {
			if err := requireCategory(ctx, l, e.Category); err != nil {
				return err
			}
		}

		err = l.UpdateExpense(ctx, e)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, store.ErrReference):
			return ErrUnknownCategory
		}
		return err
	})
	if err != nil {
		return models.Expense{}, wrapStoreErr("update expense", err)
	}

	utils.LogLedgerAction(s.log, "expense updated", logrus.Fields{"expense_id": e.ID})
	return e, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		err := l.DeleteExpense(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return wrapStoreErr("delete expense", err)
	}
	utils.LogLedgerAction(s.log, "expense deleted", logrus.Fields{"expense_id": id})
	return nil
}

// ImportExpenses inserts all expenses in one unit. Unknown categories are
// created with the fallback icon when createMissing is set and rejected
// otherwise.
func (s *LedgerService) ImportExpenses(ctx context.Context, expenses []models.Expense, createMissing bool) (int, error) {
	for _, e := range expenses {
		if err := validateExpense(e); err != nil {
			return 0, err
		}
	}

	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		known := make(map[string]bool)
		for _, e := range expenses {
			if !known[e.Category] {
				err := requireCategory(ctx, l, e.Category)
				if errors.Is(err, ErrUnknownCategory) && createMissing {
					err = l.InsertCategory(ctx, models.Category{Name: e.Category, Icon: models.IconOther})
					if errors.Is(err, store.ErrConflict) {
						return fmt.Errorf("%w: %q differs only in case from an existing category", ErrDuplicateCategory, e.Category)
					}
				}
				if err != nil {
					return fmt.Errorf("category %q: %w", e.Category, err)
				}
				known[e.Category] = true
			}
			e.ID = ""
			if _, err := l.InsertExpense(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapStoreErr("import expenses", err)
	}

	utils.LogLedgerAction(s.log, "expenses imported", logrus.Fields{"count": len(expenses)})
	return len(expenses), nil
}

// ============================================================================
// CATEGORIES
// ============================================================================

func (s *LedgerService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	err := s.store.View(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		list, err = l.ListCategories(ctx)
		return err
	})
	return list, wrapStoreErr("list categories", err)
}

func (s *LedgerService) categoryExists(ctx context.Context, name string) (bool, error) {
	found := false
	err := s.store.View(ctx, func(ctx context.Context, l store.Ledger) error {
		_, err := l.FindCategoryFold(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// AddCategory creates a category whose name does not collide
// case-insensitively with an existing one. The icon comes from the
// suggester, or models.IconOther when it fails, is slow, or answers outside
// the enumeration. The suggester runs outside the store unit.
func (s *LedgerService) AddCategory(ctx context.Context, rawName string) (models.Category, error) {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return models.Category{}, validationf("category name is required")
	}

	exists, err := s.categoryExists(ctx, name)
	if err != nil {
		return models.Category{}, wrapStoreErr("find category", err)
	}
	if exists {
		return models.Category{}, ErrDuplicateCategory
	}

	icon := s.SuggestIcon(ctx, name)
	cat := models.Category{Name: name, Icon: icon}

	err = s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		if _, err := l.FindCategoryFold(ctx, name); err == nil {
			return ErrDuplicateCategory
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		err := l.InsertCategory(ctx, cat)
		if errors.Is(err, store.ErrConflict) {
			return ErrDuplicateCategory
		}
		return err
	})
	if err != nil {
		return models.Category{}, wrapStoreErr("add category", err)
	}

	utils.LogLedgerAction(s.log, "category created", logrus.Fields{"category": cat.Name, "icon": cat.Icon})
	return cat, nil
}

// SuggestIcon never fails; see AddCategory for the fallback rules.
func (s *LedgerService) SuggestIcon(ctx context.Context, name string) models.IconKey {
	icon, err := resolveIcon(ctx, s.icons, name, s.cfg.IconSuggestTimeout)
	if err != nil && !errors.Is(err, ErrAINotConfigured) {
		s.log.WithError(err).WithField("category", name).Warn("Icon suggestion failed, using fallback")
	}
	return icon
}

// DeleteCategory removes the category with its budget and expenses in one
// unit. Missing rows are not an error.
func (s *LedgerService) DeleteCategory(ctx context.Context, name string) error {
	if name == models.OtherCategory {
		return ErrProtected
	}

	var removedExpenses int64
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		removedExpenses, err = l.DeleteExpensesByCategory(ctx, name)
		if err != nil {
			return err
		}
		if _, err := l.DeleteBudget(ctx, name); err != nil {
			return err
		}
		_, err = l.DeleteCategory(ctx, name)
		return err
	})
	if err != nil {
		return wrapStoreErr("delete category", err)
	}

	utils.LogLedgerAction(s.log, "category deleted", logrus.Fields{
		"category":         name,
		"removed_expenses": removedExpenses,
	})
	return nil
}

// ============================================================================
// BUDGETS
// ============================================================================

func (s *LedgerService) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	var list []models.Budget
	err := s.store.View(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		list, err = l.ListBudgets(ctx)
		return err
	})
	return list, wrapStoreErr("list budgets", err)
}

// SetBudget upserts the budget of an existing category.
func (s *LedgerService) SetBudget(ctx context.Context, category string, amount decimal.Decimal) (models.Budget, error) {
	if amount.IsNegative() {
		return models.Budget{}, ErrInvalidAmount
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return models.Budget{}, validationf("category is required")
	}

	var out models.Budget
	err := s.store.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		if err := requireCategory(ctx, l, category); err != nil {
			return err
		}
		var err error
		out, err = l.UpsertBudget(ctx, models.Budget{Category: category, Amount: amount})
		if errors.Is(err, store.ErrReference) {
			return ErrUnknownCategory
		}
		return err
	})
	if err != nil {
		return models.Budget{}, wrapStoreErr("set budget", err)
	}

	utils.LogLedgerAction(s.log, "budget set", logrus.Fields{"category": category, "amount": amount})
	return out, nil
}

// ============================================================================
// SNAPSHOT
// ============================================================================

// Snapshot is everything the read-only views are computed from.
type Snapshot struct {
	Expenses   []models.Expense
	Categories []models.Category
	Budgets    []models.Budget
	State      models.GlobalState
}

// Snapshot loads the four collections concurrently. Each read is
// independently consistent; writes landing between them may be visible in
// some and not others.
func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Expenses, err = s.ListExpenses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Categories, err = s.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Budgets, err = s.ListBudgets(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.State, err = s.GetState(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
