package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/google/uuid"
)

// MemoryStore keeps the ledger in process memory. Update scopes work on a
// copy that replaces the live data only when the function succeeds.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

type memData struct {
	expenses   map[string]models.Expense
	categories []models.Category
	budgets    map[string]models.Budget
	state      *models.GlobalState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		expenses: make(map[string]models.Expense),
		budgets:  make(map[string]models.Budget),
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		expenses:   make(map[string]models.Expense, len(d.expenses)),
		categories: slices.Clone(d.categories),
		budgets:    make(map[string]models.Budget, len(d.budgets)),
	}
	for id, e := range d.expenses {
		c.expenses[id] = e
	}
	for k, b := range d.budgets {
		c.budgets[k] = b
	}
	if d.state != nil {
		st := *d.state
		c.state = &st
	}
	return c
}

func (s *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &memLedger{d: s.data, readOnly: true})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	working := s.data.clone()
	if err := fn(ctx, &memLedger{d: working}); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Backend() string          { return BackendMemory }
func (s *MemoryStore) Close() error             { return nil }

type memLedger struct {
	d        *memData
	readOnly bool
}

func (l *memLedger) writable() error {
	if l.readOnly {
		return ErrReadOnly
	}
	return nil
}

func sortExpenses(list []models.Expense) {
	slices.SortFunc(list, func(a, b models.Expense) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func (l *memLedger) ListExpenses(context.Context) ([]models.Expense, error) {
	list := make([]models.Expense, 0, len(l.d.expenses))
	for _, e := range l.d.expenses {
		list = append(list, e)
	}
	sortExpenses(list)
	return list, nil
}

func (l *memLedger) GetExpense(_ context.Context, id string) (models.Expense, error) {
	e, ok := l.d.expenses[id]
	if !ok {
		return models.Expense{}, ErrNotFound
	}
	return e, nil
}

func (l *memLedger) InsertExpense(_ context.Context, e models.Expense) (models.Expense, error) {
	if err := l.writable(); err != nil {
		return models.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if _, exists := l.d.expenses[e.ID]; exists {
		return models.Expense{}, ErrConflict
	}
	l.d.expenses[e.ID] = e
	return e, nil
}

func (l *memLedger) UpdateExpense(_ context.Context, e models.Expense) error {
	if err := l.writable(); err != nil {
		return err
	}
	if _, ok := l.d.expenses[e.ID]; !ok {
		return ErrNotFound
	}
	l.d.expenses[e.ID] = e
	return nil
}

func (l *memLedger) DeleteExpense(_ context.Context, id string) error {
	if err := l.writable(); err != nil {
		return err
	}
	if _, ok := l.d.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(l.d.expenses, id)
	return nil
}

func (l *memLedger) DeleteAllExpenses(ctx context.Context) ([]models.Expense, error) {
	if err := l.writable(); err != nil {
		return nil, err
	}
	removed, _ := l.ListExpenses(ctx)
	l.d.expenses = make(map[string]models.Expense)
	return removed, nil
}

func (l *memLedger) DeleteExpensesByCategory(_ context.Context, category string) (int64, error) {
	if err := l.writable(); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range l.d.expenses {
		if e.Category == category {
			delete(l.d.expenses, id)
			n++
		}
	}
	return n, nil
}

func (l *memLedger) ListCategories(context.Context) ([]models.Category, error) {
	return slices.Clone(l.d.categories), nil
}

func (l *memLedger) FindCategory(_ context.Context, name string) (models.Category, error) {
	for _, c := range l.d.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return models.Category{}, ErrNotFound
}

func (l *memLedger) FindCategoryFold(_ context.Context, name string) (models.Category, error) {
	for _, c := range l.d.categories {
		if models.SameCategoryName(c.Name, name) {
			return c, nil
		}
	}
	return models.Category{}, ErrNotFound
}

func (l *memLedger) InsertCategory(ctx context.Context, c models.Category) error {
	if err := l.writable(); err != nil {
		return err
	}
	if _, err := l.FindCategoryFold(ctx, c.Name); err == nil {
		return ErrConflict
	}
	l.d.categories = append(l.d.categories, c)
	return nil
}

func (l *memLedger) DeleteCategory(_ context.Context, name string) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	before := len(l.d.categories)
	l.d.categories = slices.DeleteFunc(l.d.categories, func(c models.Category) bool {
		return c.Name == name
	})
	return len(l.d.categories) < before, nil
}

func (l *memLedger) ListBudgets(context.Context) ([]models.Budget, error) {
	list := make([]models.Budget, 0, len(l.d.budgets))
	for _, b := range l.d.budgets {
		list = append(list, b)
	}
	slices.SortFunc(list, func(a, b models.Budget) int {
		return strings.Compare(a.Category, b.Category)
	})
	return list, nil
}

func (l *memLedger) UpsertBudget(_ context.Context, b models.Budget) (models.Budget, error) {
	if err := l.writable(); err != nil {
		return models.Budget{}, err
	}
	l.d.budgets[b.Category] = b
	return b, nil
}

func (l *memLedger) DeleteBudget(_ context.Context, category string) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	_, ok := l.d.budgets[category]
	delete(l.d.budgets, category)
	return ok, nil
}

func (l *memLedger) GetState(context.Context) (models.GlobalState, error) {
	if l.d.state == nil {
		return models.GlobalState{}, ErrNotFound
	}
	return *l.d.state, nil
}

func (l *memLedger) PutState(_ context.Context, s models.GlobalState) error {
	if err := l.writable(); err != nil {
		return err
	}
	l.d.state = &s
	return nil
}
