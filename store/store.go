// Package store holds the ledger collections (expenses, categories, budgets
// and the global state singleton) behind one interface with PostgreSQL,
// MongoDB and in-memory backends.
package store

import (
	"context"
	"errors"

	"github.com/LovationAdmin/expensewise-api/models"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("unique constraint violated")
	ErrReference = errors.New("referenced row does not exist")
	ErrReadOnly  = errors.New("write attempted in a read-only scope")
)

// Ledger is the set of primitive operations available inside a View or
// Update scope. Implementations never enforce cross-collection rules; those
// belong to the reconciliation layer.
type Ledger interface {
	// ListExpenses returns every expense, newest date first.
	ListExpenses(ctx context.Context) ([]models.Expense, error)
	GetExpense(ctx context.Context, id string) (models.Expense, error)
	// InsertExpense stores e and assigns its ID when empty.
	InsertExpense(ctx context.Context, e models.Expense) (models.Expense, error)
	UpdateExpense(ctx context.Context, e models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	// DeleteAllExpenses removes every expense and returns exactly the rows removed.
	DeleteAllExpenses(ctx context.Context) ([]models.Expense, error)
	DeleteExpensesByCategory(ctx context.Context, category string) (int64, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	// FindCategory matches the exact name. Inside an Update scope the
	// category is protected against concurrent deletion until commit.
	FindCategory(ctx context.Context, name string) (models.Category, error)
	// FindCategoryFold matches the name case-insensitively.
	FindCategoryFold(ctx context.Context, name string) (models.Category, error)
	InsertCategory(ctx context.Context, c models.Category) error
	DeleteCategory(ctx context.Context, name string) (bool, error)

	ListBudgets(ctx context.Context) ([]models.Budget, error)
	UpsertBudget(ctx context.Context, b models.Budget) (models.Budget, error)
	DeleteBudget(ctx context.Context, category string) (bool, error)

	// GetState returns ErrNotFound until the singleton has been written.
	// Inside an Update scope the row stays locked until commit.
	GetState(ctx context.Context) (models.GlobalState, error)
	PutState(ctx context.Context, s models.GlobalState) error
}

// Store runs functions against a Ledger.
type Store interface {
	// View runs fn for reads. fn must not write.
	View(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
	// Update runs fn as one atomic unit: all of its writes commit together
	// or none do.
	Update(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
	Ping(ctx context.Context) error
	Backend() string
	Close() error
}
