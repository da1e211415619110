package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore runs Update scopes in READ COMMITTED transactions and takes
// explicit row locks where cross-table rules depend on a read.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) View(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	return fn(ctx, &pgLedger{q: s.db, readOnly: true})
}

func (s *PostgresStore) Update(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	return utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(ctx, &pgLedger{q: tx, locking: true})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *PostgresStore) Backend() string                { return BackendPostgres }
func (s *PostgresStore) Close() error                   { return s.db.Close() }

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pgLedger struct {
	q        queryer
	locking  bool
	readOnly bool
}

func (l *pgLedger) writable() error {
	if l.readOnly {
		return ErrReadOnly
	}
	return nil
}

// mapPgError turns constraint violations into store sentinels.
func mapPgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReference, pqErr.Constraint)
		}
	}
	return err
}

const expenseColumns = `id, date, amount, category, notes`

func scanExpenses(rows *sql.Rows) ([]models.Expense, error) {
	defer rows.Close()
	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Notes); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (l *pgLedger) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		ORDER BY date DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

func (l *pgLedger) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Expense{}, ErrNotFound
	}
	var e models.Expense
	err := l.q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id).
		Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, ErrNotFound
	}
	return e, err
}

func (l *pgLedger) InsertExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	if err := l.writable(); err != nil {
		return models.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := l.q.ExecContext(ctx, `
		INSERT INTO expenses (id, date, amount, category, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.Date, e.Amount, e.Category, e.Notes)
	if err != nil {
		return models.Expense{}, mapPgError(err)
	}
	return e, nil
}

func (l *pgLedger) UpdateExpense(ctx context.Context, e models.Expense) error {
	if err := l.writable(); err != nil {
		return err
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return ErrNotFound
	}
	res, err := l.q.ExecContext(ctx, `
		UPDATE expenses SET date = $2, amount = $3, category = $4, notes = $5
		WHERE id = $1
	`, e.ID, e.Date, e.Amount, e.Category, e.Notes)
	if err != nil {
		return mapPgError(err)
	}
	return requireAffected(res)
}

func (l *pgLedger) DeleteExpense(ctx context.Context, id string) error {
	if err := l.writable(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := l.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *pgLedger) DeleteAllExpenses(ctx context.Context) ([]models.Expense, error) {
	if err := l.writable(); err != nil {
		return nil, err
	}
	rows, err := l.q.QueryContext(ctx, `DELETE FROM expenses RETURNING `+expenseColumns)
	if err != nil {
		return nil, err
	}
	removed, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}
	sortExpenses(removed)
	return removed, nil
}

func (l *pgLedger) DeleteExpensesByCategory(ctx context.Context, category string) (int64, error) {
	if err := l.writable(); err != nil {
		return 0, err
	}
	res, err := l.q.ExecContext(ctx, `DELETE FROM expenses WHERE category = $1`, category)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (l *pgLedger) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := l.q.QueryContext(ctx, `SELECT name, icon FROM categories ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Name, &c.Icon); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (l *pgLedger) findCategory(ctx context.Context, query, name string) (models.Category, error) {
	var c models.Category
	err := l.q.QueryRowContext(ctx, query, name).Scan(&c.Name, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, ErrNotFound
	}
	return c, err
}

func (l *pgLedger) FindCategory(ctx context.Context, name string) (models.Category, error) {
	query := `SELECT name, icon FROM categories WHERE name = $1`
	if l.locking {
		// Blocks a concurrent DELETE of the row until this transaction ends.
		query += ` FOR SHARE`
	}
	return l.findCategory(ctx, query, name)
}

func (l *pgLedger) FindCategoryFold(ctx context.Context, name string) (models.Category, error) {
	return l.findCategory(ctx, `SELECT name, icon FROM categories WHERE lower(name) = lower($1)`, name)
}

func (l *pgLedger) InsertCategory(ctx context.Context, c models.Category) error {
	if err := l.writable(); err != nil {
		return err
	}
	_, err := l.q.ExecContext(ctx, `INSERT INTO categories (name, icon) VALUES ($1, $2)`, c.Name, c.Icon)
	return mapPgError(err)
}

func (l *pgLedger) DeleteCategory(ctx context.Context, name string) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	res, err := l.q.ExecContext(ctx, `DELETE FROM categories WHERE name = $1`, name)
	if err != nil {
		return false, mapPgError(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (l *pgLedger) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	rows, err := l.q.QueryContext(ctx, `SELECT category, amount FROM budgets ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.Category, &b.Amount); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (l *pgLedger) UpsertBudget(ctx context.Context, b models.Budget) (models.Budget, error) {
	if err := l.writable(); err != nil {
		return models.Budget{}, err
	}
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO budgets (category, amount)
		VALUES ($1, $2)
		ON CONFLICT (category) DO UPDATE SET amount = EXCLUDED.amount
		RETURNING category, amount
	`, b.Category, b.Amount).Scan(&b.Category, &b.Amount)
	if err != nil {
		return models.Budget{}, mapPgError(err)
	}
	return b, nil
}

func (l *pgLedger) DeleteBudget(ctx context.Context, category string) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	res, err := l.q.ExecContext(ctx, `DELETE FROM budgets WHERE category = $1`, category)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (l *pgLedger) GetState(ctx context.Context) (models.GlobalState, error) {
	query := `SELECT monthly_budget, archived_spend FROM global_state WHERE id = 1`
	if l.locking {
		query += ` FOR UPDATE`
	}
	var st models.GlobalState
	err := l.q.QueryRowContext(ctx, query).Scan(&st.MonthlyBudget, &st.ArchivedSpend)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GlobalState{}, ErrNotFound
	}
	return st, err
}

func (l *pgLedger) PutState(ctx context.Context, st models.GlobalState) error {
	if err := l.writable(); err != nil {
		return err
	}
	_, err := l.q.ExecContext(ctx, `
		INSERT INTO global_state (id, monthly_budget, archived_spend)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET monthly_budget = EXCLUDED.monthly_budget,
		    archived_spend = EXCLUDED.archived_spend
	`, st.MonthlyBudget, st.ArchivedSpend)
	return err
}
