// Package migration moves ledger data between storage backends, typically
// from the MongoDB collections the first deployment used into PostgreSQL.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/store"

	"github.com/sirupsen/logrus"
)

type CopyOptions struct {
	// Overwrite clears the destination expenses and replaces its global
	// state. Without it expenses are appended and an existing state is kept.
	Overwrite bool
	DryRun    bool
}

type Stats struct {
	Categories        int
	CategoriesSkipped int
	Budgets           int
	Expenses          int
	ExpensesRemoved   int
	StateWritten      bool
	Duration          time.Duration
}

type sourceData struct {
	expenses   []models.Expense
	categories []models.Category
	budgets    []models.Budget
	state      *models.GlobalState
}

func readSource(ctx context.Context, src store.Store) (sourceData, error) {
	var data sourceData
	err := src.View(ctx, func(ctx context.Context, l store.Ledger) error {
		var err error
		if data.categories, err = l.ListCategories(ctx); err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		if data.budgets, err = l.ListBudgets(ctx); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		if data.expenses, err = l.ListExpenses(ctx); err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		st, err := l.GetState(ctx)
		switch {
		case err == nil:
			data.state = &st
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("get state: %w", err)
		}
		return nil
	})
	return data, err
}

// CopyLedger copies every collection of src into dst as one dst unit.
// Categories that already exist in dst (case-insensitively) are kept as
// they are. Expense IDs are reassigned by dst.
func CopyLedger(ctx context.Context, src, dst store.Store, opts CopyOptions, log logrus.FieldLogger) (Stats, error) {
	start := time.Now()
	log = log.WithFields(logrus.Fields{
		"component": "migration",
		"from":      src.Backend(),
		"to":        dst.Backend(),
	})

	var stats Stats
	data, err := readSource(ctx, src)
	if err != nil {
		return stats, fmt.Errorf("read source: %w", err)
	}
	log.WithFields(logrus.Fields{
		"categories": len(data.categories),
		"budgets":    len(data.budgets),
		"expenses":   len(data.expenses),
	}).Info("Source ledger loaded")

	errDryRun := errors.New("dry run")
	err = dst.Update(ctx, func(ctx context.Context, l store.Ledger) error {
		stats = Stats{}

		// Expenses reference categories by their exact name, so a name
		// that only matches case-insensitively is remapped.
		names := make(map[string]string, len(data.categories))
		for _, c := range data.categories {
			existing, err := l.FindCategoryFold(ctx, c.Name)
			if err == nil {
				names[c.Name] = existing.Name
				stats.CategoriesSkipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("find category %q: %w", c.Name, err)
			}
			if !c.Icon.Valid() {
				c.Icon = models.IconOther
			}
			if err := l.InsertCategory(ctx, c); err != nil {
				return fmt.Errorf("insert category %q: %w", c.Name, err)
			}
			names[c.Name] = c.Name
			stats.Categories++
		}

		for _, b := range data.budgets {
			name, ok := names[b.Category]
			if !ok {
				log.WithField("category", b.Category).Warn("Skipping budget of unknown category")
				continue
			}
			b.Category = name
			if _, err := l.UpsertBudget(ctx, b); err != nil {
				return fmt.Errorf("upsert budget %q: %w", b.Category, err)
			}
			stats.Budgets++
		}

		if opts.Overwrite {
			removed, err := l.DeleteAllExpenses(ctx)
			if err != nil {
				return fmt.Errorf("clear expenses: %w", err)
			}
			stats.ExpensesRemoved = len(removed)
		}

		// Oldest first so backends that order ties by insertion keep the
		// source order.
		for i := len(data.expenses) - 1; i >= 0; i-- {
			e := data.expenses[i]
			name, ok := names[e.Category]
			if !ok {
				return fmt.Errorf("expense %s: unknown category %q", e.ID, e.Category)
			}
			e.ID = ""
			e.Category = name
			if _, err := l.InsertExpense(ctx, e); err != nil {
				return fmt.Errorf("insert expense: %w", err)
			}
			stats.Expenses++
		}

		if data.state != nil {
			_, err := l.GetState(ctx)
			switch {
			case errors.Is(err, store.ErrNotFound) || (err == nil && opts.Overwrite):
				if err := l.PutState(ctx, *data.state); err != nil {
					return fmt.Errorf("put state: %w", err)
				}
				stats.StateWritten = true
			case err != nil:
				return fmt.Errorf("get state: %w", err)
			}
		}

		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return Stats{}, fmt.Errorf("write destination: %w", err)
	}

	stats.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"categories_added":   stats.Categories,
		"categories_skipped": stats.CategoriesSkipped,
		"budgets":            stats.Budgets,
		"expenses":           stats.Expenses,
		"expenses_removed":   stats.ExpensesRemoved,
		"state_written":      stats.StateWritten,
		"dry_run":            opts.DryRun,
		"duration_ms":        stats.Duration.Milliseconds(),
	}).Info("Ledger copy finished")
	return stats, nil
}
