package ledger

import (
	"context"
	"fmt"

	"kanakku/internal/core"
)

// BudgetService maps expense categories to spending limits, one limit per
// category with upsert semantics.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// SetBudget replaces any existing limit for the category.
func (s *BudgetService) SetBudget(ctx context.Context, category core.ExpenseCategory, limit core.Money) error {
	budget := core.Budget{Category: category, Limit: limit}
	if err := budget.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertBudget(ctx, budget); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// GetBudget returns the limit for a category, zero when none is set.
func (s *BudgetService) GetBudget(ctx context.Context, category core.ExpenseCategory) (core.Money, error) {
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return core.Money{}, fmt.Errorf("list budgets: %w", err)
	}
	for _, b := range budgets {
		if b.Category == category {
			return b.Limit, nil
		}
	}
	return core.Money{}, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}
