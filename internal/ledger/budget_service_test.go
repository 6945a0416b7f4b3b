package ledger

import (
	"context"
	"errors"
	"testing"

	"kanakku/internal/core"
	"kanakku/internal/storage/memory"
)

func TestBudgetUpsert(t *testing.T) {
	svc := NewBudgetService(memory.New())
	ctx := context.Background()

	if err := svc.SetBudget(ctx, core.ExpenseFood, core.Money{Cents: 20000}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	// Second set for the same category replaces, not appends.
	if err := svc.SetBudget(ctx, core.ExpenseFood, core.Money{Cents: 25000}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if err := svc.SetBudget(ctx, core.ExpenseBills, core.Money{Cents: 5000}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	budgets, err := svc.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 2 {
		t.Fatalf("got %d budgets, want 2", len(budgets))
	}

	limit, err := svc.GetBudget(ctx, core.ExpenseFood)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if limit.Cents != 25000 {
		t.Errorf("Food limit = %d, want 25000", limit.Cents)
	}
}

func TestBudgetUnsetIsZero(t *testing.T) {
	svc := NewBudgetService(memory.New())

	limit, err := svc.GetBudget(context.Background(), core.ExpenseShopping)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if limit.Cents != 0 {
		t.Errorf("unset budget = %d, want 0", limit.Cents)
	}
}

func TestBudgetValidation(t *testing.T) {
	svc := NewBudgetService(memory.New())
	ctx := context.Background()

	if err := svc.SetBudget(ctx, "Travel", core.Money{Cents: 100}); err == nil {
		t.Error("unknown category accepted")
	}
	if err := svc.SetBudget(ctx, core.ExpenseFood, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative limit: got %v, want ErrInvalidAmount", err)
	}
	// Zero means "no budget" and is allowed.
	if err := svc.SetBudget(ctx, core.ExpenseFood, core.Money{Cents: 0}); err != nil {
		t.Errorf("zero limit rejected: %v", err)
	}
}
