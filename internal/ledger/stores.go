package ledger

import (
	"context"

	"kanakku/internal/core"
)

// IncomeStore is the persistence surface the lifecycle engine needs.
// Implementations return core.ErrNotFound for missing ids.
type IncomeStore interface {
	ListIncomes(ctx context.Context) ([]core.Income, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
	InsertIncomes(ctx context.Context, incomes ...core.Income) error
	UpdateIncome(ctx context.Context, income core.Income) error
	DeleteIncome(ctx context.Context, id string) error
}

type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	InsertExpense(ctx context.Context, expense core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

type BudgetStore interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, budget core.Budget) error
}
