package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kanakku/internal/core"
)

// NewExpense carries user input for logging an expense.
type NewExpense struct {
	Amount        core.Money
	Category      core.ExpenseCategory
	Description   string
	Date          core.Day
	PaymentMethod core.PaymentMethod
}

// ExpenseService handles expense records. No lifecycle here: expenses are
// immutable once logged, with delete and an undo-style restore.
type ExpenseService struct {
	store ExpenseStore
	now   func() time.Time
	newID func() string
}

func NewExpenseService(store ExpenseStore) *ExpenseService {
	return &ExpenseService{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *ExpenseService) WithClock(now func() time.Time) *ExpenseService {
	s.now = now
	return s
}

func (s *ExpenseService) AddExpense(ctx context.Context, in NewExpense) (core.Expense, error) {
	expense := core.Expense{
		ID:            s.newID(),
		Amount:        in.Amount,
		Category:      in.Category,
		Description:   in.Description,
		Date:          in.Date,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     s.now().UnixMilli(),
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.InsertExpense(ctx, expense); err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", expense.ID,
		"category", expense.Category,
		"amount_cents", expense.Amount.Cents,
		"date", expense.Date)

	return expense, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// RestoreExpense undoes a delete by re-inserting the captured record
// verbatim, original id and timestamps included.
func (s *ExpenseService) RestoreExpense(ctx context.Context, expense core.Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}
	return s.store.InsertExpense(ctx, expense)
}

// ListExpenses returns expenses newest-first by insertion.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}
