// Package ledger implements the transactional core of the tracker: the
// recurring-income lifecycle engine plus the simpler expense and budget
// operations.
//
// An income occurrence moves through {Expected, Overdue, Received}. Received
// is terminal for the occurrence but recurring incomes spawn a successor
// occurrence at the next scheduled date. Reconciliation re-derives the
// Expected/Overdue split from the current date and is safe to run any number
// of times.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"kanakku/internal/core"
)

// ErrAlreadyReceived is returned when a lifecycle transition is requested on
// a terminal occurrence.
var ErrAlreadyReceived = errors.New("income already received")

// NewIncome carries user input for creating an income occurrence. Status and
// identifiers are assigned by the engine.
type NewIncome struct {
	Amount        core.Money
	Category      core.IncomeCategory
	Source        string
	Date          core.Day
	Recurrence    core.Recurrence
	TenantContact string
}

// IncomeService owns the status state machine for income occurrences.
// The clock and id generator are injectable so temporal edge cases are
// testable without the wall clock.
type IncomeService struct {
	store IncomeStore
	now   func() time.Time
	newID func() string
}

func NewIncomeService(store IncomeStore) *IncomeService {
	return &IncomeService{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock overrides the engine's clock. Test hook.
func (s *IncomeService) WithClock(now func() time.Time) *IncomeService {
	s.now = now
	return s
}

// WithIDFunc overrides the id generator. Test hook.
func (s *IncomeService) WithIDFunc(newID func() string) *IncomeService {
	s.newID = newID
	return s
}

// AddIncome creates the primary occurrence and, for a recurring income dated
// today or earlier, immediately synthesizes the next occurrence. Entering
// last month's salary therefore shows this month's as pending right away
// instead of waiting for a reconciliation pass.
//
// Returned entries are the records actually persisted, primary first.
func (s *IncomeService) AddIncome(ctx context.Context, in NewIncome) ([]core.Income, error) {
	today := core.Today(s.now())

	status := core.StatusExpected
	if in.Date <= today {
		// Logging something that already happened, or happening today.
		status = core.StatusReceived
	}

	createdAt := s.now().UnixMilli()
	main := core.Income{
		ID:            s.newID(),
		Amount:        in.Amount,
		Category:      in.Category,
		Source:        in.Source,
		Date:          in.Date,
		Recurrence:    in.Recurrence,
		Status:        status,
		TenantContact: in.TenantContact,
		CreatedAt:     createdAt,
	}
	if err := main.Validate(); err != nil {
		return nil, err
	}

	entries := []core.Income{main}
	if status == core.StatusReceived && in.Recurrence != core.RecurNone {
		next, err := s.successor(main, main.Date, today)
		if err != nil {
			return nil, err
		}
		entries = append(entries, next)
	}

	if err := s.store.InsertIncomes(ctx, entries...); err != nil {
		return nil, fmt.Errorf("insert incomes: %w", err)
	}

	slog.InfoContext(ctx, "Income created",
		"id", main.ID,
		"category", main.Category,
		"date", main.Date,
		"status", main.Status,
		"recurrence", main.Recurrence,
		"successor", len(entries) == 2)

	return entries, nil
}

// MarkReceived flips a pending occurrence to Received, rewriting its date to
// today so the ledger reflects the actual cash-flow date. The successor for a
// recurring income is computed from the occurrence's scheduled date, not from
// today: rent due the 5th paid late on the 10th still recurs on the 5th.
func (s *IncomeService) MarkReceived(ctx context.Context, id string) ([]core.Income, error) {
	income, err := s.store.GetIncome(ctx, id)
	if err != nil {
		return nil, err
	}
	if income.Status == core.StatusReceived {
		return nil, ErrAlreadyReceived
	}

	today := core.Today(s.now())
	scheduledDate := income.Date

	income.Status = core.StatusReceived
	income.Date = today
	if err := s.store.UpdateIncome(ctx, income); err != nil {
		return nil, fmt.Errorf("update income: %w", err)
	}

	entries := []core.Income{income}
	if income.Recurrence != core.RecurNone {
		next, err := s.successor(income, scheduledDate, today)
		if err != nil {
			return nil, err
		}
		if err := s.store.InsertIncomes(ctx, next); err != nil {
			return nil, fmt.Errorf("insert successor: %w", err)
		}
		entries = append(entries, next)
	}

	slog.InfoContext(ctx, "Income marked received",
		"id", income.ID,
		"scheduled_date", scheduledDate,
		"received_date", today,
		"successor", len(entries) == 2)

	return entries, nil
}

// successor builds the next occurrence after from, dated by the recurrence
// period. A successor already past due is born Overdue, not Expected.
// CreatedAt is the originator's plus one so default recency sorts place it
// directly after.
func (s *IncomeService) successor(from core.Income, fromDate core.Day, today core.Day) (core.Income, error) {
	nextDate, err := core.NextOccurrence(fromDate, from.Recurrence)
	if err != nil {
		return core.Income{}, fmt.Errorf("next occurrence: %w", err)
	}

	status := core.StatusExpected
	if nextDate.Before(today) {
		status = core.StatusOverdue
	}

	next := from
	next.ID = s.newID()
	next.Date = nextDate
	next.Status = status
	next.CreatedAt = from.CreatedAt + 1
	return next, nil
}

// Reconcile re-derives pending statuses from the current date: Expected
// entries whose date has passed become Overdue, and Overdue entries dated
// today or later self-heal back to Expected (stale persisted state, clock
// skew). Received entries are never touched. Running it twice in a row is a
// no-op the second time.
func (s *IncomeService) Reconcile(ctx context.Context) (int, error) {
	incomes, err := s.store.ListIncomes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list incomes: %w", err)
	}

	today := core.Today(s.now())
	changed := 0
	for _, inc := range incomes {
		switch {
		case inc.Status == core.StatusExpected && inc.Date.Before(today):
			inc.Status = core.StatusOverdue
		case inc.Status == core.StatusOverdue && !inc.Date.Before(today):
			inc.Status = core.StatusExpected
		default:
			continue
		}
		if err := s.store.UpdateIncome(ctx, inc); err != nil {
			return changed, fmt.Errorf("update income %s: %w", inc.ID, err)
		}
		changed++
	}

	if changed > 0 {
		slog.InfoContext(ctx, "Income reconciliation applied", "changed", changed, "today", today)
	}
	return changed, nil
}

// DeleteIncome removes an occurrence unconditionally. Successors spawned from
// it are independent records and are not cascaded. Destructive: the caller
// confirms, there is no undo path for incomes.
func (s *IncomeService) DeleteIncome(ctx context.Context, id string) error {
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Income deleted", "id", id)
	return nil
}

// RestoreIncome re-inserts a previously captured record verbatim, original
// id included.
func (s *IncomeService) RestoreIncome(ctx context.Context, income core.Income) error {
	if err := income.Validate(); err != nil {
		return err
	}
	return s.store.InsertIncomes(ctx, income)
}

// ListIncomes returns all occurrences, most recently created first.
func (s *IncomeService) ListIncomes(ctx context.Context) ([]core.Income, error) {
	return s.store.ListIncomes(ctx)
}

// Buckets splits pending occurrences for display: Overdue (dated before
// today) and Upcoming (today or later), both ascending by date with creation
// order as tiebreaker. Received occurrences appear in neither.
func (s *IncomeService) Buckets(ctx context.Context) (overdue, upcoming []core.Income, err error) {
	incomes, err := s.store.ListIncomes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list incomes: %w", err)
	}

	today := core.Today(s.now())
	for _, inc := range incomes {
		if inc.Status == core.StatusReceived {
			continue
		}
		if inc.Date.Before(today) {
			overdue = append(overdue, inc)
		} else {
			upcoming = append(upcoming, inc)
		}
	}

	byDate := func(list []core.Income) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].Date != list[j].Date {
				return list[i].Date < list[j].Date
			}
			return list[i].CreatedAt < list[j].CreatedAt
		}
	}
	sort.Slice(overdue, byDate(overdue))
	sort.Slice(upcoming, byDate(upcoming))
	return overdue, upcoming, nil
}
