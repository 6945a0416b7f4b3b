package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"kanakku/internal/core"
	"kanakku/internal/storage/memory"
)

// newTestService pins the clock to the given day and makes ids sequential
// ("id-1", "id-2", ...).
func newTestService(t *testing.T, today string) (*IncomeService, *memory.Store) {
	t.Helper()

	now, err := time.ParseInLocation("2006-01-02", today, time.Local)
	if err != nil {
		t.Fatalf("bad test date %q: %v", today, err)
	}

	store := memory.New()
	seq := 0
	svc := NewIncomeService(store).
		WithClock(func() time.Time { return now }).
		WithIDFunc(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		})
	return svc, store
}

func TestAddIncomeFuture(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-10")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 150000},
		Category:   core.IncomeRent,
		Source:     "Tenant A",
		Date:       "2025-06-15",
		Recurrence: core.RecurMonthly,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("future-dated income spawned %d records, want 1", len(entries))
	}
	if entries[0].Status != core.StatusExpected {
		t.Errorf("status = %s, want Expected", entries[0].Status)
	}
}

func TestAddIncomeRetroactiveRecurring(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-10")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 500000},
		Category:   core.IncomeSalary,
		Source:     "Employer",
		Date:       "2025-05-31",
		Recurrence: core.RecurMonthly,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d records, want primary plus successor", len(entries))
	}

	main, next := entries[0], entries[1]
	if main.Status != core.StatusReceived {
		t.Errorf("primary status = %s, want Received", main.Status)
	}
	if next.Date != "2025-06-30" {
		t.Errorf("successor date = %s, want 2025-06-30", next.Date)
	}
	if next.Status != core.StatusExpected {
		t.Errorf("successor status = %s, want Expected", next.Status)
	}
	if next.CreatedAt != main.CreatedAt+1 {
		t.Errorf("successor CreatedAt = %d, want originator+1 (%d)", next.CreatedAt, main.CreatedAt+1)
	}
	if next.ID == main.ID {
		t.Error("successor shares the originator's id")
	}
	if next.Source != main.Source || next.Amount != main.Amount || next.Recurrence != main.Recurrence {
		t.Error("successor did not inherit the originator's fields")
	}
}

func TestAddIncomeTodayCountsAsReceived(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-10")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 1000},
		Category:   core.IncomeGift,
		Source:     "Aunt",
		Date:       "2025-06-10",
		Recurrence: core.RecurNone,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}
	if entries[0].Status != core.StatusReceived {
		t.Errorf("today-dated income status = %s, want Received", entries[0].Status)
	}
	if len(entries) != 1 {
		t.Errorf("non-recurring income spawned a successor")
	}
}

func TestAddIncomeOverdueSuccessor(t *testing.T) {
	// A retroactive entry two months back: the synthesized successor is
	// itself already past due and must be born Overdue.
	svc, _ := newTestService(t, "2025-06-10")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 150000},
		Category:   core.IncomeRent,
		Source:     "Tenant A",
		Date:       "2025-04-05",
		Recurrence: core.RecurMonthly,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d records, want 2", len(entries))
	}
	if entries[1].Date != "2025-05-05" {
		t.Errorf("successor date = %s, want 2025-05-05", entries[1].Date)
	}
	if entries[1].Status != core.StatusOverdue {
		t.Errorf("successor status = %s, want Overdue", entries[1].Status)
	}
}

func TestAddIncomeValidation(t *testing.T) {
	svc, store := newTestService(t, "2025-06-10")

	_, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 0},
		Category:   core.IncomeSalary,
		Source:     "Employer",
		Date:       "2025-06-01",
		Recurrence: core.RecurNone,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}

	// Nothing persisted on validation failure.
	incomes, err := store.ListIncomes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incomes) != 0 {
		t.Fatalf("store has %d records after rejected insert", len(incomes))
	}
}

func TestMarkReceivedNoDrift(t *testing.T) {
	// Rent due on the 5th, paid late on the 10th. The occurrence's date is
	// rewritten to the payment date, but the successor recurs from the 5th.
	svc, _ := newTestService(t, "2025-06-01")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 150000},
		Category:   core.IncomeRent,
		Source:     "Tenant A",
		Date:       "2025-06-05",
		Recurrence: core.RecurMonthly,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}
	id := entries[0].ID

	// Time passes: it is now the 10th.
	later := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	svc.WithClock(func() time.Time { return later })

	updated, err := svc.MarkReceived(context.Background(), id)
	if err != nil {
		t.Fatalf("MarkReceived: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("got %d records, want received occurrence plus successor", len(updated))
	}

	received, next := updated[0], updated[1]
	if received.Status != core.StatusReceived {
		t.Errorf("status = %s, want Received", received.Status)
	}
	if received.Date != "2025-06-10" {
		t.Errorf("received date = %s, want rewritten to 2025-06-10", received.Date)
	}
	if next.Date != "2025-07-05" {
		t.Errorf("successor date = %s, want 2025-07-05 (no drift)", next.Date)
	}
	if next.Status != core.StatusExpected {
		t.Errorf("successor status = %s, want Expected", next.Status)
	}
}

func TestMarkReceivedTerminal(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-10")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 1000},
		Category:   core.IncomeGift,
		Source:     "Aunt",
		Date:       "2025-06-01",
		Recurrence: core.RecurNone,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	// Already Received (retroactive entry): marking again is rejected.
	_, err = svc.MarkReceived(context.Background(), entries[0].ID)
	if !errors.Is(err, ErrAlreadyReceived) {
		t.Fatalf("got %v, want ErrAlreadyReceived", err)
	}
}

func TestMarkReceivedNotFound(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-10")

	_, err := svc.MarkReceived(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMarkReceivedNonRecurring(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-01")

	entries, err := svc.AddIncome(context.Background(), NewIncome{
		Amount:     core.Money{Cents: 2500},
		Category:   core.IncomeInterest,
		Source:     "Bank",
		Date:       "2025-06-15",
		Recurrence: core.RecurNone,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	updated, err := svc.MarkReceived(context.Background(), entries[0].ID)
	if err != nil {
		t.Fatalf("MarkReceived: %v", err)
	}
	if len(updated) != 1 {
		t.Fatalf("non-recurring income spawned a successor on receipt")
	}
}

func TestReconcile(t *testing.T) {
	svc, store := newTestService(t, "2025-06-01")

	ctx := context.Background()
	seed := []core.Income{
		{ID: "a", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-05-20", Recurrence: core.RecurNone, Status: core.StatusExpected, CreatedAt: 1},
		{ID: "b", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-10", Recurrence: core.RecurNone, Status: core.StatusOverdue, CreatedAt: 2},
		{ID: "c", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-01", Recurrence: core.RecurNone, Status: core.StatusExpected, CreatedAt: 3},
		{ID: "d", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-05-01", Recurrence: core.RecurNone, Status: core.StatusReceived, CreatedAt: 4},
	}
	if err := store.InsertIncomes(ctx, seed...); err != nil {
		t.Fatalf("seed: %v", err)
	}

	changed, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// a: past due Expected -> Overdue. b: future Overdue self-heals.
	// c: due today stays Expected. d: Received untouched.
	if changed != 2 {
		t.Fatalf("changed = %d, want 2", changed)
	}

	want := map[string]core.IncomeStatus{
		"a": core.StatusOverdue,
		"b": core.StatusExpected,
		"c": core.StatusExpected,
		"d": core.StatusReceived,
	}
	for id, status := range want {
		got, err := store.GetIncome(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != status {
			t.Errorf("income %s status = %s, want %s", id, got.Status, status)
		}
	}

	// Idempotent: second pass changes nothing.
	changed, err = svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if changed != 0 {
		t.Fatalf("second pass changed %d records, want 0", changed)
	}
}

func TestDeleteAndRestoreIncome(t *testing.T) {
	svc, _ := newTestService(t, "2025-06-01")

	ctx := context.Background()
	entries, err := svc.AddIncome(ctx, NewIncome{
		Amount:     core.Money{Cents: 1000},
		Category:   core.IncomeOther,
		Source:     "s",
		Date:       "2025-06-15",
		Recurrence: core.RecurNone,
	})
	if err != nil {
		t.Fatalf("AddIncome: %v", err)
	}
	captured := entries[0]

	if err := svc.DeleteIncome(ctx, captured.ID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if err := svc.DeleteIncome(ctx, captured.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}

	if err := svc.RestoreIncome(ctx, captured); err != nil {
		t.Fatalf("RestoreIncome: %v", err)
	}
	restored, err := svc.ListIncomes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(restored) != 1 || restored[0] != captured {
		t.Fatalf("restored record differs from captured: %+v", restored)
	}
}

func TestBuckets(t *testing.T) {
	svc, store := newTestService(t, "2025-06-10")

	ctx := context.Background()
	seed := []core.Income{
		{ID: "overdue-late", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-05", Recurrence: core.RecurNone, Status: core.StatusOverdue, CreatedAt: 5},
		{ID: "overdue-early", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-01", Recurrence: core.RecurNone, Status: core.StatusOverdue, CreatedAt: 1},
		{ID: "due-today", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-10", Recurrence: core.RecurNone, Status: core.StatusExpected, CreatedAt: 2},
		{ID: "upcoming", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-20", Recurrence: core.RecurNone, Status: core.StatusExpected, CreatedAt: 3},
		{ID: "received", Amount: core.Money{Cents: 100}, Category: core.IncomeOther, Source: "s", Date: "2025-06-01", Recurrence: core.RecurNone, Status: core.StatusReceived, CreatedAt: 4},
	}
	if err := store.InsertIncomes(ctx, seed...); err != nil {
		t.Fatalf("seed: %v", err)
	}

	overdue, upcoming, err := svc.Buckets(ctx)
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}

	gotOverdue := ids(overdue)
	gotUpcoming := ids(upcoming)

	wantOverdue := []string{"overdue-early", "overdue-late"}
	wantUpcoming := []string{"due-today", "upcoming"}

	if !equal(gotOverdue, wantOverdue) {
		t.Errorf("overdue = %v, want %v", gotOverdue, wantOverdue)
	}
	if !equal(gotUpcoming, wantUpcoming) {
		t.Errorf("upcoming = %v, want %v", gotUpcoming, wantUpcoming)
	}
}

func ids(incomes []core.Income) []string {
	out := make([]string, len(incomes))
	for i, inc := range incomes {
		out[i] = inc.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
