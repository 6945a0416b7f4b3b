package backup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kanakku/internal/core"
	"kanakku/internal/crypto"
	"kanakku/internal/identity"
	"kanakku/internal/storage/memory"
)

type recordedDelivery struct {
	kind      string
	recipient string
	content   string
}

// recordingDeliverer captures deliveries; fail makes every call error to
// exercise the soft-failure path.
type recordingDeliverer struct {
	deliveries []recordedDelivery
	fail       bool
}

func (d *recordingDeliverer) DeliverBackup(_ context.Context, recipient, content string) error {
	if d.fail {
		return errors.New("queue down")
	}
	d.deliveries = append(d.deliveries, recordedDelivery{kind: "backup", recipient: recipient, content: content})
	return nil
}

func (d *recordingDeliverer) DeliverExport(_ context.Context, recipient, csv string) error {
	if d.fail {
		return errors.New("queue down")
	}
	d.deliveries = append(d.deliveries, recordedDelivery{kind: "export", recipient: recipient, content: csv})
	return nil
}

func newTestManager(t *testing.T) (*Manager, *memory.Store, *identity.Session, *recordingDeliverer) {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	session := identity.NewSession(store, identity.PlainChecker{})
	if err := session.StartSignup(ctx, "asha@example.com"); err != nil {
		t.Fatalf("StartSignup: %v", err)
	}
	if _, err := session.CompleteOnboarding(ctx, core.UserProfile{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "pw",
	}); err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}

	deliverer := &recordingDeliverer{}
	manager := NewManager(store, session, deliverer).
		WithClock(func() time.Time { return time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC) })
	return manager, store, session, deliverer
}

func seedData(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	err := store.InsertExpense(ctx, core.Expense{
		ID: "e1", Amount: core.Money{Cents: 1250}, Category: core.ExpenseFood,
		Description: "Groceries, weekly", Date: "2025-06-01", PaymentMethod: core.PayUPI, CreatedAt: 1,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	err = store.InsertIncomes(ctx, core.Income{
		ID: "i1", Amount: core.Money{Cents: 150000}, Category: core.IncomeRent,
		Source: "Tenant A", Date: "2025-06-05", Recurrence: core.RecurMonthly,
		Status: core.StatusExpected, CreatedAt: 2,
	})
	if err != nil {
		t.Fatalf("seed income: %v", err)
	}
	if err := store.UpsertBudget(ctx, core.Budget{Category: core.ExpenseFood, Limit: core.Money{Cents: 20000}}); err != nil {
		t.Fatalf("seed budget: %v", err)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	manager, store, _, deliverer := newTestManager(t)
	seedData(t, store)
	ctx := context.Background()

	entry, err := manager.Backup(ctx, "vault-key")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if entry.UserName != "Asha" {
		t.Errorf("UserName = %q", entry.UserName)
	}
	if entry.Size != len(entry.Content) {
		t.Errorf("Size = %d, content length %d", entry.Size, len(entry.Content))
	}

	// The stored content decrypts back to the full snapshot.
	var snapshot Snapshot
	if err := crypto.Decrypt(entry.Content, "vault-key", &snapshot); err != nil {
		t.Fatalf("decrypt stored backup: %v", err)
	}
	if snapshot.Metadata.Version != Version {
		t.Errorf("version = %q, want %q", snapshot.Metadata.Version, Version)
	}
	if snapshot.Metadata.Email != "asha@example.com" {
		t.Errorf("metadata email = %q", snapshot.Metadata.Email)
	}
	if len(snapshot.Data.Expenses) != 1 || len(snapshot.Data.Incomes) != 1 || len(snapshot.Data.Budgets) != 1 {
		t.Errorf("snapshot data counts: %d expenses, %d incomes, %d budgets",
			len(snapshot.Data.Expenses), len(snapshot.Data.Incomes), len(snapshot.Data.Budgets))
	}

	if len(deliverer.deliveries) != 1 || deliverer.deliveries[0].kind != "backup" {
		t.Fatalf("deliveries = %+v", deliverer.deliveries)
	}
	if deliverer.deliveries[0].recipient != "asha@example.com" {
		t.Errorf("delivery recipient = %q", deliverer.deliveries[0].recipient)
	}
}

func TestBackupRingCap(t *testing.T) {
	manager, store, _, _ := newTestManager(t)
	ctx := context.Background()

	var firstID string
	for i := 0; i < 7; i++ {
		entry, err := manager.Backup(ctx, "")
		if err != nil {
			t.Fatalf("Backup %d: %v", i, err)
		}
		if i == 0 {
			firstID = entry.ID
		}
	}

	backups, err := store.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 5 {
		t.Fatalf("ring holds %d entries, want 5", len(backups))
	}
	for _, b := range backups {
		if b.ID == firstID {
			t.Fatal("oldest backup was not evicted")
		}
	}
}

func TestBackupDeliveryFailureIsSoft(t *testing.T) {
	manager, store, _, deliverer := newTestManager(t)
	deliverer.fail = true
	ctx := context.Background()

	entry, err := manager.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup failed on delivery error: %v", err)
	}

	backups, err := store.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 1 || backups[0].ID != entry.ID {
		t.Fatalf("local backup not kept: %+v", backups)
	}
}

func TestDeleteBackup(t *testing.T) {
	manager, _, _, _ := newTestManager(t)
	ctx := context.Background()

	entry, err := manager.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := manager.DeleteBackup(ctx, entry.ID); err != nil {
		t.Fatalf("DeleteBackup: %v", err)
	}
	backups, err := manager.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 0 {
		t.Fatalf("ring still holds %d entries", len(backups))
	}
}

func TestImportErrors(t *testing.T) {
	manager, store, _, _ := newTestManager(t)
	seedData(t, store)
	ctx := context.Background()

	entry, err := manager.Backup(ctx, "right-key")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	if err := manager.ImportFrom(ctx, entry.Content, "wrong-key"); !errors.Is(err, core.ErrDecryptionFailed) {
		t.Errorf("wrong key: got %v, want ErrDecryptionFailed", err)
	}

	// A well-encrypted payload that is not a snapshot: shape failure, not a
	// decryption failure.
	notASnapshot, err := crypto.Encrypt(map[string]string{"hello": "world"}, "right-key")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := manager.ImportFrom(ctx, notASnapshot, "right-key"); !errors.Is(err, core.ErrInvalidFormat) {
		t.Errorf("malformed payload: got %v, want ErrInvalidFormat", err)
	}

	// Failed imports leave existing data untouched.
	incomes, err := store.ListIncomes(ctx)
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	if len(incomes) != 1 {
		t.Fatalf("income count after failed imports = %d, want 1", len(incomes))
	}
}

func TestImportReplacesAllData(t *testing.T) {
	manager, store, _, _ := newTestManager(t)
	seedData(t, store)
	ctx := context.Background()

	entry, err := manager.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Data written after the backup is gone after import: replace, not merge.
	err = store.InsertExpense(ctx, core.Expense{
		ID: "e2", Amount: core.Money{Cents: 900}, Category: core.ExpenseTransport,
		Description: "Bus", Date: "2025-06-09", PaymentMethod: core.PayCash, CreatedAt: 9,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := manager.ImportFrom(ctx, entry.Content, ""); err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}

	expenses, err := store.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "e1" {
		t.Fatalf("expenses after import = %+v", expenses)
	}
}

func TestImportProfileAdoptionOnlyOnIDMatch(t *testing.T) {
	manager, _, session, _ := newTestManager(t)
	ctx := context.Background()

	active, _ := session.Profile()

	// Same user id: profile fields from the snapshot are adopted.
	sameUser, err := crypto.Encrypt(Snapshot{
		Metadata:    Metadata{UserID: active.ID, Version: Version},
		UserProfile: &core.UserProfile{ID: active.ID, Name: "Renamed", Email: active.Email, Password: "pw"},
		Data:        &Payload{},
	}, "")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := manager.ImportFrom(ctx, sameUser, ""); err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	if profile, _ := session.Profile(); profile.Name != "Renamed" {
		t.Errorf("profile not adopted on id match: %+v", profile)
	}

	// Different user id: data replaced, identity untouched.
	otherUser, err := crypto.Encrypt(Snapshot{
		Metadata:    Metadata{UserID: "someone-else", Version: Version},
		UserProfile: &core.UserProfile{ID: "someone-else", Name: "Intruder"},
		Data:        &Payload{},
	}, "")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := manager.ImportFrom(ctx, otherUser, ""); err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	if profile, _ := session.Profile(); profile.Name != "Renamed" || profile.ID != active.ID {
		t.Errorf("foreign snapshot rewrote the active identity: %+v", profile)
	}
}

func TestRestoreUserAdoptsIdentity(t *testing.T) {
	manager, store, _, _ := newTestManager(t)
	seedData(t, store)
	ctx := context.Background()

	entry, err := manager.Backup(ctx, "vault")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Fresh device: empty store, nobody onboarded.
	freshStore := memory.New()
	freshSession := identity.NewSession(freshStore, identity.PlainChecker{})
	freshManager := NewManager(freshStore, freshSession, nil)

	if err := freshManager.RestoreUserFromBackup(ctx, entry.Content, "vault"); err != nil {
		t.Fatalf("RestoreUserFromBackup: %v", err)
	}

	if !freshSession.Authenticated() {
		t.Error("session not authenticated after restore")
	}
	profile, ok := freshSession.Profile()
	if !ok || profile.Email != "asha@example.com" {
		t.Fatalf("restored profile = %+v, ok=%v", profile, ok)
	}

	incomes, err := freshStore.ListIncomes(ctx)
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	if len(incomes) != 1 || incomes[0].ID != "i1" {
		t.Fatalf("restored incomes = %+v", incomes)
	}

	// The restored user can log back in on the new device.
	relogin := identity.NewSession(freshStore, identity.PlainChecker{})
	if err := relogin.Login(ctx, "asha@example.com", "pw"); err != nil {
		t.Errorf("login after restore: %v", err)
	}
}

func TestExportCSVFormat(t *testing.T) {
	expenses := []core.Expense{{
		ID: "e1", Amount: core.Money{Cents: 1250}, Category: core.ExpenseFood,
		Description: "Groceries, weekly", Date: "2025-06-01", PaymentMethod: core.PayUPI,
	}}
	incomes := []core.Income{{
		ID: "i1", Amount: core.Money{Cents: 150000}, Category: core.IncomeRent,
		Source: "Tenant A", Date: "2025-06-05", Recurrence: core.RecurMonthly,
		Status: core.StatusExpected,
	}}

	csv := ExportCSV(expenses, incomes)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")

	want := []string{
		"Date,Type,Category,Description,Amount,Method",
		`2025-06-01,Expense,Food,"Groceries, weekly",12.50,UPI`,
		`2025-06-05,Income,Rent,"Tenant A",1500.00,Monthly`,
	}
	if len(lines) != len(want) {
		t.Fatalf("csv has %d lines, want %d:\n%s", len(lines), len(want), csv)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExportDeliversToActiveUser(t *testing.T) {
	manager, store, _, deliverer := newTestManager(t)
	seedData(t, store)
	ctx := context.Background()

	csv, err := manager.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(csv, "Date,Type,Category,Description,Amount,Method\n") {
		t.Errorf("unexpected header: %q", csv)
	}

	if len(deliverer.deliveries) != 1 {
		t.Fatalf("deliveries = %+v", deliverer.deliveries)
	}
	d := deliverer.deliveries[0]
	if d.kind != "export" || d.recipient != "asha@example.com" || d.content != csv {
		t.Errorf("delivery = %+v", d)
	}
}

func TestBackupWithoutUser(t *testing.T) {
	store := memory.New()
	session := identity.NewSession(store, identity.PlainChecker{})
	manager := NewManager(store, session, nil)

	if _, err := manager.Backup(context.Background(), ""); err == nil {
		t.Fatal("backup without an onboarded user succeeded")
	}
}

// Guard against the ring cap silently changing: eviction order is part of the
// persistence contract with the UI.
func TestRingOrderNewestFirst(t *testing.T) {
	manager, store, _, _ := newTestManager(t)
	ctx := context.Background()

	var lastID string
	for i := 0; i < 3; i++ {
		entry, err := manager.Backup(ctx, "")
		if err != nil {
			t.Fatalf("Backup: %v", err)
		}
		lastID = entry.ID
	}

	backups, err := store.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if backups[0].ID != lastID {
		t.Fatalf("newest backup is not first: %+v", backups)
	}
}
