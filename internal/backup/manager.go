// Package backup assembles encrypted snapshots of the full dataset, keeps a
// bounded ring of recent backups and restores/validates snapshots on import.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kanakku/internal/core"
	"kanakku/internal/crypto"
	"kanakku/internal/identity"
)

// Version embedded in snapshot metadata. There is no negotiation: the field
// exists so a future reader can tell what wrote the payload.
const Version = "1.0"

// ringCap bounds the local backup ring; the oldest entry is evicted beyond it.
const ringCap = 5

// Store is the persistence surface the manager needs. Replace operations are
// full overwrites: import is all-or-nothing, never a merge.
type Store interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ReplaceExpenses(ctx context.Context, expenses []core.Expense) error
	ListIncomes(ctx context.Context) ([]core.Income, error)
	ReplaceIncomes(ctx context.Context, incomes []core.Income) error
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	ReplaceBudgets(ctx context.Context, budgets []core.Budget) error
	ListBackups(ctx context.Context) ([]core.LocalBackup, error)
	PutBackups(ctx context.Context, backups []core.LocalBackup) error
}

// Deliverer hands finished payloads to an external channel (email via the
// delivery queue). Failures are soft: the locally saved backup survives.
type Deliverer interface {
	DeliverBackup(ctx context.Context, recipient, content string) error
	DeliverExport(ctx context.Context, recipient, csv string) error
}

type Metadata struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

type Payload struct {
	Expenses []core.Expense `json:"expenses"`
	Incomes  []core.Income  `json:"incomes"`
	Budgets  []core.Budget  `json:"budgets"`
}

// Snapshot is the full exportable bundle. UserProfile and Data are pointers
// so a decrypted payload missing either is detectable as malformed.
type Snapshot struct {
	Metadata    Metadata          `json:"metadata"`
	UserProfile *core.UserProfile `json:"userProfile"`
	Data        *Payload          `json:"data"`
}

// Manager owns snapshot assembly, the backup ring and import/restore.
type Manager struct {
	store   Store
	session *identity.Session
	deliver Deliverer
	now     func() time.Time
	newID   func() string
}

func NewManager(store Store, session *identity.Session, deliver Deliverer) *Manager {
	return &Manager{
		store:   store,
		session: session,
		deliver: deliver,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock overrides the manager clock. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// CreateSnapshot bundles the active profile with all transactional data.
func (m *Manager) CreateSnapshot(ctx context.Context) (Snapshot, error) {
	profile, err := m.session.ActiveProfile(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("active profile: %w", err)
	}

	expenses, err := m.store.ListExpenses(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list expenses: %w", err)
	}
	incomes, err := m.store.ListIncomes(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list incomes: %w", err)
	}
	budgets, err := m.store.ListBudgets(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list budgets: %w", err)
	}

	return Snapshot{
		Metadata: Metadata{
			UserID:    profile.ID,
			Email:     profile.Email,
			Version:   Version,
			Timestamp: m.now().UnixMilli(),
		},
		UserProfile: &profile,
		Data: &Payload{
			Expenses: expenses,
			Incomes:  incomes,
			Budgets:  budgets,
		},
	}, nil
}

// Backup encrypts a fresh snapshot under customKey (default key when empty),
// appends it to the local ring and hands the ciphertext to the delivery
// channel. Delivery failure is logged and swallowed: the local write already
// happened and must not be unwound.
func (m *Manager) Backup(ctx context.Context, customKey string) (core.LocalBackup, error) {
	snapshot, err := m.CreateSnapshot(ctx)
	if err != nil {
		return core.LocalBackup{}, err
	}

	encrypted, err := crypto.Encrypt(snapshot, customKey)
	if err != nil {
		return core.LocalBackup{}, fmt.Errorf("encrypt snapshot: %w", err)
	}

	entry := core.LocalBackup{
		ID:       m.newID(),
		Date:     m.now().Format(time.RFC3339),
		UserName: snapshot.UserProfile.Name,
		Content:  encrypted,
		Size:     len(encrypted),
	}
	if err := m.pushBackup(ctx, entry); err != nil {
		return core.LocalBackup{}, err
	}

	if m.deliver != nil {
		if err := m.deliver.DeliverBackup(ctx, snapshot.UserProfile.Email, encrypted); err != nil {
			slog.WarnContext(ctx, "Backup delivery failed, local backup kept",
				"backup_id", entry.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Backup created", "backup_id", entry.ID, "size", entry.Size)
	return entry, nil
}

// pushBackup prepends the entry and evicts beyond the ring cap.
func (m *Manager) pushBackup(ctx context.Context, entry core.LocalBackup) error {
	backups, err := m.store.ListBackups(ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	backups = append([]core.LocalBackup{entry}, backups...)
	if len(backups) > ringCap {
		backups = backups[:ringCap]
	}
	if err := m.store.PutBackups(ctx, backups); err != nil {
		return fmt.Errorf("save backups: %w", err)
	}
	return nil
}

func (m *Manager) ListBackups(ctx context.Context) ([]core.LocalBackup, error) {
	return m.store.ListBackups(ctx)
}

func (m *Manager) DeleteBackup(ctx context.Context, id string) error {
	backups, err := m.store.ListBackups(ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	kept := backups[:0]
	for _, b := range backups {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	return m.store.PutBackups(ctx, kept)
}

// decode decrypts and shape-checks a backup payload. The two failure modes
// stay distinct so callers can tell a wrong password from a file that was
// never a backup.
func (m *Manager) decode(content, customKey string) (Snapshot, error) {
	var snapshot Snapshot
	if err := crypto.Decrypt(content, customKey, &snapshot); err != nil {
		return Snapshot{}, core.ErrDecryptionFailed
	}
	if snapshot.UserProfile == nil || snapshot.Data == nil {
		return Snapshot{}, core.ErrInvalidFormat
	}
	return snapshot, nil
}

// ImportFrom replaces all transactional data from an encrypted backup.
// Profile fields are adopted only when the restored profile id matches the
// active profile's id; a mismatched import still replaces the transaction
// data but leaves the active identity untouched. Validation happens before
// any mutation, so a bad payload leaves existing state unchanged.
func (m *Manager) ImportFrom(ctx context.Context, content, customKey string) error {
	snapshot, err := m.decode(content, customKey)
	if err != nil {
		return err
	}

	if err := m.replaceData(ctx, snapshot.Data); err != nil {
		return err
	}

	if active, ok := m.session.Profile(); ok && active.ID == snapshot.UserProfile.ID {
		if err := m.session.UpdateProfile(ctx, *snapshot.UserProfile); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
	}

	slog.InfoContext(ctx, "Backup imported",
		"backup_user", snapshot.UserProfile.ID,
		"expenses", len(snapshot.Data.Expenses),
		"incomes", len(snapshot.Data.Incomes))
	return nil
}

// RestoreUserFromBackup is the stronger, fresh-device flow: it adopts the
// backup's profile as the active identity (index rewrite, authenticated
// session) in addition to replacing all transactional data.
func (m *Manager) RestoreUserFromBackup(ctx context.Context, content, customKey string) error {
	snapshot, err := m.decode(content, customKey)
	if err != nil {
		return err
	}

	if err := m.session.AdoptProfile(ctx, *snapshot.UserProfile); err != nil {
		return fmt.Errorf("adopt profile: %w", err)
	}
	if err := m.replaceData(ctx, snapshot.Data); err != nil {
		return err
	}

	slog.InfoContext(ctx, "User restored from backup", "user_id", snapshot.UserProfile.ID)
	return nil
}

func (m *Manager) replaceData(ctx context.Context, data *Payload) error {
	if err := m.store.ReplaceExpenses(ctx, data.Expenses); err != nil {
		return fmt.Errorf("replace expenses: %w", err)
	}
	if err := m.store.ReplaceIncomes(ctx, data.Incomes); err != nil {
		return fmt.Errorf("replace incomes: %w", err)
	}
	if err := m.store.ReplaceBudgets(ctx, data.Budgets); err != nil {
		return fmt.Errorf("replace budgets: %w", err)
	}
	return nil
}

// Export builds the plain CSV projection and hands it to the delivery
// channel. The CSV is returned either way; failed delivery is soft.
func (m *Manager) Export(ctx context.Context) (string, error) {
	expenses, err := m.store.ListExpenses(ctx)
	if err != nil {
		return "", fmt.Errorf("list expenses: %w", err)
	}
	incomes, err := m.store.ListIncomes(ctx)
	if err != nil {
		return "", fmt.Errorf("list incomes: %w", err)
	}

	csv := ExportCSV(expenses, incomes)

	if m.deliver != nil {
		recipient := ""
		if profile, err := m.session.ActiveProfile(ctx); err == nil {
			recipient = profile.Email
		} else if !errors.Is(err, core.ErrNotFound) {
			return "", err
		}
		if err := m.deliver.DeliverExport(ctx, recipient, csv); err != nil {
			slog.WarnContext(ctx, "Export delivery failed", "error", err)
		}
	}
	return csv, nil
}
