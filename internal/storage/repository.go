// Package storage persists the full user dataset in SQLite: transactional
// records, the identity index, settings and the local backup ring. Enum
// columns are parsed on the way out, so an unrecognized persisted value is
// rejected at this boundary instead of leaking into the domain.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"kanakku/internal/core"
)

const (
	settingTheme         = "theme"
	settingCurrentUserID = "current_user_id"
	settingProfilesBlob  = "profiles_encrypted"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- incomes ----

func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, category, source, date, recurrence, status, tenant_contact, created_at
		FROM incomes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		inc, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, inc)
	}
	return incomes, rows.Err()
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, id string) (core.Income, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, category, source, date, recurrence, status, tenant_contact, created_at
		FROM incomes WHERE id = ?`, id)
	inc, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.ErrNotFound
	}
	return inc, err
}

func (r *SQLiteRepository) InsertIncomes(ctx context.Context, incomes ...core.Income) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, inc := range incomes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO incomes (id, amount_cents, category, source, date, recurrence, status, tenant_contact, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inc.ID, inc.Amount.Cents, string(inc.Category), inc.Source, string(inc.Date),
			string(inc.Recurrence), string(inc.Status), inc.TenantContact, inc.CreatedAt); err != nil {
			return fmt.Errorf("insert income %s: %w", inc.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, inc core.Income) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE incomes SET amount_cents = ?, category = ?, source = ?, date = ?,
			recurrence = ?, status = ?, tenant_contact = ?, created_at = ?
		WHERE id = ?`,
		inc.Amount.Cents, string(inc.Category), inc.Source, string(inc.Date),
		string(inc.Recurrence), string(inc.Status), inc.TenantContact, inc.CreatedAt, inc.ID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ReplaceIncomes(ctx context.Context, incomes []core.Income) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incomes`); err != nil {
		return fmt.Errorf("clear incomes: %w", err)
	}
	for _, inc := range incomes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO incomes (id, amount_cents, category, source, date, recurrence, status, tenant_contact, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inc.ID, inc.Amount.Cents, string(inc.Category), inc.Source, string(inc.Date),
			string(inc.Recurrence), string(inc.Status), inc.TenantContact, inc.CreatedAt); err != nil {
			return fmt.Errorf("insert income %s: %w", inc.ID, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncome(row rowScanner) (core.Income, error) {
	var (
		inc                          core.Income
		category, recurrence, status string
	)
	if err := row.Scan(&inc.ID, &inc.Amount.Cents, &category, &inc.Source, &inc.Date,
		&recurrence, &status, &inc.TenantContact, &inc.CreatedAt); err != nil {
		return core.Income{}, err
	}
	var err error
	if inc.Category, err = core.ParseIncomeCategory(category); err != nil {
		return core.Income{}, fmt.Errorf("income %s: %w", inc.ID, err)
	}
	if inc.Recurrence, err = core.ParseRecurrence(recurrence); err != nil {
		return core.Income{}, fmt.Errorf("income %s: %w", inc.ID, err)
	}
	if inc.Status, err = core.ParseIncomeStatus(status); err != nil {
		return core.Income{}, fmt.Errorf("income %s: %w", inc.ID, err)
	}
	return inc, nil
}

// ---- expenses ----

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, category, description, date, payment_method, created_at
		FROM expenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e                core.Expense
			category, method string
		)
		if err := rows.Scan(&e.ID, &e.Amount.Cents, &category, &e.Description, &e.Date, &method, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Category, err = core.ParseExpenseCategory(category); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		if e.PaymentMethod, err = core.ParsePaymentMethod(method); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount_cents, category, description, date, payment_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.Cents, string(e.Category), e.Description, string(e.Date),
		string(e.PaymentMethod), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ReplaceExpenses(ctx context.Context, expenses []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	for _, e := range expenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, amount_cents, category, description, date, payment_method, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Amount.Cents, string(e.Category), e.Description, string(e.Date),
			string(e.PaymentMethod), e.CreatedAt); err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// ---- budgets ----

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, limit_cents FROM budgets ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			category string
		)
		if err := rows.Scan(&category, &b.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Category, err = core.ParseExpenseCategory(category); err != nil {
			return nil, fmt.Errorf("budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category, limit_cents) VALUES (?, ?)
		ON CONFLICT (category) DO UPDATE SET limit_cents = excluded.limit_cents`,
		string(b.Category), b.Limit.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceBudgets(ctx context.Context, budgets []core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}
	for _, b := range budgets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (category, limit_cents) VALUES (?, ?)`,
			string(b.Category), b.Limit.Cents); err != nil {
			return fmt.Errorf("insert budget %s: %w", b.Category, err)
		}
	}
	return tx.Commit()
}

// ---- identity index and settings ----

func (r *SQLiteRepository) LookupIdentity(ctx context.Context, identifier string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM identities WHERE identifier = ?`, identifier).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup identity: %w", err)
	}
	return userID, nil
}

func (r *SQLiteRepository) BindIdentity(ctx context.Context, identifier, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (identifier, user_id) VALUES (?, ?)
		ON CONFLICT (identifier) DO UPDATE SET user_id = excluded.user_id`,
		identifier, userID)
	if err != nil {
		return fmt.Errorf("bind identity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ProfilesBlob(ctx context.Context) (string, error) {
	return r.getSetting(ctx, settingProfilesBlob)
}

func (r *SQLiteRepository) SetProfilesBlob(ctx context.Context, blob string) error {
	return r.setSetting(ctx, settingProfilesBlob, blob)
}

func (r *SQLiteRepository) CurrentUserID(ctx context.Context) (string, error) {
	return r.getSetting(ctx, settingCurrentUserID)
}

func (r *SQLiteRepository) SetCurrentUserID(ctx context.Context, userID string) error {
	return r.setSetting(ctx, settingCurrentUserID, userID)
}

func (r *SQLiteRepository) ClearCurrentUserID(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, settingCurrentUserID)
	if err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

// Theme returns the persisted theme, defaulting to light.
func (r *SQLiteRepository) Theme(ctx context.Context) (string, error) {
	theme, err := r.getSetting(ctx, settingTheme)
	if err != nil {
		return "", err
	}
	if theme == "" {
		theme = "light"
	}
	return theme, nil
}

func (r *SQLiteRepository) SetTheme(ctx context.Context, theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return r.setSetting(ctx, settingTheme, theme)
}

func (r *SQLiteRepository) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) setSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// ---- local backup ring ----

func (r *SQLiteRepository) ListBackups(ctx context.Context) ([]core.LocalBackup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, user_name, content, size FROM local_backups ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	var backups []core.LocalBackup
	for rows.Next() {
		var b core.LocalBackup
		if err := rows.Scan(&b.ID, &b.Date, &b.UserName, &b.Content, &b.Size); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// PutBackups replaces the whole ring; ordering is the slice order.
func (r *SQLiteRepository) PutBackups(ctx context.Context, backups []core.LocalBackup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM local_backups`); err != nil {
		return fmt.Errorf("clear backups: %w", err)
	}
	for i, b := range backups {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO local_backups (id, date, user_name, content, size, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, b.Date, b.UserName, b.Content, b.Size, i); err != nil {
			return fmt.Errorf("insert backup %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
