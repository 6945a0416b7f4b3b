// Package memory is an in-memory implementation of the persistence surfaces,
// used by tests and the memory data backend. Semantics mirror the SQLite
// repository: newest-first listings, upsert budgets, replace-all imports.
package memory

import (
	"context"
	"sort"
	"sync"

	"kanakku/internal/core"
)

type Store struct {
	mu       sync.Mutex
	expenses []core.Expense
	incomes  []core.Income
	budgets  map[core.ExpenseCategory]core.Money
	identity map[string]string
	settings map[string]string
	backups  []core.LocalBackup
}

func New() *Store {
	return &Store{
		budgets:  make(map[core.ExpenseCategory]core.Money),
		identity: make(map[string]string),
		settings: make(map[string]string),
	}
}

// ---- incomes ----

func (s *Store) ListIncomes(_ context.Context) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Income(nil), s.incomes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *Store) GetIncome(_ context.Context, id string) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inc := range s.incomes {
		if inc.ID == id {
			return inc, nil
		}
	}
	return core.Income{}, core.ErrNotFound
}

func (s *Store) InsertIncomes(_ context.Context, incomes ...core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes = append(s.incomes, incomes...)
	return nil
}

func (s *Store) UpdateIncome(_ context.Context, income core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inc := range s.incomes {
		if inc.ID == income.ID {
			s.incomes[i] = income
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteIncome(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inc := range s.incomes {
		if inc.ID == id {
			s.incomes = append(s.incomes[:i], s.incomes[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ReplaceIncomes(_ context.Context, incomes []core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes = append([]core.Income(nil), incomes...)
	return nil
}

// ---- expenses ----

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Expense(nil), s.expenses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, expense core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, expense)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ReplaceExpenses(_ context.Context, expenses []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append([]core.Expense(nil), expenses...)
	return nil
}

// ---- budgets ----

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for category, limit := range s.budgets {
		out = append(out, core.Budget{Category: category, Limit: limit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, budget core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budget.Category] = budget.Limit
	return nil
}

func (s *Store) ReplaceBudgets(_ context.Context, budgets []core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = make(map[core.ExpenseCategory]core.Money, len(budgets))
	for _, b := range budgets {
		s.budgets[b.Category] = b.Limit
	}
	return nil
}

// ---- identity index and settings ----

func (s *Store) LookupIdentity(_ context.Context, identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.identity[identifier]
	if !ok {
		return "", core.ErrNotFound
	}
	return userID, nil
}

func (s *Store) BindIdentity(_ context.Context, identifier, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity[identifier] = userID
	return nil
}

func (s *Store) ProfilesBlob(_ context.Context) (string, error) {
	return s.getSetting("profiles_encrypted"), nil
}

func (s *Store) SetProfilesBlob(_ context.Context, blob string) error {
	s.setSetting("profiles_encrypted", blob)
	return nil
}

func (s *Store) CurrentUserID(_ context.Context) (string, error) {
	return s.getSetting("current_user_id"), nil
}

func (s *Store) SetCurrentUserID(_ context.Context, userID string) error {
	s.setSetting("current_user_id", userID)
	return nil
}

func (s *Store) ClearCurrentUserID(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, "current_user_id")
	return nil
}

func (s *Store) Theme(_ context.Context) (string, error) {
	if theme := s.getSetting("theme"); theme != "" {
		return theme, nil
	}
	return "light", nil
}

func (s *Store) SetTheme(_ context.Context, theme string) error {
	s.setSetting("theme", theme)
	return nil
}

func (s *Store) getSetting(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[key]
}

func (s *Store) setSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
}

// ---- local backup ring ----

func (s *Store) ListBackups(_ context.Context) ([]core.LocalBackup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LocalBackup(nil), s.backups...), nil
}

func (s *Store) PutBackups(_ context.Context, backups []core.LocalBackup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups = append([]core.LocalBackup(nil), backups...)
	return nil
}
