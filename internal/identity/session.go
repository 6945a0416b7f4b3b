// Package identity manages the identity index (login identifier to internal
// user id), the encrypted profile map and the single local session. The
// profile map is persisted as one encrypted blob keyed by internal user id;
// identifiers (email, mobile) only ever appear in the index.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"kanakku/internal/core"
	"kanakku/internal/crypto"
)

// ErrUserExists is returned by StartSignup when the identifier is taken.
var ErrUserExists = errors.New("user already exists")

// ErrNotAuthenticated is returned by operations that need a logged-in session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Store is the persistence surface for identity state. The profiles blob is
// an opaque encrypted string; empty string means no profiles yet.
type Store interface {
	LookupIdentity(ctx context.Context, identifier string) (string, error)
	BindIdentity(ctx context.Context, identifier, userID string) error
	ProfilesBlob(ctx context.Context) (string, error)
	SetProfilesBlob(ctx context.Context, blob string) error
	CurrentUserID(ctx context.Context) (string, error)
	SetCurrentUserID(ctx context.Context, userID string) error
	ClearCurrentUserID(ctx context.Context) error
}

// Session is the explicit session context handed to the lifecycle and backup
// components. The authenticated flag lives only in memory: it does not
// survive a process restart, mirroring session-scoped authentication.
type Session struct {
	store   Store
	checker CredentialChecker
	newID   func() string

	mu              sync.Mutex
	authenticated   bool
	loginIdentifier string
	profile         *core.UserProfile
}

func NewSession(store Store, checker CredentialChecker) *Session {
	if checker == nil {
		checker = PlainChecker{}
	}
	return &Session{
		store:   store,
		checker: checker,
		newID:   uuid.NewString,
	}
}

// WithIDFunc overrides the user id generator. Test hook.
func (s *Session) WithIDFunc(newID func() string) *Session {
	s.newID = newID
	return s
}

// Login resolves the identifier through the identity index and checks the
// password. Unknown identifier and wrong password are reported distinctly
// (core.ErrNotFound vs core.ErrInvalidCredentials).
func (s *Session) Login(ctx context.Context, identifier, password string) error {
	userID, err := s.store.LookupIdentity(ctx, identifier)
	if err != nil {
		return err
	}

	profiles, err := s.loadProfiles(ctx)
	if err != nil {
		return err
	}
	profile, ok := profiles[userID]
	if !ok {
		return core.ErrNotFound
	}

	if !s.checker.Check(profile, password) {
		return core.ErrInvalidCredentials
	}

	s.mu.Lock()
	s.authenticated = true
	s.loginIdentifier = identifier
	s.profile = &profile
	s.mu.Unlock()

	if err := s.store.SetCurrentUserID(ctx, userID); err != nil {
		return fmt.Errorf("set current user: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", userID)
	return nil
}

// StartSignup reserves a fresh session for an unknown identifier. The
// profile itself is created later by CompleteOnboarding.
func (s *Session) StartSignup(ctx context.Context, identifier string) error {
	if _, err := s.store.LookupIdentity(ctx, identifier); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	s.mu.Lock()
	s.authenticated = true
	s.loginIdentifier = identifier
	s.profile = nil
	s.mu.Unlock()

	if err := s.store.ClearCurrentUserID(ctx); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

// CompleteOnboarding creates the profile for a signup in progress, persists
// it to the encrypted profile map and binds its identifiers in the index.
func (s *Session) CompleteOnboarding(ctx context.Context, details core.UserProfile) (core.UserProfile, error) {
	s.mu.Lock()
	identifier := s.loginIdentifier
	s.mu.Unlock()

	profile := details
	profile.ID = s.newID()
	if profile.Name == "" {
		profile.Name = "User"
	}
	if profile.Language == "" {
		profile.Language = "en"
	}
	if profile.Currency == "" {
		profile.Currency = "₹"
	}

	if err := s.saveProfile(ctx, profile); err != nil {
		return core.UserProfile{}, err
	}

	if profile.Mobile != "" {
		if err := s.store.BindIdentity(ctx, profile.Mobile, profile.ID); err != nil {
			return core.UserProfile{}, fmt.Errorf("bind mobile: %w", err)
		}
	}
	if profile.Email != "" {
		if err := s.store.BindIdentity(ctx, profile.Email, profile.ID); err != nil {
			return core.UserProfile{}, fmt.Errorf("bind email: %w", err)
		}
	}
	if identifier != "" && identifier != profile.Email && identifier != profile.Mobile {
		if err := s.store.BindIdentity(ctx, identifier, profile.ID); err != nil {
			return core.UserProfile{}, fmt.Errorf("bind identifier: %w", err)
		}
	}

	if err := s.store.SetCurrentUserID(ctx, profile.ID); err != nil {
		return core.UserProfile{}, fmt.Errorf("set current user: %w", err)
	}

	s.mu.Lock()
	s.authenticated = true
	s.profile = &profile
	s.mu.Unlock()

	slog.InfoContext(ctx, "Onboarding complete", "user_id", profile.ID)
	return profile, nil
}

// Logout clears the in-memory session and the current-user pointer.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.authenticated = false
	s.loginIdentifier = ""
	s.profile = nil
	s.mu.Unlock()
	return s.store.ClearCurrentUserID(ctx)
}

func (s *Session) CheckUserExists(ctx context.Context, identifier string) (bool, error) {
	_, err := s.store.LookupIdentity(ctx, identifier)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ResetPassword rewrites the stored password for the identified user.
func (s *Session) ResetPassword(ctx context.Context, identifier, newPassword string) error {
	userID, err := s.store.LookupIdentity(ctx, identifier)
	if err != nil {
		return err
	}
	profiles, err := s.loadProfiles(ctx)
	if err != nil {
		return err
	}
	profile, ok := profiles[userID]
	if !ok {
		return core.ErrNotFound
	}
	profile.Password = newPassword
	return s.saveProfile(ctx, profile)
}

// UpdateProfile persists profile field changes for the active user and keeps
// the in-memory copy in sync.
func (s *Session) UpdateProfile(ctx context.Context, profile core.UserProfile) error {
	if err := s.saveProfile(ctx, profile); err != nil {
		return err
	}
	s.mu.Lock()
	if s.profile != nil && s.profile.ID == profile.ID {
		s.profile = &profile
	}
	s.mu.Unlock()
	return nil
}

// AdoptProfile installs a restored profile as the active identity: saves it,
// rewrites the identity index for its identifiers, points the current-user
// id at it and marks the session authenticated. Used by the fresh-device
// restore flow.
func (s *Session) AdoptProfile(ctx context.Context, profile core.UserProfile) error {
	if err := s.saveProfile(ctx, profile); err != nil {
		return err
	}
	if profile.Mobile != "" {
		if err := s.store.BindIdentity(ctx, profile.Mobile, profile.ID); err != nil {
			return fmt.Errorf("bind mobile: %w", err)
		}
	}
	if profile.Email != "" {
		if err := s.store.BindIdentity(ctx, profile.Email, profile.ID); err != nil {
			return fmt.Errorf("bind email: %w", err)
		}
	}
	if err := s.store.SetCurrentUserID(ctx, profile.ID); err != nil {
		return fmt.Errorf("set current user: %w", err)
	}

	s.mu.Lock()
	s.authenticated = true
	s.profile = &profile
	s.mu.Unlock()

	slog.InfoContext(ctx, "Profile adopted from backup", "user_id", profile.ID)
	return nil
}

// Authenticated reports whether this session has logged in.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Profile returns the in-memory profile of the logged-in user.
func (s *Session) Profile() (core.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return core.UserProfile{}, false
	}
	return *s.profile, true
}

// ActiveProfile loads the profile the current-user pointer designates,
// independent of the session flag. Scheduled jobs use this: an automatic
// backup must work even though nobody has logged in since the restart.
func (s *Session) ActiveProfile(ctx context.Context) (core.UserProfile, error) {
	if p, ok := s.Profile(); ok {
		return p, nil
	}
	userID, err := s.store.CurrentUserID(ctx)
	if err != nil {
		return core.UserProfile{}, err
	}
	if userID == "" {
		return core.UserProfile{}, core.ErrNotFound
	}
	profiles, err := s.loadProfiles(ctx)
	if err != nil {
		return core.UserProfile{}, err
	}
	profile, ok := profiles[userID]
	if !ok {
		return core.UserProfile{}, core.ErrNotFound
	}
	return profile, nil
}

// loadProfiles decrypts the whole profile map; an absent blob is an empty map.
func (s *Session) loadProfiles(ctx context.Context) (map[string]core.UserProfile, error) {
	blob, err := s.store.ProfilesBlob(ctx)
	if err != nil {
		return nil, fmt.Errorf("read profiles blob: %w", err)
	}
	if blob == "" {
		return map[string]core.UserProfile{}, nil
	}
	var profiles map[string]core.UserProfile
	if err := crypto.Decrypt(blob, "", &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles blob: %w", err)
	}
	return profiles, nil
}

func (s *Session) saveProfile(ctx context.Context, profile core.UserProfile) error {
	profiles, err := s.loadProfiles(ctx)
	if err != nil {
		return err
	}
	profiles[profile.ID] = profile

	blob, err := crypto.Encrypt(profiles, "")
	if err != nil {
		return fmt.Errorf("encrypt profiles: %w", err)
	}
	if err := s.store.SetProfilesBlob(ctx, blob); err != nil {
		return fmt.Errorf("write profiles blob: %w", err)
	}
	return nil
}
