package identity

import (
	"crypto/subtle"

	"kanakku/internal/core"
)

// CredentialChecker verifies a login password against a stored profile.
// The default implementation compares the stored password directly, which
// matches the persisted profile format; swapping in a salted-hash checker
// only requires replacing this dependency.
type CredentialChecker interface {
	Check(profile core.UserProfile, password string) bool
}

// PlainChecker compares the stored password for equality in constant time.
type PlainChecker struct{}

func (PlainChecker) Check(profile core.UserProfile, password string) bool {
	return subtle.ConstantTimeCompare([]byte(profile.Password), []byte(password)) == 1
}
