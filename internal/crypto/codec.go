// Package crypto turns JSON-serializable values into opaque ciphertext
// strings and back, under AES-256-GCM with a PBKDF2-derived key. When no
// password is supplied the built-in application passphrase is used, so
// locally persisted blobs are always encrypted at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"kanakku/internal/core"
)

// defaultPassphrase protects blobs encrypted without a user key. It is not a
// secret: it only keeps at-rest data opaque, matching the default-key
// fallback of the backup scheme.
const defaultPassphrase = "kanakku-local-v1"

const (
	saltSize   = 16
	iterations = 100_000
	keySize    = 32
)

// Encrypt serializes value to JSON and seals it. The output embeds the salt
// and nonce, so everything needed for decryption except the password travels
// with the ciphertext. Fresh randomness per call: encrypting the same value
// twice yields different ciphertext that decrypts to equal data.
func Encrypt(value any, password string) (string, error) {
	plain, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	aesgcm, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aesgcm.Seal(nil, nonce, plain, nil)

	// salt || nonce || ciphertext, base64 so the result is a plain string
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt into out. Wrong password, truncated or corrupt
// input all surface as core.ErrDecryptionFailed; callers branch on that
// sentinel rather than catching a fault.
func Decrypt(ciphertext, password string, out any) error {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return core.ErrDecryptionFailed
	}
	if len(raw) < saltSize {
		return core.ErrDecryptionFailed
	}
	salt, rest := raw[:saltSize], raw[saltSize:]

	aesgcm, err := newGCM(password, salt)
	if err != nil {
		return core.ErrDecryptionFailed
	}
	ns := aesgcm.NonceSize()
	if len(rest) < ns {
		return core.ErrDecryptionFailed
	}
	nonce, sealed := rest[:ns], rest[ns:]

	plain, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return core.ErrDecryptionFailed
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return core.ErrDecryptionFailed
	}
	return nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	if password == "" {
		password = defaultPassphrase
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aesgcm, nil
}
