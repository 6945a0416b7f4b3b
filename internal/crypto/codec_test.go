package crypto

import (
	"errors"
	"testing"

	"kanakku/internal/core"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	in := payload{Name: "monthly rent", Count: 3}

	sealed, err := Encrypt(in, "secret-key")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	var out payload
	if err := Decrypt(sealed, "secret-key", &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDefaultPassphrase(t *testing.T) {
	// Empty password on both sides means the built-in passphrase, and the
	// two are interchangeable.
	sealed, err := Encrypt(payload{Name: "x"}, "")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	var out payload
	if err := Decrypt(sealed, "", &out); err != nil {
		t.Fatalf("decrypt with empty password: %v", err)
	}
	if err := Decrypt(sealed, defaultPassphrase, &out); err != nil {
		t.Fatalf("decrypt with explicit default passphrase: %v", err)
	}
}

func TestDecryptFailures(t *testing.T) {
	sealed, err := Encrypt(payload{Name: "x"}, "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	cases := []struct {
		name       string
		ciphertext string
		password   string
	}{
		{"wrong password", sealed, "wrong"},
		{"not base64", "%%%not-base64%%%", "right"},
		{"truncated", sealed[:20], "right"},
		{"empty", "", "right"},
		{"corrupted tail", sealed[:len(sealed)-8] + "AAAAAAA=", "right"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out payload
			err := Decrypt(tc.ciphertext, tc.password, &out)
			if !errors.Is(err, core.ErrDecryptionFailed) {
				t.Fatalf("got %v, want ErrDecryptionFailed", err)
			}
		})
	}
}

func TestEncryptFreshRandomness(t *testing.T) {
	a, err := Encrypt(payload{Name: "same"}, "k")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt(payload{Name: "same"}, "k")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same value produced identical ciphertext")
	}

	var outA, outB payload
	if err := Decrypt(a, "k", &outA); err != nil {
		t.Fatalf("decrypt a: %v", err)
	}
	if err := Decrypt(b, "k", &outB); err != nil {
		t.Fatalf("decrypt b: %v", err)
	}
	if outA != outB {
		t.Fatal("ciphertexts decrypt to different values")
	}
}
