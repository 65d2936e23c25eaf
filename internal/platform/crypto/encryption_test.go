package crypto

import (
	"bytes"
	"testing"
)

type salary struct {
	Base  float64 `json:"base"`
	Bonus float64 `json:"bonus"`
}

func TestRoundTripJSON(t *testing.T) {
	svc, err := New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}

	sealed, err := svc.EncryptJSON(salary{Base: 15000000, Bonus: 500000})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("15000000")) {
		t.Fatal("ciphertext leaks plaintext")
	}

	var got salary
	if err := svc.DecryptJSON(sealed, &got); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got.Base != 15000000 || got.Bonus != 500000 {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestUnconfiguredPassThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := svc.Encrypt([]byte("plain"))
	if err != nil || string(out) != "plain" {
		t.Fatalf("expected pass-through, got %q %v", out, err)
	}
}

func TestRejectsShortKeyAndTamperedData(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("expected key length error")
	}

	svc, _ := New("0123456789abcdef0123456789abcdef")
	sealed, _ := svc.Encrypt([]byte("payload"))
	sealed[len(sealed)-1] ^= 0xff
	if _, err := svc.Decrypt(sealed); err == nil {
		t.Fatal("expected authentication failure")
	}
	if _, err := svc.Decrypt([]byte{1, 2}); err != ErrCiphertextTooShort {
		t.Fatalf("expected short ciphertext error, got %v", err)
	}
}
