package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	p := DefaultArgon2Params()

	k1, err := DeriveKey([]byte("hunter2"), salt, p)
	if err != nil {
		t.Fatalf("derive 1: %v", err)
	}
	k2, err := DeriveKey([]byte("hunter2"), salt, p)
	if err != nil {
		t.Fatalf("derive 2: %v", err)
	}
	if !bytes.Equal(k1.Bytes(), k2.Bytes()) {
		t.Fatal("expected deterministic derivation for same password/salt/params")
	}

	k3, err := DeriveKey([]byte("different"), salt, p)
	if err != nil {
		t.Fatalf("derive 3: %v", err)
	}
	if bytes.Equal(k1.Bytes(), k3.Bytes()) {
		t.Fatal("expected different keys for different passwords")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLen)
	plaintext := []byte("sk-ABCDEFGH-long")
	aad := []byte("aad")

	ev, err := Encrypt(key, plaintext, aad)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := ev.Decrypt(key, aad)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("roundtrip mismatch: got %q want %q", got, plaintext)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, KeyLen)
	otherKey := bytes.Repeat([]byte{0x02}, KeyLen)

	ev, err := Encrypt(key, []byte("secret"), nil)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := ev.Decrypt(otherKey, nil); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x03}, KeyLen)
	ev, err := Encrypt(key, []byte("secret"), nil)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ev.Ciphertext[0] ^= 0xFF

	if _, err := ev.Decrypt(key, nil); err == nil {
		t.Fatal("expected decryption failure on tampered ciphertext")
	}
}

func TestDecryptTamperedTagFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x04}, KeyLen)
	ev, err := Encrypt(key, []byte("secret"), nil)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ev.Tag[0] ^= 0xFF

	if _, err := ev.Decrypt(key, nil); err == nil {
		t.Fatal("expected decryption failure on tampered tag")
	}
}

func TestWireFormatRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x05}, KeyLen)
	ev, err := Encrypt(key, []byte("payload"), nil)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	encoded := ev.String()
	parsed, err := ParseEncryptedValue(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	pt, err := parsed.Decrypt(key, nil)
	if err != nil {
		t.Fatalf("decrypt parsed: %v", err)
	}
	if string(pt) != "payload" {
		t.Fatalf("got %q want payload", pt)
	}
}

func TestParseMalformedFraming(t *testing.T) {
	cases := []string{"", "nocolon", "a:b", "zz:zz:zz"}
	for _, c := range cases {
		if _, err := ParseEncryptedValue(c); err == nil {
			t.Fatalf("expected parse failure for %q", c)
		}
	}
}

func TestEncryptIVsDiffer(t *testing.T) {
	key := bytes.Repeat([]byte{0x06}, KeyLen)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ev, err := Encrypt(key, []byte("x"), nil)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		s := string(ev.IV)
		if seen[s] {
			t.Fatal("IV collision observed within 1000 samples")
		}
		seen[s] = true
	}
}

func TestMasterKeyWipe(t *testing.T) {
	mk, err := NewMasterKey(bytes.Repeat([]byte{0x07}, KeyLen))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	mk.Wipe()
	for _, b := range mk.Bytes() {
		if b != 0 {
			t.Fatal("expected wiped key to be all zero")
		}
	}
}
