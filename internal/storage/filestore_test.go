package storage

import (
	"bytes"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/crypto"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x11}, crypto.KeyLen)
}

func TestNotInitializedInitially(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	ok, err := fs.IsInitialized()
	if err != nil {
		t.Fatalf("is initialized: %v", err)
	}
	if ok {
		t.Fatal("expected a fresh directory to be uninitialized")
	}
}

func TestSaltAndVerificationRoundTrip(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	salt := bytes.Repeat([]byte{0x22}, crypto.SaltLen)

	if err := fs.SaveSalt(salt); err != nil {
		t.Fatalf("save salt: %v", err)
	}
	fs.SetMasterKey(testKey())
	if err := fs.SaveVerification(); err != nil {
		t.Fatalf("save verification: %v", err)
	}

	ok, err := fs.IsInitialized()
	if err != nil || !ok {
		t.Fatalf("expected initialized after salt+verify, ok=%v err=%v", ok, err)
	}

	loadedSalt, err := fs.LoadSalt()
	if err != nil {
		t.Fatalf("load salt: %v", err)
	}
	if !bytes.Equal(loadedSalt, salt) {
		t.Fatal("loaded salt does not match saved salt")
	}

	valid, err := fs.VerifyKey()
	if err != nil {
		t.Fatalf("verify key: %v", err)
	}
	if !valid {
		t.Fatal("expected correct master key to verify")
	}
}

func TestVerifyKeyRejectsWrongKey(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	fs.SetMasterKey(testKey())
	if err := fs.SaveVerification(); err != nil {
		t.Fatalf("save verification: %v", err)
	}

	fs.SetMasterKey(bytes.Repeat([]byte{0x99}, crypto.KeyLen))
	valid, err := fs.VerifyKey()
	if err != nil {
		t.Fatalf("verify key: %v", err)
	}
	if valid {
		t.Fatal("expected wrong master key to fail verification")
	}
}

func TestStoreRetrieveDelete(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	fs.SetMasterKey(testKey())

	if err := fs.Store("credential:abc", []byte("sk-live-123")); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := fs.Retrieve("credential:abc")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if string(got) != "sk-live-123" {
		t.Fatalf("got %q want sk-live-123", got)
	}

	exists, err := fs.Exists("credential:abc")
	if err != nil || !exists {
		t.Fatalf("expected entry to exist, exists=%v err=%v", exists, err)
	}

	if err := fs.Delete("credential:abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, err = fs.Exists("credential:abc")
	if err != nil || exists {
		t.Fatalf("expected entry to be gone after delete, exists=%v err=%v", exists, err)
	}
}

func TestRetrieveMissingKeyIsCredentialNotFound(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	fs.SetMasterKey(testKey())

	_, err := fs.Retrieve("nope")
	if !walleterr.IsKind(err, walleterr.KindCredentialNotFound) {
		t.Fatalf("expected KindCredentialNotFound, got %v", err)
	}
}

func TestOperationsWithoutMasterKeyFail(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	if err := fs.Store("k", []byte("v")); !walleterr.IsKind(err, walleterr.KindWalletLocked) {
		t.Fatalf("expected KindWalletLocked, got %v", err)
	}
}

func TestListKeysByPrefix(t *testing.T) {
	fs := NewFileStore(t.TempDir(), zerolog.Nop())
	fs.SetMasterKey(testKey())

	for _, k := range []string{"credential:1", "credential:2", "integration:x"} {
		if err := fs.Store(k, []byte("v")); err != nil {
			t.Fatalf("store %s: %v", k, err)
		}
	}

	creds, err := fs.ListKeys("credential:")
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("got %d credential keys, want 2", len(creds))
	}

	all, err := fs.ListKeys("")
	if err != nil {
		t.Fatalf("list all keys: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d keys, want 3", len(all))
	}
}

func TestWalletFilePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	fs1 := NewFileStore(dir, zerolog.Nop())
	fs1.SetMasterKey(testKey())
	if err := fs1.Store("credential:persist", []byte("value")); err != nil {
		t.Fatalf("store: %v", err)
	}

	fs2 := NewFileStore(dir, zerolog.Nop())
	fs2.SetMasterKey(testKey())
	got, err := fs2.Retrieve("credential:persist")
	if err != nil {
		t.Fatalf("retrieve from new instance: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("got %q want value", got)
	}
}

func TestWalletFileHasRestrictivePermissions(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir, zerolog.Nop())
	fs.SetMasterKey(testKey())
	if err := fs.Store("k", []byte("v")); err != nil {
		t.Fatalf("store: %v", err)
	}

	info, err := os.Stat(fs.walletPath())
	if err != nil {
		t.Fatalf("stat wallet file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("got perm %v want 0600", info.Mode().Perm())
	}
}

func TestClearResetsToUninitialized(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir, zerolog.Nop())
	fs.SetMasterKey(testKey())
	if err := fs.SaveSalt(bytes.Repeat([]byte{0x33}, crypto.SaltLen)); err != nil {
		t.Fatalf("save salt: %v", err)
	}
	if err := fs.SaveVerification(); err != nil {
		t.Fatalf("save verification: %v", err)
	}
	if err := fs.Store("k", []byte("v")); err != nil {
		t.Fatalf("store: %v", err)
	}

	if err := fs.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	ok, err := fs.IsInitialized()
	if err != nil {
		t.Fatalf("is initialized: %v", err)
	}
	if ok {
		t.Fatal("expected uninitialized after clear")
	}
}
