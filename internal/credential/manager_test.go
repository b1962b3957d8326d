package credential

import (
	"testing"

	"github.com/rs/zerolog"

	intcrypto "github.com/Symbia-Labs/mcp-wallet/internal/crypto"
	"github.com/Symbia-Labs/mcp-wallet/internal/storage"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	store := storage.NewFileStore(t.TempDir(), zerolog.Nop())

	salt, err := intcrypto.NewRandomSalt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	key, err := intcrypto.DeriveKey([]byte("test-password"), salt, intcrypto.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	store.SetMasterKey(key.Bytes())

	m := NewManager(store, zerolog.Nop())
	m.SetMasterKey(key.Bytes())
	return m
}

func TestAddAndGetAPIKey(t *testing.T) {
	m := testManager(t)

	cred, err := m.AddAPIKey("openai", "My OpenAI Key", "sk-test-12345678")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if cred.Provider != "openai" || cred.Name != "My OpenAI Key" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if cred.Prefix != "sk-test-..." {
		t.Fatalf("got prefix %q want sk-test-...", cred.Prefix)
	}

	got, err := m.Get(cred.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != cred.ID {
		t.Fatal("retrieved credential id mismatch")
	}
}

func TestShortSecretPrefix(t *testing.T) {
	m := testManager(t)
	cred, err := m.AddAPIKey("test", "short", "abc")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if cred.Prefix != "abc..." {
		t.Fatalf("got prefix %q want abc...", cred.Prefix)
	}
}

func TestDecryptCredential(t *testing.T) {
	m := testManager(t)
	cred, err := m.AddAPIKey("stripe", "Stripe Key", "sk_live_abc123")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	secret, err := m.GetDecrypted(cred.ID)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if secret.Expose() != "sk_live_abc123" {
		t.Fatalf("got %q want sk_live_abc123", secret.Expose())
	}
}

func TestListCredentials(t *testing.T) {
	m := testManager(t)
	if _, err := m.AddAPIKey("openai", "OpenAI", "key1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := m.AddAPIKey("anthropic", "Anthropic", "key2"); err != nil {
		t.Fatalf("add: %v", err)
	}

	all, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d credentials want 2", len(all))
	}

	filtered, err := m.ListByProvider("openai")
	if err != nil {
		t.Fatalf("list by provider: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("got %d openai credentials want 1", len(filtered))
	}
}

func TestDeleteCredential(t *testing.T) {
	m := testManager(t)
	cred, err := m.AddAPIKey("test", "Test", "key")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := m.Delete(cred.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := m.Get(cred.ID); !walleterr.IsKind(err, walleterr.KindCredentialNotFound) {
		t.Fatalf("expected KindCredentialNotFound, got %v", err)
	}
}

func TestUpdateValue(t *testing.T) {
	m := testManager(t)
	cred, err := m.AddAPIKey("test", "Test", "old-key")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := m.UpdateValue(cred.ID, "new-key-12345678"); err != nil {
		t.Fatalf("update: %v", err)
	}

	secret, err := m.GetDecrypted(cred.ID)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if secret.Expose() != "new-key-12345678" {
		t.Fatalf("got %q want new-key-12345678", secret.Expose())
	}

	updated, err := m.Get(cred.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Prefix != "new-key-..." {
		t.Fatalf("got prefix %q want new-key-...", updated.Prefix)
	}
}

func TestAddOAuth2TokenWithRefresh(t *testing.T) {
	m := testManager(t)
	cred, err := m.AddOAuth2Token("github", "GitHub", "access-tok", "refresh-tok", nil)
	if err != nil {
		t.Fatalf("add oauth2: %v", err)
	}
	if cred.CredentialType != TypeOAuth2Token {
		t.Fatalf("got type %v want oauth2_token", cred.CredentialType)
	}
	if cred.Prefix != "" {
		t.Fatalf("expected no prefix for oauth2 token, got %q", cred.Prefix)
	}

	secret, err := m.GetDecrypted(cred.ID)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if secret.Expose() != "access-tok" {
		t.Fatalf("got %q want access-tok", secret.Expose())
	}
}

func TestOperationsWhileLockedFail(t *testing.T) {
	m := testManager(t)
	m.SetMasterKey(nil)

	if _, err := m.AddAPIKey("p", "n", "v"); !walleterr.IsKind(err, walleterr.KindWalletLocked) {
		t.Fatalf("expected KindWalletLocked, got %v", err)
	}
}

func TestReencryptAll(t *testing.T) {
	m := testManager(t)
	cred, err := m.AddAPIKey("test", "Test", "original-secret")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	oldKey := append([]byte(nil), m.masterKey...)
	newKey, err := intcrypto.DeriveKey([]byte("new-password"), append([]byte(nil), oldKey[:intcrypto.SaltLen]...), intcrypto.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("derive new key: %v", err)
	}

	records, err := m.ReencryptAll(oldKey, newKey.Bytes())
	if err != nil {
		t.Fatalf("reencrypt all: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records want 1", len(records))
	}

	m.SetMasterKey(newKey.Bytes())
	if err := m.CommitReencrypted(records); err != nil {
		t.Fatalf("commit: %v", err)
	}

	secret, err := m.GetDecrypted(cred.ID)
	if err != nil {
		t.Fatalf("decrypt after reencrypt: %v", err)
	}
	if secret.Expose() != "original-secret" {
		t.Fatalf("got %q want original-secret", secret.Expose())
	}
}
