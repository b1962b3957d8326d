package credential

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	intcrypto "github.com/Symbia-Labs/mcp-wallet/internal/crypto"
	"github.com/Symbia-Labs/mcp-wallet/internal/storage"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

// storagePrefix namespaces every credential key in the underlying store.
const storagePrefix = "credential:"

// Manager owns CRUD access to stored credentials. Secret values are
// encrypted under the current master key both individually (by Manager)
// and again as part of the storage backend's own at-rest encryption —
// matching the layering the wallet's storage contract assumes.
type Manager struct {
	storage storage.SecureStorage
	log     zerolog.Logger

	mu        sync.RWMutex
	masterKey []byte
}

// NewManager returns a Manager backed by the given storage.
func NewManager(store storage.SecureStorage, log zerolog.Logger) *Manager {
	return &Manager{
		storage: store,
		log:     log.With().Str("component", "credential_manager").Logger(),
	}
}

// SetMasterKey installs (or clears, passing nil) the key used to
// encrypt/decrypt secret values.
func (m *Manager) SetMasterKey(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == nil {
		m.masterKey = nil
		return
	}
	m.masterKey = append([]byte(nil), key...)
}

func (m *Manager) key() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.masterKey) == 0 {
		return nil, walleterr.New(walleterr.KindWalletLocked, "wallet is locked")
	}
	return m.masterKey, nil
}

// AddAPIKey stores a new static API key credential.
func (m *Manager) AddAPIKey(provider, name, apiKey string) (Credential, error) {
	key, err := m.key()
	if err != nil {
		return Credential{}, err
	}

	cred := NewAPIKeyCredential(provider, name, apiKey)
	encrypted, err := intcrypto.EncryptString(key, apiKey, entryAAD(cred.ID))
	if err != nil {
		return Credential{}, walleterr.Wrap(walleterr.KindEncryptionError, "encrypt api key", err)
	}

	stored := StoredCredential{Credential: cred, EncryptedValue: encrypted.String()}
	if err := m.save(stored); err != nil {
		return Credential{}, err
	}

	m.log.Info().Str("provider", provider).Str("name", name).Msg("added credential")
	return cred, nil
}

// AddOAuth2Token stores a new OAuth2 access token credential, with an
// optional refresh token and expiry.
func (m *Manager) AddOAuth2Token(provider, name, accessToken, refreshToken string, expiresAt *time.Time) (Credential, error) {
	key, err := m.key()
	if err != nil {
		return Credential{}, err
	}

	cred := NewOAuth2Credential(provider, name)
	encrypted, err := intcrypto.EncryptString(key, accessToken, entryAAD(cred.ID))
	if err != nil {
		return Credential{}, walleterr.Wrap(walleterr.KindEncryptionError, "encrypt access token", err)
	}

	stored := StoredCredential{
		Credential:     cred,
		EncryptedValue: encrypted.String(),
		ExpiresAt:      expiresAt,
	}

	if refreshToken != "" {
		encryptedRefresh, err := intcrypto.EncryptString(key, refreshToken, refreshAAD(cred.ID))
		if err != nil {
			return Credential{}, walleterr.Wrap(walleterr.KindEncryptionError, "encrypt refresh token", err)
		}
		stored.EncryptedRefreshToken = encryptedRefresh.String()
	}

	if err := m.save(stored); err != nil {
		return Credential{}, err
	}

	m.log.Info().Str("provider", provider).Str("name", name).Msg("added oauth2 credential")
	return cred, nil
}

// Get returns a credential's metadata without decrypting its value.
func (m *Manager) Get(id uuid.UUID) (Credential, error) {
	stored, err := m.load(id)
	if err != nil {
		return Credential{}, err
	}
	return stored.Credential, nil
}

// GetDecrypted returns the decrypted secret value for a credential, and
// records it as just used.
func (m *Manager) GetDecrypted(id uuid.UUID) (*intcrypto.SecretString, error) {
	key, err := m.key()
	if err != nil {
		return nil, err
	}

	stored, err := m.load(id)
	if err != nil {
		return nil, err
	}

	ev, err := intcrypto.ParseEncryptedValue(stored.EncryptedValue)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindSerializationError, "malformed stored value", err)
	}
	plaintext, err := ev.DecryptString(key, entryAAD(id))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindDecryptionError, "decrypt credential", err)
	}

	if err := m.touchLastUsed(id); err != nil {
		m.log.Warn().Err(err).Str("id", id.String()).Msg("failed to update last_used_at")
	}

	return intcrypto.NewSecretString(plaintext), nil
}

// List returns metadata for every stored credential.
func (m *Manager) List() ([]Credential, error) {
	keys, err := m.storage.ListKeys(storagePrefix)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorageError, "list credential keys", err)
	}

	creds := make([]Credential, 0, len(keys))
	for _, k := range keys {
		raw, err := m.storage.Retrieve(k)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindStorageError, fmt.Sprintf("retrieve %s", k), err)
		}
		var stored StoredCredential
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, walleterr.Wrap(walleterr.KindSerializationError, "decode stored credential", err)
		}
		creds = append(creds, stored.Credential)
	}
	return creds, nil
}

// ListByProvider filters List to a single provider.
func (m *Manager) ListByProvider(provider string) ([]Credential, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	filtered := make([]Credential, 0, len(all))
	for _, c := range all {
		if c.Provider == provider {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Delete removes a credential.
func (m *Manager) Delete(id uuid.UUID) error {
	if err := m.storage.Delete(storageKey(id)); err != nil {
		return walleterr.Wrap(walleterr.KindStorageError, "delete credential", err)
	}
	m.log.Info().Str("id", id.String()).Msg("deleted credential")
	return nil
}

// UpdateValue replaces a credential's secret value, recomputing its
// display prefix.
func (m *Manager) UpdateValue(id uuid.UUID, newValue string) error {
	key, err := m.key()
	if err != nil {
		return err
	}

	stored, err := m.load(id)
	if err != nil {
		return err
	}

	encrypted, err := intcrypto.EncryptString(key, newValue, entryAAD(id))
	if err != nil {
		return walleterr.Wrap(walleterr.KindEncryptionError, "encrypt new value", err)
	}
	stored.EncryptedValue = encrypted.String()
	stored.Credential.Prefix = truncatePrefix(newValue)

	if err := m.save(stored); err != nil {
		return err
	}
	m.log.Info().Str("id", id.String()).Msg("updated credential value")
	return nil
}

// ReencryptAll decrypts every stored credential under oldKey and
// re-encrypts it under newKey, returning the updated records without
// persisting them. Callers (the wallet façade's change-password flow)
// only commit these records to storage once every credential has
// successfully re-encrypted, so a mid-batch failure leaves the vault
// under its original key.
func (m *Manager) ReencryptAll(oldKey, newKey []byte) ([]StoredCredential, error) {
	keys, err := m.storage.ListKeys(storagePrefix)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorageError, "list credential keys", err)
	}

	out := make([]StoredCredential, 0, len(keys))
	for _, k := range keys {
		raw, err := m.storage.Retrieve(k)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindStorageError, fmt.Sprintf("retrieve %s", k), err)
		}
		var stored StoredCredential
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, walleterr.Wrap(walleterr.KindSerializationError, "decode stored credential", err)
		}

		if err := reencryptField(&stored.EncryptedValue, oldKey, newKey, entryAAD(stored.Credential.ID)); err != nil {
			return nil, walleterr.Wrap(walleterr.KindDecryptionError, fmt.Sprintf("reencrypt %s", k), err)
		}
		if stored.EncryptedRefreshToken != "" {
			if err := reencryptField(&stored.EncryptedRefreshToken, oldKey, newKey, refreshAAD(stored.Credential.ID)); err != nil {
				return nil, walleterr.Wrap(walleterr.KindDecryptionError, fmt.Sprintf("reencrypt refresh token %s", k), err)
			}
		}
		out = append(out, stored)
	}
	return out, nil
}

// CommitReencrypted persists the results of ReencryptAll. The caller is
// responsible for having already swapped the manager's master key to
// newKey before calling this.
func (m *Manager) CommitReencrypted(records []StoredCredential) error {
	for _, stored := range records {
		if err := m.save(stored); err != nil {
			return err
		}
	}
	return nil
}

func reencryptField(field *string, oldKey, newKey, aad []byte) error {
	ev, err := intcrypto.ParseEncryptedValue(*field)
	if err != nil {
		return err
	}
	plaintext, err := ev.Decrypt(oldKey, aad)
	if err != nil {
		return err
	}
	newEv, err := intcrypto.Encrypt(newKey, plaintext, aad)
	if err != nil {
		return err
	}
	*field = newEv.String()
	return nil
}

func (m *Manager) load(id uuid.UUID) (StoredCredential, error) {
	raw, err := m.storage.Retrieve(storageKey(id))
	if err != nil {
		if walleterr.IsKind(err, walleterr.KindCredentialNotFound) {
			return StoredCredential{}, walleterr.New(walleterr.KindCredentialNotFound, fmt.Sprintf("no credential %s", id))
		}
		return StoredCredential{}, walleterr.Wrap(walleterr.KindStorageError, "retrieve credential", err)
	}
	var stored StoredCredential
	if err := json.Unmarshal(raw, &stored); err != nil {
		return StoredCredential{}, walleterr.Wrap(walleterr.KindSerializationError, "decode stored credential", err)
	}
	return stored, nil
}

func (m *Manager) save(stored StoredCredential) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return walleterr.Wrap(walleterr.KindSerializationError, "encode stored credential", err)
	}
	if err := m.storage.Store(storageKey(stored.Credential.ID), data); err != nil {
		return walleterr.Wrap(walleterr.KindStorageError, "persist credential", err)
	}
	return nil
}

func (m *Manager) touchLastUsed(id uuid.UUID) error {
	stored, err := m.load(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	stored.Credential.LastUsedAt = &now
	return m.save(stored)
}

func storageKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", storagePrefix, id)
}

func entryAAD(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("credential.value:%s", id))
}

func refreshAAD(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("credential.refresh:%s", id))
}
