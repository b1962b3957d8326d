// Package storage implements the wallet's encrypted key/value persistence
// layer: an on-disk salt, a key-verification blob, and an AEAD-encrypted
// JSON store of arbitrary key/value entries, plus an optional OS-keychain
// backend for the master key itself.
package storage

// SecureStorage is the persistence contract the wallet façade and every
// domain store (credentials, integrations) build on. Implementations own
// their own on-disk layout; callers only see keys and opaque values.
type SecureStorage interface {
	// SetMasterKey installs the key used to encrypt/decrypt entry values.
	// Must be called before Store/Retrieve/Delete/ListKeys.
	SetMasterKey(key []byte)

	// IsInitialized reports whether a vault already exists at this
	// storage location (salt + verification blob present).
	IsInitialized() (bool, error)

	// SaveSalt persists the Argon2 salt used to derive the master key.
	SaveSalt(salt []byte) error

	// LoadSalt returns the persisted Argon2 salt.
	LoadSalt() ([]byte, error)

	// SaveVerification encrypts and persists a known-plaintext blob under
	// the current master key, used later to confirm a candidate password
	// derives the correct key before trusting it for real data.
	SaveVerification() error

	// VerifyKey reports whether the current master key can decrypt the
	// persisted verification blob.
	VerifyKey() (bool, error)

	// Store encrypts value under the current master key and persists it
	// under key.
	Store(key string, value []byte) error

	// Retrieve decrypts and returns the value stored under key.
	Retrieve(key string) ([]byte, error)

	// Delete removes the entry stored under key. Deleting a missing key
	// is not an error.
	Delete(key string) error

	// Exists reports whether key has a stored entry.
	Exists(key string) (bool, error)

	// ListKeys returns every stored key whose name has the given prefix.
	// An empty prefix returns every key.
	ListKeys(prefix string) ([]string, error)

	// Clear removes every stored entry, the salt, and the verification
	// blob, returning storage to its uninitialized state.
	Clear() error
}
