package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/crypto"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

const (
	walletFilename = "wallet.json"
	saltFilename   = "salt"
	verifyFilename = "verify"

	walletFormatVersion = 1

	verificationPlaintext = "mcp-wallet-verification"
	verifyAAD             = "wallet.verify"
	entryAADPrefix        = "wallet.entry:"
)

// walletFile is the on-disk JSON layout of wallet.json: a format version
// and a flat map of key to the "iv:tag:ciphertext" wire encoding.
type walletFile struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// FileStore is the default SecureStorage backend: an encrypted JSON
// key/value file plus a plaintext salt file and an AEAD verification blob,
// all written atomically via temp-file-then-rename.
type FileStore struct {
	dir string
	log zerolog.Logger

	mu        sync.RWMutex
	masterKey []byte

	cacheMu sync.Mutex
	cache   map[string]string
	loaded  bool
	dirty   bool
}

// NewFileStore returns a FileStore rooted at dir. The directory is created
// on first write if it does not yet exist.
func NewFileStore(dir string, log zerolog.Logger) *FileStore {
	return &FileStore{
		dir:   dir,
		log:   log.With().Str("component", "storage").Logger(),
		cache: make(map[string]string),
	}
}

func (fs *FileStore) walletPath() string { return filepath.Join(fs.dir, walletFilename) }
func (fs *FileStore) saltPath() string   { return filepath.Join(fs.dir, saltFilename) }
func (fs *FileStore) verifyPath() string { return filepath.Join(fs.dir, verifyFilename) }

func (fs *FileStore) ensureDir() error {
	if fs.dir == "" {
		return walleterr.New(walleterr.KindStorageError, "storage directory not configured")
	}
	if err := os.MkdirAll(fs.dir, 0o700); err != nil {
		return walleterr.Wrap(walleterr.KindIOError, "create storage directory", err)
	}
	return nil
}

// SetMasterKey installs the key used for entry and verification AEAD.
func (fs *FileStore) SetMasterKey(key []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.masterKey = append([]byte(nil), key...)
}

func (fs *FileStore) key() ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if len(fs.masterKey) != crypto.KeyLen {
		return nil, walleterr.New(walleterr.KindWalletLocked, "master key not set")
	}
	return fs.masterKey, nil
}

// IsInitialized reports whether salt + verify are both present on disk.
func (fs *FileStore) IsInitialized() (bool, error) {
	if _, err := os.Stat(fs.saltPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, walleterr.Wrap(walleterr.KindIOError, "stat salt file", err)
	}
	if _, err := os.Stat(fs.verifyPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, walleterr.Wrap(walleterr.KindIOError, "stat verify file", err)
	}
	return true, nil
}

// SaveSalt writes the Argon2 salt as a plaintext file (the salt is not a
// secret; it is required to re-derive the master key on unlock).
func (fs *FileStore) SaveSalt(salt []byte) error {
	if err := fs.ensureDir(); err != nil {
		return err
	}
	if err := atomicWrite(fs.dir, fs.saltPath(), salt, 0o600); err != nil {
		return walleterr.Wrap(walleterr.KindIOError, "write salt file", err)
	}
	return nil
}

// LoadSalt reads the persisted Argon2 salt.
func (fs *FileStore) LoadSalt() ([]byte, error) {
	data, err := os.ReadFile(fs.saltPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, walleterr.New(walleterr.KindWalletNotInitialized, "no salt on disk")
		}
		return nil, walleterr.Wrap(walleterr.KindIOError, "read salt file", err)
	}
	return data, nil
}

// SaveVerification encrypts the fixed verification plaintext under the
// current master key and writes it to disk.
func (fs *FileStore) SaveVerification() error {
	key, err := fs.key()
	if err != nil {
		return err
	}
	ev, err := crypto.EncryptString(key, verificationPlaintext, []byte(verifyAAD))
	if err != nil {
		return walleterr.Wrap(walleterr.KindEncryptionError, "encrypt verification blob", err)
	}
	if err := fs.ensureDir(); err != nil {
		return err
	}
	if err := atomicWrite(fs.dir, fs.verifyPath(), []byte(ev.String()), 0o600); err != nil {
		return walleterr.Wrap(walleterr.KindIOError, "write verify file", err)
	}
	return nil
}

// VerifyKey reports whether the current master key decrypts the stored
// verification blob to the expected plaintext.
func (fs *FileStore) VerifyKey() (bool, error) {
	key, err := fs.key()
	if err != nil {
		return false, err
	}

	raw, err := os.ReadFile(fs.verifyPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, walleterr.New(walleterr.KindWalletNotInitialized, "no verification blob on disk")
		}
		return false, walleterr.Wrap(walleterr.KindIOError, "read verify file", err)
	}

	ev, err := crypto.ParseEncryptedValue(string(raw))
	if err != nil {
		return false, walleterr.Wrap(walleterr.KindSerializationError, "malformed verify file", err)
	}

	plaintext, err := ev.DecryptString(key, []byte(verifyAAD))
	if err != nil {
		return false, nil
	}
	return plaintext == verificationPlaintext, nil
}

func (fs *FileStore) loadCacheLocked() error {
	if fs.loaded {
		return nil
	}

	data, err := os.ReadFile(fs.walletPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fs.cache = make(map[string]string)
			fs.loaded = true
			return nil
		}
		return walleterr.Wrap(walleterr.KindIOError, "read wallet file", err)
	}

	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return walleterr.Wrap(walleterr.KindSerializationError, "decode wallet file", err)
	}
	if wf.Entries == nil {
		wf.Entries = make(map[string]string)
	}
	fs.cache = wf.Entries
	fs.loaded = true
	return nil
}

func (fs *FileStore) flushLocked() error {
	if !fs.dirty {
		return nil
	}
	if err := fs.ensureDir(); err != nil {
		return err
	}

	wf := walletFile{Version: walletFormatVersion, Entries: fs.cache}
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return walleterr.Wrap(walleterr.KindSerializationError, "encode wallet file", err)
	}
	if err := atomicWrite(fs.dir, fs.walletPath(), data, 0o600); err != nil {
		return walleterr.Wrap(walleterr.KindIOError, "write wallet file", err)
	}
	fs.dirty = false
	return nil
}

// Store encrypts value under a per-entry sub-key derived from the master
// key and persists it under key.
func (fs *FileStore) Store(key string, value []byte) error {
	mk, err := fs.key()
	if err != nil {
		return err
	}
	entryKey, err := crypto.DeriveEntryKey(mk, entryAAD(key))
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "derive entry key", err)
	}
	ev, err := crypto.Encrypt(entryKey, value, entryAAD(key))
	if err != nil {
		return walleterr.Wrap(walleterr.KindEncryptionError, "encrypt entry", err)
	}

	fs.cacheMu.Lock()
	if err := fs.loadCacheLocked(); err != nil {
		fs.cacheMu.Unlock()
		return err
	}
	fs.cache[key] = ev.String()
	fs.dirty = true
	flushErr := fs.flushLocked()
	fs.cacheMu.Unlock()
	return flushErr
}

// Retrieve decrypts and returns the value stored under key.
func (fs *FileStore) Retrieve(key string) ([]byte, error) {
	mk, err := fs.key()
	if err != nil {
		return nil, err
	}

	fs.cacheMu.Lock()
	if err := fs.loadCacheLocked(); err != nil {
		fs.cacheMu.Unlock()
		return nil, err
	}
	encoded, ok := fs.cache[key]
	fs.cacheMu.Unlock()
	if !ok {
		return nil, walleterr.New(walleterr.KindCredentialNotFound, fmt.Sprintf("no entry for key %q", key))
	}

	ev, err := crypto.ParseEncryptedValue(encoded)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindSerializationError, "malformed stored entry", err)
	}
	entryKey, err := crypto.DeriveEntryKey(mk, entryAAD(key))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindKeyDerivationError, "derive entry key", err)
	}
	plaintext, err := ev.Decrypt(entryKey, entryAAD(key))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindDecryptionError, "decrypt entry", err)
	}
	return plaintext, nil
}

// Delete removes the entry stored under key, if any.
func (fs *FileStore) Delete(key string) error {
	fs.cacheMu.Lock()
	defer fs.cacheMu.Unlock()
	if err := fs.loadCacheLocked(); err != nil {
		return err
	}
	if _, ok := fs.cache[key]; !ok {
		return nil
	}
	delete(fs.cache, key)
	fs.dirty = true
	return fs.flushLocked()
}

// Exists reports whether key has a stored entry.
func (fs *FileStore) Exists(key string) (bool, error) {
	fs.cacheMu.Lock()
	defer fs.cacheMu.Unlock()
	if err := fs.loadCacheLocked(); err != nil {
		return false, err
	}
	_, ok := fs.cache[key]
	return ok, nil
}

// ListKeys returns every stored key with the given prefix, in no
// guaranteed order.
func (fs *FileStore) ListKeys(prefix string) ([]string, error) {
	fs.cacheMu.Lock()
	defer fs.cacheMu.Unlock()
	if err := fs.loadCacheLocked(); err != nil {
		return nil, err
	}

	var keys []string
	for k := range fs.cache {
		if prefix == "" || len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Clear removes wallet.json, salt, and verify, resetting storage to an
// uninitialized state.
func (fs *FileStore) Clear() error {
	fs.cacheMu.Lock()
	fs.cache = make(map[string]string)
	fs.loaded = true
	fs.dirty = false
	fs.cacheMu.Unlock()

	for _, p := range []string{fs.walletPath(), fs.saltPath(), fs.verifyPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return walleterr.Wrap(walleterr.KindIOError, "remove storage file", err)
		}
	}
	return nil
}

func entryAAD(key string) []byte {
	return []byte(entryAADPrefix + key)
}

// atomicWrite writes data to path via a temp file in dir followed by a
// chmod and rename, so a crash mid-write never leaves a truncated file in
// path's place.
func atomicWrite(dir, path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
