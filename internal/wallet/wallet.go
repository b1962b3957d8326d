// Package wallet is the façade that orchestrates every other subsystem
// behind a single NotInitialized/Locked/Unlocked state machine: crypto key
// derivation, secure storage, the credential store, the integration
// registry, and session handoff.
package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/credential"
	intcrypto "github.com/Symbia-Labs/mcp-wallet/internal/crypto"
	"github.com/Symbia-Labs/mcp-wallet/internal/integration"
	"github.com/Symbia-Labs/mcp-wallet/internal/session"
	"github.com/Symbia-Labs/mcp-wallet/internal/storage"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
	"github.com/Symbia-Labs/mcp-wallet/internal/walletpolicy"
)

// State is the wallet's lifecycle state.
type State int

const (
	NotInitialized State = iota
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case NotInitialized:
		return "not_initialized"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Wallet owns the storage handle and the resident master key, and
// dispatches to the credential and integration managers it shares storage
// with.
type Wallet struct {
	dir string
	log zerolog.Logger

	store        storage.SecureStorage
	credentials  *credential.Manager
	integrations *integration.Registry
	sessions     *session.Manager

	// PasswordPolicy validates candidate master passwords on Initialize
	// and ChangePassword when EnforcePolicy is true; setting EnforcePolicy
	// to false skips the check entirely. New sets walletpolicy's standard
	// policy and enables enforcement.
	PasswordPolicy walletpolicy.ValidateOptions
	EnforcePolicy  bool

	mu        sync.RWMutex
	state     State
	masterKey *intcrypto.MasterKey
}

// New returns a Wallet rooted at dir, with its storage backend, credential
// manager, integration registry, and session manager all wired together.
// It does not touch disk until one of the lifecycle methods is called.
func New(dir string, log zerolog.Logger) (*Wallet, error) {
	log = log.With().Str("component", "wallet").Logger()
	store := storage.NewFileStore(dir, log)

	w := &Wallet{
		dir:            dir,
		log:            log,
		store:          store,
		credentials:    credential.NewManager(store, log),
		integrations:   integration.NewRegistry(store, log),
		sessions:       session.NewManager(dir, log),
		PasswordPolicy: walletpolicy.DefaultValidateOptions(),
		EnforcePolicy:  true,
	}

	initialized, err := store.IsInitialized()
	if err != nil {
		return nil, err
	}
	if initialized {
		w.state = Locked
	} else {
		w.state = NotInitialized
	}
	return w, nil
}

// State reports the wallet's current lifecycle state.
func (w *Wallet) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Credentials returns the credential manager, usable once Unlocked (most
// of its methods fail with KindWalletLocked otherwise).
func (w *Wallet) Credentials() *credential.Manager { return w.credentials }

// Integrations returns the integration registry.
func (w *Wallet) Integrations() *integration.Registry { return w.integrations }

func (w *Wallet) validatePassword(ctx context.Context, password string) error {
	if !w.EnforcePolicy {
		return nil
	}
	if err := walletpolicy.ValidateMasterPasswordAdvanced(ctx, password, w.PasswordPolicy); err != nil {
		return walleterr.Wrap(walleterr.KindWeakPassword, "master password rejected", err)
	}
	return nil
}

// installMasterKey hands key to a subsystem through a clone, wiping the
// clone immediately after so the subsystem's copy never aliases key's own
// backing array.
func installMasterKey(install func([]byte), key *intcrypto.MasterKey) {
	clone := key.Clone()
	install(clone.Bytes())
	clone.Wipe()
}

// Initialize generates a fresh salt and master key, persists the salt and
// verification blob, and transitions NotInitialized -> Unlocked. It fails
// if the wallet is already initialized.
func (w *Wallet) Initialize(ctx context.Context, password string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != NotInitialized {
		return walleterr.New(walleterr.KindAlreadyInitialized, "wallet is already initialized")
	}
	if err := w.validatePassword(ctx, password); err != nil {
		return err
	}

	salt, err := intcrypto.NewRandomSalt()
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "generate salt", err)
	}
	masterKey, err := intcrypto.DeriveKey([]byte(password), salt, intcrypto.DefaultArgon2Params())
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "derive master key", err)
	}

	if err := w.store.SaveSalt(salt); err != nil {
		return err
	}
	w.store.SetMasterKey(masterKey.Bytes())
	if err := w.store.SaveVerification(); err != nil {
		return err
	}

	installMasterKey(w.credentials.SetMasterKey, masterKey)
	w.masterKey = masterKey
	w.state = Unlocked

	if err := SaveSettings(w.dir, DefaultSettings()); err != nil {
		return err
	}

	w.log.Info().Msg("wallet initialized")
	return nil
}

// Unlock derives a candidate master key from password and the persisted
// salt, verifies it against the stored verification blob, and on success
// loads the storage cache and integration registry. On a wrong password
// the master key is cleared everywhere and InvalidPassword is returned;
// the wallet stays Locked. Unlock on an already-Unlocked wallet is a no-op.
func (w *Wallet) Unlock(password string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == NotInitialized {
		return walleterr.New(walleterr.KindWalletNotInitialized, "wallet has not been initialized")
	}
	if w.state == Unlocked {
		return nil
	}

	salt, err := w.store.LoadSalt()
	if err != nil {
		return err
	}
	candidate, err := intcrypto.DeriveKey([]byte(password), salt, intcrypto.DefaultArgon2Params())
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "derive candidate key", err)
	}

	w.store.SetMasterKey(candidate.Bytes())
	ok, err := w.store.VerifyKey()
	if err != nil {
		w.store.SetMasterKey(nil)
		return err
	}
	if !ok {
		w.store.SetMasterKey(nil)
		return walleterr.New(walleterr.KindInvalidPassword, "incorrect master password")
	}

	return w.finishUnlock(candidate)
}

// UnlockWithSession recovers the master key from a still-valid session
// file, without prompting for a password.
func (w *Wallet) UnlockWithSession() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == NotInitialized {
		return walleterr.New(walleterr.KindWalletNotInitialized, "wallet has not been initialized")
	}
	if w.state == Unlocked {
		return nil
	}

	sess, err := w.sessions.Load()
	if err != nil {
		return err
	}
	if sess == nil {
		return walleterr.New(walleterr.KindInvalidSession, "no valid session")
	}

	masterKey, err := sess.MasterKey(sess.Token)
	if err != nil {
		return walleterr.Wrap(walleterr.KindInvalidSession, "recover master key from session", err)
	}

	w.store.SetMasterKey(masterKey.Bytes())
	ok, err := w.store.VerifyKey()
	if err != nil || !ok {
		w.store.SetMasterKey(nil)
		return walleterr.New(walleterr.KindInvalidSession, "session key failed storage verification")
	}

	return w.finishUnlock(masterKey)
}

// finishUnlock installs masterKey into every subsystem and loads the
// on-disk caches, must be called with w.mu held and storage's master key
// already set and verified.
func (w *Wallet) finishUnlock(masterKey *intcrypto.MasterKey) error {
	installMasterKey(w.credentials.SetMasterKey, masterKey)
	w.masterKey = masterKey

	if err := w.integrations.Load(); err != nil {
		w.store.SetMasterKey(nil)
		w.credentials.SetMasterKey(nil)
		w.masterKey = nil
		return err
	}

	w.state = Unlocked
	w.log.Info().Msg("wallet unlocked")
	return nil
}

// Lock drops the resident master key from storage and the credential
// manager and deletes the session file, so no sibling process can recover
// it. Lock is idempotent.
func (w *Wallet) Lock() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Unlocked {
		return nil
	}

	w.store.SetMasterKey(nil)
	w.credentials.SetMasterKey(nil)
	if w.masterKey != nil {
		w.masterKey.Wipe()
		w.masterKey = nil
	}
	if err := w.sessions.Clear(); err != nil {
		return err
	}

	w.state = Locked
	w.log.Info().Msg("wallet locked")
	return nil
}

// ChangePassword verifies oldPassword, derives a new salt and master key
// from newPassword, re-encrypts every stored credential under the new key,
// and only then overwrites the salt/verifier and persists the
// re-encrypted entries. If any credential fails to re-encrypt the
// operation is refused and the vault is left untouched under the old
// password, per spec.md §9's guidance for implementers that cannot do
// this atomically.
func (w *Wallet) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == NotInitialized {
		return walleterr.New(walleterr.KindWalletNotInitialized, "wallet has not been initialized")
	}
	if err := w.validatePassword(ctx, newPassword); err != nil {
		return err
	}

	salt, err := w.store.LoadSalt()
	if err != nil {
		return err
	}
	oldKey, err := intcrypto.DeriveKey([]byte(oldPassword), salt, intcrypto.DefaultArgon2Params())
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "derive old master key", err)
	}

	w.store.SetMasterKey(oldKey.Bytes())
	ok, err := w.store.VerifyKey()
	if err != nil {
		return err
	}
	if !ok {
		w.restoreResidentKeyLocked()
		return walleterr.New(walleterr.KindInvalidPassword, "incorrect current master password")
	}

	newSalt, err := intcrypto.NewRandomSalt()
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "generate new salt", err)
	}
	newKey, err := intcrypto.DeriveKey([]byte(newPassword), newSalt, intcrypto.DefaultArgon2Params())
	if err != nil {
		return walleterr.Wrap(walleterr.KindKeyDerivationError, "derive new master key", err)
	}

	// Integration entries are also sealed under sub-keys of the master key;
	// read them under the old key so they can be rewritten under the new one.
	integrationKeys, err := w.store.ListKeys("integration:")
	integrationValues := make([][]byte, len(integrationKeys))
	for i := 0; err == nil && i < len(integrationKeys); i++ {
		integrationValues[i], err = w.store.Retrieve(integrationKeys[i])
	}
	if err != nil {
		w.restoreResidentKeyLocked()
		return walleterr.Wrap(walleterr.KindCryptoError, "re-encrypt stored integrations", err)
	}

	records, err := w.credentials.ReencryptAll(oldKey.Bytes(), newKey.Bytes())
	if err != nil {
		// Restore the previously resident key so the wallet is left
		// exactly as it was before this call.
		w.restoreResidentKeyLocked()
		return walleterr.Wrap(walleterr.KindCryptoError, "re-encrypt stored credentials", err)
	}

	if err := w.store.SaveSalt(newSalt); err != nil {
		return err
	}
	installMasterKey(w.store.SetMasterKey, newKey)
	if err := w.store.SaveVerification(); err != nil {
		return err
	}

	installMasterKey(w.credentials.SetMasterKey, newKey)
	if err := w.credentials.CommitReencrypted(records); err != nil {
		return walleterr.Wrap(walleterr.KindCryptoError, "persist re-encrypted credentials", err)
	}
	for i, key := range integrationKeys {
		if err := w.store.Store(key, integrationValues[i]); err != nil {
			return walleterr.Wrap(walleterr.KindCryptoError, "persist re-encrypted integrations", err)
		}
	}

	if w.masterKey != nil {
		w.masterKey.Wipe()
	}
	w.masterKey = newKey

	if w.state != Unlocked {
		if err := w.integrations.Load(); err != nil {
			return err
		}
	}
	w.state = Unlocked

	w.log.Info().Msg("master password changed; all credentials re-encrypted")
	return nil
}

// restoreResidentKeyLocked reinstalls whatever master key was resident
// before a ChangePassword attempt began (nil if the wallet was Locked),
// so a failed rekey leaves storage's key exactly as it found it. Callers
// must hold w.mu.
func (w *Wallet) restoreResidentKeyLocked() {
	if w.masterKey != nil {
		installMasterKey(w.store.SetMasterKey, w.masterKey)
		return
	}
	w.store.SetMasterKey(nil)
}

// CreateSession mints and persists a new session handoff file wrapping the
// resident master key. duration of zero uses session.DefaultDuration.
func (w *Wallet) CreateSession(duration time.Duration) (*session.Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.state != Unlocked {
		return nil, walleterr.New(walleterr.KindWalletLocked, "wallet is locked")
	}

	sess, err := session.Create(w.masterKey, duration)
	if err != nil {
		return nil, err
	}
	if err := w.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// HasValidSession reports whether an unexpired session file is present.
func (w *Wallet) HasValidSession() (bool, error) {
	_, ok, err := w.sessions.Token()
	return ok, err
}

// SessionRemaining reports the seconds left before the current session
// handoff file expires. ok is false if there is no valid session.
func (w *Wallet) SessionRemaining() (remaining int64, ok bool, err error) {
	sess, err := w.sessions.Load()
	if err != nil {
		return 0, false, err
	}
	if sess == nil {
		return 0, false, nil
	}
	return sess.RemainingSeconds(), true, nil
}

// ClearSession deletes the session file, if any.
func (w *Wallet) ClearSession() error {
	return w.sessions.Clear()
}

// Reset clears all storage (wallet.json, salt, verify), deletes the
// session file, resets settings to defaults, drops the resident master
// key, and returns the wallet to NotInitialized.
func (w *Wallet) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Clear(); err != nil {
		return err
	}
	if err := w.sessions.Clear(); err != nil {
		return err
	}
	if err := resetSettings(w.dir); err != nil {
		return err
	}

	w.store.SetMasterKey(nil)
	w.credentials.SetMasterKey(nil)
	if w.masterKey != nil {
		w.masterKey.Wipe()
		w.masterKey = nil
	}
	w.state = NotInitialized

	w.log.Info().Msg("wallet reset to uninitialized")
	return nil
}

// Settings returns the wallet's current (unencrypted) settings, readable
// regardless of lock state.
func (w *Wallet) Settings() (Settings, error) {
	return LoadSettings(w.dir)
}

// SaveSettings overwrites the wallet's settings.
func (w *Wallet) SaveSettings(s Settings) error {
	return SaveSettings(w.dir, s)
}
