// Package session implements session-token handoff: the GUI (or initial
// CLI invocation) that unlocked the wallet can write a session file that a
// sibling process reads to recover the master key without re-prompting
// for the password.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	intcrypto "github.com/Symbia-Labs/mcp-wallet/internal/crypto"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

// DefaultDuration is how long a session is valid for if the caller does
// not specify a duration.
const DefaultDuration = 24 * time.Hour

const sessionFilename = "session.json"

// Session is the on-disk handoff record: a random token that doubles as
// the AES key wrapping the master key, and an expiry.
type Session struct {
	Token               string    `json:"token"`
	EncryptedMasterKey  string    `json:"encrypted_master_key"`
	ExpiresAt           int64     `json:"expires_at"`
	SessionID           string    `json:"session_id"`
}

// Create builds a new Session wrapping masterKey under a fresh random
// token. duration of zero uses DefaultDuration.
func Create(masterKey *intcrypto.MasterKey, duration time.Duration) (*Session, error) {
	if duration == 0 {
		duration = DefaultDuration
	}

	tokenBytes := make([]byte, intcrypto.KeyLen)
	if _, err := io.ReadFull(rand.Reader, tokenBytes); err != nil {
		return nil, walleterr.Wrap(walleterr.KindCryptoError, "generate session token", err)
	}
	token := hex.EncodeToString(tokenBytes)

	masterKeyHex := hex.EncodeToString(masterKey.Bytes())
	encrypted, err := intcrypto.EncryptString(tokenBytes, masterKeyHex, []byte("session.master_key"))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindEncryptionError, "encrypt master key for session", err)
	}

	return &Session{
		Token:              token,
		EncryptedMasterKey: encrypted.String(),
		ExpiresAt:          time.Now().Add(duration).Unix(),
		SessionID:          uuid.New().String(),
	}, nil
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().Unix() > s.ExpiresAt
}

// RemainingSeconds returns how many seconds remain before expiry, or 0 if
// already expired.
func (s *Session) RemainingSeconds() int64 {
	remaining := s.ExpiresAt - time.Now().Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MasterKey decrypts and returns the wrapped master key, given the caller
// presents the matching token.
func (s *Session) MasterKey(token string) (*intcrypto.MasterKey, error) {
	if s.IsExpired() {
		return nil, walleterr.New(walleterr.KindSessionExpired, "session has expired")
	}
	if token != s.Token {
		return nil, walleterr.New(walleterr.KindInvalidSession, "session token does not match")
	}

	tokenBytes, err := hex.DecodeString(token)
	if err != nil || len(tokenBytes) != intcrypto.KeyLen {
		return nil, walleterr.New(walleterr.KindInvalidSession, "malformed session token")
	}

	ev, err := intcrypto.ParseEncryptedValue(s.EncryptedMasterKey)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindSerializationError, "malformed session file", err)
	}
	masterKeyHex, err := ev.DecryptString(tokenBytes, []byte("session.master_key"))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindDecryptionError, "decrypt session master key", err)
	}

	masterKeyBytes, err := hex.DecodeString(masterKeyHex)
	if err != nil || len(masterKeyBytes) != intcrypto.KeyLen {
		return nil, walleterr.New(walleterr.KindCryptoError, "invalid master key length in session")
	}

	return intcrypto.NewMasterKey(masterKeyBytes)
}

// Manager reads and writes the session handoff file for one wallet
// directory.
type Manager struct {
	sessionFile string
	log         zerolog.Logger
}

// NewManager returns a Manager rooted at walletDir.
func NewManager(walletDir string, log zerolog.Logger) *Manager {
	return &Manager{
		sessionFile: filepath.Join(walletDir, sessionFilename),
		log:         log.With().Str("component", "session_manager").Logger(),
	}
}

// Save persists session to disk with restrictive permissions.
func (m *Manager) Save(session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return walleterr.Wrap(walleterr.KindSerializationError, "encode session", err)
	}
	if err := os.WriteFile(m.sessionFile, data, 0o600); err != nil {
		return walleterr.Wrap(walleterr.KindIOError, "write session file", err)
	}
	m.log.Debug().Str("session_id", session.SessionID).Msg("saved session")
	return nil
}

// Load reads the session file, returning (nil, nil) if none exists. An
// expired session is deleted and also reported as (nil, nil).
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.sessionFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, walleterr.Wrap(walleterr.KindIOError, "read session file", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, walleterr.Wrap(walleterr.KindSerializationError, "decode session file", err)
	}

	if session.IsExpired() {
		m.log.Debug().Msg("session expired, removing file")
		if err := m.Clear(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &session, nil
}

// Clear removes the session file, if present.
func (m *Manager) Clear() error {
	if err := os.Remove(m.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return walleterr.Wrap(walleterr.KindIOError, "remove session file", err)
	}
	return nil
}

// Token returns the token of a currently valid session, if any.
func (m *Manager) Token() (string, bool, error) {
	session, err := m.Load()
	if err != nil {
		return "", false, err
	}
	if session == nil {
		return "", false, nil
	}
	return session.Token, true, nil
}
