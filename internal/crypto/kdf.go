// Package crypto implements the vault's password-based key derivation,
// authenticated encryption, and in-memory key hygiene.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltLen is the enforced Argon2 salt length in bytes.
const SaltLen = 16

// KeyLen is the derived master-key length in bytes.
const KeyLen = 32

// Argon2Params captures tunable Argon2id parameters.
type Argon2Params struct {
	MemoryKiB   uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params returns the vault's fixed KDF parameters:
// 64 MiB memory, 3 iterations, 4-way parallelism, 32-byte output.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   64 * 1024,
		Time:        3,
		Parallelism: 4,
		KeyLen:      KeyLen,
	}
}

// DeriveKey derives a MasterKey from a password and salt using Argon2id.
// Deterministic for a fixed (password, salt, params) triple.
func DeriveKey(password []byte, salt []byte, p Argon2Params) (*MasterKey, error) {
	if len(password) == 0 {
		return nil, errors.New("password is required")
	}
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("salt must be %d bytes", SaltLen)
	}
	if p.KeyLen == 0 || p.MemoryKiB == 0 || p.Time == 0 || p.Parallelism == 0 {
		return nil, errors.New("invalid argon2 parameters")
	}

	key := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	if uint32(len(key)) != p.KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return NewMasterKey(key)
}

// NewRandomSalt returns a cryptographically random salt of SaltLen bytes.
func NewRandomSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
