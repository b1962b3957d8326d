// Package walleterr defines the typed error taxonomy shared by every wallet
// subsystem, so callers can distinguish failure modes with errors.Is/As
// instead of matching on message strings.
package walleterr

import (
	"errors"
	"fmt"
)

// Kind classifies a wallet error into one of the categories the wallet
// surfaces to its callers (CLI, MCP dispatcher, transports).
type Kind int

const (
	KindUnknown Kind = iota
	KindWalletLocked
	KindWalletNotInitialized
	KindAlreadyInitialized
	KindInvalidPassword
	KindWeakPassword
	KindSessionExpired
	KindInvalidSession
	KindEncryptionError
	KindDecryptionError
	KindKeyDerivationError
	KindCryptoError
	KindStorageError
	KindKeychainError
	KindIOError
	KindSerializationError
	KindIntegrationNotFound
	KindCredentialNotFound
	KindOperationNotFound
	KindInvalidSpec
	KindParseError
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindWalletLocked:
		return "wallet_locked"
	case KindWalletNotInitialized:
		return "wallet_not_initialized"
	case KindAlreadyInitialized:
		return "already_initialized"
	case KindInvalidPassword:
		return "invalid_password"
	case KindWeakPassword:
		return "weak_password"
	case KindSessionExpired:
		return "session_expired"
	case KindInvalidSession:
		return "invalid_session"
	case KindEncryptionError:
		return "encryption_error"
	case KindDecryptionError:
		return "decryption_error"
	case KindKeyDerivationError:
		return "key_derivation_error"
	case KindCryptoError:
		return "crypto_error"
	case KindStorageError:
		return "storage_error"
	case KindKeychainError:
		return "keychain_error"
	case KindIOError:
		return "io_error"
	case KindSerializationError:
		return "serialization_error"
	case KindIntegrationNotFound:
		return "integration_not_found"
	case KindCredentialNotFound:
		return "credential_not_found"
	case KindOperationNotFound:
		return "operation_not_found"
	case KindInvalidSpec:
		return "invalid_spec"
	case KindParseError:
		return "parse_error"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is the wallet's single error type: a Kind plus a human message and
// an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, walleterr.New(walleterr.KindWalletLocked, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Of reports the Kind of err, or KindUnknown if err is not a *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's Kind matches kind — the package-level helper
// wallet callers use most often.
func IsKind(err error, kind Kind) bool {
	return Of(err) == kind
}
