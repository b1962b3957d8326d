// Package credential manages the wallet's stored API keys and OAuth2
// tokens: encrypted CRUD over a SecureStorage backend, keyed by UUID.
package credential

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies a stored credential's shape.
type Type string

const (
	TypeAPIKey      Type = "api_key"
	TypeOAuth2Token Type = "oauth2_token"
	TypeBasicAuth   Type = "basic_auth"
)

// Credential is the safe-to-display metadata for a stored secret; the
// secret value itself never appears here.
type Credential struct {
	ID            uuid.UUID  `json:"id"`
	Provider      string     `json:"provider"`
	Name          string     `json:"name"`
	CredentialType Type      `json:"credential_type"`
	Prefix        string     `json:"prefix,omitempty"`
	IntegrationID *uuid.UUID `json:"integration_id,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewAPIKeyCredential builds Credential metadata for a new API key,
// computing its display prefix from the raw secret.
func NewAPIKeyCredential(provider, name, apiKey string) Credential {
	return Credential{
		ID:             uuid.New(),
		Provider:       provider,
		Name:           name,
		CredentialType: TypeAPIKey,
		Prefix:         truncatePrefix(apiKey),
		CreatedAt:      time.Now().UTC(),
	}
}

// NewOAuth2Credential builds Credential metadata for a new OAuth2 token.
// OAuth2 tokens have no display prefix — they are typically opaque and
// rotated, unlike a recognizable API key.
func NewOAuth2Credential(provider, name string) Credential {
	return Credential{
		ID:             uuid.New(),
		Provider:       provider,
		Name:           name,
		CredentialType: TypeOAuth2Token,
		CreatedAt:      time.Now().UTC(),
	}
}

// truncatePrefix returns the first 8 characters of secret followed by
// "...", or the whole secret plus "..." if it is shorter than 8 characters.
func truncatePrefix(secret string) string {
	if len(secret) >= 8 {
		return fmt.Sprintf("%s...", secret[:8])
	}
	return fmt.Sprintf("%s...", secret)
}

// StoredCredential is the on-disk envelope: Credential metadata alongside
// the AEAD-encrypted secret value(s).
type StoredCredential struct {
	Credential            Credential `json:"credential"`
	EncryptedValue         string     `json:"encrypted_value"`
	EncryptedRefreshToken  string     `json:"encrypted_refresh_token,omitempty"`
	ExpiresAt              *time.Time `json:"expires_at,omitempty"`
}
