// Package integration registers configured OpenAPI services: their parsed
// operations, detected auth scheme, and linkage to a stored credential.
package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/Symbia-Labs/mcp-wallet/internal/openapi"
)

// Status is an integration's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusError    Status = "error"
	StatusDisabled Status = "disabled"
)

// Integration is the safe-to-display metadata for a configured OpenAPI
// service.
type Integration struct {
	ID             uuid.UUID  `json:"id"`
	Key            string     `json:"key"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	SpecURL        string     `json:"spec_url,omitempty"`
	ServerURL      string     `json:"server_url"`
	Status         Status     `json:"status"`
	CredentialID   *uuid.UUID `json:"credential_id,omitempty"`
	OperationCount int        `json:"operation_count"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// newFromSpec builds Integration metadata from a freshly parsed spec.
func newFromSpec(key string, spec *openapi.ParsedSpec) Integration {
	serverURL := ""
	if len(spec.Servers) > 0 {
		serverURL = spec.Servers[0].URL
	}

	now := time.Now().UTC()
	return Integration{
		ID:             uuid.New(),
		Key:            key,
		Name:           spec.Title,
		Description:    spec.Description,
		ServerURL:      serverURL,
		Status:         StatusPending,
		OperationCount: len(spec.Operations),
		LastSyncedAt:   &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// StoredIntegration is the on-disk envelope: Integration metadata, its
// parsed operations, a namespace tree over them, and (for content-based
// integrations) the raw spec text for re-parsing.
type StoredIntegration struct {
	Integration Integration          `json:"integration"`
	Operations  []openapi.Operation  `json:"operations"`
	SpecContent string               `json:"spec_content,omitempty"`

	namespace *openapi.NamespaceTree
}

func newStoredFromSpec(key string, spec *openapi.ParsedSpec, specContent string) StoredIntegration {
	return StoredIntegration{
		Integration: newFromSpec(key, spec),
		Operations:  spec.Operations,
		SpecContent: specContent,
		namespace:   openapi.BuildNamespaceTree(spec.Operations),
	}
}

// ensureNamespace rebuilds the in-memory namespace tree after the struct
// has been decoded from JSON, where the tree itself is not persisted.
func (s *StoredIntegration) ensureNamespace() {
	if s.namespace == nil {
		s.namespace = openapi.BuildNamespaceTree(s.Operations)
	}
}

// LookupOperation resolves a dotted namespace path to its operation.
func (s *StoredIntegration) LookupOperation(path string) (openapi.Operation, bool) {
	s.ensureNamespace()
	ref, ok := s.namespace.Lookup(path)
	if !ok {
		return openapi.Operation{}, false
	}
	return s.Operations[ref.Index], true
}

// ListOperations returns every operation under a namespace prefix.
func (s *StoredIntegration) ListOperations(prefix string) []openapi.Operation {
	s.ensureNamespace()
	refs := s.namespace.List(prefix)
	out := make([]openapi.Operation, 0, len(refs))
	for _, ref := range refs {
		out = append(out, s.Operations[ref.Index])
	}
	return out
}

// OperationPaths returns every dotted namespace path in this integration.
func (s *StoredIntegration) OperationPaths() []string {
	s.ensureNamespace()
	return s.namespace.Paths()
}
