package integration

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/openapi"
	"github.com/Symbia-Labs/mcp-wallet/internal/storage"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

const storagePrefix = "integration:"

// Registry manages the set of configured integrations, keyed by their
// short key ("stripe", "github"), caching parsed operations in memory
// alongside persisting them to storage.
type Registry struct {
	storage storage.SecureStorage
	log     zerolog.Logger

	mu           sync.RWMutex
	integrations map[string]*StoredIntegration
}

// NewRegistry returns an empty Registry backed by store.
func NewRegistry(store storage.SecureStorage, log zerolog.Logger) *Registry {
	return &Registry{
		storage:      store,
		log:          log.With().Str("component", "integration_registry").Logger(),
		integrations: make(map[string]*StoredIntegration),
	}
}

// Load populates the in-memory cache from storage. Call once after
// unlocking the wallet.
func (r *Registry) Load() error {
	keys, err := r.storage.ListKeys(storagePrefix)
	if err != nil {
		return walleterr.Wrap(walleterr.KindStorageError, "list integration keys", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		raw, err := r.storage.Retrieve(key)
		if err != nil {
			r.log.Warn().Str("key", key).Err(err).Msg("integration key exists but could not be read")
			continue
		}
		var stored StoredIntegration
		if err := json.Unmarshal(raw, &stored); err != nil {
			return walleterr.Wrap(walleterr.KindSerializationError, fmt.Sprintf("decode integration %s", key), err)
		}
		integrationKey := strings.TrimPrefix(key, storagePrefix)
		r.integrations[integrationKey] = &stored
	}

	r.log.Info().Int("count", len(r.integrations)).Msg("loaded integrations")
	return nil
}

// AddFromURL fetches and parses an OpenAPI document from a URL and
// registers it under key.
func (r *Registry) AddFromURL(key, specURL string) (Integration, error) {
	spec, err := openapi.FetchAndParse(specURL)
	if err != nil {
		return Integration{}, walleterr.Wrap(walleterr.KindInvalidSpec, "fetch and parse spec", err)
	}

	stored := newStoredFromSpec(key, spec, "")
	stored.Integration.SpecURL = specURL

	if err := r.save(&stored); err != nil {
		return Integration{}, err
	}

	r.mu.Lock()
	r.integrations[key] = &stored
	r.mu.Unlock()

	r.log.Info().Str("key", key).Str("spec_url", specURL).Msg("added integration from url")
	return stored.Integration, nil
}

// AddFromContent parses an OpenAPI document already in memory and
// registers it under key.
func (r *Registry) AddFromContent(key, content string) (Integration, error) {
	spec, err := openapi.Parse([]byte(content))
	if err != nil {
		return Integration{}, walleterr.Wrap(walleterr.KindInvalidSpec, "parse spec content", err)
	}

	stored := newStoredFromSpec(key, spec, content)
	if err := r.save(&stored); err != nil {
		return Integration{}, err
	}

	r.mu.Lock()
	r.integrations[key] = &stored
	r.mu.Unlock()

	r.log.Info().Str("key", key).Msg("added integration from content")
	return stored.Integration, nil
}

// Remove deletes an integration by key.
func (r *Registry) Remove(key string) error {
	if err := r.storage.Delete(storageKey(key)); err != nil {
		return walleterr.Wrap(walleterr.KindStorageError, "delete integration", err)
	}

	r.mu.Lock()
	delete(r.integrations, key)
	r.mu.Unlock()

	r.log.Info().Str("key", key).Msg("removed integration")
	return nil
}

// Get returns an integration's metadata by key.
func (r *Registry) Get(key string) (Integration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.integrations[key]
	if !ok {
		return Integration{}, false
	}
	return stored.Integration, true
}

// GetStored returns the full stored integration (including its operations
// and namespace tree) by key.
func (r *Registry) GetStored(key string) (*StoredIntegration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.integrations[key]
	return stored, ok
}

// List returns metadata for every registered integration.
func (r *Registry) List() []Integration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Integration, 0, len(r.integrations))
	for _, stored := range r.integrations {
		out = append(out, stored.Integration)
	}
	return out
}

// SetStatus updates an integration's lifecycle status.
func (r *Registry) SetStatus(key string, status Status) error {
	r.mu.Lock()
	stored, ok := r.integrations[key]
	if !ok {
		r.mu.Unlock()
		return walleterr.New(walleterr.KindIntegrationNotFound, fmt.Sprintf("no integration %q", key))
	}
	stored.Integration.Status = status
	stored.Integration.UpdatedAt = time.Now().UTC()
	snapshot := *stored
	r.mu.Unlock()

	return r.save(&snapshot)
}

// SetCredential links a credential ID to an integration and marks it
// active.
func (r *Registry) SetCredential(key string, credentialID uuid.UUID) error {
	r.mu.Lock()
	stored, ok := r.integrations[key]
	if !ok {
		r.mu.Unlock()
		return walleterr.New(walleterr.KindIntegrationNotFound, fmt.Sprintf("no integration %q", key))
	}
	stored.Integration.CredentialID = &credentialID
	stored.Integration.Status = StatusActive
	stored.Integration.UpdatedAt = time.Now().UTC()
	snapshot := *stored
	r.mu.Unlock()

	if err := r.save(&snapshot); err != nil {
		return err
	}
	r.log.Debug().Str("key", key).Str("credential_id", credentialID.String()).Msg("set integration credential")
	return nil
}

// LookupOperation resolves a namespace path within one integration's
// operations.
func (r *Registry) LookupOperation(key, path string) (openapi.Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.integrations[key]
	if !ok {
		return openapi.Operation{}, false
	}
	return stored.LookupOperation(path)
}

// ListOperations returns every operation registered for an integration.
func (r *Registry) ListOperations(key string) []openapi.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.integrations[key]
	if !ok {
		return nil
	}
	return stored.Operations
}

// AllOperationPaths returns every (integration key, namespace path) pair
// across every registered integration.
func (r *Registry) AllOperationPaths() [][2]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out [][2]string
	for key, stored := range r.integrations {
		for _, path := range stored.OperationPaths() {
			out = append(out, [2]string{key, path})
		}
	}
	return out
}

// Sync re-fetches a URL-based integration's spec, preserving its
// credential link and status.
func (r *Registry) Sync(key string) error {
	r.mu.RLock()
	stored, ok := r.integrations[key]
	var specURL string
	if ok {
		specURL = stored.Integration.SpecURL
	}
	r.mu.RUnlock()

	if !ok {
		return walleterr.New(walleterr.KindIntegrationNotFound, fmt.Sprintf("no integration %q", key))
	}
	if specURL == "" {
		return walleterr.New(walleterr.KindIntegrationNotFound, fmt.Sprintf("integration %q has no spec url", key))
	}

	spec, err := openapi.FetchAndParse(specURL)
	if err != nil {
		return walleterr.Wrap(walleterr.KindInvalidSpec, "fetch and parse spec", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.integrations[key]
	if !ok {
		return walleterr.New(walleterr.KindIntegrationNotFound, fmt.Sprintf("no integration %q", key))
	}

	newStored := newStoredFromSpec(key, spec, "")
	newStored.Integration.SpecURL = specURL
	newStored.Integration.CredentialID = existing.Integration.CredentialID
	newStored.Integration.Status = existing.Integration.Status
	newStored.Integration.ID = existing.Integration.ID
	newStored.Integration.CreatedAt = existing.Integration.CreatedAt

	r.integrations[key] = &newStored

	if err := r.save(&newStored); err != nil {
		return err
	}

	r.log.Info().Str("key", key).Str("spec_url", specURL).Msg("synced integration")
	return nil
}

func (r *Registry) save(stored *StoredIntegration) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return walleterr.Wrap(walleterr.KindSerializationError, "encode integration", err)
	}
	if err := r.storage.Store(storageKey(stored.Integration.Key), data); err != nil {
		return walleterr.Wrap(walleterr.KindStorageError, "persist integration", err)
	}
	return nil
}

func storageKey(key string) string {
	return storagePrefix + key
}
