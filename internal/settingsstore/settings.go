// Package settingsstore persists the single flat settings document this
// module reads/writes on every provider and preference change. Grounded on
// original_source/commands/settings.rs for the operation set (including the
// "cannot delete local-default" guard) and on the teacher's
// internal/config/settings.go for the on-disk JSON document and
// os.MkdirAll/os.ReadFile/os.WriteFile idiom, simplified from that file's
// layered user/project/local merge (not needed for a single document) down
// to one file under the user's config directory guarded by a mutex.
package settingsstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nullpointer-labs/chatcore/internal/model"
)

// ErrCannotDeleteLocalDefault guards the distinguished local-default
// provider from deletion.
var ErrCannotDeleteLocalDefault = errors.New("settingsstore: cannot delete the local-default provider")

// ErrProviderNotFound is returned by operations addressing an unknown
// provider id.
var ErrProviderNotFound = errors.New("settingsstore: provider not found")

// Settings is the single on-disk document.
type Settings struct {
	ServerURL        string                 `json:"server_url,omitempty"`
	DefaultModel     string                 `json:"default_model,omitempty"`
	DefaultParams    *model.ChatOptions     `json:"default_params,omitempty"`
	Theme            string                 `json:"theme,omitempty"`
	Providers        []model.ProviderConfig `json:"providers"`
	ActiveProviderID string                 `json:"active_provider_id,omitempty"`
	AppMode          string                 `json:"app_mode"`
	SetupCompleted   bool                   `json:"setup_completed"`
}

// Store reads and writes one Settings document under baseDir/settings.json.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore constructs a Store rooted at baseDir, creating the directory if
// necessary.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("settingsstore: create config dir: %w", err)
	}
	return &Store{path: filepath.Join(baseDir, "settings.json")}, nil
}

// Get loads the current settings document, synthesizing a local-default
// provider if none is present.
func (s *Store) Get() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Set overwrites the stored settings wholesale.
func (s *Store) Set(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureLocalDefault(&settings)
	return s.save(settings)
}

// AddProvider appends a new provider, replacing any existing provider with
// the same id.
func (s *Store) AddProvider(provider model.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.load()
	if err != nil {
		return err
	}
	settings.Providers = upsertProvider(settings.Providers, provider)
	return s.save(settings)
}

// UpdateProvider replaces the provider matching provider.ID.
func (s *Store) UpdateProvider(provider model.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for i, existing := range settings.Providers {
		if existing.ID == provider.ID {
			settings.Providers[i] = provider
			found = true
			break
		}
	}
	if !found {
		return ErrProviderNotFound
	}
	return s.save(settings)
}

// DeleteProvider removes the provider with the given id. Deleting
// local-default is rejected.
func (s *Store) DeleteProvider(id string) error {
	if id == model.LocalDefaultProviderID {
		return ErrCannotDeleteLocalDefault
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.load()
	if err != nil {
		return err
	}
	kept := settings.Providers[:0]
	for _, provider := range settings.Providers {
		if provider.ID != id {
			kept = append(kept, provider)
		}
	}
	settings.Providers = kept
	if settings.ActiveProviderID == id {
		settings.ActiveProviderID = model.LocalDefaultProviderID
	}
	return s.save(settings)
}

// SetActiveProvider marks a provider active by id.
func (s *Store) SetActiveProvider(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.load()
	if err != nil {
		return err
	}
	if providerByID(settings.Providers, id) == nil {
		return ErrProviderNotFound
	}
	settings.ActiveProviderID = id
	return s.save(settings)
}

// ListProviders returns every configured provider.
func (s *Store) ListProviders() ([]model.ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.load()
	if err != nil {
		return nil, err
	}
	return settings.Providers, nil
}

// GetActiveProvider returns the currently active provider, defaulting to
// local-default if none is explicitly set.
func (s *Store) GetActiveProvider() (model.ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.load()
	if err != nil {
		return model.ProviderConfig{}, err
	}
	id := settings.ActiveProviderID
	if id == "" {
		id = model.LocalDefaultProviderID
	}
	if provider := providerByID(settings.Providers, id); provider != nil {
		return *provider, nil
	}
	return model.LocalDefault(), nil
}

func (s *Store) load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			settings := Settings{AppMode: "local"}
			ensureLocalDefault(&settings)
			return settings, nil
		}
		return Settings{}, fmt.Errorf("settingsstore: read settings file: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("settingsstore: parse settings file: %w", err)
	}
	ensureLocalDefault(&settings)
	return settings, nil
}

func (s *Store) save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settingsstore: marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settingsstore: write settings file: %w", err)
	}
	return nil
}

func ensureLocalDefault(settings *Settings) {
	if settings.AppMode == "" {
		settings.AppMode = "local"
	}
	if providerByID(settings.Providers, model.LocalDefaultProviderID) == nil {
		settings.Providers = append(settings.Providers, model.LocalDefault())
	}
}

func upsertProvider(providers []model.ProviderConfig, provider model.ProviderConfig) []model.ProviderConfig {
	for i, existing := range providers {
		if existing.ID == provider.ID {
			providers[i] = provider
			return providers
		}
	}
	return append(providers, provider)
}

func providerByID(providers []model.ProviderConfig, id string) *model.ProviderConfig {
	for i := range providers {
		if providers[i].ID == id {
			return &providers[i]
		}
	}
	return nil
}
