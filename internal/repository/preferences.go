package repository

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preferences are the selections a user made in earlier sessions.
type Preferences struct {
	Language string `yaml:"language,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// PreferencesStore reads and writes the preferences file.
type PreferencesStore struct {
	path string
}

// NewPreferencesStore creates a store backed by path.
func NewPreferencesStore(path string) *PreferencesStore {
	return &PreferencesStore{path: path}
}

// Path returns the preferences file location.
func (s *PreferencesStore) Path() string {
	return s.path
}

// Load returns the stored preferences. A missing file yields empty preferences.
func (s *PreferencesStore) Load() (*Preferences, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Preferences{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	var prefs Preferences
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	return &prefs, nil
}

// Save replaces the stored preferences.
func (s *PreferencesStore) Save(prefs *Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	return withLock(s.path, "preferences", func() error {
		return WriteFileAtomic(s.path, data, 0o644)
	})
}

// Update loads the preferences, applies fn, and saves the result under
// one lock.
func (s *PreferencesStore) Update(fn func(*Preferences)) error {
	return withLock(s.path, "preferences", func() error {
		prefs, err := s.Load()
		if err != nil {
			return err
		}
		fn(prefs)

		data, err := yaml.Marshal(prefs)
		if err != nil {
			return fmt.Errorf("marshal preferences: %w", err)
		}
		return WriteFileAtomic(s.path, data, 0o644)
	})
}
