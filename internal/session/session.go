// Package session keeps the source and target account credentials between commands.
//
// A [Store] holds one [Entry] per [Slot]. File-backed stores persist to a TOML
// file readable only by the owner; memory stores are used by the HTTP API and tests.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
)

// Slot names one side of a transfer.
type Slot string

const (
	Source Slot = "source"
	Target Slot = "target"
)

// Slots lists every slot in display order.
func Slots() []Slot { return []Slot{Source, Target} }

// ParseSlot validates s as a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case Source, Target:
		return Slot(s), nil
	}
	return "", fmt.Errorf("%w: account must be %q or %q, got %q", shared.ErrInvalidArgument, Source, Target, s)
}

// Entry is a signed-in account.
type Entry struct {
	User       models.UserProfile `toml:"user"`
	Credential models.Credential  `toml:"credential"`
	UpdatedAt  time.Time          `toml:"updated_at"`
}

// Refresher trades a refresh token for a new credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.Credential, error)
}

// Store is a two-slot credential store, safe for concurrent use.
type Store struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
}

type sessionFile struct {
	Accounts map[string]Entry `toml:"accounts"`
}

// NewMemoryStore returns a store that is never written to disk.
func NewMemoryStore() *Store {
	return &Store{entries: map[string]Entry{}}
}

// Open loads the session file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: map[string]Entry{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f sessionFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("%w: session file %s: %v", shared.ErrInvalidConfig, path, err)
	}
	for k, e := range f.Accounts {
		if _, err := ParseSlot(k); err == nil {
			s.entries[k] = e
		}
	}
	return s, nil
}

// Path is the backing file, empty for memory stores.
func (s *Store) Path() string { return s.path }

// Get returns the entry for slot, or [shared.ErrNotAuthenticated].
func (s *Store) Get(slot Slot) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[string(slot)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: no %s account, run `sptx auth login --account %s`", shared.ErrNotAuthenticated, slot, slot)
	}
	return e, nil
}

// Set stores e under slot and persists the store.
func (s *Store) Set(slot Slot, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[string(slot)] = e
	return s.save()
}

// Clear removes the given slots, or every slot when none are given.
func (s *Store) Clear(slots ...Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(slots) == 0 {
		slots = Slots()
	}
	for _, slot := range slots {
		delete(s.entries, string(slot))
	}
	return s.save()
}

// All returns a copy of every stored entry.
func (s *Store) All() map[Slot]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make(map[Slot]Entry, len(s.entries))
	for k, e := range s.entries {
		all[Slot(k)] = e
	}
	return all
}

// Token returns a usable access token for slot.
//
// An expired credential is refreshed through r and saved.
// Without a refresh token it fails with [shared.ErrTokenExpired].
func (s *Store) Token(ctx context.Context, slot Slot, r Refresher) (string, error) {
	e, err := s.Get(slot)
	if err != nil {
		return "", err
	}
	if !e.Credential.Expired() {
		return e.Credential.AccessToken, nil
	}
	if e.Credential.RefreshToken == "" || r == nil {
		return "", fmt.Errorf("%w: %s account, sign in again", shared.ErrTokenExpired, slot)
	}

	cred, err := r.Refresh(ctx, e.Credential.RefreshToken)
	if err != nil {
		return "", err
	}

	e.Credential = *cred
	e.UpdatedAt = time.Time{}
	if err := s.Set(slot, e); err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// save writes the store to disk. Callers hold mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	if len(s.entries) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(sessionFile{Accounts: s.entries}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set session file permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save session file: %w", err)
	}
	return nil
}
