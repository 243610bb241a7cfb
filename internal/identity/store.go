package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyBound means the Minecraft name is held by another account.
	ErrAlreadyBound = errors.New("identity: minecraft name already bound")
	// ErrNotBound means the account has no Minecraft binding to remove.
	ErrNotBound = errors.New("identity: account not bound")
)

const (
	accountsFile = "id.json"
	handlesFile  = "username_id.json"
)

// Store keeps the bidirectional account binding state: Telegram account id
// to Minecraft player name (unique values) and Telegram account id to the
// last observed Telegram handle. Both maps are persisted as flat JSON
// objects under the data directory and rewritten in full on mutation.
//
// Bind and unbind are infrequent, so a single mutex around all state is
// enough; readers never see a partially applied mutation.
type Store struct {
	mu       sync.Mutex
	dir      string
	accounts map[string]string
	handles  map[string]string
	logger   *zap.Logger
}

// Open loads the store from dir, creating the directory and empty state
// files on first run.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		dir:      dir,
		accounts: make(map[string]string),
		handles:  make(map[string]string),
		logger:   logger,
	}
	if err := loadMap(filepath.Join(dir, accountsFile), s.accounts); err != nil {
		return nil, err
	}
	if err := loadMap(filepath.Join(dir, handlesFile), s.handles); err != nil {
		return nil, err
	}
	return s, nil
}

func loadMap(path string, into map[string]string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := os.WriteFile(path, []byte("{}"), 0o644); werr != nil {
			return fmt.Errorf("init %s: %w", filepath.Base(path), werr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, &into); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) persist(name string, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Bind associates accountID with playerName. It fails with ErrAlreadyBound,
// without mutating state, when the name is held by a different account.
func (s *Store) Bind(accountID, playerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, name := range s.accounts {
		if name == playerName && id != accountID {
			return ErrAlreadyBound
		}
	}
	prev, had := s.accounts[accountID]
	s.accounts[accountID] = playerName
	if err := s.persist(accountsFile, s.accounts); err != nil {
		if had {
			s.accounts[accountID] = prev
		} else {
			delete(s.accounts, accountID)
		}
		return err
	}
	return nil
}

// Unbind removes the account's Minecraft binding.
func (s *Store) Unbind(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.accounts[accountID]
	if !ok {
		return ErrNotBound
	}
	delete(s.accounts, accountID)
	if err := s.persist(accountsFile, s.accounts); err != nil {
		s.accounts[accountID] = prev
		return err
	}
	return nil
}

// PlayerByAccount returns the Minecraft name bound to accountID.
func (s *Store) PlayerByAccount(accountID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.accounts[accountID]
	return name, ok
}

// AccountByPlayer returns the account holding playerName. A linear scan is
// fine here: the maps stay small and Bind keeps values unique.
func (s *Store) AccountByPlayer(playerName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, name := range s.accounts {
		if name == playerName {
			return id, true
		}
	}
	return "", false
}

// AccountByHandle returns the account last seen using the Telegram handle.
func (s *Store) AccountByHandle(handle string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.handles {
		if h == handle {
			return id, true
		}
	}
	return "", false
}

// RecordHandle upserts the account's Telegram handle. Handles change, so
// every sighting overwrites the previous value. Persistence failures are
// logged and swallowed: handle bookkeeping must never abort the message
// that triggered it.
func (s *Store) RecordHandle(accountID, handle string) {
	if handle == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[accountID] = handle
	if err := s.persist(handlesFile, s.handles); err != nil {
		s.logger.Error("persist handle map", zap.Error(err))
	}
}
