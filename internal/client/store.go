package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned by SessionStore.Get when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Group is the group the session acts in.
type Group struct {
	ID      string `json:"groupId" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Role    string `json:"role" yaml:"role"`
	IsOwner bool   `json:"isOwner" yaml:"is_owner"`
}

// Session is everything a client keeps between calls. RefreshCookie is the
// encoded cookie value exactly as the server set it.
type Session struct {
	AccessToken     string    `json:"accessToken" yaml:"access_token"`
	AccessExpiresAt time.Time `json:"accessExpiresAt" yaml:"access_expires_at"`
	RefreshCookie   string    `json:"refreshCookie" yaml:"refresh_cookie"`
	UserID          string    `json:"userId" yaml:"user_id"`
	Group           *Group    `json:"group,omitempty" yaml:"group,omitempty"`
}

// SessionStore persists the client's Session. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	Get() (Session, error)
	Set(Session) error
	Clear() error
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu  sync.RWMutex
	s   Session
	set bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return Session{}, ErrNoSession
	}
	return m.s, nil
}

func (m *MemoryStore) Set(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.set = s, true
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.set = Session{}, false
	return nil
}

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session file: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parse session file: %w", err)
	}
	return s, nil
}

// Set writes to a temporary file and renames it over the old one, so a
// crash never leaves a half-written session behind.
func (f *FileStore) Set(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// KeyringService is the OS keychain service name used by KeyringStore.
const KeyringService = "groupshare"

// KeyringStore keeps the session in the OS keychain under one account.
type KeyringStore struct {
	mu      sync.Mutex
	account string
}

func NewKeyringStore(account string) *KeyringStore {
	return &KeyringStore{account: account}
}

func (k *KeyringStore) Get() (Session, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	raw, err := keyring.Get(KeyringService, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read keychain: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, fmt.Errorf("parse keychain session: %w", err)
	}
	return s, nil
}

func (k *KeyringStore) Set(s Session) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := keyring.Set(KeyringService, k.account, string(raw)); err != nil {
		return fmt.Errorf("write keychain: %w", err)
	}
	return nil
}

func (k *KeyringStore) Clear() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := keyring.Delete(KeyringService, k.account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keychain: %w", err)
	}
	return nil
}
