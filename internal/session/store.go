package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"gopkg.in/yaml.v3"
)

// Ключи долговременного хранилища.
const (
	KeyToken = "token"
	KeyRole  = "userRole"
)

// Store: граница между сессией в памяти и долговременным хранилищем.
type Store interface {
	Load() (Session, error)
	Save(s Session) error
	Clear() error
}

// Restore читает сессию при старте. Токен не перепроверяется на сервере.
func Restore(store Store) (Session, error) {
	if store == nil {
		return Session{}, errors.New("session store is nil")
	}
	s, err := store.Load()
	if err != nil {
		return Session{}, err
	}
	if !s.Authenticated() {
		return Session{}, nil
	}
	return s, nil
}

// PreferencesStore хранит сессию в настройках Fyne-приложения.
type PreferencesStore struct {
	prefs fyne.Preferences
}

// NewPreferencesStore создаёт адаптер поверх fyne.Preferences.
func NewPreferencesStore(prefs fyne.Preferences) *PreferencesStore {
	return &PreferencesStore{prefs: prefs}
}

func (p *PreferencesStore) Load() (Session, error) {
	if p == nil || p.prefs == nil {
		return Session{}, errors.New("preferences are not available")
	}
	return Session{
		Token: p.prefs.String(KeyToken),
		Role:  ParseRole(p.prefs.String(KeyRole)),
	}, nil
}

// Save записывает токен и роль; отсутствующая роль удаляет ключ.
func (p *PreferencesStore) Save(s Session) error {
	if p == nil || p.prefs == nil {
		return errors.New("preferences are not available")
	}
	p.prefs.SetString(KeyToken, s.Token)
	if s.Role == RoleNone {
		p.prefs.RemoveValue(KeyRole)
	} else {
		p.prefs.SetString(KeyRole, string(s.Role))
	}
	return nil
}

func (p *PreferencesStore) Clear() error {
	if p == nil || p.prefs == nil {
		return errors.New("preferences are not available")
	}
	p.prefs.RemoveValue(KeyToken)
	p.prefs.RemoveValue(KeyRole)
	return nil
}

// FileStore хранит сессию в YAML-файле. Используется вне Fyne и в headless-режиме.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore создаёт хранилище по указанному пути.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path возвращает путь к файлу сессии.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return Session{}, err
	}
	return Session{Token: values[KeyToken], Role: ParseRole(values[KeyRole])}, nil
}

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	values[KeyToken] = s.Token
	if s.Role == RoleNone {
		delete(values, KeyRole)
	} else {
		values[KeyRole] = string(s.Role)
	}
	return f.write(values)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.read()
	if err != nil {
		return err
	}
	delete(values, KeyToken)
	delete(values, KeyRole)
	return f.write(values)
}

func (f *FileStore) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode session file %s: %w", f.path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (f *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file %s: %w", f.path, err)
	}
	return nil
}
