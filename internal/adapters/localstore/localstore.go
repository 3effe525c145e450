// Package localstore is the durable on-device mirror of the task collection.
// It survives process restarts with no network or account, which is what
// keeps the application usable fully offline.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// Fixed storage keys, one file per key.
const (
	tasksKey   = "liquid_tasks.json"
	themeKey   = "theme"
	guestIDKey = "liquid_guest_id"
)

// FileStore persists under a single directory on an afero filesystem.
// Production uses the OS filesystem; tests use an in-memory one.
type FileStore struct {
	fs     afero.Fs
	dir    string
	logger *logger.Logger
}

var _ ports.LocalStore = (*FileStore)(nil)

// New creates a store rooted at dir on the OS filesystem.
func New(dir string, log *logger.Logger) (*FileStore, error) {
	return NewWithFs(afero.NewOsFs(), dir, log)
}

// NewWithFs creates a store on an arbitrary filesystem.
func NewWithFs(fs afero.Fs, dir string, log *logger.Logger) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{
		fs:     fs,
		dir:    dir,
		logger: log.WithComponent("localstore"),
	}, nil
}

// Save serializes the whole collection and overwrites the tasks key. There is
// no debouncing and no partial write; the caller sees the write complete.
func (s *FileStore) Save(tasks []entities.Task) error {
	if tasks == nil {
		tasks = []entities.Task{}
	}
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path(tasksKey), payload, 0o644); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

// Load returns the last-saved collection. Missing file or corrupt payload
// fails open to an empty collection; the caller never sees an error.
func (s *FileStore) Load() []entities.Task {
	payload, err := afero.ReadFile(s.fs, s.path(tasksKey))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnw("Failed to read persisted tasks", "error", err)
		}
		return []entities.Task{}
	}

	var tasks []entities.Task
	if err := json.Unmarshal(payload, &tasks); err != nil {
		s.logger.Warnw("Persisted tasks are corrupt, starting empty", "error", err)
		return []entities.Task{}
	}
	if tasks == nil {
		tasks = []entities.Task{}
	}
	return tasks
}

// Theme returns the persisted theme preference, defaulting to dark.
func (s *FileStore) Theme() entities.Theme {
	payload, err := afero.ReadFile(s.fs, s.path(themeKey))
	if err != nil {
		return entities.ThemeDark
	}
	theme := entities.Theme(payload)
	if !theme.IsValid() {
		return entities.ThemeDark
	}
	return theme
}

// SetTheme overwrites the theme preference key.
func (s *FileStore) SetTheme(theme entities.Theme) error {
	if err := afero.WriteFile(s.fs, s.path(themeKey), []byte(theme), 0o644); err != nil {
		return fmt.Errorf("write theme: %w", err)
	}
	return nil
}

// GuestID returns the locally generated guest identity, creating and
// persisting it on first use so it is reused across restarts.
func (s *FileStore) GuestID() (string, error) {
	payload, err := afero.ReadFile(s.fs, s.path(guestIDKey))
	if err == nil && len(payload) > 0 {
		return string(payload), nil
	}

	id := uuid.NewString()
	if err := afero.WriteFile(s.fs, s.path(guestIDKey), []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("write guest id: %w", err)
	}
	return id, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}
