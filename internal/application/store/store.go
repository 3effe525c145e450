// Package store holds the canonical in-memory task collection. All reads and
// writes in the application go through a single Store instance; the local
// persistence mirror is written synchronously on every mutation.
package store

import (
	"sync"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// Store is the owned, mutex-guarded task collection. Only the mutation
// service and the sync snapshot handler are permitted to write to it.
type Store struct {
	mu      sync.Mutex
	tasks   []entities.Task
	index   map[string]int
	local   ports.LocalStore
	logger  *logger.Logger
	nextID  int
	watches map[int]chan struct{}
}

// New creates an empty store backed by the given local mirror.
func New(local ports.LocalStore, log *logger.Logger) *Store {
	return &Store{
		index:   make(map[string]int),
		local:   local,
		logger:  log.WithComponent("store"),
		watches: make(map[int]chan struct{}),
	}
}

// HydrateFromLocal loads the last persisted collection. Called once at
// startup; a missing or corrupt payload yields an empty collection.
func (s *Store) HydrateFromLocal() {
	s.Hydrate(s.local.Load())
}

// Hydrate replaces the entire collection. Used at startup and whenever the
// remote subscription delivers a full snapshot.
func (s *Store) Hydrate(tasks []entities.Task) {
	s.mu.Lock()
	s.tasks = make([]entities.Task, len(tasks))
	copy(s.tasks, tasks)
	s.index = make(map[string]int, len(tasks))
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
}

// Upsert inserts the task if its id is absent, otherwise replaces the record
// with that id. Neither path is an error.
func (s *Store) Upsert(task entities.Task) {
	s.mu.Lock()
	if i, ok := s.index[task.ID]; ok {
		s.tasks[i] = task
	} else {
		s.index[task.ID] = len(s.tasks)
		s.tasks = append(s.tasks, task)
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
}

// Remove deletes the record with the given id. Removing an absent id is a
// no-op, not an error.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.tasks); j++ {
		s.index[s.tasks[j].ID] = j
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (entities.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return entities.Task{}, false
	}
	return s.tasks[i], true
}

// Snapshot returns a copy of the current collection in insertion order.
func (s *Store) Snapshot() []entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entities.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the current collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Watch registers a version-change observer. The channel coalesces bursts:
// a pending notification is dropped rather than queued. The returned cancel
// function is idempotent.
func (s *Store) Watch() (<-chan struct{}, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.watches[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watches, id)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// persistLocked writes the whole collection to the local mirror. A storage
// failure is logged and does not roll back the in-memory mutation.
func (s *Store) persistLocked() {
	if s.local == nil {
		return
	}
	snapshot := make([]entities.Task, len(s.tasks))
	copy(snapshot, s.tasks)
	if err := s.local.Save(snapshot); err != nil {
		s.logger.Warnw("Local persistence write failed", "error", err, "tasks", len(snapshot))
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watches {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
