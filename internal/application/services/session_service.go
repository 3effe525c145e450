package services

import (
	"context"
	"sync"

	"github.com/liquidtasks/core/internal/application/store"
	syncsvc "github.com/liquidtasks/core/internal/application/sync"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// SessionService tracks the acting identity and drives the guest-to-account
// transition: when a guest signs in, every locally created task is migrated
// into the remote store exactly once, then the live subscription starts.
type SessionService struct {
	store  *store.Store
	sync   *syncsvc.Service
	local  ports.LocalStore
	logger *logger.Logger

	mu       sync.Mutex
	identity entities.Identity
}

// NewSessionService creates the session tracker. The initial identity is a
// guest backed by the locally persisted guest id.
func NewSessionService(st *store.Store, sy *syncsvc.Service, local ports.LocalStore, log *logger.Logger) (*SessionService, error) {
	guestID, err := local.GuestID()
	if err != nil {
		return nil, err
	}

	return &SessionService{
		store:  st,
		sync:   sy,
		local:  local,
		logger: log.WithComponent("session"),
		identity: entities.Identity{
			ID:    guestID,
			Guest: true,
		},
	}, nil
}

// Identity returns the acting identity.
func (s *SessionService) Identity() entities.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SignIn switches the session to an authenticated identity. Tasks created
// while the session was a guest are batch-migrated before the subscription
// opens, so the first delivered snapshot already contains them. The caller's
// context bounds only the synchronous migration; the subscription itself is
// bound to the sync service's lifetime and survives the request returning.
func (s *SessionService) SignIn(ctx context.Context, identity entities.Identity) error {
	s.mu.Lock()
	wasGuest := s.identity.Guest
	s.identity = identity
	s.mu.Unlock()

	if wasGuest {
		if local := s.store.Snapshot(); len(local) > 0 {
			s.sync.BatchMigrate(ctx, identity.ID, local)
		}
	}

	if err := s.sync.Start(identity.ID); err != nil {
		return err
	}

	s.logger.Infow("Session started", "user_id", identity.ID, "migrated_from_guest", wasGuest)
	return nil
}

// SignOut stops the subscription and reverts the session to the persisted
// guest identity. The store keeps the last known tasks (stale-but-available).
func (s *SessionService) SignOut() {
	s.sync.Stop()

	guestID, err := s.local.GuestID()
	if err != nil {
		s.logger.Warnw("Failed to load guest id on sign-out", "error", err)
	}

	s.mu.Lock()
	s.identity = entities.Identity{ID: guestID, Guest: true}
	s.mu.Unlock()

	s.logger.Infow("Session ended")
}

// Theme returns the persisted theme preference, defaulting to dark.
func (s *SessionService) Theme() entities.Theme {
	return s.local.Theme()
}

// SetTheme persists the theme preference.
func (s *SessionService) SetTheme(theme entities.Theme) error {
	if !theme.IsValid() {
		theme = entities.ThemeDark
	}
	return s.local.SetTheme(theme)
}
