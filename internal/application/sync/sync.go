// Package sync bridges the in-memory task store to the remote multi-device
// document service. Local state is authoritative: remote writes are
// best-effort and remote snapshots are reconciled back by full replacement.
package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/liquidtasks/core/internal/application/store"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/infrastructure/metrics"
	"github.com/liquidtasks/core/internal/ports"
)

// MigrationChunkSize is the remote write-batch limit honored by BatchMigrate.
const MigrationChunkSize = 500

// Service is the remote sync adapter for one task store.
type Service struct {
	baseCtx context.Context
	remote  ports.RemoteTaskStore
	store   *store.Store
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	sub    ports.TaskSubscription
	cancel context.CancelFunc
	userID string
}

// New creates a sync service over the given remote store. Subscriptions
// derive from baseCtx, so they live until Stop or until baseCtx is
// cancelled, never shorter.
func New(baseCtx context.Context, remote ports.RemoteTaskStore, st *store.Store, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		baseCtx: baseCtx,
		remote:  remote,
		store:   st,
		logger:  log.WithComponent("sync"),
		metrics: m,
	}
}

// Start opens the live subscription for userID and begins reconciling remote
// snapshots into the store. The subscription is bound to the service's base
// context, not to the caller's: it must outlive the request that triggered
// the sign-in. Starting while already subscribed first stops the previous
// subscription.
func (s *Service) Start(userID string) error {
	s.Stop()

	subCtx, cancel := context.WithCancel(s.baseCtx)
	sub, err := s.remote.Subscribe(subCtx, userID)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe for user %s: %w", userID, err)
	}

	s.mu.Lock()
	s.sub = sub
	s.cancel = cancel
	s.userID = userID
	s.mu.Unlock()

	go s.consume(sub, userID)

	s.logger.LogSyncEvent("subscribed", userID, nil)
	return nil
}

// Stop tears down the active subscription. Idempotent: safe to call when
// already stopped or never started.
func (s *Service) Stop() {
	s.mu.Lock()
	sub, cancel := s.sub, s.cancel
	userID := s.userID
	s.sub, s.cancel, s.userID = nil, nil, ""
	s.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	cancel()
	s.logger.LogSyncEvent("unsubscribed", userID, nil)
}

// Active reports whether a subscription is currently running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// UserID returns the owner of the active subscription, or "".
func (s *Service) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// consume replaces the store contents with every delivered snapshot until the
// subscription channel closes. A snapshot arriving between a local mutation
// and its remote round-trip may transiently win; last write wins.
func (s *Service) consume(sub ports.TaskSubscription, userID string) {
	for snapshot := range sub.Snapshots() {
		s.store.Hydrate(snapshot)
		s.metrics.SnapshotsDelivered.Inc()
		s.logger.Debugw("Snapshot reconciled", "user_id", userID, "tasks", len(snapshot))
	}

	// Channel closed. If Stop already cleared the state (or a newer Start
	// replaced it) there is nothing left to do; otherwise the stream died on
	// its own and the service must stop reporting an active subscription.
	// The store keeps serving the last known state either way.
	s.mu.Lock()
	if s.sub != sub {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.sub, s.cancel, s.userID = nil, nil, ""
	s.mu.Unlock()

	cancel()
	s.logger.LogSyncEvent("stream_closed", userID, nil)
}

// Push mirrors one local upsert to the remote store. Tasks without an owner
// are never pushed. Failures are logged; the local mutation stands.
func (s *Service) Push(ctx context.Context, task entities.Task) {
	if !s.Active() || task.IsLocal() {
		return
	}
	if err := s.remote.Push(ctx, task); err != nil {
		s.metrics.RemotePushesTotal.WithLabelValues("push", "error").Inc()
		s.logger.LogSyncFailure("push", task.UserID, err)
		return
	}
	s.metrics.RemotePushesTotal.WithLabelValues("push", "ok").Inc()
}

// Remove mirrors one local delete to the remote store, best-effort.
func (s *Service) Remove(ctx context.Context, id string) {
	if !s.Active() {
		return
	}
	if err := s.remote.Remove(ctx, id); err != nil {
		s.metrics.RemotePushesTotal.WithLabelValues("remove", "error").Inc()
		s.logger.LogSyncFailure("remove", s.UserID(), err)
		return
	}
	s.metrics.RemotePushesTotal.WithLabelValues("remove", "ok").Inc()
}

// BatchMigrate uploads locally created tasks into the remote store in chunks
// of MigrationChunkSize, stamping each record with userID. Used exactly once,
// when a guest authenticates. A failed chunk is logged and does not abort the
// remaining chunks; there is no partial-success report.
func (s *Service) BatchMigrate(ctx context.Context, userID string, tasks []entities.Task) {
	if userID == "" || len(tasks) == 0 {
		return
	}

	for start := 0; start < len(tasks); start += MigrationChunkSize {
		end := start + MigrationChunkSize
		if end > len(tasks) {
			end = len(tasks)
		}

		chunk := make([]entities.Task, 0, end-start)
		for _, t := range tasks[start:end] {
			chunk = append(chunk, t.WithOwner(userID))
		}

		if err := s.remote.BatchWrite(ctx, chunk); err != nil {
			s.metrics.MigrationChunksTotal.WithLabelValues("error").Inc()
			s.logger.LogSyncFailure("batch_migrate", userID, err)
			continue
		}
		s.metrics.MigrationChunksTotal.WithLabelValues("ok").Inc()
	}

	s.logger.LogSyncEvent("batch_migrated", userID, map[string]interface{}{
		"tasks": len(tasks),
	})
}
