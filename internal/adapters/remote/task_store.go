// Package remote implements the hosted document services the sync core
// consumes: the per-user task collection on Postgres and the community chat
// on Redis.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// taskChannel is the NOTIFY channel fired by the task_documents trigger with
// the owner id as payload.
const taskChannel = "task_changes"

// TaskStore is the remote task collection: one JSONB document per task,
// scoped by owner, with change notification through LISTEN/NOTIFY.
type TaskStore struct {
	db     *sqlx.DB
	dsn    string
	logger *logger.Logger
}

var _ ports.RemoteTaskStore = (*TaskStore)(nil)

// NewTaskStore creates the store. The DSN is used by each subscription to
// open its own dedicated listener connection.
func NewTaskStore(db *sqlx.DB, dsn string, log *logger.Logger) *TaskStore {
	return &TaskStore{
		db:     db,
		dsn:    dsn,
		logger: log.WithComponent("remote_tasks"),
	}
}

// Push upserts one record keyed by the task's own id. The JSONB concatenation
// merges fields: a partial document never clobbers fields it does not carry.
func (s *TaskStore) Push(ctx context.Context, task entities.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	query := `
		INSERT INTO task_documents (id, user_id, doc, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET doc = task_documents.doc || EXCLUDED.doc,
		    user_id = EXCLUDED.user_id`

	if _, err := s.db.ExecContext(ctx, query, task.ID, task.UserID, doc, task.CreatedAt); err != nil {
		return fmt.Errorf("push task %s: %w", task.ID, err)
	}
	return nil
}

// Remove deletes the record by id. Deleting an unknown id is not an error.
func (s *TaskStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove task %s: %w", id, err)
	}
	return nil
}

// BatchWrite upserts one chunk of records in a single transaction, the
// adapter's unit of remote batch-write.
func (s *TaskStore) BatchWrite(ctx context.Context, tasks []entities.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO task_documents (id, user_id, doc, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET doc = task_documents.doc || EXCLUDED.doc,
		    user_id = EXCLUDED.user_id`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, task := range tasks {
		doc, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("marshal task %s: %w", task.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, task.ID, task.UserID, doc, task.CreatedAt); err != nil {
			return fmt.Errorf("batch write task %s: %w", task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Subscribe opens a live query scoped to userID. The initial snapshot is
// delivered immediately; every matching NOTIFY triggers a re-query. A
// subscription error is logged and the stream stops delivering, leaving the
// consumer with its last known state.
func (s *TaskStore) Subscribe(ctx context.Context, userID string) (ports.TaskSubscription, error) {
	listener := pq.NewListener(s.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warnw("Listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(taskChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", taskChannel, err)
	}

	sub := &taskSubscription{
		snapshots: make(chan []entities.Task, 1),
		done:      make(chan struct{}),
	}

	go s.run(ctx, listener, userID, sub)

	return sub, nil
}

func (s *TaskStore) run(ctx context.Context, listener *pq.Listener, userID string, sub *taskSubscription) {
	defer listener.Close()
	defer close(sub.snapshots)

	deliver := func() bool {
		snapshot, err := s.queryScoped(ctx, userID)
		if err != nil {
			s.logger.Warnw("Subscription query failed, stream stops", "user_id", userID, "error", err)
			return false
		}
		select {
		case sub.snapshots <- snapshot:
		case <-sub.done:
			return false
		case <-ctx.Done():
			return false
		}
		return true
	}

	if !deliver() {
		return
	}

	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			// A nil notification signals a re-established connection; re-query
			// to catch anything missed while disconnected.
			if n != nil && n.Extra != "" && n.Extra != userID {
				continue
			}
			if !deliver() {
				return
			}
		case <-time.After(90 * time.Second):
			if err := listener.Ping(); err != nil {
				s.logger.Warnw("Listener ping failed, stream stops", "user_id", userID, "error", err)
				return
			}
		}
	}
}

// queryScoped loads the user's collection sorted newest first; the remote
// table itself guarantees no order.
func (s *TaskStore) queryScoped(ctx context.Context, userID string) ([]entities.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, doc FROM task_documents WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks for %s: %w", userID, err)
	}
	defer rows.Close()

	tasks := []entities.Task{}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}

		var task entities.Task
		if err := json.Unmarshal(doc, &task); err != nil {
			s.logger.Warnw("Skipping malformed remote document", "id", id, "error", err)
			continue
		}
		// The row key is authoritative over whatever the document carries.
		task.ID = id
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type taskSubscription struct {
	snapshots chan []entities.Task
	done      chan struct{}
	closeOnce sync.Once
}

func (s *taskSubscription) Snapshots() <-chan []entities.Task {
	return s.snapshots
}

// Close stops deliveries immediately and is safe to call repeatedly.
func (s *taskSubscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
