package ports

import (
	"context"
	"io"
	"time"

	"github.com/liquidtasks/core/internal/domain/entities"
)

// LocalStore is the durable on-device mirror of the task collection plus the
// two auxiliary preference keys. Load fails open: a missing or corrupt payload
// yields an empty collection, never an error for the caller to handle.
type LocalStore interface {
	Save(tasks []entities.Task) error
	Load() []entities.Task
	Theme() entities.Theme
	SetTheme(theme entities.Theme) error
	GuestID() (string, error)
}

// RemoteTaskStore is the opaque multi-device document service for tasks:
// scoped real-time query with change notification, upsert-with-merge,
// delete, and bounded batch-write.
type RemoteTaskStore interface {
	// Subscribe opens a live query scoped to userID. The returned subscription
	// delivers the initial result immediately and a fresh snapshot on every
	// subsequent remote change, sorted descending by creation time.
	Subscribe(ctx context.Context, userID string) (TaskSubscription, error)
	// Push upserts one record keyed by the task's own id, merging fields so a
	// partial update does not clobber unrelated fields.
	Push(ctx context.Context, task entities.Task) error
	Remove(ctx context.Context, id string) error
	// BatchWrite uploads one chunk of records in a single remote write batch.
	BatchWrite(ctx context.Context, tasks []entities.Task) error
}

// TaskSubscription is a cancellable snapshot stream. Close is idempotent and
// stops all future deliveries immediately.
type TaskSubscription interface {
	Snapshots() <-chan []entities.Task
	Close()
}

// ChatStore is the append-only community chat collection, ordered ascending by
// creation time and bounded to the most recent entries per subscription.
type ChatStore interface {
	Append(ctx context.Context, msg entities.ChatMessage) error
	Recent(ctx context.Context, limit int) ([]entities.ChatMessage, error)
	Subscribe(ctx context.Context) (ChatSubscription, error)
}

// ChatSubscription delivers chat snapshots until closed. Close is idempotent.
type ChatSubscription interface {
	Snapshots() <-chan []entities.ChatMessage
	Close()
}

// UserRepository persists auth provider accounts.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateProfile(ctx context.Context, id, displayName, photoURL string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// AuthRepository persists refresh tokens.
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID string) error
}

// MediaUploader turns a binary file into a publicly reachable URL.
type MediaUploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        int        `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
