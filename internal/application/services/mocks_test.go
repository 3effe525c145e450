package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/ports"
)

// fakeLocalStore is an in-memory ports.LocalStore with a stable guest id.
type fakeLocalStore struct {
	tasks   []entities.Task
	theme   entities.Theme
	guestID string
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{guestID: "guest-123"}
}

func (f *fakeLocalStore) Save(tasks []entities.Task) error {
	f.tasks = tasks
	return nil
}

func (f *fakeLocalStore) Load() []entities.Task { return f.tasks }

func (f *fakeLocalStore) Theme() entities.Theme {
	if f.theme == "" {
		return entities.ThemeDark
	}
	return f.theme
}

func (f *fakeLocalStore) SetTheme(theme entities.Theme) error {
	f.theme = theme
	return nil
}

func (f *fakeLocalStore) GuestID() (string, error) { return f.guestID, nil }

// fakeRemoteStore records remote traffic so tests can assert what crossed the
// wire. Snapshots fed into snapshots flow to the active subscription until
// its context ends or it is closed, matching the production adapter.
type fakeRemoteStore struct {
	mu        sync.Mutex
	pushed    []entities.Task
	removed   []string
	batches   [][]entities.Task
	snapshots chan []entities.Task
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{snapshots: make(chan []entities.Task, 8)}
}

func (f *fakeRemoteStore) Subscribe(ctx context.Context, userID string) (ports.TaskSubscription, error) {
	sub := &fakeTaskSubscription{
		snapshots: make(chan []entities.Task, 8),
		done:      make(chan struct{}),
	}
	go func() {
		defer close(sub.snapshots)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case snap := <-f.snapshots:
				select {
				case sub.snapshots <- snap:
				case <-ctx.Done():
					return
				case <-sub.done:
					return
				}
			}
		}
	}()
	return sub, nil
}

func (f *fakeRemoteStore) Push(ctx context.Context, task entities.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, task)
	return nil
}

func (f *fakeRemoteStore) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeRemoteStore) BatchWrite(ctx context.Context, tasks []entities.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, tasks)
	return nil
}

type fakeTaskSubscription struct {
	snapshots chan []entities.Task
	done      chan struct{}
	once      sync.Once
}

func (s *fakeTaskSubscription) Snapshots() <-chan []entities.Task { return s.snapshots }
func (s *fakeTaskSubscription) Close() {
	s.once.Do(func() { close(s.done) })
}

// fakeChatStore is an in-memory append-only chat log.
type fakeChatStore struct {
	messages []entities.ChatMessage
}

func (f *fakeChatStore) Append(ctx context.Context, msg entities.ChatMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatStore) Recent(ctx context.Context, limit int) ([]entities.ChatMessage, error) {
	if len(f.messages) <= limit {
		return f.messages, nil
	}
	return f.messages[len(f.messages)-limit:], nil
}

func (f *fakeChatStore) Subscribe(ctx context.Context) (ports.ChatSubscription, error) {
	return &fakeChatSubscription{snapshots: make(chan []entities.ChatMessage)}, nil
}

type fakeChatSubscription struct {
	snapshots chan []entities.ChatMessage
	once      sync.Once
}

func (s *fakeChatSubscription) Snapshots() <-chan []entities.ChatMessage { return s.snapshots }
func (s *fakeChatSubscription) Close() {
	s.once.Do(func() { close(s.snapshots) })
}

// memUserRepo is an in-memory ports.UserRepository keyed by id and email.
type memUserRepo struct {
	byID    map[string]*entities.User
	byEmail map[string]*entities.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:    map[string]*entities.User{},
		byEmail: map[string]*entities.User{},
	}
}

func (r *memUserRepo) Create(ctx context.Context, user *entities.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return errors.New("duplicate email")
	}
	u := *user
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = &u
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) UpdateProfile(ctx context.Context, id, displayName, photoURL string) error {
	u, ok := r.byID[id]
	if !ok {
		return entities.ErrUserNotFound
	}
	u.DisplayName = displayName
	u.PhotoURL = photoURL
	return nil
}

func (r *memUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	u, ok := r.byID[id]
	if !ok {
		return entities.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// memAuthRepo is an in-memory ports.AuthRepository keyed by token hash.
type memAuthRepo struct {
	tokens map[string]*ports.RefreshToken
	nextID int
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{tokens: map[string]*ports.RefreshToken{}}
}

func (r *memAuthRepo) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	r.nextID++
	r.tokens[tokenHash] = &ports.RefreshToken{
		ID:        r.nextID,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *memAuthRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*ports.RefreshToken, error) {
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, errors.New("token not found")
	}
	return t, nil
}

func (r *memAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	t, ok := r.tokens[tokenHash]
	if !ok {
		return errors.New("token not found")
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (r *memAuthRepo) RevokeAllUserTokens(ctx context.Context, userID string) error {
	now := time.Now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

// fakeUploader returns a deterministic URL for any upload.
type fakeUploader struct {
	uploads []string
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	f.uploads = append(f.uploads, filename)
	return "https://media.example/" + filename, nil
}
