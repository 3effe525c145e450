package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmptyTitle      = errors.New("task title cannot be empty")
	ErrEmptyMessage    = errors.New("message text cannot be empty")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotSubscribed   = errors.New("no active subscription")
)

// Enums and types
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryUrgent   Category = "Urgent"
	CategoryShopping Category = "Shopping"
	CategoryHealth   Category = "Health"
)

// CategoryAll is the filter wildcard, never stored on a task.
const CategoryAll = "All"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task represents a single task record. Tasks are value objects: every update
// replaces the whole record, fields are never mutated through a shared pointer.
type Task struct {
	ID          string   `json:"id" db:"id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description,omitempty" db:"description"`
	Category    Category `json:"category" db:"category"`
	Priority    Priority `json:"priority" db:"priority"`
	Completed   bool     `json:"completed" db:"completed"`
	DueDate     string   `json:"dueDate,omitempty" db:"due_date"`
	CreatedAt   int64    `json:"createdAt" db:"created_at"`
	UserID      string   `json:"userId,omitempty" db:"user_id"`
}

// NewTask builds a task with a fresh id and creation timestamp.
// Returns ErrEmptyTitle when the trimmed title is empty.
func NewTask(title, description string, category Category, priority Priority, dueDate string) (Task, error) {
	if strings.TrimSpace(title) == "" {
		return Task{}, ErrEmptyTitle
	}
	if !category.IsValid() {
		return Task{}, ErrInvalidCategory
	}
	if !priority.IsValid() {
		return Task{}, ErrInvalidPriority
	}

	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Completed:   false,
		DueDate:     dueDate,
		CreatedAt:   time.Now().UnixMilli(),
	}, nil
}

// IsLocal reports whether the task belongs to a guest session and therefore
// must never be pushed to the remote store.
func (t Task) IsLocal() bool {
	return t.UserID == ""
}

// WithCompleted returns a copy with the completed flag set.
func (t Task) WithCompleted(completed bool) Task {
	t.Completed = completed
	return t
}

// WithOwner returns a copy stamped with the given owner id.
func (t Task) WithOwner(userID string) Task {
	t.UserID = userID
	return t
}

// TaskPatch holds the partial fields of a task update. Nil means unchanged.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
}

// Apply merges the patch onto a task and returns the updated copy.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	return t
}

// ChatMessage represents one entry of the append-only community chat.
type ChatMessage struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	SenderPhoto string `json:"senderPhoto,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// NewChatMessage trims the text and stamps sender identity and creation time.
// Returns ErrEmptyMessage when the trimmed text is empty.
func NewChatMessage(text string, sender Identity) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	name := sender.DisplayName
	if name == "" {
		name = "Anonymous"
	}

	return ChatMessage{
		ID:          uuid.NewString(),
		Text:        text,
		SenderID:    sender.ID,
		SenderName:  name,
		SenderPhoto: sender.PhotoURL,
		CreatedAt:   time.Now().UnixMilli(),
	}, nil
}

// Identity is the opaque user identity supplied by the auth provider.
// Guests carry a locally generated id and Guest=true.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Guest       bool   `json:"guest"`
}

// Stats are the aggregate counters derived from a task snapshot.
type Stats struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Pending      int `json:"pending"`
	HighPriority int `json:"highPriority"`
}

// Theme is the persisted light/dark preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Utility methods
func (c Category) IsValid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryUrgent, CategoryShopping, CategoryHealth:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func (th Theme) IsValid() bool {
	return th == ThemeDark || th == ThemeLight
}
