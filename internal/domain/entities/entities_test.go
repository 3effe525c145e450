package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task, err := NewTask("buy milk", "two liters", CategoryShopping, PriorityLow, "2026-01-15")

	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "buy milk", task.Title)
	assert.Equal(t, "two liters", task.Description)
	assert.Equal(t, CategoryShopping, task.Category)
	assert.Equal(t, PriorityLow, task.Priority)
	assert.Equal(t, "2026-01-15", task.DueDate)
	assert.False(t, task.Completed)
	assert.NotZero(t, task.CreatedAt)
	assert.True(t, task.IsLocal())
}

func TestNewTask_EmptyTitle(t *testing.T) {
	_, err := NewTask("", "", CategoryWork, PriorityMedium, "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = NewTask("   \t  ", "", CategoryWork, PriorityMedium, "")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestNewTask_InvalidCategory(t *testing.T) {
	_, err := NewTask("x", "", Category("Chores"), PriorityMedium, "")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestNewTask_InvalidPriority(t *testing.T) {
	_, err := NewTask("x", "", CategoryWork, Priority("critical"), "")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestNewTask_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		task, err := NewTask("x", "", CategoryWork, PriorityLow, "")
		require.NoError(t, err)
		assert.False(t, seen[task.ID])
		seen[task.ID] = true
	}
}

func TestTask_WithCompleted(t *testing.T) {
	task, err := NewTask("x", "", CategoryWork, PriorityLow, "")
	require.NoError(t, err)

	done := task.WithCompleted(true)
	assert.True(t, done.Completed)
	assert.False(t, task.Completed, "original must not be mutated")
	assert.Equal(t, task.ID, done.ID)
}

func TestTask_WithOwner(t *testing.T) {
	task, err := NewTask("x", "", CategoryWork, PriorityLow, "")
	require.NoError(t, err)
	assert.True(t, task.IsLocal())

	owned := task.WithOwner("user-1")
	assert.Equal(t, "user-1", owned.UserID)
	assert.False(t, owned.IsLocal())
	assert.True(t, task.IsLocal(), "original must not be mutated")
}

func TestTaskPatch_Apply(t *testing.T) {
	task, err := NewTask("old title", "old desc", CategoryWork, PriorityLow, "2026-01-01")
	require.NoError(t, err)

	title := "new title"
	completed := true
	patch := TaskPatch{Title: &title, Completed: &completed}

	updated := patch.Apply(task)
	assert.Equal(t, "new title", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, "old desc", updated.Description)
	assert.Equal(t, CategoryWork, updated.Category)
	assert.Equal(t, PriorityLow, updated.Priority)
	assert.Equal(t, "2026-01-01", updated.DueDate)
	assert.Equal(t, task.ID, updated.ID)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
}

func TestTaskPatch_ApplyEmpty(t *testing.T) {
	task, err := NewTask("title", "desc", CategoryHealth, PriorityHigh, "")
	require.NoError(t, err)

	updated := TaskPatch{}.Apply(task)
	assert.Equal(t, task, updated)
}

func TestNewChatMessage(t *testing.T) {
	sender := Identity{ID: "u1", DisplayName: "Alice", PhotoURL: "https://img/alice.png"}

	msg, err := NewChatMessage("  hello world  ", sender)

	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello world", msg.Text, "text must be trimmed")
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, "https://img/alice.png", msg.SenderPhoto)
	assert.NotZero(t, msg.CreatedAt)
}

func TestNewChatMessage_AnonymousFallback(t *testing.T) {
	msg, err := NewChatMessage("hi", Identity{ID: "guest-1", Guest: true})

	require.NoError(t, err)
	assert.Equal(t, "Anonymous", msg.SenderName)
}

func TestNewChatMessage_EmptyText(t *testing.T) {
	_, err := NewChatMessage("   ", Identity{ID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestCategory_IsValid(t *testing.T) {
	for _, c := range []Category{CategoryWork, CategoryPersonal, CategoryUrgent, CategoryShopping, CategoryHealth} {
		assert.True(t, c.IsValid())
	}
	assert.False(t, Category("All").IsValid(), "the filter wildcard is not a storable category")
	assert.False(t, Category("").IsValid())
}

func TestTheme_IsValid(t *testing.T) {
	assert.True(t, ThemeDark.IsValid())
	assert.True(t, ThemeLight.IsValid())
	assert.False(t, Theme("solarized").IsValid())
}
