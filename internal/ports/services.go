package ports

import (
	"github.com/liquidtasks/core/internal/domain/entities"
)

// Request/Response Types

// CreateTaskRequest carries the fields of a new task. Category and priority
// must be members of their closed sets; the title must be non-empty after
// trimming.
type CreateTaskRequest struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description" validate:"omitempty,max=2000"`
	Category    entities.Category `json:"category" validate:"required,oneof=Work Personal Urgent Shopping Health"`
	Priority    entities.Priority `json:"priority" validate:"required,oneof=low medium high"`
	DueDate     string            `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateTaskRequest is a partial update; nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string            `json:"title" validate:"omitempty,min=1"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	Category    *entities.Category `json:"category" validate:"omitempty,oneof=Work Personal Urgent Shopping Health"`
	Priority    *entities.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Completed   *bool              `json:"completed"`
	DueDate     *string            `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// Patch converts the request into a domain patch.
func (r UpdateTaskRequest) Patch() entities.TaskPatch {
	return entities.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Completed:   r.Completed,
		DueDate:     r.DueDate,
	}
}

// TaskQuery is the view filter: case-insensitive substring match on the title
// ANDed with an exact category match ("All" disables the category predicate).
type TaskQuery struct {
	Search   string `json:"search" query:"search"`
	Category string `json:"category" query:"category"`
}

// Auth related types
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	Identity     entities.Identity `json:"identity"`
}

// Claims are the validated JWT claims exposed to middleware.
type Claims struct {
	UserID string
	Email  string
}

// SendMessageRequest carries one chat message to append.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}
