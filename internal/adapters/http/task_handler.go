package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liquidtasks/core/internal/application/services"
	"github.com/liquidtasks/core/internal/application/store"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks  *services.TaskService
	store  *store.Store
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *services.TaskService, st *store.Store, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		store:  st,
		logger: log,
	}
}

// ListTasks returns the filtered, newest-first view.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	var q ports.TaskQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query")
	}
	return c.JSON(http.StatusOK, h.tasks.List(q))
}

// CreateTask inserts a new task. An empty title is a silent no-op per the
// mutation contract, reported as 204 so the caller sees no change.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.tasks.Create(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrEmptyTitle) {
			return c.NoContent(http.StatusNoContent)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask returns one record by id.
func (h *TaskHandler) GetTask(c echo.Context) error {
	task, err := h.tasks.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask merges partial fields onto a record. An unknown id is a no-op.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.tasks.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, task)
}

// ToggleTask flips the completed flag.
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	task, err := h.tasks.ToggleCompletion(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a record. Deleting an unknown id is equally 204.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	h.tasks.Delete(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// GetStats returns the aggregate counters for the current snapshot.
func (h *TaskHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tasks.Stats())
}

// StreamTasks pushes the current view as a server-sent event on every store
// version change until the client disconnects.
func (h *TaskHandler) StreamTasks(c echo.Context) error {
	var q ports.TaskQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query")
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	changes, cancel := h.store.Watch()
	defer cancel()

	send := func() error {
		payload, err := json.Marshal(h.tasks.List(q))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Response().Flush()
		return nil
	}

	if err := send(); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := send(); err != nil {
				return nil
			}
		}
	}
}
