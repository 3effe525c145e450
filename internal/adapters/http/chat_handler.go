package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liquidtasks/core/internal/application/services"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// ChatHandler handles community chat requests
type ChatHandler struct {
	chat    *services.ChatService
	session *services.SessionService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService, session *services.SessionService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:    chat,
		session: session,
		logger:  log,
	}
}

// History returns the bounded recent message list, ascending by time.
func (h *ChatHandler) History(c echo.Context) error {
	msgs, err := h.chat.History(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Chat history failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Chat unavailable")
	}
	return c.JSON(http.StatusOK, msgs)
}

// Send appends one message from the acting identity. Empty text is rejected
// without change.
func (h *ChatHandler) Send(c echo.Context) error {
	var req ports.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	msg, err := h.chat.Send(c.Request().Context(), req.Text, h.session.Identity())
	if err != nil {
		if errors.Is(err, entities.ErrEmptyMessage) {
			return c.NoContent(http.StatusNoContent)
		}
		h.logger.Errorw("Chat send failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Chat unavailable")
	}

	return c.JSON(http.StatusCreated, msg)
}

// Stream pushes chat snapshots as server-sent events until the client
// disconnects.
func (h *ChatHandler) Stream(c echo.Context) error {
	sub, err := h.chat.Subscribe(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Chat subscribe failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Chat unavailable")
	}
	defer sub.Close()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msgs, ok := <-sub.Snapshots():
			if !ok {
				return nil
			}
			payload, err := json.Marshal(msgs)
			if err != nil {
				return nil
			}
			if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}
