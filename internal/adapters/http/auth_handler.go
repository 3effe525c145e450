package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liquidtasks/core/internal/application/services"
	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

// AuthHandler handles authentication and session requests. Sign-in is where
// the guest-to-account transition happens: locally created tasks are
// batch-migrated, then the live subscription starts.
type AuthHandler struct {
	auth    *services.AuthService
	session *services.SessionService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService, session *services.SessionService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		session: session,
		logger:  log,
	}
}

// RefreshTokenRequest carries the refresh token to exchange.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest carries the new display name.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=100"`
}

// ThemeRequest carries the theme preference to persist.
type ThemeRequest struct {
	Theme entities.Theme `json:"theme" validate:"required,oneof=dark light"`
}

// MessageResponse is a plain confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register handles account creation and starts the session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Registration failed", "error", err, "email", req.Email)
		return echo.NewHTTPError(http.StatusBadRequest, "Registration failed")
	}

	if err := h.session.SignIn(c.Request().Context(), response.Identity); err != nil {
		h.logger.Warnw("Sync start failed after registration", "error", err, "user_id", response.Identity.ID)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login handles user login and starts the session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Login failed", "email", req.Email)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	if err := h.session.SignIn(c.Request().Context(), response.Identity); err != nil {
		h.logger.Warnw("Sync start failed after login", "error", err, "user_id", response.Identity.ID)
	}

	return c.JSON(http.StatusOK, response)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	response, err := h.auth.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	return c.JSON(http.StatusOK, response)
}

// Logout revokes tokens and reverts the session to the guest identity.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := userIDFromContext(c)

	if err := h.auth.Logout(c.Request().Context(), userID); err != nil {
		h.logger.Errorw("Logout failed", "error", err, "user_id", userID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}

	h.session.SignOut()
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me returns the acting identity (guest or account).
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, h.session.Identity())
}

// UpdateProfile sets the display name.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.auth.UpdateDisplayName(c.Request().Context(), userIDFromContext(c), req.DisplayName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Profile update failed")
	}

	return c.JSON(http.StatusOK, identity)
}

// UploadAvatar uploads a profile image and stores the resulting URL.
func (h *AuthHandler) UploadAvatar(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}
	defer src.Close()

	identity, err := h.auth.UpdateAvatar(c.Request().Context(), userIDFromContext(c), file.Filename, src)
	if err != nil {
		h.logger.Errorw("Avatar upload failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Upload failed")
	}

	return c.JSON(http.StatusOK, identity)
}

// GetTheme returns the persisted theme preference.
func (h *AuthHandler) GetTheme(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]entities.Theme{"theme": h.session.Theme()})
}

// SetTheme persists the theme preference.
func (h *AuthHandler) SetTheme(c echo.Context) error {
	var req ThemeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.session.SetTheme(req.Theme); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to persist theme")
	}
	return c.JSON(http.StatusOK, map[string]entities.Theme{"theme": req.Theme})
}

// userIDFromContext reads the authenticated user id set by the auth
// middleware.
func userIDFromContext(c echo.Context) string {
	if id, ok := c.Get("user").(string); ok {
		return id
	}
	return ""
}
