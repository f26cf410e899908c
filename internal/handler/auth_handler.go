package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kintai/internal/auth"
	apperrors "kintai/internal/errors"
	"kintai/internal/model"
	"kintai/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, userService service.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	ID       string `json:"id" validate:"required,max=64"`
	Password string `json:"pass" validate:"required"`
}

// ChangePasswordRequest represents a password change by the current user.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

// MeResponse describes the caller.
type MeResponse struct {
	User      *model.User `json:"user"`
	Admin     bool        `json:"admin"`
	ExpiresAt int64       `json:"expires_at"`
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} auth.Token
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	token, err := h.authService.Login(c.Request().Context(), req.ID, req.Password)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, token)
}

// Logout godoc
// @Summary Revoke the current token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return fail(apperrors.ErrAuthentication)
	}
	if err := h.authService.Logout(c.Request().Context(), claims); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Me(c.Request().Context(), actor)
	if err != nil {
		return fail(err)
	}
	claims, _ := ClaimsFrom(c)
	return c.JSON(http.StatusOK, MeResponse{
		User:      user,
		Admin:     claims.Admin,
		ExpiresAt: expiresAt(claims),
	})
}

// ChangePassword godoc
// @Summary Change own password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Old and new password"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}
	if err := h.userService.ChangePassword(c.Request().Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func expiresAt(claims *auth.Claims) int64 {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Unix()
}
