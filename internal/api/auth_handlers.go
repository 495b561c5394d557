package api

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/javi11/huntarr/internal/auth"
	"github.com/javi11/huntarr/internal/database"
	errs "github.com/javi11/huntarr/internal/errors"
)

// setJWTCookie writes the session cookie
func (s *Server) setJWTCookie(c *fiber.Ctx, tokenString string) {
	cfg := s.deps.Auth.Config()
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(cfg.TokenDuration),
		Secure:   cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// clearJWTCookie expires the session cookie
func (s *Server) clearJWTCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		Secure:   s.deps.Auth.Config().CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// startSession issues a token for user and sets the cookie
func (s *Server) startSession(c *fiber.Ctx, user *database.User, message string) error {
	tokenString, err := s.deps.Auth.IssueToken(user)
	if err != nil {
		return RespondInternalError(c, "Failed to create token", err.Error())
	}

	s.setJWTCookie(c, tokenString)
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    toUserResponse(user),
	})
}

// currentUsername resolves the account a protected request acts on. Requests
// admitted through a bypass act on the single account.
func (s *Server) currentUsername(c *fiber.Ctx) (string, error) {
	if name := auth.Username(c); name != "" {
		return name, nil
	}

	user, err := s.deps.Auth.CurrentUser(c.UserContext())
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errs.ErrUserNotFound
	}
	return user.Username, nil
}

// handleSetupStatus handles GET /api/setup/status
func (s *Server) handleSetupStatus(c *fiber.Ctx) error {
	exists, err := s.deps.Auth.UserExists(c.UserContext())
	if err != nil {
		return respondServiceError(c, "Failed to check setup status", err)
	}
	return RespondSuccess(c, SetupStatusResponse{SetupRequired: !exists})
}

// handleSetup handles POST /api/setup
func (s *Server) handleSetup(c *fiber.Ctx) error {
	var req SetupRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return RespondValidationError(c, "Passwords do not match", "")
	}

	user, err := s.deps.Auth.CreateUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondServiceError(c, "Failed to create user", err)
	}

	tokenString, err := s.deps.Auth.IssueToken(user)
	if err != nil {
		return RespondInternalError(c, "Failed to create token", err.Error())
	}
	s.setJWTCookie(c, tokenString)

	return RespondCreated(c, toUserResponse(user))
}

// handleLogin handles POST /api/login
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	if req.Username == "" || req.Password == "" {
		return RespondValidationError(c, "Username and password are required", "")
	}

	ctx := c.UserContext()
	user, _, err := s.deps.Auth.Authenticate(ctx, req.Username, req.Password, req.OTPCode)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			slog.WarnContext(ctx, "Failed login attempt", "username", req.Username, "ip", auth.ClientIP(c))
		}
		return respondServiceError(c, "Login failed", err)
	}

	return s.startSession(c, user, "Login successful")
}

// handleLogout handles POST /api/logout
func (s *Server) handleLogout(c *fiber.Ctx) error {
	s.clearJWTCookie(c)
	return RespondMessage(c, "Logged out successfully")
}

// handleUserInfo handles GET /api/user/info
func (s *Server) handleUserInfo(c *fiber.Ctx) error {
	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	user, err := s.deps.Auth.User(c.UserContext(), username)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	return RespondSuccess(c, toUserResponse(user))
}

// handleChangePassword handles POST /api/user/change-password
func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	if err := s.deps.Auth.ChangePassword(c.UserContext(), username, req.CurrentPassword, req.NewPassword); err != nil {
		return respondServiceError(c, "Failed to change password", err)
	}

	return RespondMessage(c, "Password changed")
}

// handleChangeUsername handles POST /api/user/change-username
func (s *Server) handleChangeUsername(c *fiber.Ctx) error {
	var req ChangeUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	ctx := c.UserContext()
	if err := s.deps.Auth.ChangeUsername(ctx, username, req.Username, req.Password); err != nil {
		return respondServiceError(c, "Failed to change username", err)
	}

	user, err := s.deps.Auth.User(ctx, req.Username)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	// The old cookie names the previous account.
	return s.startSession(c, user, "Username changed")
}

// handle2FASetup handles POST /api/user/2fa/setup
func (s *Server) handle2FASetup(c *fiber.Ctx) error {
	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	secret, url, err := s.deps.Auth.Generate2FA(c.UserContext(), username)
	if err != nil {
		return respondServiceError(c, "Failed to set up two-factor authentication", err)
	}

	return RespondSuccess(c, TwoFactorSetupResponse{Secret: secret, URL: url})
}

// handle2FAVerify handles POST /api/user/2fa/verify
func (s *Server) handle2FAVerify(c *fiber.Ctx) error {
	var req TwoFactorRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	if err := s.deps.Auth.Verify2FA(c.UserContext(), username, req.Code); err != nil {
		return respondServiceError(c, "Failed to verify two-factor code", err)
	}

	return RespondMessage(c, "Two-factor authentication enabled")
}

// handle2FADisable handles POST /api/user/2fa/disable
func (s *Server) handle2FADisable(c *fiber.Ctx) error {
	var req TwoFactorRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	if err := s.deps.Auth.Disable2FA(c.UserContext(), username, req.Password, req.Code); err != nil {
		return respondServiceError(c, "Failed to disable two-factor authentication", err)
	}

	return RespondMessage(c, "Two-factor authentication disabled")
}

// handlePlexPIN handles POST /api/auth/plex/pin
func (s *Server) handlePlexPIN(c *fiber.Ctx) error {
	pin, err := s.deps.Plex.CreatePIN(c.UserContext())
	if err != nil {
		return respondServiceError(c, "Failed to create Plex PIN", err)
	}
	return RespondSuccess(c, pin)
}

// handlePlexCheck handles GET /api/auth/plex/check/:id
func (s *Server) handlePlexCheck(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return RespondBadRequest(c, "Invalid PIN id", c.Params("id"))
	}

	token, err := s.deps.Plex.CheckPIN(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, "Failed to check Plex PIN", err)
	}

	return RespondSuccess(c, PlexCheckResponse{Claimed: token != "", Token: token})
}

// handlePlexLogin handles POST /api/auth/plex/login
func (s *Server) handlePlexLogin(c *fiber.Ctx) error {
	var req PlexTokenRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return RespondBadRequest(c, "Plex token is required", "")
	}

	user, err := s.deps.Auth.PlexLogin(c.UserContext(), s.deps.Plex, req.Token)
	if err != nil {
		return respondServiceError(c, "Plex login failed", err)
	}

	return s.startSession(c, user, "Login successful")
}

// handlePlexLink handles POST /api/auth/plex/link
func (s *Server) handlePlexLink(c *fiber.Ctx) error {
	var req PlexTokenRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return RespondBadRequest(c, "Plex token is required", "")
	}

	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	account, err := s.deps.Auth.LinkPlex(c.UserContext(), s.deps.Plex, username, req.Token)
	if err != nil {
		return respondServiceError(c, "Failed to link Plex account", err)
	}

	return RespondSuccess(c, account)
}

// handlePlexUnlink handles POST /api/auth/plex/unlink
func (s *Server) handlePlexUnlink(c *fiber.Ctx) error {
	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	if err := s.deps.Auth.UnlinkPlex(c.UserContext(), username); err != nil {
		return respondServiceError(c, "Failed to unlink Plex account", err)
	}

	return RespondMessage(c, "Plex account unlinked")
}

// handlePlexStatus handles GET /api/auth/plex/status
func (s *Server) handlePlexStatus(c *fiber.Ctx) error {
	username, err := s.currentUsername(c)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	user, err := s.deps.Auth.User(c.UserContext(), username)
	if err != nil {
		return respondServiceError(c, "Failed to load user", err)
	}

	linked := auth.LinkedPlexUser(user)
	return RespondSuccess(c, fiber.Map{
		"linked":    linked != nil,
		"plex_user": linked,
	})
}
