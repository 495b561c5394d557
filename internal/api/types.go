package api

import (
	"time"

	"github.com/javi11/huntarr/internal/auth"
	"github.com/javi11/huntarr/internal/database"
)

// LoginRequest represents a password login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
}

// SetupRequest creates the first account
type SetupRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordRequest replaces the current password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangeUsernameRequest renames the account
type ChangeUsernameRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TwoFactorRequest carries a TOTP code, and the password when disabling
type TwoFactorRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// PlexTokenRequest carries the token of a claimed PIN
type PlexTokenRequest struct {
	Token string `json:"token"`
}

// UserResponse represents user data for API responses
type UserResponse struct {
	Username     string         `json:"username"`
	TwoFAEnabled bool           `json:"two_fa_enabled"`
	PlexLinked   bool           `json:"plex_linked"`
	PlexUser     *auth.PlexUser `json:"plex_user,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastLogin    *time.Time     `json:"last_login,omitempty"`
}

// TwoFactorSetupResponse is the pending TOTP secret
type TwoFactorSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// PlexCheckResponse reports whether a PIN was claimed
type PlexCheckResponse struct {
	Claimed bool   `json:"claimed"`
	Token   string `json:"token,omitempty"`
}

// HealthResponse is the liveness report
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime"`
}

// SetupStatusResponse reports whether the account exists
type SetupStatusResponse struct {
	SetupRequired bool `json:"setup_required"`
}

func toUserResponse(user *database.User) *UserResponse {
	if user == nil {
		return nil
	}

	plexUser := auth.LinkedPlexUser(user)
	return &UserResponse{
		Username:     user.Username,
		TwoFAEnabled: user.TwoFAEnabled,
		PlexLinked:   plexUser != nil,
		PlexUser:     plexUser,
		CreatedAt:    user.CreatedAt,
		LastLogin:    user.LastLogin,
	}
}
