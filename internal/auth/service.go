// Package auth implements the single-user login of the web API: bcrypt
// passwords, TOTP two-factor codes, JWT session cookies and Plex account linking.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/javi11/huntarr/internal/database"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/pquerna/otp/totp"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the session cookie written on login.
const CookieName = "huntarr_session"

const (
	minPasswordLength = 8
	totpIssuer        = "Huntarr"
)

// UserStore is the user persistence used by the Service.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*database.User, error)
	GetFirstUser(ctx context.Context) (*database.User, error)
	GetUserCount(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user *database.User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateUsername(ctx context.Context, oldName, newName string) error
	UpdateLastLogin(ctx context.Context, username string) error
	SetTemp2FASecret(ctx context.Context, username, secret string) error
	Enable2FA(ctx context.Context, username, secret string) error
	Disable2FA(ctx context.Context, username string) error
	SetPlexAccount(ctx context.Context, username string, token, userData *string) error
}

// Config represents authentication service configuration
type Config struct {
	JWTSecret     string
	TokenDuration time.Duration
	CookieSecure  bool
	Issuer        string
}

// Service handles authentication operations
type Service struct {
	users  UserStore
	tokens *token.Service
	cfg    Config
	now    func() time.Time
}

// NewService creates the auth service. A random signing secret is generated
// when none is configured.
func NewService(cfg Config, users UserStore) (*Service, error) {
	if cfg.TokenDuration <= 0 {
		cfg.TokenDuration = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "huntarr"
	}

	if cfg.JWTSecret == "" {
		secret, err := password.Generate(48, 10, 0, false, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JWTSecret = secret
		slog.Warn("No auth.jwt_secret configured, sessions will not survive a restart")
	}

	secret := cfg.JWTSecret
	tokens := token.NewService(token.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  cfg.TokenDuration,
		CookieDuration: cfg.TokenDuration,
		SecureCookies:  cfg.CookieSecure,
		DisableXSRF:    true,
		JWTCookieName:  CookieName,
		Issuer:         cfg.Issuer,
	})

	return &Service{users: users, tokens: tokens, cfg: cfg, now: time.Now}, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// TokenService returns the token service for JWT operations
func (s *Service) TokenService() *token.Service {
	return s.tokens
}

// UserExists reports whether setup has created the account.
func (s *Service) UserExists(ctx context.Context) (bool, error) {
	n, err := s.users.GetUserCount(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CurrentUser returns the single account, or nil before setup.
func (s *Service) CurrentUser(ctx context.Context) (*database.User, error) {
	return s.users.GetFirstUser(ctx)
}

// User returns the account named username.
func (s *Service) User(ctx context.Context, username string) (*database.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.ErrUserNotFound
	}
	return user, nil
}

// CreateUser creates the account. Only one account may exist.
func (s *Service) CreateUser(ctx context.Context, username, pass string) (*database.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username", errs.ErrMissingField)
	}
	if len(pass) < minPasswordLength {
		return nil, errs.ErrWeakPassword
	}

	exists, err := s.UserExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.ErrUserExists
	}

	hash, err := HashPassword(pass)
	if err != nil {
		return nil, err
	}

	user := &database.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User account created", "username", username)
	return user, nil
}

// Authenticate checks the password and, when 2FA is enabled, the TOTP code.
// needs2FA is true when the password matched but a code is still required.
func (s *Service) Authenticate(ctx context.Context, username, pass, otp string) (user *database.User, needs2FA bool, err error) {
	user, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, pass) {
		return nil, false, errs.ErrInvalidCredentials
	}

	if user.TwoFAEnabled {
		if otp == "" {
			return nil, true, errs.ErrTwoFactorRequired
		}
		if user.TwoFASecret == nil || !totp.Validate(strings.TrimSpace(otp), *user.TwoFASecret) {
			return nil, true, errs.ErrInvalidTOTP
		}
	}

	if err := s.users.UpdateLastLogin(ctx, user.Username); err != nil {
		slog.WarnContext(ctx, "Failed to update last login", "username", user.Username, "error", err)
	}

	return user, false, nil
}

// IssueToken signs a session token for user.
func (s *Service) IssueToken(user *database.User) (string, error) {
	now := s.now()
	claims := token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenDuration)),
		},
		User: &token.User{ID: user.Username, Name: user.Username},
	}

	return s.tokens.Token(claims)
}

// ParseToken validates a session token and returns its username.
func (s *Service) ParseToken(tokenString string) (string, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now()) {
		return "", errors.New("session expired")
	}
	if claims.User != nil && claims.User.ID != "" {
		return claims.User.ID, nil
	}
	if claims.Subject == "" {
		return "", errors.New("session has no subject")
	}
	return claims.Subject, nil
}

// Generate2FA creates a pending TOTP secret for username and returns it with
// its provisioning URL. The secret becomes active after Verify2FA.
func (s *Service) Generate2FA(ctx context.Context, username string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: username})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate 2FA secret: %w", err)
	}

	if err := s.users.SetTemp2FASecret(ctx, username, key.Secret()); err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

// Verify2FA enables 2FA when code matches the pending secret.
func (s *Service) Verify2FA(ctx context.Context, username, code string) error {
	user, err := s.User(ctx, username)
	if err != nil {
		return err
	}
	if user.Temp2FASecret == nil || !totp.Validate(strings.TrimSpace(code), *user.Temp2FASecret) {
		return errs.ErrInvalidTOTP
	}

	if err := s.users.Enable2FA(ctx, username, *user.Temp2FASecret); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Two-factor authentication enabled", "username", username)
	return nil
}

// Disable2FA turns 2FA off after checking the password and current code.
func (s *Service) Disable2FA(ctx context.Context, username, pass, otp string) error {
	user, err := s.User(ctx, username)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, pass) {
		return errs.ErrInvalidCredentials
	}
	if user.TwoFAEnabled && (user.TwoFASecret == nil || !totp.Validate(strings.TrimSpace(otp), *user.TwoFASecret)) {
		return errs.ErrInvalidTOTP
	}

	if err := s.users.Disable2FA(ctx, username); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Two-factor authentication disabled", "username", username)
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := s.User(ctx, username)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		return errs.ErrInvalidCredentials
	}

	return s.SetPassword(ctx, username, next)
}

// SetPassword replaces the password without checking the current one.
func (s *Service) SetPassword(ctx context.Context, username, next string) error {
	if len(next) < minPasswordLength {
		return errs.ErrWeakPassword
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, username, hash); err != nil {
		if errors.Is(err, database.ErrNoUser) {
			return errs.ErrUserNotFound
		}
		return err
	}
	return nil
}

// ChangeUsername renames the account after checking the password.
func (s *Service) ChangeUsername(ctx context.Context, username, newName, pass string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: username", errs.ErrMissingField)
	}

	user, err := s.User(ctx, username)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, pass) {
		return errs.ErrInvalidCredentials
	}

	return s.users.UpdateUsername(ctx, username, newName)
}

// HashPassword hashes a password using bcrypt
func HashPassword(pass string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether pass matches hash.
func CheckPassword(hash, pass string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
}
