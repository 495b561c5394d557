package auth

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/javi11/huntarr/internal/settings"
)

// userLocalKey stores the authenticated username in fiber locals.
const userLocalKey = "auth_username"

// GeneralSettings supplies the bypass flags.
type GeneralSettings interface {
	LoadGeneral(ctx context.Context) (*settings.GeneralSettings, error)
}

var publicPaths = []string{
	"/api/health",
	"/api/setup",
	"/api/login",
	"/api/auth/plex/pin",
	"/api/auth/plex/check/",
	"/api/auth/plex/login",
	"/login",
	"/setup",
	"/static/",
	"/favicon.ico",
}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) ||
			strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// Middleware returns the fiber handler guarding every non-public route.
// basePath is stripped before matching paths and prefixed to redirects.
func Middleware(svc *Service, general GeneralSettings, basePath string) fiber.Handler {
	basePath = strings.TrimRight(basePath, "/")

	return func(c *fiber.Ctx) error {
		path := strings.TrimPrefix(c.Path(), basePath)
		if path == "" {
			path = "/"
		}
		if isPublic(path) {
			return c.Next()
		}

		ctx := c.UserContext()
		exists, err := svc.UserExists(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check user", "error", err)
			return deny(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Failed to check user")
		}
		if !exists {
			if isAPI(path) {
				return deny(c, fiber.StatusUnauthorized, "SETUP_REQUIRED", "Setup required")
			}
			return c.Redirect(basePath+"/setup", fiber.StatusFound)
		}

		cfg, err := general.LoadGeneral(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Failed to load bypass settings", "error", err)
			cfg = settings.DefaultGeneralSettings()
		}

		if cfg.ProxyAuthBypass {
			return c.Next()
		}

		if cfg.LocalAccessBypass && IsLocalAddress(ClientIP(c)) {
			return c.Next()
		}

		if username, err := svc.ParseToken(c.Cookies(CookieName)); err == nil && username != "" {
			c.Locals(userLocalKey, username)
			return c.Next()
		}

		if isAPI(path) {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		}
		return c.Redirect(basePath+"/login", fiber.StatusFound)
	}
}

func deny(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"details": "",
		},
	})
}

// Username returns the user authenticated by the session cookie, or "" when
// the request passed through a bypass.
func Username(c *fiber.Ctx) string {
	if v, ok := c.Locals(userLocalKey).(string); ok {
		return v
	}
	return ""
}

// ClientIP returns the first X-Forwarded-For hop, falling back to the remote address.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// IsLocalAddress reports whether ip is loopback, private or link-local.
func IsLocalAddress(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()
}
