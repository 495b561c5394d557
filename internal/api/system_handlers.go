package api

import (
	"fmt"
	"html"
	"time"

	"github.com/gofiber/fiber/v2"
)

// handleHealth handles GET /api/health
func (s *Server) handleHealth(c *fiber.Ctx) error {
	if _, err := s.deps.Auth.UserExists(c.UserContext()); err != nil {
		return RespondServiceUnavailable(c, "Database unavailable", err.Error())
	}

	return RespondSuccess(c, HealthResponse{
		Status:    "ok",
		Version:   s.config.Version,
		StartTime: s.startTime,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

const pageTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Huntarr - %s</title></head>
<body><h1>Huntarr</h1><p>%s</p><p>API: <code>%s</code></p></body></html>`

func (s *Server) renderPage(c *fiber.Ctx, title, text, endpoint string) error {
	c.Type("html", "utf-8")
	return c.SendString(fmt.Sprintf(pageTemplate,
		html.EscapeString(title), html.EscapeString(text), html.EscapeString(s.config.BasePath+endpoint)))
}

// handleLoginPage handles GET /login
func (s *Server) handleLoginPage(c *fiber.Ctx) error {
	return s.renderPage(c, "Login", "Sign in by posting username, password and otp_code.", "/api/login")
}

// handleSetupPage handles GET /setup
func (s *Server) handleSetupPage(c *fiber.Ctx) error {
	exists, err := s.deps.Auth.UserExists(c.UserContext())
	if err == nil && exists {
		return c.Redirect(s.config.BasePath+"/login", fiber.StatusFound)
	}
	return s.renderPage(c, "Setup", "Create the account by posting username and password.", "/api/setup")
}
