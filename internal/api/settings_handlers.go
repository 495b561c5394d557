package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/javi11/huntarr/internal/settings"
)

// handleGetSettings handles GET /api/settings/:app
func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	doc, err := s.deps.Settings.Document(c.UserContext(), strings.ToLower(c.Params("app")))
	if err != nil {
		return respondServiceError(c, "Failed to load settings", err)
	}
	return RespondSuccess(c, doc)
}

// handleUpdateSettings handles PUT /api/settings/:app. Keys missing from the
// body keep their stored value.
func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return RespondBadRequest(c, ErrMsgBadRequest, "empty body")
	}

	ctx := c.UserContext()
	key := strings.ToLower(c.Params("app"))

	doc, err := s.deps.Settings.SaveDocument(ctx, key, body)
	if err != nil {
		return respondServiceError(c, "Failed to save settings", err)
	}

	if general, ok := doc.(*settings.GeneralSettings); ok {
		s.applyGeneral(general)
	}

	slog.InfoContext(ctx, "Settings updated", "section", key)
	return RespondSuccess(c, doc)
}

// applyGeneral pushes process-wide settings to the running components.
func (s *Server) applyGeneral(general *settings.GeneralSettings) {
	if s.deps.Logging != nil && general.LogLevel != "" {
		if err := s.deps.Logging.UpdateLevel(general.LogLevel); err != nil {
			slog.Error("Failed to update log level", "error", err)
		}
	}

	if s.deps.Configurer != nil {
		s.deps.Configurer.Configure(time.Duration(general.APITimeout)*time.Second, general.SSLVerify)
	}
}
