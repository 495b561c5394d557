package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/javi11/huntarr/internal/history"
)

// handleListHistory handles GET /api/history/:app_type
func (s *Server) handleListHistory(c *fiber.Ctx) error {
	p := ParsePaginationFiber(c)

	page, err := s.deps.History.List(c.UserContext(), history.ListQuery{
		AppType:  strings.ToLower(c.Params("app_type")),
		Instance: c.Query("instance"),
		Search:   c.Query("search"),
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		return respondServiceError(c, "Failed to load history", err)
	}

	return RespondSuccess(c, page)
}

// handleClearHistory handles DELETE /api/history/:app_type
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	appType := strings.ToLower(c.Params("app_type"))

	if err := s.deps.History.Clear(c.UserContext(), appType, c.Query("instance")); err != nil {
		return respondServiceError(c, "Failed to clear history", err)
	}

	return RespondMessage(c, "History cleared")
}
