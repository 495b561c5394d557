package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/javi11/huntarr/internal/arrs/model"
)

// parseAppParam reads an app type path parameter. "all" and "" mean every app.
func parseAppParam(c *fiber.Ctx, name string) (model.AppType, error) {
	raw := c.Params(name)
	if raw == "" || raw == "all" {
		return "", nil
	}
	return model.ParseAppType(raw)
}

// handleStateSummary handles GET /api/state/:app/:instance
func (s *Server) handleStateSummary(c *fiber.Ctx) error {
	app, err := model.ParseAppType(c.Params("app"))
	if err != nil {
		return respondServiceError(c, "Unknown app type", err)
	}

	summary, err := s.deps.State.Summary(c.UserContext(), app, c.Params("instance"))
	if err != nil {
		return respondServiceError(c, "Failed to load state", err)
	}

	return RespondSuccess(c, summary)
}

// handleStateReset handles POST /api/state/reset/:app
func (s *Server) handleStateReset(c *fiber.Ctx) error {
	app, err := parseAppParam(c, "app")
	if err != nil {
		return respondServiceError(c, "Unknown app type", err)
	}

	if err := s.deps.State.Reset(c.UserContext(), app); err != nil {
		return respondServiceError(c, "Failed to reset state", err)
	}

	return RespondMessage(c, "State reset")
}

// handleSchedulerStatus handles GET /api/scheduler/status
func (s *Server) handleSchedulerStatus(c *fiber.Ctx) error {
	if s.deps.Scheduler == nil {
		return RespondServiceUnavailable(c, "Scheduler is not running", "")
	}
	return RespondSuccess(c, s.deps.Scheduler.Status())
}

// handleCycleReset handles POST /api/cycle/reset/:app
func (s *Server) handleCycleReset(c *fiber.Ctx) error {
	if s.deps.Scheduler == nil {
		return RespondServiceUnavailable(c, "Scheduler is not running", "")
	}

	app, err := model.ParseAppType(c.Params("app"))
	if err != nil {
		return respondServiceError(c, "Unknown app type", err)
	}

	if err := s.deps.Scheduler.TriggerReset(c.UserContext(), app); err != nil {
		return respondServiceError(c, "Failed to request cycle reset", err)
	}

	return RespondMessage(c, "Cycle reset requested for "+app.String())
}

// handleGetStats handles GET /api/stats
func (s *Server) handleGetStats(c *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return RespondServiceUnavailable(c, "Statistics are not available", "")
	}

	snapshot, err := s.deps.Stats.Snapshot(c.UserContext())
	if err != nil {
		return respondServiceError(c, "Failed to load statistics", err)
	}

	return RespondSuccess(c, snapshot)
}

// handleResetStats handles POST /api/stats/reset. An optional app_type query
// restricts the reset to one app.
func (s *Server) handleResetStats(c *fiber.Ctx) error {
	if s.deps.Stats == nil {
		return RespondServiceUnavailable(c, "Statistics are not available", "")
	}

	var app model.AppType
	if raw := c.Query("app_type"); raw != "" && raw != "all" {
		parsed, err := model.ParseAppType(raw)
		if err != nil {
			return respondServiceError(c, "Unknown app type", err)
		}
		app = parsed
	}

	if err := s.deps.Stats.Reset(c.UserContext(), app); err != nil {
		return respondServiceError(c, "Failed to reset statistics", err)
	}

	return RespondMessage(c, "Statistics reset")
}
