package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/snapselect/snapselect/internal/service"
	"github.com/snapselect/snapselect/pkg/logger"
	"github.com/snapselect/snapselect/pkg/response"
)

type StatsHandler struct {
	statsSvc     *service.StatsService
	selectionSvc *service.SelectionService
}

func NewStatsHandler(statsSvc *service.StatsService, selectionSvc *service.SelectionService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc, selectionSvc: selectionSvc}
}

// Dashboard handles GET /stats/dashboard.
func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.statsSvc.Dashboard(photographerID(c))
	if err != nil {
		logger.Error().Err(err).Msg("Dashboard stats failed")
		return response.InternalError(c, "failed to load dashboard stats")
	}
	return response.Success(c, stats)
}

// GallerySelections handles GET /galleries/:id/selections, the
// photographer's view of client verdicts.
func (h *StatsHandler) GallerySelections(c *fiber.Ctx) error {
	selections, err := h.selectionSvc.ListForGallery(c.Params("id"), photographerID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGalleryNotFound):
			return response.NotFound(c, "gallery not found")
		case errors.Is(err, service.ErrNotGalleryOwner):
			return response.Forbidden(c, "not the gallery owner")
		default:
			logger.Error().Err(err).Msg("List gallery selections failed")
			return response.InternalError(c, "failed to list selections")
		}
	}
	return response.Success(c, selections)
}
