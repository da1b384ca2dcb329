package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tally-scoring-api/internal/service"
	"github.com/noah-isme/tally-scoring-api/internal/utils"
)

// AssessmentInstanceHandler serves assessment instance score summaries.
type AssessmentInstanceHandler struct {
	service service.AssessmentInstanceService
	logger  zerolog.Logger
}

// NewAssessmentInstanceHandler constructs the handler.
func NewAssessmentInstanceHandler(service service.AssessmentInstanceService, logger zerolog.Logger) *AssessmentInstanceHandler {
	return &AssessmentInstanceHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_instance_handler").Logger(),
	}
}

// Register attaches assessment instance endpoints to the router group.
func (h *AssessmentInstanceHandler) Register(router fiber.Router) {
	router.Get("/:id/score", h.getScore)
	router.Post("/:id/score/recompute", h.recomputeScore)
}

func (h *AssessmentInstanceHandler) getScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	response, err := h.service.GetScore(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssessmentInstanceNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assessment instance not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("assessment_instance_id", id).Msg("failed to fetch score")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch score")
		}
	}

	return utils.SendSuccess(c, "assessment instance score", response)
}

func (h *AssessmentInstanceHandler) recomputeScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.RecomputeScore(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrAssessmentInstanceNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assessment instance not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("assessment_instance_id", id).Msg("failed to recompute score")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to recompute score")
		}
	}

	response, err := h.service.GetScore(c.Context(), id)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Uint("assessment_instance_id", id).Msg("failed to fetch score")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch score")
	}

	return utils.SendSuccess(c, "assessment instance score recomputed", response)
}
