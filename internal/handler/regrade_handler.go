package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tally-scoring-api/internal/service"
	"github.com/noah-isme/tally-scoring-api/internal/utils"
)

// RegradeHandler exposes history reconstruction and batch regrades.
type RegradeHandler struct {
	service service.RegradeService
	logger  zerolog.Logger
}

// NewRegradeHandler constructs the regrade handler.
func NewRegradeHandler(service service.RegradeService, logger zerolog.Logger) *RegradeHandler {
	return &RegradeHandler{
		service: service,
		logger:  logger.With().Str("component", "regrade_handler").Logger(),
	}
}

// RegisterInstanceQuestionRoutes attaches the single-question regrade route.
func (h *RegradeHandler) RegisterInstanceQuestionRoutes(router fiber.Router) {
	router.Post("/:id/regrade", h.regradeInstanceQuestion)
}

// RegisterAssessmentQuestionRoutes attaches the batch regrade routes.
func (h *RegradeHandler) RegisterAssessmentQuestionRoutes(router fiber.Router) {
	router.Post("/:id/regrade", h.regradeAssessmentQuestion)
	router.Delete("/:id/grading-jobs", h.deleteGradingJobs)
}

func (h *RegradeHandler) regradeInstanceQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.ReconstructInstanceQuestionHistory(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceQuestionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "instance question not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("instance_question_id", id).Msg("regrade failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "regrade failed")
		}
	}

	return utils.SendSuccess(c, "instance question regraded", nil)
}

func (h *RegradeHandler) regradeAssessmentQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	response, err := h.service.RegradeAssessmentQuestion(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAssessmentQuestionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "assessment question not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("assessment_question_id", id).Msg("batch regrade failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "batch regrade failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "batch regrade finished", response)
}

func (h *RegradeHandler) deleteGradingJobs(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	response, err := h.service.DeleteGradingJobs(c.Context(), id, userIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrAssessmentQuestionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "assessment question not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("assessment_question_id", id).Msg("grading job deletion failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "grading job deletion failed")
	}

	return utils.SendSuccess(c, "grading jobs deleted", response)
}
