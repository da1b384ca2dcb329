package handler

import (
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tally-scoring-api/internal/service"
	"github.com/noah-isme/tally-scoring-api/internal/utils"
)

// ScoreUploadHandler accepts bulk CSV score uploads for an assessment.
type ScoreUploadHandler struct {
	service service.ScoreUploadService
	logger  zerolog.Logger
}

// NewScoreUploadHandler constructs the upload handler.
func NewScoreUploadHandler(service service.ScoreUploadService, logger zerolog.Logger) *ScoreUploadHandler {
	return &ScoreUploadHandler{
		service: service,
		logger:  logger.With().Str("component", "score_upload_handler").Logger(),
	}
}

// Register attaches the upload endpoint. The group is expected to carry an
// :assessmentID parameter.
func (h *ScoreUploadHandler) Register(router fiber.Router) {
	router.Post("/scores/upload", h.upload)
}

func (h *ScoreUploadHandler) upload(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "assessmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	handle, err := file.Open()
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to open uploaded file")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to read upload")
	}
	defer handle.Close()

	mime, err := mimetype.DetectReader(handle)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unreadable upload")
	}
	if !mime.Is("text/csv") && !mime.Is("text/plain") {
		return utils.SendError(c, fiber.StatusBadRequest, "upload must be a CSV file")
	}
	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to rewind uploaded file")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to read upload")
	}

	report, err := h.service.ApplyCSV(c.Context(), assessmentID, handle, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyUpload):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("assessment_id", assessmentID).Msg("score upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "score upload failed")
		}
	}

	return utils.SendSuccess(c, "score upload processed", report)
}
