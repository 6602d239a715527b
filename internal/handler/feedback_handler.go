package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// FeedbackHandler exposes feedback parsing and generation.
type FeedbackHandler struct {
	service service.FeedbackService
	logger  zerolog.Logger
}

// NewFeedbackHandler builds a feedback handler.
func NewFeedbackHandler(service service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register attaches the feedback routes to the grading group.
func (h *FeedbackHandler) Register(router fiber.Router, staff fiber.Handler) {
	router.Post("/feedback/analyze", h.analyze)
	router.Post("/submissions/:id/feedback", staff, h.generate)
}

func (h *FeedbackHandler) analyze(c *fiber.Ctx) error {
	var payload dto.FeedbackAnalyzeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Analyze(c.UserContext(), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback analyzed", result)
}

func (h *FeedbackHandler) generate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Generate(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "feedback generated", result)
}
