package handler

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service        service.SubmissionService
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, maxUploadBytes int64, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. staff guards grading.
func (h *SubmissionHandler) Register(router fiber.Router, staff fiber.Handler) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id/grade", staff, h.grade)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form payload")
	}

	callerID := userIDFromContext(c)
	if payload.StudentID == 0 {
		payload.StudentID = callerID
	}
	if isStudent(c) && payload.StudentID != callerID {
		return utils.SendError(c, fiber.StatusForbidden, "students can only submit their own work")
	}

	draft := service.SubmissionDraft{
		AssignmentID: payload.AssignmentID,
		StudentID:    payload.StudentID,
		StudentName:  payload.StudentName,
		Content:      payload.Content,
	}

	if header, err := c.FormFile("file"); err == nil {
		if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		}

		file, err := header.Open()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
		}

		draft.File = data
		draft.FileName = strings.TrimSpace(header.Filename)
	}

	submission, err := h.service.Submit(c.UserContext(), draft)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}

	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.AssignmentID = assignmentID

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.StudentID = studentID

	if isStudent(c) {
		own := userIDFromContext(c)
		filter.StudentID = &own
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}

	if filter.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}
	if filter.Page == 0 {
		filter.Page = 1
	}

	submissions, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, submissions, "submissions retrieved", utils.PageMeta{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	})
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	if isStudent(c) && submission.StudentID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Grade(c.UserContext(), id, payload, userIDFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("submission_id", id).Msg("submission graded")
	return utils.SendSuccess(c, "submission graded", submission)
}
