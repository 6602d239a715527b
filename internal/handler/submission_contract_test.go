package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/service"
)

const submissionEnvelopeSchema = `{
  "type": "object",
  "required": ["success", "data", "message"],
  "properties": {
    "success": {"const": true},
    "message": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["id", "assignment_id", "student_id", "student_name", "submitted_at", "status",
                   "score", "rubric_scores", "inline_comments", "ai_check", "plagiarism"],
      "properties": {
        "status": {"enum": ["pending", "graded", "late"]},
        "rubric_scores": {"type": "array"},
        "inline_comments": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["start_index", "end_index", "text", "author"],
            "properties": {
              "start_index": {"type": "integer", "minimum": 0},
              "end_index": {"type": "integer", "minimum": 0}
            }
          }
        },
        "ai_check": {
          "type": ["object", "null"],
          "required": ["score", "confidence"]
        },
        "plagiarism": {
          "type": ["object", "null"],
          "required": ["score", "matches"],
          "properties": {
            "score": {"type": "number", "minimum": 0, "maximum": 100},
            "matches": {"type": "array"}
          }
        }
      }
    }
  }
}`

type stubSubmissionService struct {
	response dto.SubmissionResponse
}

func (s stubSubmissionService) Submit(context.Context, service.SubmissionDraft) (dto.SubmissionResponse, error) {
	return s.response, nil
}

func (s stubSubmissionService) List(context.Context, dto.SubmissionFilter) ([]dto.SubmissionResponse, int64, error) {
	return []dto.SubmissionResponse{s.response}, 1, nil
}

func (s stubSubmissionService) Get(context.Context, uint) (dto.SubmissionResponse, error) {
	return s.response, nil
}

func (s stubSubmissionService) Grade(context.Context, uint, dto.GradeSubmissionRequest, uint) (dto.SubmissionResponse, error) {
	return s.response, nil
}

func TestSubmissionResponseContract(t *testing.T) {
	schema, err := jsonschema.CompileString("submission_envelope.json", submissionEnvelopeSchema)
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	response := dto.NewSubmissionResponse(models.Submission{
		ID:           12,
		AssignmentID: 3,
		StudentID:    5,
		StudentName:  "Jane",
		SubmittedAt:  now,
		Status:       models.SubmissionStatusPending,
		Content:      essay,
		AICheck:      &models.AICheckResult{Score: 82, Confidence: "medium"},
		Plagiarism: &models.PlagiarismResult{Score: 91.5, Matches: []models.PlagiarismMatch{
			{Source: "submission #4", Similarity: 0.21, Text: "evaporation condensation and precipitation"},
		}},
		InlineComments: []models.InlineComment{
			{StartIndex: 4, EndIndex: 15, Text: "Define this term.", Author: "AI Assistant"},
		},
	})

	h := handler.NewSubmissionHandler(stubSubmissionService{response: response}, 0, zerolog.New(io.Discard))
	app := fiber.New()
	h.Register(app.Group("/submissions"), func(c *fiber.Ctx) error { return c.Next() })

	resp, err := app.Test(httptest.NewRequest("GET", "/submissions/12", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NoError(t, schema.Validate(payload))
}
