package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// SubmissionCreateRequest describes the multipart fields of a submission upload.
type SubmissionCreateRequest struct {
	AssignmentID uint   `form:"assignment_id" validate:"required,gt=0"`
	StudentID    uint   `form:"student_id"`
	StudentName  string `form:"student_name" validate:"omitempty,max=255"`
	Content      string `form:"content"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=pending graded late"`
	Page         int     `query:"page" validate:"omitempty,gte=1"`
	PageSize     int     `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// RubricScoreRequest is a grader's score for one criterion.
type RubricScoreRequest struct {
	Criterion string  `json:"criterion" validate:"required,max=255"`
	Score     float64 `json:"score" validate:"gte=0"`
	MaxScore  float64 `json:"max_score" validate:"gt=0"`
}

// OverallFeedbackRequest is the structured summary written by a grader.
type OverallFeedbackRequest struct {
	Strengths    string `json:"strengths" validate:"max=5000"`
	Improvements string `json:"improvements" validate:"max=5000"`
	ActionItems  string `json:"action_items" validate:"max=5000"`
}

// InlineCommentRequest anchors a grader remark to a character range.
type InlineCommentRequest struct {
	StartIndex int    `json:"start_index" validate:"gte=0"`
	EndIndex   int    `json:"end_index" validate:"gtefield=StartIndex"`
	Text       string `json:"text" validate:"required,max=2000"`
}

// GradeSubmissionRequest records a human grade.
type GradeSubmissionRequest struct {
	Score           float64                 `json:"score" validate:"gte=0"`
	RubricScores    []RubricScoreRequest    `json:"rubric_scores" validate:"omitempty,dive"`
	OverallFeedback *OverallFeedbackRequest `json:"overall_feedback"`
	InlineComments  []InlineCommentRequest  `json:"inline_comments" validate:"omitempty,dive"`
	Author          string                  `json:"author" validate:"omitempty,max=255"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint                     `json:"id"`
	AssignmentID    uint                     `json:"assignment_id"`
	StudentID       uint                     `json:"student_id"`
	StudentName     string                   `json:"student_name"`
	SubmittedAt     time.Time                `json:"submitted_at"`
	Status          string                   `json:"status"`
	FileURL         string                   `json:"file_url,omitempty"`
	FileName        string                   `json:"file_name,omitempty"`
	Content         string                   `json:"content,omitempty"`
	Score           *float64                 `json:"score"`
	RubricScores    []models.RubricScore     `json:"rubric_scores"`
	OverallFeedback *models.OverallFeedback  `json:"overall_feedback"`
	InlineComments  []models.InlineComment   `json:"inline_comments"`
	AICheck         *models.AICheckResult    `json:"ai_check"`
	Plagiarism      *models.PlagiarismResult `json:"plagiarism"`
	Analysis        map[string]interface{}   `json:"analysis,omitempty"`
	GradedBy        *uint                    `json:"graded_by"`
	GradedAt        *time.Time               `json:"graded_at"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Assignment      *AssignmentLite          `json:"assignment,omitempty"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID       uint      `json:"id"`
	Title    string    `json:"title"`
	DueDate  time.Time `json:"due_date"`
	MaxScore float64   `json:"max_score"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		StudentID:       model.StudentID,
		StudentName:     model.StudentName,
		SubmittedAt:     model.SubmittedAt,
		Status:          string(model.Status),
		FileURL:         model.FileURL,
		FileName:        model.FileName,
		Content:         model.Content,
		Score:           model.Score,
		RubricScores:    model.RubricScores,
		OverallFeedback: model.OverallFeedback,
		InlineComments:  model.InlineComments,
		AICheck:         model.AICheck,
		Plagiarism:      model.Plagiarism,
		Analysis:        model.Analysis,
		GradedBy:        model.GradedBy,
		GradedAt:        model.GradedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}

	if response.RubricScores == nil {
		response.RubricScores = []models.RubricScore{}
	}
	if response.InlineComments == nil {
		response.InlineComments = []models.InlineComment{}
	}

	if model.Assignment.ID != 0 {
		response.Assignment = &AssignmentLite{
			ID:       model.Assignment.ID,
			Title:    model.Assignment.Title,
			DueDate:  model.Assignment.DueDate,
			MaxScore: model.Assignment.EffectiveMaxScore(),
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
