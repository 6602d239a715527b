package dto

import "github.com/noah-isme/gema-grading-api/internal/models"

// FeedbackAnalyzeRequest pairs a submission text with a model response to parse.
type FeedbackAnalyzeRequest struct {
	Text     string `json:"text" validate:"required"`
	Response string `json:"response" validate:"required"`
}

// LocatedCommentResponse is an inline comment anchored to character offsets.
type LocatedCommentResponse struct {
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Text       string `json:"text"`
}

// FeedbackAnalysisResponse is the typed view of a feedback response.
type FeedbackAnalysisResponse struct {
	OverallFeedback models.OverallFeedback   `json:"overall_feedback"`
	InlineComments  []LocatedCommentResponse `json:"inline_comments"`
}

// FeedbackGenerationResponse is returned after AI feedback is stored on a submission.
type FeedbackGenerationResponse struct {
	SubmissionID    uint                   `json:"submission_id"`
	OverallFeedback models.OverallFeedback `json:"overall_feedback"`
	InlineComments  []models.InlineComment `json:"inline_comments"`
	LocatedCount    int                    `json:"located_count"`
	DroppedCount    int                    `json:"dropped_count"`
}
