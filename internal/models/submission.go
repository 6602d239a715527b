package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus enumerates the lifecycle states of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusPending indicates the submission awaits grading.
	SubmissionStatusPending SubmissionStatus = "pending"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded SubmissionStatus = "graded"
	// SubmissionStatusLate indicates the submission arrived after the due date and awaits grading.
	SubmissionStatusLate SubmissionStatus = "late"
)

// Submission represents work submitted by a student for an assignment.
type Submission struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	AssignmentID        uint              `gorm:"not null;index" json:"assignment_id"`
	StudentID           uint              `gorm:"not null;index" json:"student_id"`
	StudentName         string            `gorm:"size:255" json:"student_name"`
	SubmittedAt         time.Time         `gorm:"not null" json:"submitted_at"`
	Status              SubmissionStatus  `gorm:"size:32;not null" json:"status"`
	FileURL             string            `gorm:"size:512" json:"file_url"`
	FileName            string            `gorm:"size:255" json:"file_name"`
	StoragePublicID     string            `gorm:"size:255" json:"storage_public_id"`
	StorageResourceType string            `gorm:"size:32" json:"storage_resource_type"`
	Content             string            `gorm:"type:text" json:"content"`
	Score               *float64          `json:"score"`
	RubricScores        []RubricScore     `gorm:"serializer:json;type:text" json:"rubric_scores"`
	OverallFeedback     *OverallFeedback  `gorm:"serializer:json;type:text" json:"overall_feedback"`
	InlineComments      []InlineComment   `gorm:"serializer:json;type:text" json:"inline_comments"`
	AICheck             *AICheckResult    `gorm:"serializer:json;type:text" json:"ai_check"`
	Plagiarism          *PlagiarismResult `gorm:"serializer:json;type:text" json:"plagiarism"`
	Analysis            datatypes.JSONMap `json:"analysis"`
	GradedBy            *uint             `json:"graded_by"`
	GradedAt            *time.Time        `json:"graded_at"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	Assignment          Assignment        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
}

// RubricScore is a single criterion score awarded by a grader.
type RubricScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
}

// OverallFeedback is the structured summary attached to a submission.
type OverallFeedback struct {
	Strengths    string `json:"strengths"`
	Improvements string `json:"improvements"`
	ActionItems  string `json:"action_items"`
}

// InlineComment anchors a remark to a character range of the submission text.
type InlineComment struct {
	StartIndex  int       `json:"start_index"`
	EndIndex    int       `json:"end_index"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	AIGenerated bool      `json:"ai_generated"`
}

// AICheckResult is the advisory human-likelihood estimate for the submission text.
type AICheckResult struct {
	Score      float64  `json:"score"`
	Confidence string   `json:"confidence"`
	Details    []string `json:"details"`
}

// PlagiarismMatch describes a passage that overlaps with a reference source.
type PlagiarismMatch struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

// PlagiarismResult is the advisory originality estimate for the submission text.
type PlagiarismResult struct {
	Score   float64           `json:"score"`
	Matches []PlagiarismMatch `json:"matches"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// HasInlineContent reports whether the text was submitted inline rather than as a file.
func (s Submission) HasInlineContent() bool {
	return s.FileURL == "" && s.Content != ""
}
