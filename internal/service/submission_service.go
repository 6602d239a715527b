package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/analysis"
	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/events"
	"github.com/noah-isme/gema-grading-api/internal/extract"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/pkg/cloudinary"
)

const unknownStudentName = "Unknown Student"

// FileStorage persists uploaded files and removes them again.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (cloudinary.StoredFile, error)
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// RelevanceClassifier decides whether a text addresses an assignment.
type RelevanceClassifier interface {
	Classify(ctx context.Context, assignment analysis.AssignmentContext, text string) analysis.Verdict
}

// SubmissionScorer runs the advisory checks on a text.
type SubmissionScorer interface {
	Score(ctx context.Context, input analysis.ScoringInput) analysis.ScoreResult
}

// EventPublisher broadcasts submission lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// SubmissionDraft is one incoming submission. Exactly one of File or Content is set.
type SubmissionDraft struct {
	File         []byte
	FileName     string
	AssignmentID uint   `validate:"required,gt=0"`
	StudentID    uint   `validate:"required,gt=0"`
	StudentName  string `validate:"max=255"`
	Content      string
}

// SubmissionService ingests, lists and grades submissions.
type SubmissionService interface {
	Submit(ctx context.Context, draft SubmissionDraft) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, id uint, payload dto.GradeSubmissionRequest, graderID uint) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	storage     FileStorage
	gate        RelevanceClassifier
	scorer      SubmissionScorer
	publisher   EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. The publisher may be nil.
func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	studentRepo repository.StudentRepository,
	storage FileStorage,
	gate RelevanceClassifier,
	scorer SubmissionScorer,
	publisher EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissionRepo,
		assignments: assignmentRepo,
		students:    studentRepo,
		storage:     storage,
		gate:        gate,
		scorer:      scorer,
		publisher:   publisher,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/submission"),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, draft SubmissionDraft) (response dto.SubmissionResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(draft.AssignmentID)),
		attribute.Int64("submission.student_id", int64(draft.StudentID)),
		attribute.Bool("submission.inline", len(draft.File) == 0),
	))
	defer span.End()

	if err := s.validateDraft(draft); err != nil {
		observability.SubmissionOutcomes().WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, draft.AssignmentID)
	if err != nil {
		observability.SubmissionOutcomes().WithLabelValues("invalid").Inc()
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "assignment_not_found")
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		span.SetStatus(codes.Error, "assignment_lookup_failed")
		return dto.SubmissionResponse{}, fmt.Errorf("load assignment: %w", err)
	}

	var stored cloudinary.StoredFile
	scope := newCompensationScope(s.logger.With().Uint("assignment_id", draft.AssignmentID).Uint("student_id", draft.StudentID).Logger())

	if len(draft.File) > 0 {
		stepStart := time.Now()
		stored, err = s.storage.Upload(ctx, draft.FileName, bytes.NewReader(draft.File))
		observability.PipelineStepDuration().WithLabelValues("upload").Observe(time.Since(stepStart).Seconds())
		if err != nil {
			observability.SubmissionOutcomes().WithLabelValues("storage_error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "upload_failed")
			return dto.SubmissionResponse{}, fmt.Errorf("%w: %w", ErrStorage, err)
		}

		scope.Register("destroy_upload", func(ctx context.Context) error {
			return s.storage.Destroy(ctx, stored.PublicID, stored.ResourceType)
		})
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error().Interface("panic", recovered).Msg("submission pipeline panicked")
			response = dto.SubmissionResponse{}
			err = fmt.Errorf("%w: unexpected panic: %v", ErrSubmissionFailed, recovered)
		}
		if err == nil {
			return
		}

		reason := "failed"
		outcome := "failed"
		if errors.Is(err, ErrSubmissionRejected) {
			reason = "rejected"
			outcome = "rejected"
		}
		scope.Close(ctx, reason)
		observability.SubmissionOutcomes().WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}()

	return s.process(ctx, draft, assignment, stored, scope)
}

func (s *submissionService) process(ctx context.Context, draft SubmissionDraft, assignment models.Assignment, stored cloudinary.StoredFile, scope *compensationScope) (dto.SubmissionResponse, error) {
	text, extractErr := s.submissionText(draft)
	metadata := map[string]interface{}{
		"text_length": analysis.CharCount(text),
	}
	if extractErr != nil {
		metadata["extraction_error"] = extractErr.Error()
		observability.ExtractionFailures().WithLabelValues(string(extract.Detect(draft.FileName))).Inc()
		s.logger.Warn().Err(extractErr).Str("file_name", draft.FileName).Msg("text extraction failed, continuing without text")
	}

	stepStart := time.Now()
	verdict := s.gate.Classify(ctx, analysis.AssignmentContext{Title: assignment.Title, Description: assignment.Description}, text)
	observability.PipelineStepDuration().WithLabelValues("relevance").Observe(time.Since(stepStart).Seconds())
	observability.RelevanceVerdicts().WithLabelValues(string(verdict)).Inc()
	metadata["relevance"] = string(verdict)

	if verdict == analysis.VerdictOffTopic {
		s.logger.Info().Uint("assignment_id", draft.AssignmentID).Uint("student_id", draft.StudentID).Msg("submission rejected as off topic")
		s.publish(ctx, events.Event{
			Type:         events.SubmissionRejected,
			AssignmentID: draft.AssignmentID,
			StudentID:    draft.StudentID,
			Verdict:      string(verdict),
		})
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrSubmissionRejected, RejectionMessage)
	}

	stepStart = time.Now()
	scores := s.scorer.Score(ctx, analysis.ScoringInput{Text: text, AssignmentID: draft.AssignmentID, StudentID: draft.StudentID})
	observability.PipelineStepDuration().WithLabelValues("scoring").Observe(time.Since(stepStart).Seconds())

	now := s.now()
	status := models.SubmissionStatusPending
	if assignment.IsPastDue(now) {
		status = models.SubmissionStatusLate
	}

	submission := models.Submission{
		AssignmentID:        draft.AssignmentID,
		StudentID:           draft.StudentID,
		StudentName:         s.resolveStudentName(ctx, draft),
		SubmittedAt:         now,
		Status:              status,
		FileURL:             stored.URL,
		FileName:            strings.TrimSpace(draft.FileName),
		StoragePublicID:     stored.PublicID,
		StorageResourceType: stored.ResourceType,
		AICheck:             scores.AICheck,
		Plagiarism:          scores.Plagiarism,
		Analysis:            metadata,
	}
	if len(draft.File) == 0 {
		// Stored content is the exact text offsets are counted against.
		submission.Content = text
		submission.FileName = ""
	}

	stepStart = time.Now()
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: persist submission: %w", ErrSubmissionFailed, err)
	}
	observability.PipelineStepDuration().WithLabelValues("persist").Observe(time.Since(stepStart).Seconds())

	// The record now references the stored file.
	scope.Commit()

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to reload submission after create")
		created = submission
		created.Assignment = assignment
	}

	observability.SubmissionOutcomes().WithLabelValues("persisted").Inc()
	s.logger.Info().
		Uint("submission_id", created.ID).
		Str("status", string(created.Status)).
		Str("relevance", string(verdict)).
		Bool("ai_check", created.AICheck != nil).
		Bool("plagiarism", created.Plagiarism != nil).
		Msg("submission created")

	s.publish(ctx, events.Event{
		Type:         events.SubmissionCreated,
		SubmissionID: created.ID,
		AssignmentID: created.AssignmentID,
		StudentID:    created.StudentID,
		Verdict:      string(verdict),
	})

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) validateDraft(draft SubmissionDraft) error {
	if err := s.validator.Struct(draft); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	hasFile := len(draft.File) > 0
	hasContent := strings.TrimSpace(draft.Content) != ""
	switch {
	case !hasFile && !hasContent:
		return fmt.Errorf("%w: a file or inline content is required", ErrValidation)
	case hasFile && hasContent:
		return fmt.Errorf("%w: provide either a file or inline content, not both", ErrValidation)
	case hasFile && strings.TrimSpace(draft.FileName) == "":
		return fmt.Errorf("%w: file name is required", ErrValidation)
	}

	return nil
}

func (s *submissionService) submissionText(draft SubmissionDraft) (string, error) {
	if len(draft.File) == 0 {
		return strings.TrimSpace(draft.Content), nil
	}

	text, err := extract.Extract(draft.File, draft.FileName)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *submissionService) resolveStudentName(ctx context.Context, draft SubmissionDraft) string {
	if name := strings.TrimSpace(s.sanitizer.Sanitize(draft.StudentName)); name != "" {
		return name
	}

	if s.students != nil {
		student, err := s.students.GetByID(ctx, draft.StudentID)
		switch {
		case err == nil && strings.TrimSpace(student.Name) != "":
			return strings.TrimSpace(student.Name)
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			s.logger.Warn().Err(err).Uint("student_id", draft.StudentID).Msg("student profile lookup failed")
		}
	}

	return unknownStudentName
}

func (s *submissionService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to publish submission event")
	}
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	submissions, total, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
		Page:         filter.Page,
		PageSize:     filter.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewSubmissionResponseSlice(submissions), total, nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionService) Grade(ctx context.Context, id uint, payload dto.GradeSubmissionRequest, graderID uint) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.grade", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(id)),
		attribute.Int64("grading.actor_id", int64(graderID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	maxScore := submission.Assignment.EffectiveMaxScore()
	if payload.Score > maxScore+1e-9 {
		span.SetStatus(codes.Error, "score_exceeds_max")
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %.2f > %.2f", ErrScoreExceedsMax, payload.Score, maxScore)
	}

	for _, rubric := range payload.RubricScores {
		if rubric.Score > rubric.MaxScore+1e-9 {
			span.SetStatus(codes.Error, "score_exceeds_max")
			return dto.SubmissionResponse{}, fmt.Errorf("%w: rubric %q", ErrScoreExceedsMax, rubric.Criterion)
		}
	}

	if submission.HasInlineContent() {
		length := analysis.CharCount(strings.TrimSpace(submission.Content))
		for _, comment := range payload.InlineComments {
			if comment.EndIndex > length {
				span.SetStatus(codes.Error, "comment_out_of_range")
				return dto.SubmissionResponse{}, fmt.Errorf("%w: inline comment ends at %d beyond text length %d", ErrValidation, comment.EndIndex, length)
			}
		}
	}

	now := s.now()
	score := math.Round(payload.Score*100) / 100
	submission.Score = &score
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &now
	grader := graderID
	submission.GradedBy = &grader

	if payload.RubricScores != nil {
		rubrics := make([]models.RubricScore, 0, len(payload.RubricScores))
		for _, rubric := range payload.RubricScores {
			rubrics = append(rubrics, models.RubricScore{
				Criterion: strings.TrimSpace(s.sanitizer.Sanitize(rubric.Criterion)),
				Score:     rubric.Score,
				MaxScore:  rubric.MaxScore,
			})
		}
		submission.RubricScores = rubrics
	}

	if payload.OverallFeedback != nil {
		submission.OverallFeedback = &models.OverallFeedback{
			Strengths:    strings.TrimSpace(s.sanitizer.Sanitize(payload.OverallFeedback.Strengths)),
			Improvements: strings.TrimSpace(s.sanitizer.Sanitize(payload.OverallFeedback.Improvements)),
			ActionItems:  strings.TrimSpace(s.sanitizer.Sanitize(payload.OverallFeedback.ActionItems)),
		}
	}

	if payload.InlineComments != nil {
		author := strings.TrimSpace(s.sanitizer.Sanitize(payload.Author))
		if author == "" {
			author = "Instructor"
		}
		comments := aiGeneratedComments(submission.InlineComments)
		for _, comment := range payload.InlineComments {
			comments = append(comments, models.InlineComment{
				StartIndex: comment.StartIndex,
				EndIndex:   comment.EndIndex,
				Text:       strings.TrimSpace(s.sanitizer.Sanitize(comment.Text)),
				Author:     author,
				CreatedAt:  now,
			})
		}
		submission.InlineComments = comments
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(attribute.Float64("grading.score", score))
	s.logger.Info().Uint("submission_id", submission.ID).Float64("score", score).Uint("graded_by", graderID).Msg("submission graded")
	s.publish(ctx, events.Event{
		Type:         events.SubmissionGraded,
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
	})

	return dto.NewSubmissionResponse(submission), nil
}

func aiGeneratedComments(comments []models.InlineComment) []models.InlineComment {
	kept := make([]models.InlineComment, 0, len(comments))
	for _, comment := range comments {
		if comment.AIGenerated {
			kept = append(kept, comment)
		}
	}
	return kept
}

func humanComments(comments []models.InlineComment) []models.InlineComment {
	kept := make([]models.InlineComment, 0, len(comments))
	for _, comment := range comments {
		if !comment.AIGenerated {
			kept = append(kept, comment)
		}
	}
	return kept
}
