package service

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

const (
	aiCommentAuthor     = "AI Assistant"
	feedbackPromptChars = 12000
	feedbackMaxTokens   = 1200
	feedbackTemperature = 0.3
)

// FeedbackService turns model responses into structured feedback.
type FeedbackService interface {
	Analyze(ctx context.Context, payload dto.FeedbackAnalyzeRequest) (dto.FeedbackAnalysisResponse, error)
	Generate(ctx context.Context, submissionID uint) (dto.FeedbackGenerationResponse, error)
}

type feedbackService struct {
	submissions repository.SubmissionRepository
	texts       TextSource
	completer   ai.Completer
	publisher   EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewFeedbackService constructs the feedback service. A nil completer limits it to Analyze.
func NewFeedbackService(
	submissionRepo repository.SubmissionRepository,
	texts TextSource,
	completer ai.Completer,
	publisher EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) FeedbackService {
	return &feedbackService{
		submissions: submissionRepo,
		texts:       texts,
		completer:   completer,
		publisher:   publisher,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "feedback_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/feedback"),
		now:         time.Now,
	}
}

func (s *feedbackService) Analyze(ctx context.Context, payload dto.FeedbackAnalyzeRequest) (dto.FeedbackAnalysisResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackAnalysisResponse{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	result := analysis.Analyze(payload.Text, payload.Response)
	comments := make([]dto.LocatedCommentResponse, 0, len(result.InlineComments))
	for _, comment := range result.InlineComments {
		comments = append(comments, dto.LocatedCommentResponse{
			StartIndex: comment.Start,
			EndIndex:   comment.End,
			Text:       comment.Text,
		})
	}

	return dto.FeedbackAnalysisResponse{
		OverallFeedback: result.OverallFeedback,
		InlineComments:  comments,
	}, nil
}

func (s *feedbackService) Generate(ctx context.Context, submissionID uint) (dto.FeedbackGenerationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.generate", trace.WithAttributes(
		attribute.Int64("feedback.submission_id", int64(submissionID)),
	))
	defer span.End()

	if s.completer == nil {
		observability.FeedbackGenerations().WithLabelValues("unavailable").Inc()
		span.SetStatus(codes.Error, "no_completer")
		return dto.FeedbackGenerationResponse{}, ErrFeedbackUnavailable
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackGenerationResponse{}, ErrSubmissionNotFound
		}
		return dto.FeedbackGenerationResponse{}, err
	}

	text, err := s.texts.Text(ctx, submission)
	if err != nil {
		observability.FeedbackGenerations().WithLabelValues("no_text").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "text_unavailable")
		return dto.FeedbackGenerationResponse{}, err
	}
	if strings.TrimSpace(text) == "" {
		observability.FeedbackGenerations().WithLabelValues("no_text").Inc()
		return dto.FeedbackGenerationResponse{}, ErrNoSubmissionText
	}

	reply, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:      feedbackSystemPrompt,
		Prompt:      buildFeedbackPrompt(submission.Assignment, text),
		MaxTokens:   feedbackMaxTokens,
		Temperature: feedbackTemperature,
	})
	if err != nil {
		observability.FeedbackGenerations().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion_failed")
		return dto.FeedbackGenerationResponse{}, fmt.Errorf("%w: %w", ErrFeedbackUnavailable, err)
	}

	block := analysis.ParseFeedback(reply)
	located := analysis.LocateComments(block.Comments, text)

	now := s.now()
	comments := humanComments(submission.InlineComments)
	for _, comment := range located {
		cleaned := strings.TrimSpace(s.sanitizer.Sanitize(comment.Text))
		if cleaned == "" {
			continue
		}
		comments = append(comments, models.InlineComment{
			StartIndex:  comment.Start,
			EndIndex:    comment.End,
			Text:        cleaned,
			Author:      aiCommentAuthor,
			CreatedAt:   now,
			AIGenerated: true,
		})
	}

	overall := models.OverallFeedback{
		Strengths:    strings.TrimSpace(s.sanitizer.Sanitize(block.Strengths)),
		Improvements: strings.TrimSpace(s.sanitizer.Sanitize(block.Improvements)),
		ActionItems:  strings.TrimSpace(s.sanitizer.Sanitize(block.ActionItems)),
	}
	submission.OverallFeedback = &overall
	submission.InlineComments = comments

	if err := s.submissions.Update(ctx, &submission); err != nil {
		observability.FeedbackGenerations().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.FeedbackGenerationResponse{}, err
	}

	observability.FeedbackGenerations().WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Int("feedback.raw_comments", len(block.Comments)),
		attribute.Int("feedback.located_comments", len(located)),
	)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Int("raw_comments", len(block.Comments)).
		Int("located_comments", len(located)).
		Msg("ai feedback generated")

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.Event{
			Type:         events.FeedbackGenerated,
			SubmissionID: submission.ID,
			AssignmentID: submission.AssignmentID,
			StudentID:    submission.StudentID,
			OccurredAt:   now.UTC(),
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish feedback event")
		}
	}

	return dto.FeedbackGenerationResponse{
		SubmissionID:    submission.ID,
		OverallFeedback: overall,
		InlineComments:  comments,
		LocatedCount:    len(located),
		DroppedCount:    len(block.Comments) - len(located),
	}, nil
}

const feedbackSystemPrompt = `You are a supportive teacher reviewing a student's submission. Answer in exactly this format:

STRENGTHS:
- <strength>
IMPROVEMENTS:
- <improvement>
ACTION ITEMS:
- <action item>
INLINE COMMENTS:
---
QUOTE: "<exact text copied from the submission>"
COMMENT: "<your comment>"
---

Quotes must be copied verbatim from the submission and listed in the order they appear.`

func buildFeedbackPrompt(assignment models.Assignment, text string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Assignment: %s\n", assignment.Title)
	if description := strings.TrimSpace(assignment.Description); description != "" {
		fmt.Fprintf(&builder, "Instructions: %s\n", description)
	}
	builder.WriteString("\nSubmission:\n")
	builder.WriteString(truncateRunes(text, feedbackPromptChars))
	return builder.String()
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
