package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/events"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

const feedbackReply = `**STRENGTHS:**
- Uses correct vocabulary
IMPROVEMENTS:
- Mention transpiration
ACTION ITEMS:
1. Add a diagram
INLINE COMMENTS:
---
QUOTE: "condenses into clouds"
COMMENT: "Explain why cooling causes condensation."
---
QUOTE: "a sentence that is not there"
COMMENT: "Dropped"
---
QUOTE: "rain"
COMMENT: "<b>Also</b> snow and hail"
---`

type feedbackFixture struct {
	repo       repository.SubmissionRepository
	completer  *routedCompleter
	publisher  *recordingPublisher
	submission models.Submission
}

func newFeedbackFixture(t *testing.T) (*feedbackFixture, FeedbackService) {
	t.Helper()

	db := setupServiceDB(t)
	ctx := context.Background()

	assignment := models.Assignment{Title: "The water cycle", Description: "Explain the stages.", DueDate: time.Now().Add(time.Hour)}
	require.NoError(t, repository.NewAssignmentRepository(db).Create(ctx, &assignment))

	repo := repository.NewSubmissionRepository(db)
	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    3,
		StudentName:  "Siti",
		SubmittedAt:  time.Now(),
		Status:       models.SubmissionStatusPending,
		Content:      waterCycleEssay,
		InlineComments: []models.InlineComment{
			{StartIndex: 0, EndIndex: 11, Text: "Human remark", Author: "Instructor"},
			{StartIndex: 12, EndIndex: 17, Text: "Stale AI remark", Author: aiCommentAuthor, AIGenerated: true},
		},
	}
	require.NoError(t, repo.Create(ctx, &submission))

	fixture := &feedbackFixture{
		repo:       repo,
		completer:  &routedCompleter{textReply: feedbackReply},
		publisher:  &recordingPublisher{},
		submission: submission,
	}
	svc := NewFeedbackService(repo, NewTextSource(nil, time.Minute, nil, 0, testLogger()), fixture.completer, fixture.publisher, validator.New(), testLogger())
	return fixture, svc
}

func TestFeedbackAnalyzeLocatesComments(t *testing.T) {
	_, svc := newFeedbackFixture(t)

	result, err := svc.Analyze(context.Background(), dto.FeedbackAnalyzeRequest{
		Text:     "A. The sky is blue. B. The sky is blue.",
		Response: "STRENGTHS:\n- Vivid\nINLINE COMMENTS:\nQUOTE: The sky is blue\nCOMMENT: one\n---\nQUOTE: The sky is blue\nCOMMENT: two\n---",
	})
	require.NoError(t, err)
	require.Equal(t, "Vivid", result.OverallFeedback.Strengths)
	require.Equal(t, []dto.LocatedCommentResponse{
		{StartIndex: 3, EndIndex: 18, Text: "one"},
		{StartIndex: 23, EndIndex: 38, Text: "two"},
	}, result.InlineComments)
}

func TestFeedbackAnalyzeRequiresInput(t *testing.T) {
	_, svc := newFeedbackFixture(t)

	_, err := svc.Analyze(context.Background(), dto.FeedbackAnalyzeRequest{Text: "only text"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestFeedbackGenerateReplacesAICommentsOnly(t *testing.T) {
	f, svc := newFeedbackFixture(t)
	ctx := context.Background()

	result, err := svc.Generate(ctx, f.submission.ID)
	require.NoError(t, err)
	require.Equal(t, "Uses correct vocabulary", result.OverallFeedback.Strengths)
	require.Equal(t, "Mention transpiration", result.OverallFeedback.Improvements)
	require.Equal(t, "Add a diagram", result.OverallFeedback.ActionItems)
	require.Equal(t, 2, result.LocatedCount)
	require.Equal(t, 1, result.DroppedCount)

	stored, err := f.repo.GetByID(ctx, f.submission.ID)
	require.NoError(t, err)
	require.Len(t, stored.InlineComments, 3)
	require.Equal(t, "Human remark", stored.InlineComments[0].Text)
	require.False(t, stored.InlineComments[0].AIGenerated)

	located := stored.InlineComments[1]
	require.True(t, located.AIGenerated)
	require.Equal(t, aiCommentAuthor, located.Author)
	require.Equal(t, "condenses into clouds", string([]rune(waterCycleEssay)[located.StartIndex:located.EndIndex]))
	require.Equal(t, "Also snow and hail", stored.InlineComments[2].Text)
	require.Equal(t, "Uses correct vocabulary", stored.OverallFeedback.Strengths)

	require.Equal(t, []events.Type{events.FeedbackGenerated}, f.publisher.types())
	require.Contains(t, f.completer.requests[0].Prompt, "The water cycle")
	require.Contains(t, f.completer.requests[0].Prompt, waterCycleEssay)
}

func TestFeedbackGenerateWithoutCompleter(t *testing.T) {
	f, _ := newFeedbackFixture(t)
	svc := NewFeedbackService(f.repo, NewTextSource(nil, time.Minute, nil, 0, testLogger()), nil, nil, validator.New(), testLogger())

	_, err := svc.Generate(context.Background(), f.submission.ID)
	require.ErrorIs(t, err, ErrFeedbackUnavailable)
}

func TestFeedbackGenerateCompletionFailure(t *testing.T) {
	f, svc := newFeedbackFixture(t)
	f.completer.err = ai.ErrEmptyCompletion

	_, err := svc.Generate(context.Background(), f.submission.ID)
	require.ErrorIs(t, err, ErrFeedbackUnavailable)
	require.True(t, errors.Is(err, ai.ErrEmptyCompletion))
}

func TestFeedbackGenerateUnknownSubmission(t *testing.T) {
	_, svc := newFeedbackFixture(t)

	_, err := svc.Generate(context.Background(), 999)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestFeedbackGenerateWithoutText(t *testing.T) {
	f, svc := newFeedbackFixture(t)
	ctx := context.Background()

	empty := models.Submission{AssignmentID: f.submission.AssignmentID, StudentID: 4, SubmittedAt: time.Now(), Status: models.SubmissionStatusPending}
	require.NoError(t, f.repo.Create(ctx, &empty))

	_, err := svc.Generate(ctx, empty.ID)
	require.ErrorIs(t, err, ErrNoSubmissionText)
	require.Empty(t, f.completer.requests)
}
