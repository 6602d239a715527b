package analysis

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ScoringInput is the text under evaluation plus the assignment it belongs to.
type ScoringInput struct {
	Text         string
	AssignmentID uint
	// StudentID is the author; their own earlier work is not a plagiarism source.
	StudentID uint
}

// ScoreResult carries the advisory checks. Either field may be nil.
type ScoreResult struct {
	AICheck    *models.AICheckResult
	Plagiarism *models.PlagiarismResult
}

// AuthorshipChecker estimates human authorship of a text.
type AuthorshipChecker interface {
	Check(ctx context.Context, text string) (*models.AICheckResult, error)
}

// Scorer runs the authorship and plagiarism checks side by side.
type Scorer struct {
	authorship AuthorshipChecker
	plagiarism PlagiarismChecker
	logger     zerolog.Logger
}

// NewScorer builds a scorer. Nil checkers yield nil results.
func NewScorer(authorship AuthorshipChecker, plagiarism PlagiarismChecker, logger zerolog.Logger) *Scorer {
	return &Scorer{
		authorship: authorship,
		plagiarism: plagiarism,
		logger:     logger.With().Str("component", "scorer").Logger(),
	}
}

// Score runs both checks concurrently and waits for both. A failing check
// resolves to nil and never cancels its sibling.
func (s *Scorer) Score(ctx context.Context, input ScoringInput) ScoreResult {
	var result ScoreResult
	if CharCount(input.Text) < MinScoringLength {
		return result
	}

	// Tasks always return nil so Wait settles both instead of short-circuiting.
	var group errgroup.Group

	if s.authorship != nil {
		group.Go(func() error {
			defer s.recoverCheck("ai_check")
			check, err := s.authorship.Check(ctx, input.Text)
			if err != nil {
				s.logger.Warn().Err(err).Msg("ai authorship check failed")
				return nil
			}
			result.AICheck = check
			return nil
		})
	}

	if s.plagiarism != nil {
		group.Go(func() error {
			defer s.recoverCheck("plagiarism")
			check, err := s.plagiarism.Check(ctx, input)
			if err != nil {
				s.logger.Warn().Err(err).Msg("plagiarism check failed")
				return nil
			}
			result.Plagiarism = check
			return nil
		})
	}

	_ = group.Wait()
	return result
}

// recoverCheck keeps a panicking check from taking down its sibling or the process.
// The check's result stays nil.
func (s *Scorer) recoverCheck(check string) {
	if recovered := recover(); recovered != nil {
		s.logger.Error().Str("check", check).Interface("panic", recovered).Msg("scoring check panicked")
	}
}
