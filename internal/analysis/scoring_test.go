package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

var longEnough = strings.Repeat("Evaporation and condensation drive the cycle. ", 3)

func TestScoreSkipsShortText(t *testing.T) {
	authorship := &stubAuthorship{result: &models.AICheckResult{Score: 90}}
	plagiarism := &stubPlagiarism{result: &models.PlagiarismResult{Score: 100}}
	scorer := NewScorer(authorship, plagiarism, zerolog.Nop())

	result := scorer.Score(context.Background(), ScoringInput{Text: "ten chars!"})
	require.Nil(t, result.AICheck)
	require.Nil(t, result.Plagiarism)
	require.Zero(t, authorship.calls)
	require.Zero(t, plagiarism.calls)
}

func TestScoreRunsBothChecks(t *testing.T) {
	authorship := &stubAuthorship{result: &models.AICheckResult{Score: 70, Confidence: "medium", Details: []string{}}}
	plagiarism := &stubPlagiarism{result: &models.PlagiarismResult{Score: 95, Matches: []models.PlagiarismMatch{}}}
	scorer := NewScorer(authorship, plagiarism, zerolog.Nop())

	result := scorer.Score(context.Background(), ScoringInput{Text: longEnough, AssignmentID: 4})
	require.Equal(t, 70.0, result.AICheck.Score)
	require.Equal(t, 95.0, result.Plagiarism.Score)
}

func TestScoreSettlesWhenAICheckFails(t *testing.T) {
	authorship := &stubAuthorship{err: errors.New("model unavailable")}
	plagiarism := &stubPlagiarism{result: &models.PlagiarismResult{Score: 88, Matches: []models.PlagiarismMatch{}}}
	scorer := NewScorer(authorship, plagiarism, zerolog.Nop())

	result := scorer.Score(context.Background(), ScoringInput{Text: longEnough})
	require.Nil(t, result.AICheck)
	require.NotNil(t, result.Plagiarism)
	require.Equal(t, 88.0, result.Plagiarism.Score)
	require.Equal(t, 1, plagiarism.calls)
}

func TestScoreSettlesWhenPlagiarismFails(t *testing.T) {
	authorship := &stubAuthorship{result: &models.AICheckResult{Score: 55}}
	plagiarism := &stubPlagiarism{err: errors.New("corpus unavailable")}
	scorer := NewScorer(authorship, plagiarism, zerolog.Nop())

	result := scorer.Score(context.Background(), ScoringInput{Text: longEnough})
	require.NotNil(t, result.AICheck)
	require.Nil(t, result.Plagiarism)
}

func TestScoreWithRealCheckers(t *testing.T) {
	completer := &fakeCompleter{reply: "garbage"}
	scorer := NewScorer(NewAIChecker(completer), NewShingleChecker(stubCorpus{}), zerolog.Nop())

	result := scorer.Score(context.Background(), ScoringInput{Text: longEnough})
	require.Nil(t, result.AICheck)
	require.Equal(t, 100.0, result.Plagiarism.Score)
}

func TestScoreSurvivesPanickingCheck(t *testing.T) {
	plagiarism := &stubPlagiarism{result: &models.PlagiarismResult{Score: 91, Matches: []models.PlagiarismMatch{}}}
	scorer := NewScorer(panickingAuthorship{}, plagiarism, zerolog.Nop())

	var result ScoreResult
	require.NotPanics(t, func() {
		result = scorer.Score(context.Background(), ScoringInput{Text: longEnough})
	})
	require.Nil(t, result.AICheck)
	require.NotNil(t, result.Plagiarism)
	require.Equal(t, 91.0, result.Plagiarism.Score)
	require.Equal(t, 1, plagiarism.calls)
}
