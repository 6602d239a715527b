package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const plagiarismSample = "The water cycle describes how water evaporates from the surface of the earth and rises into the atmosphere where it cools"

func TestShingleCheckerOriginalText(t *testing.T) {
	checker := NewShingleChecker(stubCorpus{refs: []Reference{
		{Label: "submission #2", Text: "Completely different content about volcanoes erupting lava and ash into the sky above"},
	}})

	result, err := checker.Check(context.Background(), ScoringInput{Text: plagiarismSample, AssignmentID: 1})
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Score)
	require.Empty(t, result.Matches)
}

func TestShingleCheckerDetectsCopiedText(t *testing.T) {
	checker := NewShingleChecker(stubCorpus{refs: []Reference{
		{Label: "submission #3", Text: "Intro. " + plagiarismSample + " and falls as rain."},
		{Label: "submission #4", Text: "how water evaporates from the surface of the earth"},
	}})

	result, err := checker.Check(context.Background(), ScoringInput{Text: plagiarismSample, AssignmentID: 1})
	require.NoError(t, err)
	require.Zero(t, result.Score)
	require.Len(t, result.Matches, 2)
	require.Equal(t, "submission #3", result.Matches[0].Source)
	require.Equal(t, 1.0, result.Matches[0].Similarity)
	require.Equal(t, "the water cycle describes how water evaporates from the surface of the earth and rises into the atmosphere where it cools", result.Matches[0].Text)
	require.Equal(t, "submission #4", result.Matches[1].Source)
	require.Equal(t, "how water evaporates from the surface of the earth", result.Matches[1].Text)
	require.Greater(t, result.Matches[0].Similarity, result.Matches[1].Similarity)
}

func TestShingleCheckerCapsMatches(t *testing.T) {
	refs := make([]Reference, 0, 8)
	for i := 0; i < 8; i++ {
		refs = append(refs, Reference{Label: "copy", Text: plagiarismSample})
	}
	checker := NewShingleChecker(stubCorpus{refs: refs})

	result, err := checker.Check(context.Background(), ScoringInput{Text: plagiarismSample})
	require.NoError(t, err)
	require.Len(t, result.Matches, 5)
}

func TestShingleCheckerCorpusError(t *testing.T) {
	checker := NewShingleChecker(stubCorpus{err: errors.New("db down")})
	_, err := checker.Check(context.Background(), ScoringInput{Text: plagiarismSample})
	require.Error(t, err)
}

func TestShingleCheckerWithoutCorpus(t *testing.T) {
	result, err := NewShingleChecker(nil).Check(context.Background(), ScoringInput{Text: plagiarismSample})
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Score)
}
