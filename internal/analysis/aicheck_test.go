package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAICheckReply(t *testing.T) {
	result, err := ParseAICheckReply(`{"score": 82.5, "confidence": "high"}`)
	require.NoError(t, err)
	require.Equal(t, 82.5, result.Score)
	require.Equal(t, "high", result.Confidence)
	require.NotNil(t, result.Details)
	require.Empty(t, result.Details)
}

func TestParseAICheckReplyStripsFenceAndClamps(t *testing.T) {
	result, err := ParseAICheckReply("```json\n{\"score\": 140, \"confidence\": \"medium\"}\n```")
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Score)

	result, err = ParseAICheckReply(`{"score": -3, "confidence": "low"}`)
	require.NoError(t, err)
	require.Zero(t, result.Score)
}

func TestParseAICheckReplyRejectsInvalidShapes(t *testing.T) {
	for _, reply := range []string{
		"not json",
		`{"confidence": "high"}`,
		`{"score": "80", "confidence": "high"}`,
		`{"score": 80}`,
		`{"score": 80, "confidence": 3}`,
		`[80, "high"]`,
	} {
		_, err := ParseAICheckReply(reply)
		require.Error(t, err, reply)
	}
}

func TestAICheckerSendsTruncatedTextInJSONMode(t *testing.T) {
	completer := &fakeCompleter{reply: `{"score": 40, "confidence": "low"}`}
	checker := NewAIChecker(completer)

	result, err := checker.Check(context.Background(), strings.Repeat("w", 5000))
	require.NoError(t, err)
	require.Equal(t, 40.0, result.Score)
	require.True(t, completer.requests[0].JSON)
	require.Equal(t, 4000, CharCount(completer.requests[0].Prompt))
}

func TestAICheckerPropagatesFailure(t *testing.T) {
	checker := NewAIChecker(&fakeCompleter{err: errors.New("quota")})
	_, err := checker.Check(context.Background(), "text")
	require.Error(t, err)

	_, err = NewAIChecker(nil).Check(context.Background(), "text")
	require.Error(t, err)
}
