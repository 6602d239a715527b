package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var essayAssignment = AssignmentContext{Title: "Water cycle", Description: "Explain evaporation and condensation."}

func TestClassifySkipsShortText(t *testing.T) {
	completer := &fakeCompleter{reply: "OFF_TOPIC"}
	gate := NewRelevanceGate(completer, zerolog.Nop())

	require.Equal(t, VerdictSomewhatRelevant, gate.Classify(context.Background(), essayAssignment, "too short"))
	require.Zero(t, completer.calls())
}

func TestClassifyTruncatesSnippet(t *testing.T) {
	completer := &fakeCompleter{reply: "HIGHLY_RELEVANT"}
	gate := NewRelevanceGate(completer, zerolog.Nop())
	text := strings.Repeat("a", 499) + "Z" + strings.Repeat("b", 100)

	require.Equal(t, VerdictHighlyRelevant, gate.Classify(context.Background(), essayAssignment, text))
	require.Equal(t, 1, completer.calls())
	prompt := completer.requests[0].Prompt
	require.Contains(t, prompt, "Water cycle")
	require.Contains(t, prompt, strings.Repeat("a", 499)+"Z")
	require.NotContains(t, prompt, "Zb")
}

func TestClassifyFailsOpen(t *testing.T) {
	text := "Evaporation moves water from oceans into the air."

	cases := map[string]*fakeCompleter{
		"error":      {err: errors.New("timeout")},
		"unexpected": {reply: "MAYBE"},
		"empty":      {reply: ""},
	}
	for name, completer := range cases {
		t.Run(name, func(t *testing.T) {
			gate := NewRelevanceGate(completer, zerolog.Nop())
			require.Equal(t, VerdictSomewhatRelevant, gate.Classify(context.Background(), essayAssignment, text))
		})
	}
}

func TestClassifyWithoutCompleter(t *testing.T) {
	gate := NewRelevanceGate(nil, zerolog.Nop())
	require.Equal(t, VerdictSomewhatRelevant, gate.Classify(context.Background(), essayAssignment, strings.Repeat("x", 100)))
}

func TestClassifyOffTopic(t *testing.T) {
	gate := NewRelevanceGate(&fakeCompleter{reply: " off-topic.\n"}, zerolog.Nop())
	require.Equal(t, VerdictOffTopic, gate.Classify(context.Background(), essayAssignment, "A recipe for chocolate cake with frosting."))
}

func TestParseVerdict(t *testing.T) {
	cases := map[string]Verdict{
		"HIGHLY_RELEVANT":       VerdictHighlyRelevant,
		"\"somewhat relevant\"": VerdictSomewhatRelevant,
		"**OFF_TOPIC**":         VerdictOffTopic,
		"Off-Topic.":            VerdictOffTopic,
		"`HIGHLY-RELEVANT`":     VerdictHighlyRelevant,
	}
	for reply, expected := range cases {
		verdict, ok := ParseVerdict(reply)
		require.True(t, ok, reply)
		require.Equal(t, expected, verdict, reply)
	}

	_, ok := ParseVerdict("The submission is off topic")
	require.False(t, ok)
}
