package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

// Verdict is the relevance tier assigned to a submission.
type Verdict string

const (
	VerdictHighlyRelevant   Verdict = "HIGHLY_RELEVANT"
	VerdictSomewhatRelevant Verdict = "SOMEWHAT_RELEVANT"
	VerdictOffTopic         Verdict = "OFF_TOPIC"
)

// AssignmentContext is what the classifier knows about the assignment.
type AssignmentContext struct {
	Title       string
	Description string
}

// RelevanceGate decides whether a submission is on topic for its assignment.
type RelevanceGate struct {
	completer ai.Completer
	logger    zerolog.Logger
}

// NewRelevanceGate builds a gate. A nil completer makes every verdict SOMEWHAT_RELEVANT.
func NewRelevanceGate(completer ai.Completer, logger zerolog.Logger) *RelevanceGate {
	return &RelevanceGate{
		completer: completer,
		logger:    logger.With().Str("component", "relevance_gate").Logger(),
	}
}

// Classify returns the verdict for text. It fails open: only an explicit
// OFF_TOPIC answer from the classifier produces a rejection.
func (g *RelevanceGate) Classify(ctx context.Context, assignment AssignmentContext, text string) Verdict {
	if CharCount(strings.TrimSpace(text)) < MinRelevanceLength || g.completer == nil {
		return VerdictSomewhatRelevant
	}

	reply, err := g.completer.Complete(ctx, ai.CompletionRequest{
		System:    relevanceSystemPrompt,
		Prompt:    buildRelevancePrompt(assignment, truncateChars(text, relevanceSnippetLength)),
		MaxTokens: 10,
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("relevance classification failed, defaulting to somewhat relevant")
		return VerdictSomewhatRelevant
	}

	verdict, ok := ParseVerdict(reply)
	if !ok {
		g.logger.Warn().Str("reply", truncateChars(reply, 80)).Msg("unexpected relevance classification")
		return VerdictSomewhatRelevant
	}

	return verdict
}

// ParseVerdict normalises a classifier reply into one of the three tokens.
func ParseVerdict(reply string) (Verdict, bool) {
	token := strings.Trim(strings.TrimSpace(reply), "\"'`.*!:")
	token = strings.ToUpper(strings.TrimSpace(token))
	token = strings.NewReplacer(" ", "_", "-", "_").Replace(token)

	switch Verdict(token) {
	case VerdictHighlyRelevant, VerdictSomewhatRelevant, VerdictOffTopic:
		return Verdict(token), true
	default:
		return "", false
	}
}

const relevanceSystemPrompt = "You screen student submissions. Reply with exactly one token: " +
	"HIGHLY_RELEVANT, SOMEWHAT_RELEVANT or OFF_TOPIC. " +
	"Use OFF_TOPIC only when the work clearly has nothing to do with the assignment."

func buildRelevancePrompt(assignment AssignmentContext, snippet string) string {
	return fmt.Sprintf("Assignment title: %s\nAssignment description: %s\n\nSubmission excerpt:\n%s\n\nClassification:",
		assignment.Title, assignment.Description, snippet)
}
