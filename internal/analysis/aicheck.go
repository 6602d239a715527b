package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

const aiCheckSchema = `{
	"type": "object",
	"required": ["score", "confidence"],
	"properties": {
		"score": {"type": "number"},
		"confidence": {"type": "string"}
	}
}`

var aiCheckReplySchema = jsonschema.MustCompileString("ai_check_reply.json", aiCheckSchema)

// AIChecker estimates how likely a text is human-written.
type AIChecker struct {
	completer ai.Completer
}

// NewAIChecker builds a checker around a text completer.
func NewAIChecker(completer ai.Completer) *AIChecker {
	return &AIChecker{completer: completer}
}

// Check returns the estimate or an error when the model reply is unusable.
func (c *AIChecker) Check(ctx context.Context, text string) (*models.AICheckResult, error) {
	if c.completer == nil {
		return nil, fmt.Errorf("ai check: no completer configured")
	}

	reply, err := c.completer.Complete(ctx, ai.CompletionRequest{
		System:    aiCheckSystemPrompt,
		Prompt:    truncateChars(text, aiCheckSnippetLength),
		MaxTokens: 60,
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("ai check: %w", err)
	}

	return ParseAICheckReply(reply)
}

// ParseAICheckReply validates a `{score, confidence}` JSON reply.
func ParseAICheckReply(reply string) (*models.AICheckResult, error) {
	payload := stripCodeFence(reply)

	var raw interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("ai check: parse reply: %w", err)
	}
	if err := aiCheckReplySchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("ai check: invalid reply: %w", err)
	}

	var data struct {
		Score      float64 `json:"score"`
		Confidence string  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("ai check: decode reply: %w", err)
	}

	score := math.Max(0, math.Min(100, data.Score))

	return &models.AICheckResult{
		Score:      score,
		Confidence: strings.TrimSpace(data.Confidence),
		Details:    []string{},
	}, nil
}

func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

const aiCheckSystemPrompt = "Estimate how likely the following student text was written by a human rather than generated by AI. " +
	`Respond only with JSON: {"score": <0-100, 100 means certainly human>, "confidence": "low" | "medium" | "high"}.`
