package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// GeminiConfig defines configuration options for the Gemini completer.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// GeminiCompleter implements Completer against Google's Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiCompleter dials the Gemini API. Close releases the underlying connection.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &GeminiCompleter{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-grading-api/pkg/ai/gemini"),
		logger: logger.With().Str("component", "gemini_completer").Logger(),
	}, nil
}

// Complete sends the prompt to Gemini and concatenates the text parts of the first candidate.
func (c *GeminiCompleter) Complete(parent context.Context, req CompletionRequest) (string, error) {
	ctx, span := c.tracer.Start(parent, "gemini.complete", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.Bool("json", req.JSON),
	))
	defer span.End()

	// GenerativeModel carries per-request settings, so one is built per call.
	model := c.client.GenerativeModel(c.cfg.Model)
	configureGeminiModel(model, c.cfg, req)

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	completionDuration.WithLabelValues("gemini", c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues("gemini", c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("gemini complete: %w", err)
	}

	content, err := geminiResponseText(resp)
	if err != nil {
		completionFailures.WithLabelValues("gemini", c.cfg.Model).Inc()
		span.SetStatus(codes.Error, "empty content")
		return "", fmt.Errorf("gemini complete: %w", err)
	}

	return content, nil
}

func configureGeminiModel(model *genai.GenerativeModel, cfg GeminiConfig, req CompletionRequest) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = cfg.MaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	temperature := req.Temperature
	if temperature == 0 {
		temperature = cfg.Temperature
	}
	model.SetTemperature(temperature)

	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
}

// geminiResponseText concatenates the text parts of the first candidate.
func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	var builder strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}

	content := strings.TrimSpace(builder.String())
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// Close releases the Gemini client.
func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}
