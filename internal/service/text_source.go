package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/extract"
	"github.com/noah-isme/gema-grading-api/internal/models"
)

// TextSource returns the analyzable text of a stored submission.
type TextSource interface {
	Text(ctx context.Context, submission models.Submission) (string, error)
}

type cachedTextSource struct {
	redis    *redis.Client
	ttl      time.Duration
	client   *http.Client
	maxBytes int64
	logger   zerolog.Logger
}

// NewTextSource builds a text source that downloads stored files and caches
// their extracted text in Redis. A nil Redis client disables the cache.
func NewTextSource(redisClient *redis.Client, ttl time.Duration, httpClient *http.Client, maxBytes int64, logger zerolog.Logger) TextSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &cachedTextSource{
		redis:    redisClient,
		ttl:      ttl,
		client:   httpClient,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "text_source").Logger(),
	}
}

func textCacheKey(id uint) string {
	return fmt.Sprintf("submission:text:%d", id)
}

func (s *cachedTextSource) Text(ctx context.Context, submission models.Submission) (string, error) {
	if submission.HasInlineContent() {
		return strings.TrimSpace(submission.Content), nil
	}
	if submission.FileURL == "" {
		return "", ErrNoSubmissionText
	}

	key := textCacheKey(submission.ID)
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, redis.Nil):
			s.logger.Warn().Err(err).Str("key", key).Msg("text cache read failed")
		}
	}

	data, err := s.download(ctx, submission.FileURL)
	if err != nil {
		return "", fmt.Errorf("%w: download submission file: %w", ErrStorage, err)
	}

	text, err := extract.Extract(data, submission.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSubmissionText, err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, text, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("text cache write failed")
		}
	}

	return text, nil
}

func (s *cachedTextSource) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.maxBytes)
	}

	return data, nil
}
