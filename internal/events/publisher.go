package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Type names a submission lifecycle event.
type Type string

const (
	SubmissionCreated  Type = "submission.created"
	SubmissionRejected Type = "submission.rejected"
	SubmissionGraded   Type = "submission.graded"
	FeedbackGenerated  Type = "submission.feedback_generated"
)

// Event is the payload broadcast on the submissions channel.
type Event struct {
	Type         Type      `json:"type"`
	SubmissionID uint      `json:"submission_id,omitempty"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	Verdict      string    `json:"verdict,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher fans events out to Redis pub/sub and NATS. Either transport may be nil.
type Publisher struct {
	redis       *redis.Client
	redisTopic  string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
}

// NewPublisher derives `<base>:submissions` and `<base>.submissions` from channelBase.
func NewPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *Publisher {
	topic := ""
	subject := ""
	if channelBase != "" {
		topic = channelBase + ":submissions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submissions"
	}

	return &Publisher{
		redis:       redisClient,
		redisTopic:  topic,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

// RedisChannel returns the Redis channel events are published on.
func (p *Publisher) RedisChannel() string {
	return p.redisTopic
}

// NATSSubject returns the NATS subject events are published on.
func (p *Publisher) NATSSubject() string {
	return p.natsSubject
}

// Publish sends the event to every configured transport and reports all failures.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var errs []error
	if p.redis != nil && p.redisTopic != "" {
		if err := p.redis.Publish(ctx, p.redisTopic, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis publish: %w", err))
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, fmt.Errorf("nats publish: %w", err))
		}
	}

	if len(errs) == 0 {
		p.logger.Debug().Str("type", string(event.Type)).Uint("submission_id", event.SubmissionID).Msg("event published")
	}

	return errors.Join(errs...)
}
