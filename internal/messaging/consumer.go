package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/events"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Reader is satisfied by *kafka.Reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer applies visit.recorded messages through a VisitRecorder. Offsets
// are committed only after the visit was applied, so delivery is at least
// once and the recorder must be idempotent on EventID.
type Consumer struct {
	reader    Reader
	recorder  links.VisitRecorder
	opTimeout time.Duration
	backoff   time.Duration
	sleep     func(time.Duration)
}

func NewConsumer(reader Reader, recorder links.VisitRecorder, opTimeout, backoff time.Duration) *Consumer {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Consumer{
		reader:    reader,
		recorder:  recorder,
		opTimeout: opTimeout,
		backoff:   backoff,
		sleep:     time.Sleep,
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	tracer := otel.Tracer("visit-consumer")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("failed to fetch kafka message", zap.Error(err))
			c.sleep(c.backoff)
			continue
		}

		consumeCtx, span := tracer.Start(
			ContextFromHeaders(ctx, msg.Headers),
			"kafka.consume.visit_recorded",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
				attribute.String("messaging.operation", "process"),
				attribute.Int("messaging.kafka.partition", msg.Partition),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
			),
		)

		if err := c.Handle(consumeCtx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "process visit event failed")
			logger.Error("failed to process visit event",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			span.End()
			c.sleep(c.backoff)
			continue
		}

		if err := c.reader.CommitMessages(consumeCtx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "commit kafka offset failed")
			logger.Error("failed to commit kafka offset", zap.Error(err), zap.Int64("offset", msg.Offset))
			span.End()
			c.sleep(c.backoff)
			continue
		}
		span.End()
	}
}

// Handle applies one message. Malformed payloads and visits for links that
// no longer exist are dropped; only storage failures are returned.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	var ev events.VisitRecorded
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		logger.Warn("invalid visit event payload, skipping", zap.Error(err), zap.ByteString("payload", msg.Value))
		return nil
	}
	if strings.TrimSpace(ev.EventID) == "" || strings.TrimSpace(ev.LinkID) == "" {
		logger.Warn("visit event missing ids, skipping", zap.String("event_id", ev.EventID))
		return nil
	}

	occurredAt := ev.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = msg.Time.UTC()
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	err := c.recorder.RecordVisit(opCtx, links.VisitEvent{
		EventID:    ev.EventID,
		LinkID:     ev.LinkID,
		Referrer:   ev.Referrer,
		UserAgent:  ev.UserAgent,
		OccurredAt: occurredAt,
	})
	if errors.Is(err, links.ErrNotFound) {
		logger.Info("visit event skipped for missing link",
			zap.String("event_id", ev.EventID),
			zap.String("link_id", ev.LinkID),
		)
		return nil
	}
	return err
}
