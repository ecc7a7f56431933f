// Package messaging moves visit events between the outbox and Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/events"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OutboxEntry is one claimed outbox row.
type OutboxEntry struct {
	ID          string
	Event       events.VisitRecorded
	TraceParent string
	TraceState  string
	Baggage     string
	Attempts    int
}

type OutboxStore interface {
	ClaimPending(ctx context.Context, now time.Time, limit int, workerID string, lease time.Duration) ([]OutboxEntry, error)
	MarkSent(ctx context.Context, id, workerID string) error
	MarkRetry(ctx context.Context, id, workerID, lastError string, nextAttemptAt time.Time) error
}

// Writer is satisfied by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type RelayOptions struct {
	WorkerID     string
	Topic        string
	BatchSize    int
	Lease        time.Duration
	WriteTimeout time.Duration
	RetryBase    time.Duration
	RetryMax     time.Duration
}

// Relay publishes claimed outbox entries, retrying failures with
// exponential backoff.
type Relay struct {
	store  OutboxStore
	writer Writer
	opts   RelayOptions
	now    func() time.Time
}

func NewRelay(store OutboxStore, writer Writer, opts RelayOptions) *Relay {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Lease <= 0 {
		opts.Lease = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = opts.RetryBase
	}
	return &Relay{store: store, writer: writer, opts: opts, now: time.Now}
}

// ProcessBatch returns how many entries were published.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	batch, err := r.store.ClaimPending(ctx, r.now().UTC(), r.opts.BatchSize, r.opts.WorkerID, r.opts.Lease)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, entry := range batch {
		if r.publish(ctx, entry) {
			processed++
		}
	}
	return processed, nil
}

func (r *Relay) publish(ctx context.Context, entry OutboxEntry) bool {
	value, err := json.Marshal(entry.Event)
	if err != nil {
		logger.Error("failed to marshal outbox event", zap.Error(err), zap.String("outbox_id", entry.ID))
		r.retry(ctx, entry, err)
		return false
	}

	carrier := entryCarrier(entry)
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
	producerCtx, span := otel.Tracer("outbox-relay").Start(
		parentCtx,
		"kafka.publish.visit_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", r.opts.Topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.message.id", entry.Event.EventID),
			attribute.String("messaging.kafka.message_key", entry.Event.LinkID),
		),
	)
	defer span.End()
	otel.GetTextMapPropagator().Inject(producerCtx, carrier)

	writeCtx, cancel := context.WithTimeout(producerCtx, r.opts.WriteTimeout)
	err = r.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(entry.Event.LinkID),
		Value:   value,
		Time:    entry.Event.OccurredAt.UTC(),
		Headers: carrierToHeaders(carrier),
	})
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		delay := r.retry(ctx, entry, err)
		logger.Warn("failed to publish outbox event",
			zap.Error(err),
			zap.String("event_id", entry.Event.EventID),
			zap.Duration("retry_in", delay),
		)
		return false
	}

	if err := r.store.MarkSent(ctx, entry.ID, r.opts.WorkerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark sent failed")
		logger.Error("failed to mark outbox event as sent", zap.Error(err), zap.String("outbox_id", entry.ID))
		return false
	}
	return true
}

func (r *Relay) retry(ctx context.Context, entry OutboxEntry, cause error) time.Duration {
	delay := BackoffDelay(r.opts.RetryBase, r.opts.RetryMax, entry.Attempts+1)
	if err := r.store.MarkRetry(ctx, entry.ID, r.opts.WorkerID, truncateErr(cause), r.now().UTC().Add(delay)); err != nil {
		logger.Error("failed to mark outbox retry", zap.Error(err), zap.String("outbox_id", entry.ID))
	}
	return delay
}

// BackoffDelay doubles base per attempt, capped at max.
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}

func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > 1000 {
		return msg[:1000]
	}
	return msg
}
