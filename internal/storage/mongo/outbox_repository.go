package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/events"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/messaging"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	outboxCollectionName   = "visit_outbox"
	outboxStatusPending    = "pending"
	outboxStatusProcessing = "processing"
	outboxStatusSent       = "sent"
)

// VisitOutboxRepository stores visit events next to the API's writes so a
// separate worker can publish them. It implements links.VisitRecorder.
type VisitOutboxRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

type outboxDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	EventType     string             `bson:"eventType"`
	EventID       string             `bson:"eventId"`
	LinkID        string             `bson:"linkId"`
	Referrer      string             `bson:"referrer,omitempty"`
	UserAgent     string             `bson:"userAgent,omitempty"`
	OccurredAt    time.Time          `bson:"occurredAt"`
	TraceParent   string             `bson:"traceparent,omitempty"`
	TraceState    string             `bson:"tracestate,omitempty"`
	Baggage       string             `bson:"baggage,omitempty"`
	Status        string             `bson:"status"`
	Attempts      int                `bson:"attempts"`
	NextAttemptAt time.Time          `bson:"nextAttemptAt"`
	ClaimedBy     string             `bson:"claimedBy,omitempty"`
	LeaseUntil    *time.Time         `bson:"leaseUntil,omitempty"`
	LastError     string             `bson:"lastError,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
	SentAt        *time.Time         `bson:"sentAt,omitempty"`
}

func NewVisitOutboxRepository(m *db.Mongo) (*VisitOutboxRepository, error) {
	repo := &VisitOutboxRepository{coll: m.Collection(outboxCollectionName), now: time.Now}

	err := db.EnsureIndexes(repo.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_eventId"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "nextAttemptAt", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("status_nextAttempt_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "sentAt", Value: 1}},
			Options: options.Index().SetName("status_sentAt"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// RecordVisit enqueues ev with the caller's trace context.
func (r *VisitOutboxRepository) RecordVisit(ctx context.Context, ev links.VisitEvent) error {
	if ev.LinkID == "" {
		return links.ErrNotFound
	}

	now := r.now().UTC()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	_, err := r.coll.InsertOne(ctx, outboxDoc{
		EventType:     events.VisitRecordedType,
		EventID:       ev.EventID,
		LinkID:        ev.LinkID,
		Referrer:      ev.Referrer,
		UserAgent:     ev.UserAgent,
		OccurredAt:    ev.OccurredAt.UTC(),
		TraceParent:   carrier.Get("traceparent"),
		TraceState:    carrier.Get("tracestate"),
		Baggage:       carrier.Get("baggage"),
		Status:        outboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// ClaimPending hands out up to limit due entries to workerID. Entries whose
// lease ran out are claimable again, so a crashed worker does not strand them.
func (r *VisitOutboxRepository) ClaimPending(ctx context.Context, now time.Time, limit int, workerID string, lease time.Duration) ([]messaging.OutboxEntry, error) {
	if limit <= 0 {
		limit = 1
	}
	now = now.UTC()
	leaseUntil := now.Add(lease)

	filter := bson.M{"$or": bson.A{
		bson.M{"status": outboxStatusPending, "nextAttemptAt": bson.M{"$lte": now}},
		bson.M{"status": outboxStatusProcessing, "leaseUntil": bson.M{"$lt": now}},
	}}
	update := bson.M{"$set": bson.M{
		"status":     outboxStatusProcessing,
		"claimedBy":  workerID,
		"leaseUntil": leaseUntil,
		"updatedAt":  now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	out := make([]messaging.OutboxEntry, 0, limit)
	for len(out) < limit {
		var doc outboxDoc
		err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if noDocuments(err) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, mapOutboxDoc(doc))
	}
	return out, nil
}

func (r *VisitOutboxRepository) MarkSent(ctx context.Context, id, workerID string) error {
	oid, ok := objectID(id)
	if !ok {
		return links.ErrNotFound
	}
	now := r.now().UTC()
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": oid, "claimedBy": workerID},
		bson.M{
			"$set": bson.M{
				"status":    outboxStatusSent,
				"updatedAt": now,
				"sentAt":    now,
				"lastError": "",
			},
			"$unset": bson.M{"leaseUntil": ""},
		},
	)
	return err
}

func (r *VisitOutboxRepository) MarkRetry(ctx context.Context, id, workerID, lastError string, nextAttemptAt time.Time) error {
	oid, ok := objectID(id)
	if !ok {
		return links.ErrNotFound
	}
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": oid, "claimedBy": workerID},
		bson.M{
			"$set": bson.M{
				"status":        outboxStatusPending,
				"lastError":     lastError,
				"nextAttemptAt": nextAttemptAt.UTC(),
				"updatedAt":     r.now().UTC(),
			},
			"$unset": bson.M{"leaseUntil": "", "claimedBy": ""},
			"$inc":   bson.M{"attempts": 1},
		},
	)
	return err
}

// PurgeSent deletes entries published before cutoff.
func (r *VisitOutboxRepository) PurgeSent(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{
		"status": outboxStatusSent,
		"sentAt": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func mapOutboxDoc(doc outboxDoc) messaging.OutboxEntry {
	return messaging.OutboxEntry{
		ID: doc.ID.Hex(),
		Event: events.VisitRecorded{
			EventID:    doc.EventID,
			LinkID:     doc.LinkID,
			Referrer:   doc.Referrer,
			UserAgent:  doc.UserAgent,
			OccurredAt: doc.OccurredAt,
		},
		TraceParent: doc.TraceParent,
		TraceState:  doc.TraceState,
		Baggage:     doc.Baggage,
		Attempts:    doc.Attempts,
	}
}
