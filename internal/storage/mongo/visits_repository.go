package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VisitsRepository is the append-only visit log. The unique eventId index
// makes replays detectable.
type VisitsRepository struct {
	coll *mongo.Collection
}

type visitDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EventID    string             `bson:"eventId"`
	LinkID     string             `bson:"linkId"`
	Referrer   string             `bson:"referrer,omitempty"`
	UserAgent  string             `bson:"userAgent,omitempty"`
	OccurredAt time.Time          `bson:"occurredAt"`
	Applied    bool               `bson:"applied"`
}

func NewVisitsRepository(m *db.Mongo) (*VisitsRepository, error) {
	repo := &VisitsRepository{coll: m.Collection("visits")}

	err := db.EnsureIndexes(repo.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_eventId"),
		},
		{
			Keys:    bson.D{{Key: "linkId", Value: 1}, {Key: "occurredAt", Value: -1}},
			Options: options.Index().SetName("linkId_occurredAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *VisitsRepository) Append(ctx context.Context, ev links.VisitEvent) error {
	_, err := r.coll.InsertOne(ctx, visitDoc{
		EventID:    ev.EventID,
		LinkID:     ev.LinkID,
		Referrer:   ev.Referrer,
		UserAgent:  ev.UserAgent,
		OccurredAt: ev.OccurredAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return links.ErrDuplicateVisit
	}
	return err
}

func (r *VisitsRepository) Applied(ctx context.Context, eventID string) (bool, error) {
	var doc struct {
		Applied bool `bson:"applied"`
	}
	err := r.coll.FindOne(ctx,
		bson.M{"eventId": eventID},
		options.FindOne().SetProjection(bson.M{"applied": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.Applied, nil
}

func (r *VisitsRepository) MarkApplied(ctx context.Context, eventID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"eventId": eventID},
		bson.M{"$set": bson.M{"applied": true}},
	)
	return err
}
