package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/unlocker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UnlockersRepository struct {
	coll *mongo.Collection
}

type unlockerDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID        string             `bson:"ownerId"`
	Sequence       []string           `bson:"sequence"`
	DestinationURL string             `bson:"destinationUrl"`
	Title          string             `bson:"title,omitempty"`
	Clicks         int64              `bson:"clicks"`
	Unlocks        int64              `bson:"unlocks"`
	CreatedAt      time.Time          `bson:"createdAt"`
	ExpiresAt      time.Time          `bson:"expiresAt"`
}

func NewUnlockersRepository(m *db.Mongo) (*UnlockersRepository, error) {
	repo := &UnlockersRepository{coll: m.Collection("unlockers")}

	err := db.EnsureIndexes(repo.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("ownerId_createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UnlockersRepository) Insert(ctx context.Context, u *unlocker.Unlocker) error {
	seq := make([]string, len(u.Sequence))
	for i, c := range u.Sequence {
		seq[i] = string(c)
	}

	res, err := r.coll.InsertOne(ctx, unlockerDoc{
		OwnerID:        u.OwnerID,
		Sequence:       seq,
		DestinationURL: u.DestinationURL,
		Title:          u.Title,
		CreatedAt:      u.CreatedAt.UTC(),
		ExpiresAt:      u.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

func (r *UnlockersRepository) FindByID(ctx context.Context, id string) (*unlocker.Unlocker, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, unlocker.ErrNotFound
	}

	var doc unlockerDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if noDocuments(err) {
			return nil, unlocker.ErrNotFound
		}
		return nil, err
	}
	return mapUnlockerDoc(doc), nil
}

func (r *UnlockersRepository) ListByOwner(ctx context.Context, ownerID string) ([]unlocker.Unlocker, error) {
	cur, err := r.coll.Find(ctx, bson.M{"ownerId": ownerID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []unlockerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]unlocker.Unlocker, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *mapUnlockerDoc(doc))
	}
	return out, nil
}

func (r *UnlockersRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "ownerId": ownerID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *UnlockersRepository) IncrementClicks(ctx context.Context, id string) error {
	return r.inc(ctx, id, "clicks")
}

func (r *UnlockersRepository) IncrementUnlocks(ctx context.Context, id string) error {
	return r.inc(ctx, id, "unlocks")
}

func (r *UnlockersRepository) inc(ctx context.Context, id, field string) error {
	oid, ok := objectID(id)
	if !ok {
		return unlocker.ErrNotFound
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return unlocker.ErrNotFound
	}
	return nil
}

func mapUnlockerDoc(doc unlockerDoc) *unlocker.Unlocker {
	seq := make([]unlocker.Color, len(doc.Sequence))
	for i, c := range doc.Sequence {
		seq[i] = unlocker.Color(c)
	}
	return &unlocker.Unlocker{
		ID:             doc.ID.Hex(),
		OwnerID:        doc.OwnerID,
		Sequence:       seq,
		DestinationURL: doc.DestinationURL,
		Title:          doc.Title,
		Clicks:         doc.Clicks,
		Unlocks:        doc.Unlocks,
		CreatedAt:      doc.CreatedAt,
		ExpiresAt:      doc.ExpiresAt,
	}
}
