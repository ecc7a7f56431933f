package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ShortCode   string             `bson:"shortCode"`
	OriginalURL string             `bson:"originalUrl"`
	Title       string             `bson:"title"`
	OwnerID     *string            `bson:"ownerId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	ExpiresAt   *time.Time         `bson:"expiresAt,omitempty"`
	Visits      int64              `bson:"visits"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection("links")}

	err := db.EnsureIndexes(repo.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shortCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_shortCode"),
		},
		{
			Keys:    bson.D{{Key: "originalUrl", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("originalUrl_createdAt"),
		},
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

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	doc := linkDoc{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		OwnerID:     link.OwnerID,
		CreatedAt:   link.CreatedAt.UTC(),
		ExpiresAt:   link.ExpiresAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return links.ErrCodeTaken
		}
		return err
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		link.ID = oid.Hex()
	}
	return nil
}

func (r *LinksRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"shortCode": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *LinksRepository) FindByCode(ctx context.Context, code string) (*links.Link, error) {
	return r.findOne(ctx, bson.M{"shortCode": code})
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, links.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *LinksRepository) FindActiveByOriginalURL(ctx context.Context, url string, now time.Time) (*links.Link, error) {
	filter := bson.M{
		"originalUrl": url,
		"$or":         notExpired(now),
	}

	var doc linkDoc
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})).Decode(&doc)
	if err != nil {
		if noDocuments(err) {
			return nil, links.ErrNotFound
		}
		return nil, err
	}
	return mapLinkDoc(doc), nil
}

func (r *LinksRepository) ListByOwner(ctx context.Context, ownerID string) ([]links.Link, error) {
	cur, err := r.coll.Find(
		ctx,
		bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]links.Link, 0)
	for cur.Next(ctx) {
		var doc linkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *mapLinkDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LinksRepository) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"ownerId":   ownerID,
		"createdAt": bson.M{"$gte": since.UTC()},
	})
}

func (r *LinksRepository) UpdateTitle(ctx context.Context, id, ownerID, title string) (*links.Link, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, links.ErrNotFound
	}

	var doc linkDoc
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "ownerId": ownerID},
		bson.M{"$set": bson.M{"title": title}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if noDocuments(err) {
			return nil, links.ErrNotFound
		}
		return nil, err
	}
	return mapLinkDoc(doc), nil
}

func (r *LinksRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
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

// IncrementVisits is a single server-side $inc.
func (r *LinksRepository) IncrementVisits(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return links.ErrNotFound
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$inc": bson.M{"visits": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) findOne(ctx context.Context, filter bson.M) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if noDocuments(err) {
			return nil, links.ErrNotFound
		}
		return nil, err
	}
	return mapLinkDoc(doc), nil
}

func mapLinkDoc(doc linkDoc) *links.Link {
	return &links.Link{
		ID:          doc.ID.Hex(),
		ShortCode:   doc.ShortCode,
		OriginalURL: doc.OriginalURL,
		Title:       doc.Title,
		OwnerID:     doc.OwnerID,
		CreatedAt:   doc.CreatedAt,
		ExpiresAt:   doc.ExpiresAt,
		Visits:      doc.Visits,
	}
}
