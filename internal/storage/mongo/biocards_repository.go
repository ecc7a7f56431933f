package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/biocards"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BioCardsRepository struct {
	coll *mongo.Collection
}

type bioCardDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID   string             `bson:"ownerId"`
	Slug      string             `bson:"slug"`
	Title     string             `bson:"title"`
	Bio       string             `bson:"bio,omitempty"`
	Links     []cardLinkDoc      `bson:"links"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type cardLinkDoc struct {
	Label string `bson:"label"`
	URL   string `bson:"url"`
}

func NewBioCardsRepository(m *db.Mongo) (*BioCardsRepository, error) {
	repo := &BioCardsRepository{coll: m.Collection("bio_cards")}

	err := db.EnsureIndexes(repo.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_slug"),
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

func (r *BioCardsRepository) Insert(ctx context.Context, c *biocards.Card) error {
	res, err := r.coll.InsertOne(ctx, toBioCardDoc(c))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return biocards.ErrSlugTaken
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid.Hex()
	}
	return nil
}

func (r *BioCardsRepository) Update(ctx context.Context, c *biocards.Card) error {
	oid, ok := objectID(c.ID)
	if !ok {
		return biocards.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "ownerId": c.OwnerID},
		bson.M{"$set": bson.M{
			"slug":      c.Slug,
			"title":     c.Title,
			"bio":       c.Bio,
			"links":     toCardLinkDocs(c.Links),
			"updatedAt": c.UpdatedAt.UTC(),
		}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return biocards.ErrSlugTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return biocards.ErrNotFound
	}
	return nil
}

func (r *BioCardsRepository) FindByID(ctx context.Context, id string) (*biocards.Card, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, biocards.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *BioCardsRepository) FindBySlug(ctx context.Context, slug string) (*biocards.Card, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *BioCardsRepository) ListByOwner(ctx context.Context, ownerID string) ([]biocards.Card, error) {
	cur, err := r.coll.Find(ctx, bson.M{"ownerId": ownerID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bioCardDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]biocards.Card, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *mapBioCardDoc(doc))
	}
	return out, nil
}

func (r *BioCardsRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
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

func (r *BioCardsRepository) findOne(ctx context.Context, filter bson.M) (*biocards.Card, error) {
	var doc bioCardDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if noDocuments(err) {
			return nil, biocards.ErrNotFound
		}
		return nil, err
	}
	return mapBioCardDoc(doc), nil
}

func toBioCardDoc(c *biocards.Card) bioCardDoc {
	return bioCardDoc{
		OwnerID:   c.OwnerID,
		Slug:      c.Slug,
		Title:     c.Title,
		Bio:       c.Bio,
		Links:     toCardLinkDocs(c.Links),
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func toCardLinkDocs(in []biocards.CardLink) []cardLinkDoc {
	out := make([]cardLinkDoc, len(in))
	for i, l := range in {
		out[i] = cardLinkDoc{Label: l.Label, URL: l.URL}
	}
	return out
}

func mapBioCardDoc(doc bioCardDoc) *biocards.Card {
	links := make([]biocards.CardLink, len(doc.Links))
	for i, l := range doc.Links {
		links[i] = biocards.CardLink{Label: l.Label, URL: l.URL}
	}
	return &biocards.Card{
		ID:        doc.ID.Hex(),
		OwnerID:   doc.OwnerID,
		Slug:      doc.Slug,
		Title:     doc.Title,
		Bio:       doc.Bio,
		Links:     links,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
