package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UsersRepository struct {
	coll *mongo.Collection
}

type userDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	DisplayName      string             `bson:"displayName"`
	PasswordHash     string             `bson:"passwordHash,omitempty"`
	Provider         string             `bson:"provider"`
	MonthlyLinkLimit *int               `bson:"monthlyLinkLimit,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
}

func NewUsersRepository(m *db.Mongo) (*UsersRepository, error) {
	repo := &UsersRepository{coll: m.Collection("users")}

	err := db.EnsureIndexes(repo.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UsersRepository) Insert(ctx context.Context, u *accounts.User) error {
	res, err := r.coll.InsertOne(ctx, userDoc{
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		PasswordHash:     u.PasswordHash,
		Provider:         u.Provider,
		MonthlyLinkLimit: u.MonthlyLinkLimit,
		CreatedAt:        u.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accounts.ErrEmailTaken
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UsersRepository) FindByID(ctx context.Context, id string) (*accounts.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UsersRepository) List(ctx context.Context, limit, offset int) ([]accounts.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]accounts.User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *mapUserDoc(doc))
	}
	return out, nil
}

func (r *UsersRepository) UpdateDisplayName(ctx context.Context, id, name string) (*accounts.User, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"displayName": name}})
}

func (r *UsersRepository) SetMonthlyLinkLimit(ctx context.Context, id string, limit *int) (*accounts.User, error) {
	if limit == nil {
		return r.update(ctx, id, bson.M{"$unset": bson.M{"monthlyLinkLimit": ""}})
	}
	return r.update(ctx, id, bson.M{"$set": bson.M{"monthlyLinkLimit": *limit}})
}

func (r *UsersRepository) update(ctx context.Context, id string, update bson.M) (*accounts.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, accounts.ErrNotFound
	}
	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if noDocuments(err) {
			return nil, accounts.ErrNotFound
		}
		return nil, err
	}
	return mapUserDoc(doc), nil
}

func (r *UsersRepository) findOne(ctx context.Context, filter bson.M) (*accounts.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if noDocuments(err) {
			return nil, accounts.ErrNotFound
		}
		return nil, err
	}
	return mapUserDoc(doc), nil
}

func mapUserDoc(doc userDoc) *accounts.User {
	return &accounts.User{
		ID:               doc.ID.Hex(),
		Email:            doc.Email,
		DisplayName:      doc.DisplayName,
		PasswordHash:     doc.PasswordHash,
		Provider:         doc.Provider,
		MonthlyLinkLimit: doc.MonthlyLinkLimit,
		CreatedAt:        doc.CreatedAt,
	}
}
