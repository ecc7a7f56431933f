package mongo

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// objectID parses a hex id coming from a URL. Malformed ids are treated the
// same as unknown ones by every repository.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func noDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// notExpired matches documents without expiry or expiring at or after now.
func notExpired(now time.Time) bson.A {
	return bson.A{
		bson.M{"expiresAt": bson.M{"$exists": false}},
		bson.M{"expiresAt": nil},
		bson.M{"expiresAt": bson.M{"$gte": now.UTC()}},
	}
}
