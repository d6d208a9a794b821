package mongostore

import (
	"context"
	"errors"
	"time"

	"skill-registry/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (T, error) {
	var result T
	if err := col.FindOne(ctx, filter).Decode(&result); err != nil {
		return result, wrapError(err)
	}
	return result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// findOneAndUpdate applies update and decodes the document after it.
func findOneAndUpdate[T any](ctx context.Context, col *mongo.Collection, filter, update bson.D, upsert bool) (T, error) {
	var result T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if upsert {
		opts.SetUpsert(true)
	}
	if err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return result, wrapError(err)
	}
	return result, nil
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string) (bool, error) {
	res, err := col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, wrapError(err)
	}
	return res.DeletedCount > 0, nil
}

func exists(ctx context.Context, col *mongo.Collection, filter bson.D) (bool, error) {
	n, err := col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, wrapError(err)
	}
	return n > 0, nil
}

// missingIDs returns the ids in want with no document in col.
func missingIDs(ctx context.Context, col *mongo.Collection, want []uuid.UUID) ([]uuid.UUID, error) {
	if len(want) == 0 {
		return nil, nil
	}
	type idDoc struct {
		ID string `bson:"_id"`
	}
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}})
	docs, err := findMany[idDoc](ctx, col, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: idStrings(want)}}}}, opts)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		found[d.ID] = struct{}{}
	}
	var missing []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(want))
	for _, id := range want {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := found[id.String()]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// parseID maps a stored id back to a uuid. Ids are only ever written by this
// package, so a malformed one decodes to uuid.Nil.
func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseOptionalID(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := parseID(*s)
	return &id
}

func optionalIDString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseIDs(ss []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		out = append(out, parseID(s))
	}
	return out
}
