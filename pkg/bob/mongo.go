package bob

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Store on a MongoDB database. The write
// primitives map onto update operators: field merge -> $set,
// DeleteField -> $unset, ServerTimestamp -> $currentDate.
type MongoStore struct {
	db *mongo.Database
}

// Connect dials the database and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging document store: %w", err)
	}
	return &MongoStore{db: client.Database(database)}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func (s *MongoStore) TasksByOwner(ctx context.Context, owner string) ([]Document, error) {
	return s.find(ctx, Tasks, bson.M{"ownerId": owner})
}

func (s *MongoStore) StoriesByOwner(ctx context.Context, owner string) ([]Document, error) {
	return s.find(ctx, Stories, bson.M{"ownerId": owner})
}

func (s *MongoStore) GoalsByIDs(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, Goals, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) SprintsByIDs(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, Sprints, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) find(ctx context.Context, collection string, filter bson.M) ([]Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("reading %s cursor: %w", collection, err)
	}
	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, toDocument(m))
	}
	return docs, nil
}

func (s *MongoStore) ApplyBatch(ctx context.Context, collection string, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.ID}).
			SetUpdate(buildUpdate(u.Set)))
	}
	if _, err := s.db.Collection(collection).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("batch update on %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Merge(ctx context.Context, collection, id string, set map[string]any) error {
	if _, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, buildUpdate(set)); err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	return nil
}

// buildUpdate splits a field map into update operators, resolving the
// write sentinels.
func buildUpdate(fields map[string]any) bson.M {
	set := bson.M{}
	unset := bson.M{}
	current := bson.M{}
	for k, v := range fields {
		switch v {
		case ServerTimestamp:
			current[k] = true
		case DeleteField:
			unset[k] = ""
		default:
			set[k] = v
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(current) > 0 {
		update["$currentDate"] = current
	}
	return update
}

// toDocument pulls out the document key and normalizes driver types so
// the decoder only ever sees plain Go values.
func toDocument(m bson.M) Document {
	doc := Document{Fields: make(map[string]any, len(m))}
	for k, v := range m {
		if k == "_id" {
			doc.ID = idString(v)
			continue
		}
		doc.Fields[k] = normalizeValue(v)
	}
	return doc
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case bson.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprintf("%v", id)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case bson.DateTime:
		return t.Time().UTC()
	case bson.ObjectID:
		return t.Hex()
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.A:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = normalizeValue(e)
		}
		return a
	default:
		return v
	}
}
