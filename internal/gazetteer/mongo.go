package gazetteer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is the default collection holding gazetteer documents.
const MongoCollection = "gazetteer"

type mongoEntry struct {
	Name     string `bson:"name"`
	Category string `bson:"category"`
}

// MongoSource loads gazetteer documents {name, category} from a collection.
type MongoSource struct {
	Collection *mongo.Collection
}

// NewMongoSource returns a source over db.gazetteer.
func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{Collection: db.Collection(MongoCollection)}
}

// Load reads every document; documents with an unknown category are kept and
// skipped later by the store.
func (s *MongoSource) Load(ctx context.Context) ([]Entry, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 0, "name": 1, "category": 1})
	cursor, err := s.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query gazetteer collection: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []Entry
	for cursor.Next(ctx) {
		var doc mongoEntry
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode gazetteer document: %w", err)
		}
		c, err := ParseCategory(doc.Category)
		if err != nil {
			c = Category(doc.Category)
		}
		entries = append(entries, Entry{Name: doc.Name, Category: c})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("read gazetteer collection: %w", err)
	}
	return entries, nil
}

// InsertEntries replaces the collection contents with entries in batches.
func (s *MongoSource) InsertEntries(ctx context.Context, entries []Entry, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if _, err := s.Collection.DeleteMany(ctx, bson.M{}); err != nil {
		return 0, fmt.Errorf("clear gazetteer collection: %w", err)
	}

	_, err := s.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{bson.E{Key: "category", Value: 1}, bson.E{Key: "name", Value: 1}},
	})
	if err != nil {
		return 0, fmt.Errorf("create gazetteer index: %w", err)
	}

	inserted := 0
	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		docs := make([]interface{}, 0, end-i)
		for _, e := range entries[i:end] {
			docs = append(docs, mongoEntry{Name: e.Name, Category: string(e.Category)})
		}
		res, err := s.Collection.InsertMany(ctx, docs)
		if err != nil {
			return inserted, fmt.Errorf("insert gazetteer batch %d-%d: %w", i, end, err)
		}
		inserted += len(res.InsertedIDs)
	}
	return inserted, nil
}
