package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// MongoStore persists records as one document per record, keyed by id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (ms *MongoStore) SaveRecord(ctx context.Context, rec *model.Record) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	doc := bson.M{
		"_id":              rec.ID,
		"content":          rec.Content,
		"kind":             rec.Kind,
		"category":         rec.Category,
		"tags":             rec.Tags,
		"metadata":         rec.Metadata,
		"embedding":        rec.Embedding,
		"fingerprint":      rec.Fingerprint,
		"importance":       rec.Importance,
		"created_at":       rec.CreatedAt,
		"last_accessed_at": rec.LastAccessedAt,
		"access_count":     rec.AccessCount,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := ms.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, opts)
	return err
}

func (ms *MongoStore) LoadRecords(ctx context.Context) ([]*model.Record, error) {
	if ms == nil || ms.collection == nil {
		return nil, nil
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := ms.collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []*model.Record
	for cur.Next(ctx) {
		var doc struct {
			ID             string         `bson:"_id"`
			Content        string         `bson:"content"`
			Kind           string         `bson:"kind"`
			Category       string         `bson:"category"`
			Tags           []string       `bson:"tags"`
			Metadata       map[string]any `bson:"metadata"`
			Embedding      []float32      `bson:"embedding"`
			Fingerprint    string         `bson:"fingerprint"`
			Importance     float64        `bson:"importance"`
			CreatedAt      time.Time      `bson:"created_at"`
			LastAccessedAt time.Time      `bson:"last_accessed_at"`
			AccessCount    int64          `bson:"access_count"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, &model.Record{
			ID:             doc.ID,
			Content:        doc.Content,
			Kind:           doc.Kind,
			Category:       doc.Category,
			Tags:           doc.Tags,
			Metadata:       doc.Metadata,
			Embedding:      doc.Embedding,
			Fingerprint:    doc.Fingerprint,
			Importance:     doc.Importance,
			CreatedAt:      doc.CreatedAt,
			LastAccessedAt: doc.LastAccessedAt,
			AccessCount:    doc.AccessCount,
		})
	}
	return records, cur.Err()
}

func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	return ms.client.Disconnect(ctx)
}
