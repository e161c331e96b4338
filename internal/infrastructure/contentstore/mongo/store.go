// Package mongo stores extracted document content keyed by document id.
// Writes are idempotent upserts, so at-least-once redelivery never creates
// duplicate records.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/finvault/docclassify/internal/core/domain"
)

type Store struct {
	collection *mongo.Collection
}

// New connects and pings the server; the returned close function releases
// the client.
func New(ctx context.Context, uri, database, collection string) (*Store, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := &Store{collection: client.Database(database).Collection(collection)}
	closeFn := func() {
		_ = client.Disconnect(context.Background())
	}
	return store, closeFn, nil
}

func (s *Store) Upsert(ctx context.Context, record *domain.ContentRecord) error {
	filter := bson.M{"document_id": record.DocumentID}
	_, err := s.collection.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.WrapError(domain.ErrStoreWrite, "upsert content record",
			fmt.Errorf("document %d: %w", record.DocumentID, err))
	}
	return nil
}

// TrainingSamples returns the text and category of every record that has
// been classified, for retraining the model on accumulated data.
func (s *Store) TrainingSamples(ctx context.Context) ([]string, []string, error) {
	filter := bson.M{"metadata.category": bson.M{"$exists": true, "$ne": ""}}
	projection := options.Find().SetProjection(bson.M{"content": 1, "metadata.category": 1})

	cursor, err := s.collection.Find(ctx, filter, projection)
	if err != nil {
		return nil, nil, fmt.Errorf("find training samples: %w", err)
	}
	defer cursor.Close(ctx)

	var texts, labels []string
	for cursor.Next(ctx) {
		var record domain.ContentRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, nil, fmt.Errorf("decode training sample: %w", err)
		}
		texts = append(texts, record.Content)
		labels = append(labels, record.Metadata.Category)
	}
	if err := cursor.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate training samples: %w", err)
	}
	return texts, labels, nil
}
