package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoKnowledgeRepo struct {
	db *mongo.Database
}

func (r *mongoKnowledgeRepo) Load(ctx context.Context) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	coll := r.db.Collection("kuro_knowledge")
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "question", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Replace upserts every document, then drops the ones no longer present.
// The two steps are not transactional: a crash in between leaves removed
// keys behind until the next snapshot.
func (r *mongoKnowledgeRepo) Replace(ctx context.Context, docs []Document) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	coll := r.db.Collection("kuro_knowledge")
	keys := make([]string, 0, len(docs))
	if len(docs) > 0 {
		models := make([]mongo.WriteModel, 0, len(docs))
		for _, doc := range docs {
			keys = append(keys, doc.Question)
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"question": doc.Question}).
				SetReplacement(doc).
				SetUpsert(true))
		}
		if _, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("bulk upsert: %w", err)
		}
	}
	if _, err := coll.DeleteMany(ctx, bson.M{"question": bson.M{"$nin": keys}}); err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	_, err := r.db.Collection("kuro_snapshot").ReplaceOne(ctx,
		bson.M{"_id": "current"},
		bson.M{"_id": "current", "uuid": uuid.New().String(), "records": len(docs), "date_created": time.Now()},
		options.Replace().SetUpsert(true),
	)
	return err
}

type mongoArtifactRepo struct {
	db *mongo.Database
}

func (r *mongoArtifactRepo) Get(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		Data []byte `bson:"data"`
	}
	err := r.db.Collection("kuro_artifact").FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (r *mongoArtifactRepo) Put(ctx context.Context, name string, blob []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Collection("kuro_artifact").ReplaceOne(ctx,
		bson.M{"name": name},
		bson.M{"name": name, "data": blob, "date_updated": time.Now()},
		options.Replace().SetUpsert(true),
	)
	return err
}
