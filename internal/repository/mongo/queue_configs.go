package mongorepo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/queueservice/internal/domain"
)

type QueueConfigRepository struct {
	col *mongo.Collection
}

type queueConfigDoc struct {
	ID                 string `bson:"_id"`
	domain.QueueConfig `bson:",inline"`
	UpdatedAt          int64 `bson:"updatedAt"`
}

func NewQueueConfigRepository(client *mongo.Client, dbName, collectionName string) *QueueConfigRepository {
	return &QueueConfigRepository{col: client.Database(dbName).Collection(collectionName)}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// List returns stored descriptors ordered by key.
func (r *QueueConfigRepository) List(ctx context.Context) ([]domain.QueueConfig, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]domain.QueueConfig, 0)
	for cursor.Next(ctx) {
		var doc queueConfigDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.QueueConfig)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert saves a descriptor under its "appid|prefix" key, setting updatedAt
// to now.
func (r *QueueConfigRepository) Upsert(ctx context.Context, cfg domain.QueueConfig) error {
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil
	}
	_, err := r.col.UpdateOne(
		ctx,
		bson.M{"_id": cfg.Key()},
		bson.M{"$set": bson.M{
			"appId":     cfg.AppID,
			"appName":   cfg.AppName,
			"prefix":    cfg.Prefix,
			"type":      cfg.Type,
			"sources":   cfg.Sources,
			"updatedAt": time.Now().UnixMilli(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *QueueConfigRepository) Delete(ctx context.Context, key string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil
	}
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
