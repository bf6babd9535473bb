// Package mongo persists watch history and player settings in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streamadesk/internal/domain"
)

// WatchHistoryRepository stores one document per (media, episode) pair.
type WatchHistoryRepository struct {
	collection *mongo.Collection
}

type watchPositionDoc struct {
	ID        string  `bson:"_id"` // "<mediaID>:<episodeID>"
	MediaID   int64   `bson:"mediaId"`
	EpisodeID int64   `bson:"episodeId"`
	Title     string  `bson:"title"`
	Position  float64 `bson:"position"`
	Duration  float64 `bson:"duration"`
	UpdatedAt int64   `bson:"updatedAt"`
}

func NewWatchHistoryRepository(client *mongo.Client, dbName string) *WatchHistoryRepository {
	return &WatchHistoryRepository{collection: client.Database(dbName).Collection("watch_history")}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *WatchHistoryRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "mediaId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *WatchHistoryRepository) Upsert(ctx context.Context, pos domain.WatchPosition) error {
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now().UTC()
	}
	doc := toDoc(pos)
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *WatchHistoryRepository) Get(ctx context.Context, mediaID, episodeID int64) (domain.WatchPosition, error) {
	var doc watchPositionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": positionID(mediaID, episodeID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.WatchPosition{}, domain.ErrNotFound
		}
		return domain.WatchPosition{}, err
	}
	return fromDoc(doc), nil
}

func (r *WatchHistoryRepository) Recent(ctx context.Context, limit int) ([]domain.WatchPosition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []watchPositionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	positions := make([]domain.WatchPosition, 0, len(docs))
	for _, doc := range docs {
		positions = append(positions, fromDoc(doc))
	}
	return positions, nil
}

func (r *WatchHistoryRepository) Delete(ctx context.Context, mediaID, episodeID int64) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": positionID(mediaID, episodeID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func positionID(mediaID, episodeID int64) string {
	return fmt.Sprintf("%d:%d", mediaID, episodeID)
}

func toDoc(pos domain.WatchPosition) watchPositionDoc {
	return watchPositionDoc{
		ID:        positionID(pos.MediaID, pos.EpisodeID),
		MediaID:   pos.MediaID,
		EpisodeID: pos.EpisodeID,
		Title:     pos.Title,
		Position:  pos.Position,
		Duration:  pos.Duration,
		UpdatedAt: pos.UpdatedAt.Unix(),
	}
}

func fromDoc(doc watchPositionDoc) domain.WatchPosition {
	return domain.WatchPosition{
		MediaID:   doc.MediaID,
		EpisodeID: doc.EpisodeID,
		Title:     doc.Title,
		Position:  doc.Position,
		Duration:  doc.Duration,
		UpdatedAt: time.Unix(doc.UpdatedAt, 0).UTC(),
	}
}
