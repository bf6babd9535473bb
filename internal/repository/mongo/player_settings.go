package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streamadesk/internal/app"
	"streamadesk/internal/domain"
)

const playerSettingsID = "player"

type playerSettingsDoc struct {
	ID           string `bson:"_id"`
	PlaybackMode string `bson:"playbackMode"`
	BufferSizeMB int    `bson:"bufferSizeMb"`
	SubtitleSize int    `bson:"subtitleSize"`
	SubtitleBold bool   `bson:"subtitleBold"`
	UpdatedAt    int64  `bson:"updatedAt"`
}

type PlayerSettingsRepository struct {
	collection *mongo.Collection
}

func NewPlayerSettingsRepository(client *mongo.Client, dbName string) *PlayerSettingsRepository {
	return &PlayerSettingsRepository{collection: client.Database(dbName).Collection("settings")}
}

func (r *PlayerSettingsRepository) GetPlayerSettings(ctx context.Context) (app.PlayerSettings, bool, error) {
	var doc playerSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": playerSettingsID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return app.PlayerSettings{}, false, nil
		}
		return app.PlayerSettings{}, false, err
	}
	return app.PlayerSettings{
		PlaybackMode: domain.ParsePlaybackMode(doc.PlaybackMode),
		BufferSizeMB: doc.BufferSizeMB,
		SubtitleSize: doc.SubtitleSize,
		SubtitleBold: doc.SubtitleBold,
	}, true, nil
}

func (r *PlayerSettingsRepository) SetPlayerSettings(ctx context.Context, settings app.PlayerSettings) error {
	update := bson.M{
		"$set": bson.M{
			"playbackMode": settings.PlaybackMode.String(),
			"bufferSizeMb": settings.BufferSizeMB,
			"subtitleSize": settings.SubtitleSize,
			"subtitleBold": settings.SubtitleBold,
			"updatedAt":    time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": playerSettingsID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}
