package databases

// go generate: mockery --name BroadcastDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/grievance-api/models"
)

const broadcastName = "broadcasts"

// BroadcastDatabase keeps administrator broadcasts so reconnecting sessions
// can catch up on what they missed
type BroadcastDatabase interface {
	InsertOne(ctx context.Context, broadcast models.Broadcast) error
	Recent(ctx context.Context, limit int) ([]models.Broadcast, error)
}

type broadcastDatabase struct {
	db DatabaseHelper
}

// NewBroadcastDatabase initializes a new instance of broadcast database with the provided db connection
func NewBroadcastDatabase(db DatabaseHelper) BroadcastDatabase {
	return &broadcastDatabase{
		db: db,
	}
}

func (b *broadcastDatabase) InsertOne(ctx context.Context, broadcast models.Broadcast) error {
	_, err := b.db.Collection(broadcastName).InsertOne(ctx, broadcast)
	return err
}

func (b *broadcastDatabase) Recent(ctx context.Context, limit int) ([]models.Broadcast, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := b.db.Collection(broadcastName).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	broadcasts := []models.Broadcast{}
	if err := cursor.Decode(&broadcasts); err != nil {
		return nil, err
	}
	return broadcasts, nil
}
