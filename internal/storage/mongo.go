package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"telereader/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	messagesCollection    = "messages"
	checkpointsCollection = "backfill_checkpoints"
)

// MongoStore persists messages and checkpoints to MongoDB. The database
// name is taken from the connection URI.
type MongoStore struct {
	client      *mongo.Client
	messages    *mongo.Collection
	checkpoints *mongo.Collection
}

// NewMongoStore connects and ensures the unique indexes that back the
// upsert and checkpoint contracts.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	dbName, err := databaseFromURI(uri)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(dbName)

	s := &MongoStore{
		client:      client,
		messages:    db.Collection(messagesCollection),
		checkpoints: db.Collection(checkpointsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "channel_id", Value: 1}, {Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	_, err = s.checkpoints.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "channel_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create checkpoint index: %w", err)
	}
	return nil
}

func (s *MongoStore) UpsertMessage(ctx context.Context, msg *models.Message) error {
	filter := bson.M{"channel_id": msg.ChannelID, "message_id": msg.MessageID}
	update := bson.M{"$set": msg}

	_, err := s.messages.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert message %s/%d: %w", msg.ChannelID, msg.MessageID, err)
	}
	return nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, channelID string, messageID int64) (bool, error) {
	res, err := s.messages.DeleteOne(ctx, bson.M{"channel_id": channelID, "message_id": messageID})
	if err != nil {
		return false, fmt.Errorf("failed to delete message %s/%d: %w", channelID, messageID, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) GetLatestMessageID(ctx context.Context, channelID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "message_id", Value: -1}})

	var msg models.Message
	err := s.messages.FindOne(ctx, bson.M{"channel_id": channelID}, opts).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest message id for %s: %w", channelID, err)
	}
	return msg.MessageID, nil
}

func (s *MongoStore) GetCheckpoint(ctx context.Context, channelID string) (int64, error) {
	var cp models.Checkpoint
	err := s.checkpoints.FindOne(ctx, bson.M{"channel_id": channelID}).Decode(&cp)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint for %s: %w", channelID, err)
	}
	return cp.LastBackfilledID, nil
}

func (s *MongoStore) UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error {
	filter := bson.M{"channel_id": channelID}
	// $max makes the update monotonic: a lower value is a no-op.
	update := bson.M{"$max": bson.M{"last_backfilled_id": messageID}}

	_, err := s.checkpoints.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update checkpoint for %s: %w", channelID, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// databaseFromURI extracts the database name from the connection URI
// path, e.g. mongodb://host:27017/telereader?authSource=admin.
func databaseFromURI(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongodb URI: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mongodb URI must include a database name")
	}
	return dbName, nil
}
