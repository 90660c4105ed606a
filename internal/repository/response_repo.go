package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campaignlens/internal/model"
)

// ResponseRepo reads survey submissions from the response store
type ResponseRepo interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]model.ResponseRecord, error)
	InsertMany(ctx context.Context, records []model.ResponseRecord) (int, error)
	DeleteByCampaign(ctx context.Context, campaignID string) (int64, error)
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a response repository on the responses collection
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

// ListByCampaign returns all responses of a campaign, oldest first
func (r *responseRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.ResponseRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"campaignId": campaignID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find responses: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]model.ResponseRecord, 0)
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}

	return records, nil
}

// InsertMany stores records as given. Only the seeder writes responses.
func (r *responseRepo) InsertMany(ctx context.Context, records []model.ResponseRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert responses: %w", err)
	}
	return len(result.InsertedIDs), nil
}

// DeleteByCampaign removes every response of a campaign
func (r *responseRepo) DeleteByCampaign(ctx context.Context, campaignID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"campaignId": campaignID})
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	return result.DeletedCount, nil
}
