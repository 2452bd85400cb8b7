package events

import (
	"context"
	"fmt"

	"github.com/senyabanana/furniture-market/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const historyCollection = "proposal_history"

// HistoryRecorder сохраняет каждое событие в MongoDB как запись истории
// статусов заявки.
type HistoryRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewHistoryRecorder подключается к MongoDB и создаёт индекс по заявке.
func NewHistoryRecorder(ctx context.Context, uri, database string) (*HistoryRecorder, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(historyCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "request_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}
	return &HistoryRecorder{client: client, collection: collection}, nil
}

func (h *HistoryRecorder) Emit(ctx context.Context, event models.Event) error {
	if _, err := h.collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("save history for event %s: %w", event.ID, err)
	}
	return nil
}

// RequestHistory возвращает историю событий заявки в хронологическом порядке.
func (h *HistoryRecorder) RequestHistory(ctx context.Context, requestID string) ([]models.Event, error) {
	cursor, err := h.collection.Find(ctx,
		bson.D{{Key: "request_id", Value: requestID}},
		options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find history for request %s: %w", requestID, err)
	}
	history := []models.Event{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("decode history for request %s: %w", requestID, err)
	}
	return history, nil
}

func (h *HistoryRecorder) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}
