package databases

// go generate: mockery --name HistoryDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/grievance-api/models"
)

const historyName = "report_history"

// HistoryDatabase stores the audit trail of report status changes
type HistoryDatabase interface {
	Record(ctx context.Context, change models.StatusChange) error
	FindByReport(ctx context.Context, reportID string) ([]models.StatusChange, error)
}

type historyDatabase struct {
	db DatabaseHelper
}

// NewHistoryDatabase initializes a new instance of history database with the provided db connection
func NewHistoryDatabase(db DatabaseHelper) HistoryDatabase {
	return &historyDatabase{
		db: db,
	}
}

func (h *historyDatabase) Record(ctx context.Context, change models.StatusChange) error {
	if change.ID == "" {
		change.ID = primitive.NewObjectID().Hex()
	}
	_, err := h.db.Collection(historyName).InsertOne(ctx, change)
	return err
}

func (h *historyDatabase) FindByReport(ctx context.Context, reportID string) ([]models.StatusChange, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}, {Key: "createdAt", Value: 1}})
	cursor, err := h.db.Collection(historyName).Find(ctx, bson.M{"reportId": reportID}, opts)
	if err != nil {
		return nil, err
	}
	changes := []models.StatusChange{}
	if err := cursor.Decode(&changes); err != nil {
		return nil, err
	}
	return changes, nil
}
