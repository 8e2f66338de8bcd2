package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

// ErrReportNotFound indicates no snapshot exists for the requested date.
var ErrReportNotFound = errors.New("daily report not found")

// Repository defines the interface for report storage.
type Repository interface {
	SaveDailyReport(ctx context.Context, report models.DailyQueueReport) error
	GetDailyReport(ctx context.Context, date string) (*models.DailyQueueReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "daily_queue_reports",
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveDailyReport upserts the snapshot for the report date; rerunning a day replaces it.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyQueueReport) error {
	_, err := r.collection().ReplaceOne(ctx,
		bson.M{"date": report.Date},
		report,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily report %s: %w", report.Date, err)
	}
	return nil
}

// GetDailyReport loads the stored snapshot for date.
func (r *MongoDBRepository) GetDailyReport(ctx context.Context, date string) (*models.DailyQueueReport, error) {
	var report models.DailyQueueReport
	err := r.collection().FindOne(ctx, bson.M{"date": date}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily report %s: %w", date, err)
	}
	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
