package databases

// go generate: mockery --name LocationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ojamarket/realtime-api/models"
)

const agentLocationName = "agentlocations"

// LocationDatabase contains the methods to use with the agent location history database
type LocationDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AgentLocation, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error)
}

type locationDatabase struct {
	db DatabaseHelper
}

// NewLocationDatabase initializes a new instance of location database with the provided db connection
func NewLocationDatabase(db DatabaseHelper) LocationDatabase {
	return &locationDatabase{
		db: db,
	}
}

func (l *locationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AgentLocation, error) {
	var samples []models.AgentLocation
	curr, err := l.db.Collection(agentLocationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &samples)
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (l *locationDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := l.db.Collection(agentLocationName).InsertOne(ctx, document, opts...)
	return res, err
}

func (l *locationDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return l.db.Collection(agentLocationName).DeleteMany(ctx, filter, opts...)
}
