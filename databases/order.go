package databases

// go generate: mockery --name OrderDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ojamarket/realtime-api/models"
)

const orderName = "orders"

// OrderDatabase contains the methods to use with the order database. The
// realtime core treats orders as read-only: it only resolves participants.
type OrderDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Order, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Order, error)
}

type orderDatabase struct {
	db DatabaseHelper
}

// NewOrderDatabase initializes a new instance of order database with the provided db connection
func NewOrderDatabase(db DatabaseHelper) OrderDatabase {
	return &orderDatabase{
		db: db,
	}
}

func (o *orderDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Order, error) {
	order := &models.Order{}
	err := o.db.Collection(orderName).FindOne(ctx, filter, opts...).Decode(&order)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (o *orderDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Order, error) {
	var orders []models.Order
	curr, err := o.db.Collection(orderName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
