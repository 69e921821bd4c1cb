package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hadialmais/lynqmarket_backend/models"
)

// ServiceStore is the slice of the catalog the negotiation engine touches:
// reading a listing and pushing the commission projection onto it.
type ServiceStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Service, error)
	UpdateCommissionProjection(ctx context.Context, serviceID primitive.ObjectID, projection models.ServiceCommissionProjection) error
}

// ServiceRepository is the MongoDB-backed ServiceStore
type ServiceRepository struct {
	collection *mongo.Collection
}

func NewServiceRepository(db *mongo.Database) *ServiceRepository {
	return &ServiceRepository{
		collection: db.Collection("services"),
	}
}

func (r *ServiceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Service, error) {
	var service models.Service
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NewNotFoundError("service not found")
		}
		return nil, err
	}
	return &service, nil
}

// UpdateCommissionProjection mirrors commission state onto the service for
// fast catalog reads. A missing service is not an error: the listing may
// have been deleted while the negotiation was still open, and the
// commission record stays authoritative either way.
func (r *ServiceRepository) UpdateCommissionProjection(ctx context.Context, serviceID primitive.ObjectID, projection models.ServiceCommissionProjection) error {
	set := bson.M{
		"commissionStatus": projection.CommissionStatus,
		"commissionId":     projection.CommissionID,
		"updatedAt":        time.Now(),
	}
	if projection.FinalCommissionPercentage != nil {
		set["finalCommissionPercentage"] = *projection.FinalCommissionPercentage
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": serviceID}, bson.M{"$set": set})
	return err
}
