package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hadialmais/lynqmarket_backend/models"
)

// CommissionFilter narrows admin listing queries
type CommissionFilter struct {
	Status        string
	Type          string
	ManagerID     *primitive.ObjectID
	ServiceID     *primitive.ObjectID
	MinPercentage *float64
	MaxPercentage *float64
}

// CommissionStatusStat is one by-status aggregation bucket
type CommissionStatusStat struct {
	Status        string  `bson:"_id" json:"status"`
	Count         int64   `bson:"count" json:"count"`
	AvgPercentage float64 `bson:"avgPercentage" json:"avgOfferedPercentage"`
}

// CommissionMonthlyStat is one (year, month) creation bucket
type CommissionMonthlyStat struct {
	Year  int   `bson:"year" json:"year"`
	Month int   `bson:"month" json:"month"`
	Count int64 `bson:"count" json:"count"`
}

// CommissionGlobalStats holds totals across all commissions. Averages skip
// records where the underlying field is unset.
type CommissionGlobalStats struct {
	Total            int64    `bson:"total" json:"total"`
	AvgOffered       *float64 `bson:"avgOffered" json:"avgOfferedPercentage,omitempty"`
	AvgAdminCounter  *float64 `bson:"avgAdminCounter" json:"avgAdminCounterPercentage,omitempty"`
	AvgFinal         *float64 `bson:"avgFinal" json:"avgFinalPercentage,omitempty"`
	AcceptedTotal    int64    `bson:"acceptedTotal" json:"acceptedTotal"`
	RejectedTotal    int64    `bson:"rejectedTotal" json:"rejectedTotal"`
	OutstandingTotal int64    `bson:"outstandingTotal" json:"outstandingTotal"`
}

// CommissionStore is the persistence boundary of the negotiation engine.
// Update is conditional on the status observed at read time so concurrent
// responses to the same commission cannot silently overwrite a terminal
// transition.
type CommissionStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	FindByService(ctx context.Context, serviceID primitive.ObjectID) (*models.Commission, error)
	Insert(ctx context.Context, commission *models.Commission) error
	Update(ctx context.Context, commission *models.Commission, expectedStatus string) error
	Find(ctx context.Context, filter CommissionFilter) ([]models.Commission, error)
	FindByManager(ctx context.Context, managerID primitive.ObjectID) ([]models.Commission, error)
	StatusStats(ctx context.Context, managerID *primitive.ObjectID) ([]CommissionStatusStat, error)
	MonthlyStats(ctx context.Context, buckets int) ([]CommissionMonthlyStat, error)
	GlobalStats(ctx context.Context) (*CommissionGlobalStats, error)
}

// CommissionRepository is the MongoDB-backed CommissionStore
type CommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{
		collection: db.Collection("commissions"),
	}
}

func (r *CommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&commission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NewNotFoundError("commission not found")
		}
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) FindByService(ctx context.Context, serviceID primitive.ObjectID) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"serviceId": serviceID}).Decode(&commission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.NewNotFoundError("no commission found for service")
		}
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) Insert(ctx context.Context, commission *models.Commission) error {
	result, err := r.collection.InsertOne(ctx, commission)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		commission.ID = oid
	}
	return nil
}

// Update replaces the commission document only if its status still matches
// the value observed when it was read. A non-matching status means another
// response landed in between; the caller gets a state error instead of a
// silent lost update.
func (r *CommissionRepository) Update(ctx context.Context, commission *models.Commission, expectedStatus string) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{
		"_id":    commission.ID,
		"status": expectedStatus,
	}, commission)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.NewInvalidStateError("commission was modified concurrently, please retry")
	}
	return nil
}

func (r *CommissionRepository) Find(ctx context.Context, filter CommissionFilter) ([]models.Commission, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.ManagerID != nil {
		query["managerId"] = *filter.ManagerID
	}
	if filter.ServiceID != nil {
		query["serviceId"] = *filter.ServiceID
	}
	if filter.MinPercentage != nil || filter.MaxPercentage != nil {
		rangeQuery := bson.M{}
		if filter.MinPercentage != nil {
			rangeQuery["$gte"] = *filter.MinPercentage
		}
		if filter.MaxPercentage != nil {
			rangeQuery["$lte"] = *filter.MaxPercentage
		}
		query["offeredPercentage"] = rangeQuery
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err = cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *CommissionRepository) FindByManager(ctx context.Context, managerID primitive.ObjectID) ([]models.Commission, error) {
	return r.Find(ctx, CommissionFilter{ManagerID: &managerID})
}

// StatusStats groups commissions by status with count and average offered
// percentage; a non-nil managerID restricts the view to one manager.
func (r *CommissionRepository) StatusStats(ctx context.Context, managerID *primitive.ObjectID) ([]CommissionStatusStat, error) {
	match := bson.M{}
	if managerID != nil {
		match["managerId"] = *managerID
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":           "$status",
			"count":         bson.M{"$sum": 1},
			"avgPercentage": bson.M{"$avg": "$offeredPercentage"},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []CommissionStatusStat
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// MonthlyStats returns creation counts grouped by (year, month), most
// recent buckets first.
func (r *CommissionRepository) MonthlyStats(ctx context.Context, buckets int) ([]CommissionMonthlyStat, error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$createdAt"},
				"month": bson.M{"$month": "$createdAt"},
			},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id.year": -1, "_id.month": -1}},
		{"$limit": buckets},
		{"$project": bson.M{
			"_id":   0,
			"year":  "$_id.year",
			"month": "$_id.month",
			"count": 1,
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []CommissionMonthlyStat
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// GlobalStats averages offered, counter and final percentages across all
// records. $avg ignores missing fields, which is exactly the exclusion the
// dashboard needs.
func (r *CommissionRepository) GlobalStats(ctx context.Context) (*CommissionGlobalStats, error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":             nil,
			"total":           bson.M{"$sum": 1},
			"avgOffered":      bson.M{"$avg": "$offeredPercentage"},
			"avgAdminCounter": bson.M{"$avg": "$adminCounterPercentage"},
			"avgFinal":        bson.M{"$avg": "$finalPercentage"},
			"acceptedTotal": bson.M{"$sum": bson.M{
				"$cond": []interface{}{bson.M{"$eq": []interface{}{"$status", models.CommissionStatusAccepted}}, 1, 0},
			}},
			"rejectedTotal": bson.M{"$sum": bson.M{
				"$cond": []interface{}{bson.M{"$eq": []interface{}{"$status", models.CommissionStatusRejected}}, 1, 0},
			}},
			"outstandingTotal": bson.M{"$sum": bson.M{
				"$cond": []interface{}{bson.M{"$in": []interface{}{"$status", []string{
					models.CommissionStatusPending, models.CommissionStatusNegotiating,
				}}}, 1, 0},
			}},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := &CommissionGlobalStats{}
	if cursor.Next(ctx) {
		if err := cursor.Decode(stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// EnsureIndexes creates the lookup indexes the engine relies on
func (r *CommissionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "managerId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	})
	return err
}
